package domain

// LineKind classifies a single body line of a unified-diff hunk.
type LineKind int

const (
	// LineContext is an unchanged line (prefix ' ').
	LineContext LineKind = iota
	// LineAdd is an added line (prefix '+').
	LineAdd
	// LineRemove is a removed line (prefix '-').
	LineRemove
)

// Marker returns the single-character prefix for this kind in unified-diff
// output.
func (k LineKind) Marker() byte {
	switch k {
	case LineAdd:
		return '+'
	case LineRemove:
		return '-'
	default:
		return ' '
	}
}

// Line is one body line of a hunk, stored without its marker prefix.
// Lines are immutable once parsed; transformations build new slices.
type Line struct {
	Kind    LineKind
	Content string
}

// CountsOld reports whether the line occupies a position in the old file
// (context and removed lines do; added lines do not).
func (l Line) CountsOld() bool {
	return l.Kind == LineContext || l.Kind == LineRemove
}

// CountsNew reports whether the line occupies a position in the new file
// (context and added lines do; removed lines do not).
func (l Line) CountsNew() bool {
	return l.Kind == LineContext || l.Kind == LineAdd
}

// Hunk is one contiguous @@ block of a unified diff for one file.
//
// ID is a parse-run-local index starting at 1, assigned in file order then
// intra-file hunk order. It is a convenience handle for a single parsed
// snapshot and must never be persisted or compared across parses; use the
// stable address codec for durable identity.
type Hunk struct {
	ID        int
	Filename  string
	HunkIndex int // 0-based position within its file
	OldStart  int
	OldLines  int
	NewStart  int
	NewLines  int
	Lines     []Line
}

// OldRange returns the half-open [start, end) range the hunk occupies in
// the old file.
func (h Hunk) OldRange() (start, end int) {
	return h.OldStart, h.OldStart + h.OldLines
}

// OldCount tallies the lines that count against the old file.
func OldCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.CountsOld() {
			n++
		}
	}
	return n
}

// NewCount tallies the lines that count against the new file.
func NewCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		if l.CountsNew() {
			n++
		}
	}
	return n
}
