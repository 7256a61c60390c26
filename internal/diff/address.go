package diff

import (
	"fmt"
	"strings"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// stableIDMarker separates the filename from the coordinate segment of a
// stable hunk id. Filenames containing this literal substring produce ids
// that do not round-trip; the format is an external wire contract and does
// not escape filenames.
const stableIDMarker = ":@-"

// Address is the durable identity of a hunk: its filename plus header
// coordinates, independent of parse order.
type Address struct {
	Filename string
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// StableID formats a hunk's stable address as
// "<filename>:@-<oldStart>,<oldLines>+<newStart>,<newLines>",
// e.g. "src/main.go:@-10,6+10,7". The result depends only on the hunk's
// filename and coordinates, never on its ephemeral ID.
func StableID(h domain.Hunk) string {
	return fmt.Sprintf("%s%s%d,%d+%d,%d",
		h.Filename, stableIDMarker, h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// ParseStableID is the inverse of StableID. The marker is searched from the
// end of the string so filenames containing colons are tolerated. Returns
// ErrInvalidHunkID when the trailing coordinate segment does not match four
// comma/plus-delimited non-negative integers.
func ParseStableID(id string) (Address, error) {
	idx := strings.LastIndex(id, stableIDMarker)
	if idx < 0 {
		return Address{}, fmt.Errorf("%q: missing %q marker: %w", id, stableIDMarker, ErrInvalidHunkID)
	}

	coords := id[idx+len(stableIDMarker):]
	oldPart, newPart, ok := strings.Cut(coords, "+")
	if !ok {
		return Address{}, fmt.Errorf("%q: %w", id, ErrInvalidHunkID)
	}

	oldStart, oldLines, err := parseIDPair(oldPart)
	if err != nil {
		return Address{}, fmt.Errorf("%q: %w", id, ErrInvalidHunkID)
	}
	newStart, newLines, err := parseIDPair(newPart)
	if err != nil {
		return Address{}, fmt.Errorf("%q: %w", id, ErrInvalidHunkID)
	}

	return Address{
		Filename: id[:idx],
		OldStart: oldStart,
		OldLines: oldLines,
		NewStart: newStart,
		NewLines: newLines,
	}, nil
}

func parseIDPair(s string) (start, count int, err error) {
	startPart, countPart, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("missing comma in %q", s)
	}
	start, err = parseNonNegative(startPart)
	if err != nil {
		return 0, 0, err
	}
	count, err = parseNonNegative(countPart)
	if err != nil {
		return 0, 0, err
	}
	return start, count, nil
}

// FindByStableID scans hunks for the one whose stable id matches exactly.
// A miss is a normal outcome, not an error: the working tree may have
// changed since the id was issued, so callers branch on the boolean.
func FindByStableID(hunks []domain.Hunk, id string) (domain.Hunk, bool) {
	for _, h := range hunks {
		if StableID(h) == id {
			return h, true
		}
	}
	return domain.Hunk{}, false
}
