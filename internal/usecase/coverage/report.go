package coverage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// Group is one review group's assignment of covered line ranges, keyed by
// the same hunk keys the session uses. It is opaque input produced by an
// external review orchestration process.
type Group struct {
	Name   string
	Ranges map[string][]Interval
}

// ApplyGroup folds a review group's assignments into the coverage map in a
// single pass. An assignment referencing an unknown hunk key is skipped and
// reported as a warning rather than failing the whole group, so one bad
// reference cannot discard the rest of the group's progress. An inverted
// range is a caller bug and returns ErrRange.
func ApplyGroup(hunks map[string]domain.Hunk, m Map, g Group) ([]string, error) {
	keys := make([]string, 0, len(g.Ranges))
	for key := range g.Ranges {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		h, ok := hunks[key]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("group %q references unknown hunk %q", g.Name, key))
			continue
		}
		for _, iv := range g.Ranges[key] {
			if err := m.MarkCovered(key, iv, len(h.Lines)); err != nil {
				return warnings, fmt.Errorf("group %q, hunk %q: %w", g.Name, key, err)
			}
		}
	}
	return warnings, nil
}

// UncoveredPortion describes the line positions of one hunk that no review
// group has covered yet. Computed on demand; never persisted.
type UncoveredPortion struct {
	Key     string
	Hunk    domain.Hunk
	Ranges  []Interval
	Preview string
}

// UncoveredPortions computes, for every hunk with content lines, the
// complement of its coverage. Hunks that are fully covered are absent from
// the result. Output is ordered by filename, then hunk index, so reports
// are deterministic.
func UncoveredPortions(hunks map[string]domain.Hunk, m Map, previewLines int) []UncoveredPortion {
	var portions []UncoveredPortion
	for key, h := range hunks {
		if len(h.Lines) == 0 {
			continue
		}
		covered, _ := m.Covered(key)
		gaps := Complement(covered, len(h.Lines))
		if len(gaps) == 0 {
			continue
		}
		portions = append(portions, UncoveredPortion{
			Key:     key,
			Hunk:    h,
			Ranges:  gaps,
			Preview: previewText(h, gaps[0], previewLines),
		})
	}

	sort.Slice(portions, func(i, j int) bool {
		if portions[i].Hunk.Filename != portions[j].Hunk.Filename {
			return portions[i].Hunk.Filename < portions[j].Hunk.Filename
		}
		return portions[i].Hunk.HunkIndex < portions[j].Hunk.HunkIndex
	})
	return portions
}

// previewText renders the first few lines of an uncovered range with their
// diff markers, truncated for diagnostics.
func previewText(h domain.Hunk, gap Interval, previewLines int) string {
	if previewLines <= 0 {
		previewLines = 2
	}
	end := gap.Start + previewLines
	if end > gap.End {
		end = gap.End
	}

	var b strings.Builder
	for i := gap.Start; i < end; i++ {
		if i > gap.Start {
			b.WriteByte('\n')
		}
		l := h.Lines[i]
		b.WriteByte(l.Kind.Marker())
		b.WriteString(l.Content)
	}
	if end < gap.End {
		b.WriteString("\n...")
	}
	return b.String()
}

// FormatUncoveredMessage renders a deterministic human-readable summary of
// the uncovered portions. Pure formatting: no state is read or mutated
// beyond the slice given.
func FormatUncoveredMessage(portions []UncoveredPortion) string {
	if len(portions) == 0 {
		return "All hunks are fully covered."
	}

	sorted := make([]UncoveredPortion, len(portions))
	copy(sorted, portions)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Hunk.Filename != sorted[j].Hunk.Filename {
			return sorted[i].Hunk.Filename < sorted[j].Hunk.Filename
		}
		return sorted[i].Hunk.HunkIndex < sorted[j].Hunk.HunkIndex
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%d hunk(s) have uncovered lines:\n", len(sorted))
	for _, p := range sorted {
		var ranges []string
		for _, iv := range p.Ranges {
			ranges = append(ranges, fmt.Sprintf("[%d,%d)", iv.Start, iv.End))
		}
		fmt.Fprintf(&b, "- %s hunk %d: lines %s of %d uncovered\n",
			p.Hunk.Filename, p.Hunk.HunkIndex+1, strings.Join(ranges, ", "), len(p.Hunk.Lines))
		if p.Preview != "" {
			for _, line := range strings.Split(p.Preview, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
