package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// CombinePatches merges hunks (or sub-hunks) belonging to one file into a
// single patch: the file header once, then each hunk as its own @@ block in
// old-coordinate order. Unified-diff format does not require blocks to be
// contiguous, so non-adjacent hunks are emitted as separate blocks rather
// than padded into one.
//
// All hunks must name the same file, and their old-file ranges must not
// overlap; either violation returns ErrCombineConflict, since overlapping
// blocks cannot be ordered into one patch without ambiguity.
func CombinePatches(hunks []domain.Hunk) (string, error) {
	if len(hunks) == 0 {
		return "", fmt.Errorf("combine: no hunks given")
	}

	filename := hunks[0].Filename
	for _, h := range hunks[1:] {
		if h.Filename != filename {
			return "", fmt.Errorf("combine: filename mismatch %q vs %q: %w",
				filename, h.Filename, ErrCombineConflict)
		}
	}

	sorted := make([]domain.Hunk, len(hunks))
	copy(sorted, hunks)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].OldStart != sorted[j].OldStart {
			return sorted[i].OldStart < sorted[j].OldStart
		}
		return sorted[i].NewStart < sorted[j].NewStart
	})

	for i := 1; i < len(sorted); i++ {
		_, prevEnd := sorted[i-1].OldRange()
		curStart, _ := sorted[i].OldRange()
		// Pure-addition hunks have empty old ranges and never conflict.
		if prevEnd > curStart && sorted[i-1].OldLines > 0 && sorted[i].OldLines > 0 {
			return "", fmt.Errorf("combine: old ranges [%d,%d) and [%d,%d) overlap: %w",
				sorted[i-1].OldStart, prevEnd, curStart, curStart+sorted[i].OldLines,
				ErrCombineConflict)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", filename)
	fmt.Fprintf(&b, "+++ b/%s\n", filename)
	for _, h := range sorted {
		writeHunkBlock(&b, h.OldStart, h.NewStart, h.Lines)
	}
	return b.String(), nil
}
