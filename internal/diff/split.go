package diff

import (
	"fmt"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// SubHunk extracts lines[start:end) of a hunk into a new, independently
// valid hunk with recomputed coordinates. The new old/new starts advance
// past the old-counted and new-counted lines preceding start, so the
// sub-hunk applies cleanly on its own.
//
// The source hunk is never mutated. A sub-hunk must contain at least one
// line: inverted or out-of-bounds indices return ErrRange.
func SubHunk(h domain.Hunk, start, end int) (domain.Hunk, error) {
	if start >= end || start < 0 || end > len(h.Lines) {
		return domain.Hunk{}, fmt.Errorf("sub-hunk [%d,%d) of %d lines: %w",
			start, end, len(h.Lines), ErrRange)
	}

	prefix := h.Lines[:start]
	segment := make([]domain.Line, end-start)
	copy(segment, h.Lines[start:end])

	return domain.Hunk{
		Filename:  h.Filename,
		HunkIndex: h.HunkIndex,
		OldStart:  h.OldStart + domain.OldCount(prefix),
		OldLines:  domain.OldCount(segment),
		NewStart:  h.NewStart + domain.NewCount(prefix),
		NewLines:  domain.NewCount(segment),
		Lines:     segment,
	}, nil
}
