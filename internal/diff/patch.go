package diff

import (
	"fmt"
	"strings"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// BuildPatch renders a filename, start coordinates and line sequence into
// valid unified-diff text. Old and new line counts are recomputed from the
// lines themselves rather than trusted from the caller, so the output
// header always matches the body.
//
// Feeding the result back through ParseHunks reproduces a hunk with
// identical lines and coordinates; that round-trip is this function's
// correctness contract.
func BuildPatch(filename string, oldStart, newStart int, lines []domain.Line) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", filename)
	fmt.Fprintf(&b, "+++ b/%s\n", filename)
	writeHunkBlock(&b, oldStart, newStart, lines)
	return b.String()
}

// HunkPatch renders a parsed hunk back into a standalone patch.
func HunkPatch(h domain.Hunk) string {
	return BuildPatch(h.Filename, h.OldStart, h.NewStart, h.Lines)
}

// writeHunkBlock emits one @@ header and its marker-prefixed body lines.
func writeHunkBlock(b *strings.Builder, oldStart, newStart int, lines []domain.Line) {
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n",
		oldStart, domain.OldCount(lines), newStart, domain.NewCount(lines))
	for _, l := range lines {
		b.WriteByte(l.Kind.Marker())
		b.WriteString(l.Content)
		b.WriteByte('\n')
	}
}
