package session

import (
	"fmt"
	"strings"

	"github.com/hunktrack/hunktrack/internal/diff"
	"github.com/hunktrack/hunktrack/internal/domain"
)

// ContextXML renders the hunks of a session into the tagged payload handed
// to the external review orchestrator. Each hunk's trimmed patch text is
// wrapped in a <hunk> element carrying the ephemeral id the orchestrator
// must echo back in its group assignments.
func ContextXML(hunks []domain.Hunk) string {
	var b strings.Builder
	b.WriteString("<hunks>\n")
	for _, h := range hunks {
		fmt.Fprintf(&b, "<hunk id=\"%d\" file=%q lines=\"%d\">\n", h.ID, h.Filename, len(h.Lines))
		b.WriteString(strings.TrimSpace(diff.HunkPatch(h)))
		b.WriteString("\n</hunk>\n")
	}
	b.WriteString("</hunks>")
	return b.String()
}
