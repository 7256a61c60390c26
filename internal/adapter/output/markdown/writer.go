package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hunktrack/hunktrack/internal/usecase/coverage"
	"github.com/hunktrack/hunktrack/internal/usecase/session"
)

type clock func() string

// Writer renders session coverage reports into Markdown files.
type Writer struct {
	now clock
}

// NewWriter constructs a Markdown writer with a timestamp supplier.
func NewWriter(now clock) *Writer {
	return &Writer{now: now}
}

// Artifact describes one coverage report to be written.
type Artifact struct {
	OutputDir string
	BaseRef   string
	TargetRef string
	Review    *session.Review
}

// Write persists a Markdown coverage report to disk and returns its path.
func (w *Writer) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.md",
		sanitise(artifact.Review.Key),
		w.now(),
	)
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildContent(artifact)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildContent(artifact Artifact) string {
	r := artifact.Review
	m := r.Coverage()

	var builder strings.Builder
	caser := cases.Title(language.English)
	builder.WriteString("# Review Coverage Report\n\n")
	builder.WriteString(fmt.Sprintf("- Session: %s\n", r.Key))
	if artifact.BaseRef != "" {
		builder.WriteString(fmt.Sprintf("- Base: %s\n", artifact.BaseRef))
	}
	if artifact.TargetRef != "" {
		builder.WriteString(fmt.Sprintf("- Target: %s\n", artifact.TargetRef))
	}
	builder.WriteString(fmt.Sprintf("- Hunks: %d\n\n", len(r.Hunks)))

	if len(r.Hunks) == 0 {
		builder.WriteString("No hunks in this session.\n")
		return builder.String()
	}

	builder.WriteString("## Hunks\n\n")
	for _, h := range r.Hunks {
		key := session.HunkKey(h)
		covered, _ := m.Covered(key)
		state := m.StateOf(key, len(h.Lines))
		if len(covered) == 0 {
			state = coverage.Unseen
		}
		builder.WriteString(fmt.Sprintf("### %s hunk %d (%s)\n", h.Filename, h.HunkIndex+1, caser.String(stateLabel(state))))
		builder.WriteString(fmt.Sprintf("- Range: -%d,%d +%d,%d\n", h.OldStart, h.OldLines, h.NewStart, h.NewLines))

		if len(covered) > 0 {
			builder.WriteString(fmt.Sprintf("- Covered: %s\n", formatIntervals(covered)))
		}
		if gaps := coverage.Complement(covered, len(h.Lines)); len(gaps) > 0 {
			builder.WriteString(fmt.Sprintf("- Uncovered: %s\n", formatIntervals(gaps)))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func formatIntervals(ivs []coverage.Interval) string {
	parts := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		parts = append(parts, fmt.Sprintf("[%d,%d)", iv.Start, iv.End))
	}
	return strings.Join(parts, ", ")
}

func stateLabel(s coverage.State) string {
	switch s {
	case coverage.FullyCovered:
		return "fully covered"
	case coverage.PartiallyCovered:
		return "partially covered"
	default:
		return "unseen"
	}
}

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	value = strings.ReplaceAll(value, "..", "-")
	return value
}
