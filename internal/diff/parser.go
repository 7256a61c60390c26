package diff

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hunktrack/hunktrack/internal/domain"
)

// nullDevice is the path git uses for the missing side of a file creation
// or deletion.
const nullDevice = "/dev/null"

// ParseHunks parses raw unified-diff text (possibly spanning multiple
// files) into an ordered sequence of hunks, in file order then intra-file
// hunk order. IDs are assigned from a counter local to this call, starting
// at 1, so concurrent parses never interfere.
//
// An empty diff is valid input and yields an empty slice, not an error.
func ParseHunks(text string) ([]domain.Hunk, error) {
	var hunks []domain.Hunk

	lines := strings.Split(text, "\n")
	var (
		oldPath   string
		newPath   string
		filename  string
		fileHunks int
		nextID    = 1
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		switch {
		case strings.HasPrefix(line, "diff --git"):
			oldPath, newPath, filename = "", "", ""
			fileHunks = 0

		case strings.HasPrefix(line, "--- "):
			oldPath = stripPathPrefix(strings.TrimSpace(line[4:]))

		case strings.HasPrefix(line, "+++ "):
			newPath = stripPathPrefix(strings.TrimSpace(line[4:]))
			filename = resolveFilename(oldPath, newPath)
			fileHunks = 0

		case strings.HasPrefix(line, "@@"):
			oldStart, oldLines, newStart, newLines, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}

			body, rest, err := parseHunkBody(lines[i+1:], oldLines, newLines)
			if err != nil {
				return nil, fmt.Errorf("hunk at %s:%d: %w", filename, oldStart, err)
			}
			i += rest

			hunks = append(hunks, domain.Hunk{
				ID:        nextID,
				Filename:  filename,
				HunkIndex: fileHunks,
				OldStart:  oldStart,
				OldLines:  oldLines,
				NewStart:  newStart,
				NewLines:  newLines,
				Lines:     body,
			})
			nextID++
			fileHunks++
		}
	}

	return hunks, nil
}

// parseHunkBody consumes body lines until the header's old and new counts
// are both satisfied. It returns the parsed lines and the number of raw
// lines consumed.
func parseHunkBody(raw []string, oldLines, newLines int) ([]domain.Line, int, error) {
	remOld, remNew := oldLines, newLines
	var body []domain.Line
	consumed := 0

	for remOld > 0 || remNew > 0 {
		if consumed >= len(raw) {
			return nil, 0, ErrTruncatedHunk
		}
		line := raw[consumed]
		consumed++

		// "\ No newline at end of file" annotates the preceding line and
		// does not count toward either side.
		if strings.HasPrefix(line, `\`) {
			continue
		}
		if line == "" {
			// A final empty element is the trailing-newline artifact of the
			// split, meaning the input ran out mid-hunk.
			if consumed == len(raw) {
				return nil, 0, ErrTruncatedHunk
			}
			return nil, 0, fmt.Errorf("empty body line: %w", ErrInvalidLinePrefix)
		}

		switch line[0] {
		case ' ':
			body = append(body, domain.Line{Kind: domain.LineContext, Content: line[1:]})
			remOld--
			remNew--
		case '-':
			body = append(body, domain.Line{Kind: domain.LineRemove, Content: line[1:]})
			remOld--
		case '+':
			body = append(body, domain.Line{Kind: domain.LineAdd, Content: line[1:]})
			remNew--
		default:
			return nil, 0, fmt.Errorf("line %q: %w", line, ErrInvalidLinePrefix)
		}
		if remOld < 0 || remNew < 0 {
			return nil, 0, fmt.Errorf("body exceeds header counts: %w", ErrMalformedHeader)
		}
	}

	if len(body) == 0 {
		return nil, 0, fmt.Errorf("hunk has no lines: %w", ErrMalformedHeader)
	}
	return body, consumed, nil
}

// parseHunkHeader parses "@@ -oldStart,oldLines +newStart,newLines @@ ...".
// The ",count" part may be omitted on either side, defaulting to 1.
func parseHunkHeader(line string) (oldStart, oldLines, newStart, newLines int, err error) {
	rest := strings.TrimPrefix(line, "@@")
	end := strings.Index(rest, "@@")
	if end < 0 {
		return 0, 0, 0, 0, fmt.Errorf("%q: %w", line, ErrMalformedHeader)
	}

	fields := strings.Fields(rest[:end])
	if len(fields) != 2 || !strings.HasPrefix(fields[0], "-") || !strings.HasPrefix(fields[1], "+") {
		return 0, 0, 0, 0, fmt.Errorf("%q: %w", line, ErrMalformedHeader)
	}

	oldStart, oldLines, err = parseRange(fields[0][1:])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%q: %w", line, ErrMalformedHeader)
	}
	newStart, newLines, err = parseRange(fields[1][1:])
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("%q: %w", line, ErrMalformedHeader)
	}
	return oldStart, oldLines, newStart, newLines, nil
}

// parseRange parses "start,count" or "start" (count defaults to 1).
func parseRange(s string) (start, count int, err error) {
	countPart := ""
	if idx := strings.Index(s, ","); idx >= 0 {
		s, countPart = s[:idx], s[idx+1:]
	}

	start, err = parseNonNegative(s)
	if err != nil {
		return 0, 0, err
	}
	if countPart == "" {
		return start, 1, nil
	}
	count, err = parseNonNegative(countPart)
	if err != nil {
		return 0, 0, err
	}
	return start, count, nil
}

func parseNonNegative(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	v, err := strconv.ParseUint(s, 10, 31)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// stripPathPrefix removes the conventional a/ or b/ prefix from a diff
// header path. The null device is returned unchanged.
func stripPathPrefix(p string) string {
	if p == nullDevice {
		return p
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// resolveFilename prefers the post-image path; a deleted file has the null
// device there, so fall back to the pre-image path.
func resolveFilename(oldPath, newPath string) string {
	if newPath == "" || newPath == nullDevice {
		return oldPath
	}
	return newPath
}
