package diff

import "errors"

var (
	// ErrMalformedHeader indicates an @@ line whose coordinates could not be
	// parsed as four non-negative integers.
	ErrMalformedHeader = errors.New("malformed hunk header")

	// ErrTruncatedHunk indicates a hunk body that ended before the line
	// counts promised by its header were satisfied.
	ErrTruncatedHunk = errors.New("truncated hunk body")

	// ErrInvalidLinePrefix indicates a hunk body line that does not start
	// with ' ', '+' or '-'.
	ErrInvalidLinePrefix = errors.New("invalid line prefix in hunk body")

	// ErrInvalidHunkID indicates a stable hunk id string that does not match
	// the required "<filename>:@-<o>,<ol>+<n>,<nl>" shape.
	ErrInvalidHunkID = errors.New("invalid hunk id")

	// ErrRange indicates split indices that are inverted or outside the
	// hunk's line slice.
	ErrRange = errors.New("line range out of bounds")

	// ErrCombineConflict indicates hunks whose old-file ranges overlap, or
	// that name different files; they cannot be combined into one patch
	// deterministically.
	ErrCombineConflict = errors.New("hunks cannot be combined")
)
