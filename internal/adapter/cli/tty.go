package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsTTY checks if the given file descriptor is a terminal.
func IsTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

// IsInteractive reports whether stdin is a TTY. Piped input (a diff on
// stdin, a CI pipeline) makes this false.
func IsInteractive() bool {
	return IsTTY(os.Stdin.Fd())
}

// IsOutputTerminal reports whether stdout is a TTY, as opposed to being
// piped or redirected.
func IsOutputTerminal() bool {
	return IsTTY(os.Stdout.Fd())
}

// terminalInput reports whether r is this process's stdin attached to a
// terminal. Injected readers never are.
func terminalInput(r io.Reader) bool {
	return r == io.Reader(os.Stdin) && IsInteractive()
}

// terminalOutput reports whether w is this process's stdout attached to a
// terminal. Injected writers never are.
func terminalOutput(w io.Writer) bool {
	return w == io.Writer(os.Stdout) && IsOutputTerminal()
}
