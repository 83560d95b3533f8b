package console

import (
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Terminal describes what the output stream can do.
type Terminal interface {
	// Smart reports support for carriage return and clear-to-end-of-line.
	Smart() bool
	// Columns returns the current width, or false when it cannot be queried.
	Columns() (int, bool)
}

// DumbTerminal is a pipe, a file or a terminal without control sequences.
type DumbTerminal struct{}

func (DumbTerminal) Smart() bool          { return false }
func (DumbTerminal) Columns() (int, bool) { return 0, false }

type ttyTerminal struct {
	fd int
}

func (ttyTerminal) Smart() bool { return true }

func (t ttyTerminal) Columns() (int, bool) {
	w, _, err := term.GetSize(t.fd)
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

// DetectTerminal inspects f and $TERM. A tty is smart unless TERM is unset
// or "dumb".
func DetectTerminal(f *os.File) Terminal {
	if f == nil || !isSmart(f.Fd(), os.Getenv("TERM")) {
		return DumbTerminal{}
	}
	return ttyTerminal{fd: int(f.Fd())}
}

func isSmart(fd uintptr, termEnv string) bool {
	if termEnv == "" || termEnv == "dumb" {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
