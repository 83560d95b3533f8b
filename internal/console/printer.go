// Package console owns the cursor: it writes status and output lines,
// shortens status lines to the terminal width and holds output back while a
// console command is using the terminal.
package console

import (
	"io"
	"strings"
)

// LineKind says how a line may be displayed.
type LineKind int

const (
	// LineFull is always written out completely and ends the line.
	LineFull LineKind = iota
	// LineElide is a status line: shortened to the terminal width and
	// overwritten by the next line on smart terminals.
	LineElide
)

const clearToEOL = "\x1b[K"

// Printer writes lines to a terminal. It is not safe for concurrent use.
type Printer struct {
	w    io.Writer
	term Terminal
	err  error

	// atBlankLine is true when the cursor is at the start of an empty line.
	atBlankLine bool

	locked      bool
	pending     string
	pendingKind LineKind
	hasPending  bool
	buffered    strings.Builder
}

// NewPrinter returns a Printer writing to w with the capabilities of t.
func NewPrinter(w io.Writer, t Terminal) *Printer {
	if t == nil {
		t = DumbTerminal{}
	}
	return &Printer{w: w, term: t, atBlankLine: true}
}

// Smart reports whether the terminal understands cursor control.
func (p *Printer) Smart() bool { return p.term.Smart() }

// Locked reports whether output is being held back.
func (p *Printer) Locked() bool { return p.locked }

// Err returns the first write error, if any. Later writes are dropped.
func (p *Printer) Err() error { return p.err }

// PrintLine prints text as a line of the given kind. While the console is
// locked the line is retained instead. A status line equal to the retained
// status line is a redraw and is collapsed into it; full lines are all kept.
func (p *Printer) PrintLine(text string, kind LineKind) {
	if !p.locked {
		p.emitLine(text, kind)
		return
	}
	if p.hasPending {
		if kind == LineElide && p.pendingKind == LineElide && p.pending == text {
			return
		}
		p.retainPending()
	}
	p.pending, p.pendingKind, p.hasPending = text, kind, true
}

// PrintOnNewLine prints text starting at the beginning of a line, after any
// retained line. Output is buffered while the console is locked.
func (p *Printer) PrintOnNewLine(text string) {
	if p.locked && p.hasPending {
		p.retainPending()
	}
	if !p.atBlankLine {
		p.printOrBuffer("\n")
	}
	if text != "" {
		p.printOrBuffer(text)
	}
	p.atBlankLine = text == "" || strings.HasSuffix(text, "\n")
}

// SetConsoleLocked locks or unlocks the console. Locking moves the cursor
// to a fresh line; unlocking writes everything retained meanwhile and shows
// the most recent line again with its original kind.
func (p *Printer) SetConsoleLocked(locked bool) {
	if locked == p.locked {
		return
	}
	if locked {
		p.PrintOnNewLine("")
		p.locked = true
		return
	}

	p.locked = false
	out := p.buffered.String()
	p.buffered.Reset()
	last, kind, ok := p.pending, p.pendingKind, p.hasPending
	p.pending, p.hasPending = "", false

	p.PrintOnNewLine(out)
	if ok {
		p.emitLine(last, kind)
	}
}

// retainPending moves the pending line into the buffer as a completed line.
// An empty status line only clears the display, so there is nothing to keep.
func (p *Printer) retainPending() {
	if p.pending != "" || p.pendingKind == LineFull {
		p.buffered.WriteString(p.pending)
		p.buffered.WriteByte('\n')
	}
	p.pending, p.hasPending = "", false
}

func (p *Printer) printOrBuffer(s string) {
	if p.locked {
		p.buffered.WriteString(s)
		return
	}
	p.write(s)
}

func (p *Printer) emitLine(text string, kind LineKind) {
	if !p.term.Smart() {
		p.write(text + "\n")
		p.atBlankLine = true
		return
	}
	if kind == LineElide {
		cols, ok := p.term.Columns()
		if !ok {
			p.write(text + "\n")
			p.atBlankLine = true
			return
		}
		p.write("\r" + Elide(text, cols) + clearToEOL)
		p.atBlankLine = text == ""
		return
	}
	p.write("\r" + text + clearToEOL + "\n")
	p.atBlankLine = true
}

func (p *Printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}
