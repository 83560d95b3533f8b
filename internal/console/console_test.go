package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTerminal struct {
	smart bool
	cols  int
}

func (f fakeTerminal) Smart() bool          { return f.smart }
func (f fakeTerminal) Columns() (int, bool) { return f.cols, f.cols > 0 }

func TestElidePlain(t *testing.T) {
	s := "abcdefghijklmnopqrstuvwxyz0123456789ABCD"
	require.Len(t, s, 40)

	got := Elide(s, 20)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 20)
	assert.Equal(t, 1, strings.Count(got, "…"))
	assert.True(t, strings.HasPrefix(got, s[:9]))
	assert.True(t, strings.HasSuffix(got, s[len(s)-9:]))
	assert.Equal(t, "abcdefghi…56789ABCD", got)
}

func TestElideKeepsShortText(t *testing.T) {
	assert.Equal(t, "abcd", Elide("abcd", 5))
	assert.Equal(t, "ab…de", Elide("abcde", 5))
	assert.Equal(t, "abcdef", Elide("abcdef", 0))
	assert.Equal(t, "…", Elide("abcdef", 1))
}

func TestElidePlacesEscapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "wrapping", in: "\x1b[31mabcdefghij\x1b[0m", want: "\x1b[31mab…ij\x1b[0m"},
		{name: "end of head", in: "ab\x1b[1mcdefghij", want: "ab\x1b[1m…ij"},
		{name: "removed middle", in: "abcd\x1b[1mefghij", want: "ab…\x1b[1mij"},
		{name: "inside tail", in: "abcdefghi\x1b[1mj", want: "ab…i\x1b[1mj"},
		{name: "unchanged when short", in: "\x1b[32mok\x1b[0m", want: "\x1b[32mok\x1b[0m"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elide(tt.in, 5))
		})
	}
}

func TestElideKeepsEveryEscape(t *testing.T) {
	escapes := []string{"\x1b[0;36m", "\x1b[1;37;46m", "\x1b[0m", "\x1b[1m", "\x1b[32;1m"}
	s := escapes[0] + "▕" + escapes[1] + "[12/40] " + escapes[2] + escapes[3] + "building  " +
		escapes[4] + "Building CXX object src/frontend/decoder.cc.o" + escapes[2]

	got := Elide(s, 30)
	for _, esc := range escapes {
		assert.Contains(t, got, esc)
	}
	assert.Equal(t, strings.Count(s, "\x1b"), strings.Count(got, "\x1b"))
	visible := StripANSI(got)
	assert.Equal(t, 29, utf8.RuneCountInString(visible))
	assert.Equal(t, Elide(StripANSI(s), 30), visible)
}

func TestPrintLineDumbTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, DumbTerminal{})
	p.PrintLine("status", LineElide)
	p.PrintLine("done", LineFull)
	assert.Equal(t, "status\ndone\n", out.String())
	assert.False(t, p.Smart())
	assert.NoError(t, p.Err())
}

func TestPrintLineSmartTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, fakeTerminal{smart: true, cols: 8})
	p.PrintLine("0123456789", LineElide)
	p.PrintLine("full line", LineFull)
	assert.Equal(t, "\r012…789\x1b[K\rfull line\x1b[K\n", out.String())
}

func TestPrintLineWithoutGeometry(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, fakeTerminal{smart: true})
	p.PrintLine("status", LineElide)
	assert.Equal(t, "status\n", out.String())
}

func TestConsoleLockHoldsLines(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, DumbTerminal{})

	p.SetConsoleLocked(true)
	p.PrintLine("x", LineElide)
	p.PrintLine("y", LineElide)
	assert.Empty(t, out.String())
	assert.True(t, p.Locked())

	p.SetConsoleLocked(false)
	assert.Equal(t, "x\ny\n", out.String())
	assert.False(t, p.Locked())
}

func TestConsoleLockCollapsesRepeats(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, DumbTerminal{})
	p.SetConsoleLocked(true)
	for _, s := range []string{"a", "a", "b", "", "c"} {
		p.PrintLine(s, LineElide)
	}
	p.SetConsoleLocked(false)
	assert.Equal(t, "a\nb\nc\n", out.String())
}

func TestConsoleLockKeepsRepeatedFullLines(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		kinds []LineKind
		want  string
	}{
		{"full after full", []string{"warning: dup", "warning: dup"}, []LineKind{LineFull, LineFull}, "warning: dup\nwarning: dup\n"},
		{"full after status", []string{"a.o", "a.o"}, []LineKind{LineElide, LineFull}, "a.o\na.o\n"},
		{"status after full", []string{"a.o", "a.o"}, []LineKind{LineFull, LineElide}, "a.o\na.o\n"},
		{"status redraw", []string{"a.o", "a.o"}, []LineKind{LineElide, LineElide}, "a.o\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrinter(&out, DumbTerminal{})
			p.SetConsoleLocked(true)
			for i, l := range tt.lines {
				p.PrintLine(l, tt.kinds[i])
			}
			p.SetConsoleLocked(false)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestConsoleLockOnSmartTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, fakeTerminal{smart: true, cols: 80})

	p.PrintLine("A", LineElide)
	p.SetConsoleLocked(true)
	p.SetConsoleLocked(true)
	assert.Equal(t, "\rA\x1b[K\n", out.String())

	p.PrintLine("x", LineFull)
	p.PrintLine("y", LineElide)
	p.SetConsoleLocked(false)
	assert.Equal(t, "\rA\x1b[K\nx\n\ry\x1b[K", out.String())
}

func TestPrintOnNewLine(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, fakeTerminal{smart: true, cols: 80})
	p.SetConsoleLocked(false)
	p.PrintLine("S", LineElide)
	p.PrintOnNewLine("build stopped\n")
	p.PrintOnNewLine("again\n")
	assert.Equal(t, "\rS\x1b[K\nbuild stopped\nagain\n", out.String())
}

func TestPrintOnNewLineWhileLocked(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, DumbTerminal{})
	p.SetConsoleLocked(true)
	p.PrintLine("pending", LineElide)
	p.PrintOnNewLine("notice\n")
	assert.Empty(t, out.String())

	p.SetConsoleLocked(false)
	assert.Equal(t, "pending\nnotice\n", out.String())
}

func TestPaint(t *testing.T) {
	s := DefaultStyles()
	got := Paint(s.Error, "first\n\nthird line")
	assert.Equal(t, "first\n\nthird line", StripANSI(got))
	assert.Equal(t, 2, strings.Count(got, "\x1b[0m"))
	assert.Empty(t, Paint(s.Info, ""))
}

func TestDetectTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	t.Setenv("TERM", "xterm-256color")
	assert.Equal(t, DumbTerminal{}, DetectTerminal(f))
	assert.Equal(t, DumbTerminal{}, DetectTerminal(nil))
	assert.False(t, isSmart(f.Fd(), "dumb"))
	assert.False(t, isSmart(f.Fd(), ""))
}
