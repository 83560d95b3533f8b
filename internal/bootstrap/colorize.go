package bootstrap

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"ja/internal/console"
)

// Colorizer restyles CMake's configure output line by line. A check line
// ("-- Looking for x") is held open so its result line ("-- Looking for x -
// found") can be folded onto it.
type Colorizer struct {
	w      io.Writer
	styles console.Styles

	mu       sync.Mutex
	previous string
	color    *lipgloss.Style
}

// NewColorizer returns a Colorizer writing to w.
func NewColorizer(w io.Writer, styles console.Styles) *Colorizer {
	return &Colorizer{w: w, styles: styles}
}

// Line writes one line of generator output. It is safe to call from the
// stdout and stderr readers at once.
func (c *Colorizer) Line(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.previous != "" && strings.HasPrefix(raw, c.previous) {
		status := strings.TrimSpace(raw[len(c.previous):])
		status = strings.TrimPrefix(status, "- ")
		status = strings.TrimPrefix(status, "-- ")
		c.write(": " + console.Paint(c.resultStyle(status), status) + "\n")
		c.previous = ""
		return
	}

	line := strings.TrimRightFunc(raw, isSpace)
	if c.previous != "" {
		c.write("\n")
	}
	switch {
	case line == "":
		c.write("\n")
	case !strings.HasPrefix(line, "  "): // indented lines keep the color
		c.color = nil
	}
	c.previous = line

	if strings.HasPrefix(line, "-- ") {
		line = "▸" + line[2:]
	}
	if strings.HasPrefix(line, "Failed to ") || strings.HasPrefix(line, "CMake Error") {
		c.color = &c.styles.Error
	}
	if strings.HasPrefix(line, "CMake Warning ") || strings.HasPrefix(line, "Could NOT ") ||
		strings.HasPrefix(line, "CMake Deprecation Warning") {
		c.color = &c.styles.Caution
	}
	if strings.HasPrefix(line, " * ") {
		line = " • " + line[3:]
	}

	if i := strings.LastIndex(line, ": "); i >= 0 {
		front, back := line[:i], line[i+2:]
		if strings.Count(front, "(") == strings.Count(front, ")") {
			c.write(c.paint(front+": ") + console.Paint(c.emphasis(), back))
			return
		}
	}
	c.write(c.paint(line))
}

// Close terminates a check line that never got its result.
func (c *Colorizer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.previous != "" {
		c.write("\n")
		c.previous = ""
	}
}

func (c *Colorizer) resultStyle(status string) lipgloss.Style {
	switch status {
	case "works", "found", "Success", "yes", "TRUE":
		return c.styles.Success
	case "Failed", "failed", "not found", "no", "NOTFOUND":
		return c.styles.Failure
	}
	return c.styles.Result
}

func (c *Colorizer) paint(text string) string {
	if c.color == nil {
		return text
	}
	return console.Paint(*c.color, text)
}

func (c *Colorizer) emphasis() lipgloss.Style {
	if c.color == nil {
		return c.styles.Emphasis
	}
	return c.color.Copy().Bold(true)
}

func (c *Colorizer) write(s string) {
	_, _ = io.WriteString(c.w, s)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
