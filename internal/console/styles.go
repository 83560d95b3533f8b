package console

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the colors used for messages the frontend writes itself.
type Styles struct {
	Info     lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Finished lipgloss.Style
	Notice   lipgloss.Style
	// Command is the command of an edge that produced output.
	Command lipgloss.Style
	// FailedCommand and FailedStatus make up the line of a failed edge.
	FailedCommand lipgloss.Style
	FailedStatus  lipgloss.Style
	Interrupted   lipgloss.Style

	// Configure output.
	Success  lipgloss.Style
	Failure  lipgloss.Style
	Result   lipgloss.Style
	Caution  lipgloss.Style
	Emphasis lipgloss.Style
}

// DefaultStyles always emits ANSI colors. Command output that is not shown
// on a smart terminal is stripped of escapes by the caller.
func DefaultStyles() Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	bold := r.NewStyle().Bold(true)
	fg := func(bold bool, color string) lipgloss.Style {
		return r.NewStyle().Bold(bold).Foreground(lipgloss.Color(color))
	}
	return Styles{
		Info:          fg(true, "2"),
		Warning:       fg(true, "5"),
		Error:         fg(true, "1"),
		Finished:      fg(true, "2"),
		Notice:        fg(true, "6"),
		Command:       fg(true, "4"),
		FailedCommand: fg(true, "1"),
		FailedStatus:  fg(false, "1"),
		Interrupted:   fg(true, "1"),
		Success:       fg(true, "2"),
		Failure:       fg(true, "1"),
		Result:        fg(true, "4"),
		Caution:       fg(false, "3"),
		Emphasis:      bold,
	}
}

// Paint renders text with style line by line, so multi-line text is neither
// padded nor reflowed.
func Paint(style lipgloss.Style, text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
