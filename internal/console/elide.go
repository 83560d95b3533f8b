package console

import (
	"regexp"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[^a-zA-Z]*[a-zA-Z]`)

// StripANSI removes CSI escape sequences from s.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Elide shortens s to fit in width columns by replacing its middle with an
// ellipsis. Width is measured on the visible text; escape sequences are kept
// and moved into the half they belonged to, or just after the ellipsis when
// their text was removed. A width of zero or less disables elision.
func Elide(s string, width int) string {
	if width <= 0 {
		return s
	}

	type escape struct {
		pos int // visible runes before the sequence
		seq string
	}
	var (
		escapes []escape
		visible []rune
		last    int
	)
	for _, loc := range ansiEscape.FindAllStringIndex(s, -1) {
		visible = append(visible, []rune(s[last:loc[0]])...)
		escapes = append(escapes, escape{pos: len(visible), seq: s[loc[0]:loc[1]]})
		last = loc[1]
	}
	visible = append(visible, []rune(s[last:])...)

	n := len(visible)
	if n < width {
		return s
	}
	half := (width - 1) / 2
	kept := make([]rune, 0, 2*half+1)
	kept = append(kept, visible[:half]...)
	kept = append(kept, '…')
	kept = append(kept, visible[n-half:]...)

	target := func(pos int) int {
		switch {
		case pos <= half:
			return pos
		case pos >= n-half:
			return pos - (n - half) + half + 1
		default:
			return half + 1
		}
	}

	var b strings.Builder
	j := 0
	for i := 0; i <= len(kept); i++ {
		for j < len(escapes) && target(escapes[j].pos) == i {
			b.WriteString(escapes[j].seq)
			j++
		}
		if i < len(kept) {
			b.WriteRune(kept[i])
		}
	}
	return b.String()
}
