package status

import (
	"hash/adler32"
	"strings"
	"unicode/utf8"

	"github.com/muesli/termenv"
)

// EdgeText is the text shown for a running or finished edge. Descriptions
// are colored by kind: descriptions sharing a first word and the initial of
// the third word share a hue. Verbose builds and edges without a description
// show the command line instead.
func EdgeText(description, command string, verbose bool) string {
	if verbose || description == "" {
		return command
	}
	hue := edgeHue(description)
	s := termenv.ANSI.String(description).Foreground(termenv.ANSIColor(hue%5 + 2))
	if hue > 4 {
		s = s.Bold()
	}
	return s.String()
}

// edgeHue hashes the first word and the first character of the third word
// into 0..9. Descriptions of fewer than three words hash to 0.
func edgeHue(description string) int {
	words := strings.Split(description, " ")
	if len(words) < 3 {
		return 0
	}
	key := words[0]
	if r, size := utf8.DecodeRuneInString(words[2]); size > 0 && r != utf8.RuneError {
		key += string(r)
	}
	return int(adler32.Checksum([]byte(key)) % 10)
}
