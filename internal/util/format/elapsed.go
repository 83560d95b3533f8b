package format

import "fmt"

// Elapsed formats a build duration given in milliseconds as 1h2m3s, 2m3s
// or 3.042s depending on its magnitude.
func Elapsed(ms int64) string {
	hours := ms / 3_600_000
	minutes := ms % 3_600_000 / 60_000
	seconds := float64(ms%60_000) / 1e3
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, int(seconds))
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, int(seconds))
	default:
		return fmt.Sprintf("%.3fs", seconds)
	}
}
