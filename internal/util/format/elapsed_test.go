package format

import "testing"

func TestElapsed(t *testing.T) {
	tests := []struct {
		name string
		ms   int64
		want string
	}{
		{name: "zero", ms: 0, want: "0.000s"},
		{name: "sub second", ms: 42, want: "0.042s"},
		{name: "seconds", ms: 2000, want: "2.000s"},
		{name: "just under a minute", ms: 59_999, want: "59.999s"},
		{name: "exactly a minute", ms: 60_000, want: "1m0s"},
		{name: "minutes truncate seconds", ms: 125_900, want: "2m5s"},
		{name: "hours", ms: 3_600_000 + 2*60_000 + 3_500, want: "1h2m3s"},
		{name: "hours without minutes", ms: 7_200_000 + 9_000, want: "2h0m9s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Elapsed(tt.ms)
			if got != tt.want {
				t.Errorf("Elapsed(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}
