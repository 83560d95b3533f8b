package dirs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestXDGDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout is linux only")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", ConfigDir, filepath.Join(base, "config", "ja")},
		{"state", StateDir, filepath.Join(base, "state", "ja")},
		{"history", HistoryPath, filepath.Join(base, "state", "ja", "history.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if err := EnsureAll(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"config", "state"} {
		if fi, err := os.Stat(filepath.Join(base, d, "ja")); err != nil || !fi.IsDir() {
			t.Errorf("%s dir not created: %v", d, err)
		}
	}
}

func TestEnsureEmptyPath(t *testing.T) {
	if err := Ensure(""); err == nil {
		t.Error("expected error for empty path")
	}
}
