//go:build unix

package supervisor

import (
	"os"

	"golang.org/x/sys/unix"
)

func mkfifo(path string) error {
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return &os.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// wakeReader connects to the pipe as a writer and leaves at once, which
// completes a reader blocked in open with an immediate end of stream.
func wakeReader(path string) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err == nil {
		f.Close()
	}
}
