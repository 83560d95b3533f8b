//go:build !unix

package supervisor

import (
	"errors"
	"os"
)

var errNoFifo = errors.New("named pipes are not supported on this platform")

func mkfifo(path string) error {
	return &os.PathError{Op: "mkfifo", Path: path, Err: errNoFifo}
}

func wakeReader(string) {}
