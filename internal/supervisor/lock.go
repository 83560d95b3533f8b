package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// ErrLockTimeout is returned by DirLock.Acquire when Timeout elapses.
var ErrLockTimeout = errors.New("timed out waiting for the build directory lock")

// DirLock is a per-directory lock held by the existence of a named pipe.
// The same pipe later carries the engine's status stream, so a directory
// can only be built by one frontend at a time.
type DirLock struct {
	Path string
	// PollInterval between attempts while the lock is held elsewhere.
	// Defaults to one second.
	PollInterval time.Duration
	// Timeout bounds the wait. Zero waits until ctx is done.
	Timeout time.Duration
	// OnWait is called once, when the first attempt finds the lock taken.
	OnWait func()

	held fs.FileInfo
}

// Acquire creates the pipe, waiting for a previous holder to remove it.
// Creation is atomic: losing a race just means polling again.
func (l *DirLock) Acquire(ctx context.Context) error {
	interval := l.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	var deadline <-chan time.Time
	if l.Timeout > 0 {
		timer := time.NewTimer(l.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	var ticker *time.Ticker
	for {
		err := mkfifo(l.Path)
		if err == nil {
			fi, err := os.Lstat(l.Path)
			if err != nil {
				return fmt.Errorf("lock build directory: %w", err)
			}
			l.held = fi
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("lock build directory: %w", err)
		}
		if ticker == nil {
			ticker = time.NewTicker(interval)
			defer ticker.Stop()
			if l.OnWait != nil {
				l.OnWait()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %s (remove %s if no build is running)", ErrLockTimeout, l.Timeout, l.Path)
		case <-ticker.C:
		}
	}
}

// Release removes the pipe if it is still the one Acquire created. The relay
// may have removed it already, and another frontend may have created its own
// pipe at the same path since.
func (l *DirLock) Release() error {
	held := l.held
	l.held = nil
	fi, err := os.Lstat(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unlock build directory: %w", err)
	}
	if held == nil || !os.SameFile(held, fi) {
		return nil
	}
	err = os.Remove(l.Path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("unlock build directory: %w", err)
}
