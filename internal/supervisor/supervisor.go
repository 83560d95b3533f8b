// Package supervisor runs one build: it locks the build directory, starts
// the engine with a relay into a private named pipe, feeds the status
// stream to the tracker and tears everything down on end of stream, on a
// fatal stream error or on interrupt.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ja/internal/console"
	"ja/internal/frontend"
	"ja/internal/status"
)

// DefaultLockName is the pipe created in the build directory.
const DefaultLockName = "ja.lock"

// InterruptedExitCode is returned for a build stopped by the user.
const InterruptedExitCode = 130

// ErrEngineStart wraps failures to launch the engine.
var ErrEngineStart = errors.New("start build engine")

// Console is the part of the printer the supervisor writes notices to.
type Console interface {
	PrintOnNewLine(text string)
	SetConsoleLocked(locked bool)
}

// Handler consumes decoded events. *progress.Tracker implements it.
type Handler interface {
	Handle(ev frontend.Event) (failed bool, err error)
	Counters() status.Counters
}

// Config wires a Supervisor.
type Config struct {
	// Dir is the build directory; the lock pipe lives there.
	Dir      string
	LockName string
	// LockPoll and LockTimeout tune the wait for another build.
	LockPoll    time.Duration
	LockTimeout time.Duration
	// KillGrace is how long a terminated engine may take before it is
	// killed. Defaults to three seconds.
	KillGrace time.Duration

	Engine  Engine
	Console Console
	Handler Handler
	Styles  console.Styles
	Logger  *zap.SugaredLogger
}

// Result summarises a supervised build.
type Result struct {
	// ExitCode is the engine's status, or InterruptedExitCode.
	ExitCode     int
	Failed       bool
	Interrupted  bool
	Events       int
	DecodeErrors int
	BytesRead    int64
	Counters     status.Counters
	Duration     time.Duration
}

// Supervisor runs builds with a fixed configuration.
type Supervisor struct {
	cfg  Config
	log  *zap.SugaredLogger
	fifo string
}

// New returns a Supervisor for cfg.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Console == nil || cfg.Handler == nil {
		return nil, errors.New("supervisor: console and handler are required")
	}
	if cfg.LockName == "" {
		cfg.LockName = DefaultLockName
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = 3 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	fifo, err := filepath.Abs(filepath.Join(cfg.Dir, cfg.LockName))
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	return &Supervisor{cfg: cfg, log: log, fifo: fifo}, nil
}

// FifoPath is the absolute path of the lock and status pipe.
func (s *Supervisor) FifoPath() string { return s.fifo }

// Run performs one build. Stream and protocol errors are returned after the
// engine has been stopped; an interrupt is reported through the Result.
func (s *Supervisor) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()
	defer func() {
		res.Counters = s.cfg.Handler.Counters()
		res.Duration = time.Since(start)
	}()

	lock := &DirLock{
		Path:         s.fifo,
		PollInterval: s.cfg.LockPoll,
		Timeout:      s.cfg.LockTimeout,
		OnWait: func() {
			s.log.Infow("waiting for lock", "path", s.fifo)
			s.cfg.Console.PrintOnNewLine(console.Paint(s.cfg.Styles.Notice, "waiting for file lock on build directory") + "\n")
		},
	}
	if err := lock.Acquire(ctx); err != nil {
		if ctx.Err() != nil {
			s.interrupted(&res)
			return res, nil
		}
		return res, err
	}
	held := true
	defer func() {
		if held {
			s.release(lock)
		}
	}()

	cmd := s.cfg.Engine.command(s.fifo)
	s.log.Debugw("starting engine", "path", cmd.Path, "args", cmd.Args[1:], "dir", cmd.Dir)
	if err := cmd.Start(); err != nil {
		return res, fmt.Errorf("%w: %w", ErrEngineStart, err)
	}
	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	f, err := s.openStream(ctx, exited)
	if err != nil {
		s.stopEngine(cmd, exited)
		if ctx.Err() != nil {
			s.interrupted(&res)
			return res, nil
		}
		return res, fmt.Errorf("open status stream: %w", err)
	}
	// Closing a pipe from another goroutine releases a blocked read.
	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()
	defer f.Close()

	dec := frontend.NewDecoder(f)
	err = s.pump(dec, &res)
	res.BytesRead = dec.BytesRead()
	switch {
	case ctx.Err() != nil:
		s.stopEngine(cmd, exited)
		s.interrupted(&res)
		return res, nil
	case err != nil:
		s.log.Errorw("aborting build", "err", err, "offset", dec.BytesRead())
		s.stopEngine(cmd, exited)
		return res, err
	}

	// Release as soon as the stream ends so a queued build can start.
	held = false
	s.release(lock)
	select {
	case <-exited:
	case <-ctx.Done():
		s.stopEngine(cmd, exited)
		s.interrupted(&res)
		return res, nil
	}
	res.ExitCode = exitCode(waitErr)
	s.log.Debugw("engine exited", "code", res.ExitCode, "events", res.Events, "bytes", res.BytesRead)
	return res, nil
}

// Consume renders a status stream that is already open, as when ja is itself
// the engine's --frontend command or replays a recording. There is no engine
// to stop and no lock; an interrupt closes r.
func Consume(ctx context.Context, r io.ReadCloser, cfg Config) (res Result, err error) {
	s, err := New(cfg)
	if err != nil {
		return res, err
	}
	start := time.Now()
	defer func() {
		res.Counters = s.cfg.Handler.Counters()
		res.Duration = time.Since(start)
	}()

	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	dec := frontend.NewDecoder(r)
	err = s.pump(dec, &res)
	res.BytesRead = dec.BytesRead()
	if ctx.Err() != nil {
		s.interrupted(&res)
		return res, nil
	}
	return res, err
}

// pump decodes and handles events until end of stream. Undecodable frames
// are reported and skipped.
func (s *Supervisor) pump(dec *frontend.Decoder, res *Result) error {
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var de *frontend.DecodeError
		if errors.As(err, &de) {
			res.DecodeErrors++
			s.log.Warnw("skipping frame", "offset", de.Offset, "size", de.Size, "err", de.Err)
			s.cfg.Console.PrintOnNewLine(console.Paint(s.cfg.Styles.Warning,
				fmt.Sprintf("warning: skipped undecodable status frame at byte %d", de.Offset)) + "\n")
			continue
		}
		if err != nil {
			return err
		}
		res.Events++
		failed, err := s.cfg.Handler.Handle(ev)
		if failed {
			res.Failed = true
		}
		if err != nil {
			return err
		}
	}
}

// openStream opens the read end of the pipe. Opening blocks until the relay
// connects, so an engine that exits first or an interrupt wakes the open
// from the write side.
func (s *Supervisor) openStream(ctx context.Context, exited <-chan struct{}) (*os.File, error) {
	type opened struct {
		f   *os.File
		err error
	}
	ch := make(chan opened, 1)
	go func() {
		f, err := os.Open(s.fifo)
		ch <- opened{f, err}
	}()

	select {
	case r := <-ch:
		return r.f, r.err
	case <-exited:
		s.log.Debugw("engine exited before the relay connected")
	case <-ctx.Done():
	}

	retry := time.NewTicker(10 * time.Millisecond)
	defer retry.Stop()
	for {
		wakeReader(s.fifo)
		select {
		case r := <-ch:
			if r.err == nil && ctx.Err() != nil {
				r.f.Close()
				return nil, ctx.Err()
			}
			return r.f, r.err
		case <-retry.C:
		}
	}
}

func (s *Supervisor) stopEngine(cmd *exec.Cmd, exited <-chan struct{}) {
	pid := cmd.Process.Pid
	select {
	case <-exited:
		return
	default:
	}
	if err := terminateGroup(pid); err != nil {
		s.log.Debugw("terminate engine", "pid", pid, "err", err)
	}
	select {
	case <-exited:
	case <-time.After(s.cfg.KillGrace):
		s.log.Warnw("engine ignored SIGTERM; killing", "pid", pid)
		if err := killGroup(pid); err != nil {
			s.log.Debugw("kill engine", "pid", pid, "err", err)
		}
		<-exited
	}
}

func (s *Supervisor) interrupted(res *Result) {
	s.cfg.Console.SetConsoleLocked(false)
	s.cfg.Console.PrintOnNewLine(console.Paint(s.cfg.Styles.Interrupted, "build stopped: interrupted by user.") + "\n")
	res.Interrupted = true
	res.ExitCode = InterruptedExitCode
}

func (s *Supervisor) release(lock *DirLock) {
	if err := lock.Release(); err != nil {
		s.log.Warnw("release lock", "err", err)
	}
}
