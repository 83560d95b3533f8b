package deps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"ja/internal/util"
)

// ErrMissing is wrapped by every lookup failure.
var ErrMissing = errors.New("missing dependency")

// ErrNoFrontend reports a ninja built without --frontend support.
var ErrNoFrontend = errors.New("ninja does not support external frontends (see https://github.com/ninja-build/ninja/pull/1210)")

// FindNinja returns the path to ninja.
// If customPath is non-empty, it tries that path or looks it up in PATH.
func FindNinja(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: could not find ninja at %q", ErrMissing, customPath)
	}
	// Some distributions ship the binary as ninja-build.
	for _, name := range []string{"ninja", "ninja-build"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: couldn't find ninja command. Please make sure it's on your PATH", ErrMissing)
}

// FindGenerator returns the path to a build generator such as meson or cmake.
func FindGenerator(name string) (string, error) {
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("%w: could not find %s in PATH. Please install %s", ErrMissing, name, name)
}

// SupportsFrontend runs `ninja --help` and looks for the --frontend option.
// ninja exits non-zero after printing its usage, so only the output counts.
func SupportsFrontend(ctx context.Context, runner util.CmdRunner, ninja string) error {
	res, err := runner.Run(ctx, util.CmdSpec{Path: ninja, Args: []string{"--help"}, CaptureStdout: true})
	out := append(res.Stdout, res.Stderr...)
	if len(out) == 0 && err != nil {
		return fmt.Errorf("run %s --help: %w", ninja, err)
	}
	if !bytes.Contains(out, []byte("--frontend")) {
		return ErrNoFrontend
	}
	return nil
}
