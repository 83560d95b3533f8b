package supervisor

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"

	"ja/internal/util"
)

// Engine describes how to launch the build engine.
type Engine struct {
	Path string
	// Args come before the frontend flag, Targets after it.
	Args    []string
	Targets []string
	Dir     string
	// Env is added to the inherited environment (KEY=VALUE).
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RelayCommand is the --frontend command handed to the engine. The engine
// runs it with the status stream on descriptor 3; it copies the stream into
// the pipe and removes the pipe when the stream ends.
func RelayCommand(fifo string) string {
	q := util.Quote(fifo)
	return fmt.Sprintf("cat <&3 >%s; rm -f %s", q, q)
}

func (e Engine) argv(fifo string) []string {
	args := slices.Clone(e.Args)
	args = append(args, "--frontend="+RelayCommand(fifo))
	return append(args, e.Targets...)
}

// command builds the engine process. It is not tied to a context: the
// supervisor decides when and how the process group is stopped.
func (e Engine) command(fifo string) *exec.Cmd {
	cmd := exec.Command(e.Path, e.argv(fifo)...)
	cmd.Dir = e.Dir
	if e.Env != nil {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	detach(cmd)
	return cmd
}
