package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ja/internal/config"
	"ja/internal/status"
	"ja/internal/supervisor"
)

// Version is set at link time for releases.
var Version = "1.0.1"

const (
	ExitOK          = 0
	ExitCLIError    = 1
	ExitMissingDep  = 2
	ExitBuildFailed = 3 // a failure was reported but the engine exited 0
	ExitProtocol    = 4
	ExitInterrupted = supervisor.InterruptedExitCode
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ja [targets...]",
		Short: "Frontend for ninja focusing on a faster edit, compile, debug cycle",
		Long: "ja runs ninja with a compact, colored progress display.\n\n" +
			"If no targets are given, ninja builds its default targets. When the build\n" +
			"file is missing, a Meson or CMake project is configured into ./build first.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE:          runBuild,
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().BoolP("verbose", "v", false, "Show all command lines while building")
	root.PersistentFlags().String("ninja", "", "Path to the ninja binary")
	root.PersistentFlags().String("status", status.DefaultTemplate, "Status line template (also NINJA_STATUS)")

	bindBuildFlags(root.Flags())

	// Subcommands
	root.AddCommand(newFrontendCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindBuildFlags(fs *pflag.FlagSet) {
	fs.IntP("jobs", "j", 0, "Run N jobs in parallel (0 uses ninja's default)")
	fs.StringP("tool", "t", "", "Run a subtool (use -t list to list subtools)")
	fs.StringP("directory", "C", "", "Change to DIR before doing anything else")
	fs.StringP("file", "f", "build.ninja", "Specify input build file")
	fs.Duration("lock-timeout", 0, "Give up waiting for another build in the same directory after this long (0 waits forever)")
	fs.Bool("no-history", false, "Do not record this build in the history")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context, args ...string) error {
	root := newRootCmd()
	if args != nil {
		root.SetArgs(args)
	}
	if err := config.Init(root); err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	return root.ExecuteContext(ctx)
}
