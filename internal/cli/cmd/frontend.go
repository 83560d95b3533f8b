package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ja/internal/config"
	"ja/internal/console"
	"ja/internal/logger"
	"ja/internal/progress"
	"ja/internal/status"
	"ja/internal/supervisor"
)

func newFrontendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontend",
		Short: "Render a ninja status stream (use as: ninja --frontend='ja frontend')",
		Long: "Reads ninja's serialized status stream from an inherited descriptor (3 by\n" +
			"default, as ninja passes it to --frontend commands) or from a recorded file,\n" +
			"and renders it like a regular ja build.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runFrontend,
	}
	cmd.Flags().Int("fd", 3, "Descriptor to read the status stream from")
	cmd.Flags().String("input", "", "Read a recorded status stream from this file instead")
	cmd.MarkFlagsMutuallyExclusive("fd", "input")
	return cmd
}

func runFrontend(cmd *cobra.Command, _ []string) error {
	fd, _ := cmd.Flags().GetInt("fd")
	input, _ := cmd.Flags().GetString("input")

	s := config.Load()
	tmpl := s.Status
	if tmpl == "" {
		tmpl = status.DefaultTemplate
	}
	formatter, err := status.NewFormatter(tmpl)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	var r io.ReadCloser
	if input != "" {
		f, err := os.Open(input)
		if err != nil {
			return &ExitError{Code: ExitCLIError, Err: err}
		}
		r = f
	} else {
		if fd < 0 {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid --fd %d", fd)}
		}
		r = os.NewFile(uintptr(fd), "status")
	}
	defer r.Close()

	log := logger.FromEnv()
	defer log.Sync()
	out := cmd.OutOrStdout()
	styles := console.DefaultStyles()
	printer := console.NewPrinter(out, outputTerminal(out))
	res, err := supervisor.Consume(cmd.Context(), r, supervisor.Config{
		Console: printer,
		Handler: progress.NewTracker(printer, formatter, styles),
		Styles:  styles,
		Logger:  log,
	})
	return exitError(res, err)
}

// outputTerminal detects the capabilities of w when it is a file.
func outputTerminal(w io.Writer) console.Terminal {
	if f, ok := w.(*os.File); ok {
		return console.DetectTerminal(f)
	}
	return console.DumbTerminal{}
}
