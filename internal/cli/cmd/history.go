package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ja/internal/console"
	"ja/internal/dirs"
	"ja/internal/history"
	"ja/internal/model"
	"ja/internal/util/format"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recent builds",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, _ := cmd.Flags().GetInt("limit")
			path, err := dirs.HistoryPath()
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "no builds recorded yet")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			defer store.Close()
			records, err := store.List(n)
			if err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			out := cmd.OutOrStdout()
			smart := outputTerminal(out).Smart()
			styles := console.DefaultStyles()
			for _, r := range records {
				line := historyLine(r, styles)
				if !smart {
					line = console.StripANSI(line)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 10, "Number of builds to show (0 shows all)")
	return cmd
}

func historyLine(r model.BuildRecord, styles console.Styles) string {
	var outcome string
	switch {
	case r.Interrupted:
		outcome = console.Paint(styles.Caution, "interrupted")
	case r.ExitCode != 0:
		outcome = console.Paint(styles.Failure, fmt.Sprintf("exit %d", r.ExitCode))
	default:
		outcome = console.Paint(styles.Success, "ok")
	}
	targets := strings.Join(r.Targets, " ")
	if targets == "" {
		targets = "(default)"
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%s  %s  %9s  %4d/%-4d  %s  %s  %s",
		id,
		r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		format.Elapsed(r.Duration.Milliseconds()),
		r.Finished, r.Total,
		outcome,
		r.Dir,
		targets,
	)
}
