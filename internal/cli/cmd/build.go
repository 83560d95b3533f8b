package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ja/internal/bootstrap"
	"ja/internal/config"
	"ja/internal/console"
	"ja/internal/dirs"
	"ja/internal/frontend"
	"ja/internal/history"
	"ja/internal/logger"
	"ja/internal/model"
	"ja/internal/progress"
	"ja/internal/status"
	"ja/internal/supervisor"
	"ja/internal/util"
	"ja/internal/util/deps"
)

func assembleOptions(cmd *cobra.Command, targets []string) (model.CLIOptions, error) {
	s := config.Load()
	tool, _ := cmd.Flags().GetString("tool")
	dir, _ := cmd.Flags().GetString("directory")
	file, _ := cmd.Flags().GetString("file")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	if s.Jobs < 0 {
		return model.CLIOptions{}, fmt.Errorf("invalid -j %d: must not be negative", s.Jobs)
	}
	if file == "" {
		return model.CLIOptions{}, errors.New("invalid -f: empty file name")
	}
	tmpl := s.Status
	if tmpl == "" {
		tmpl = status.DefaultTemplate
	}
	return model.CLIOptions{
		Dir:          dir,
		File:         file,
		Jobs:         s.Jobs,
		Tool:         tool,
		Verbose:      s.Verbose,
		Targets:      targets,
		StatusFormat: tmpl,
		NinjaBinary:  s.Ninja,
		LockTimeout:  s.LockTimeout,
		NoHistory:    noHistory || !s.History,
	}, nil
}

// engineArgs are the ninja flags that precede --frontend.
func engineArgs(opts model.CLIOptions) []string {
	args := []string{"-f", opts.File}
	if opts.Jobs > 0 {
		args = append(args, "-j"+strconv.Itoa(opts.Jobs))
	}
	if opts.Verbose {
		args = append(args, "-v")
	}
	return args
}

func runBuild(cmd *cobra.Command, targets []string) error {
	ctx := cmd.Context()
	opts, err := assembleOptions(cmd, targets)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	log := logger.FromEnv()
	defer log.Sync()

	ninja, err := deps.FindNinja(opts.NinjaBinary)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	styles := console.DefaultStyles()
	plan, err := bootstrap.Prepare(ctx, bootstrap.Options{
		Dir:     opts.Dir,
		File:    opts.File,
		Verbose: opts.Verbose,
		Out:     cmd.OutOrStdout(),
		Styles:  styles,
		Logger:  log,
	})
	if err != nil {
		return prepareError(err)
	}

	if opts.Tool != "" {
		return runTool(ctx, ninja, plan.BuildDir, opts)
	}
	if err := deps.SupportsFrontend(ctx, util.ExecRunner{}, ninja); err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}

	formatter, err := status.NewFormatter(opts.StatusFormat)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}
	printer := console.NewPrinter(os.Stdout, console.DetectTerminal(os.Stdout))
	sup, err := supervisor.New(supervisor.Config{
		Dir:         plan.BuildDir,
		LockTimeout: opts.LockTimeout,
		Engine: supervisor.Engine{
			Path:    ninja,
			Args:    engineArgs(opts),
			Targets: opts.Targets,
			Dir:     plan.BuildDir,
			Stdin:   os.Stdin,
			Stdout:  os.Stdout,
			Stderr:  os.Stderr,
		},
		Console: printer,
		Handler: progress.NewTracker(printer, formatter, styles),
		Styles:  styles,
		Logger:  log,
	})
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	started := time.Now()
	res, runErr := sup.Run(ctx)
	if perr := printer.Err(); perr != nil {
		log.Warnw("console write failed", "err", perr)
	}
	if !opts.NoHistory {
		recordBuild(log, plan.BuildDir, opts.Targets, started, res, runErr)
	}
	return exitError(res, runErr)
}

func prepareError(err error) error {
	var ge *bootstrap.GeneratorError
	switch {
	case errors.As(err, &ge):
		return &ExitError{Code: ge.Code, Err: err}
	case errors.Is(err, deps.ErrMissing):
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	return &ExitError{Code: ExitCLIError, Err: err}
}

// exitCodeFor maps the outcome of a supervised build to the process status.
func exitCodeFor(res supervisor.Result, err error) int {
	var (
		fe *frontend.FramingError
		de *frontend.DecodeError
		ce *progress.ConsistencyError
	)
	switch {
	case err == nil:
	case errors.As(err, &fe), errors.As(err, &de), errors.As(err, &ce):
		return ExitProtocol
	default:
		return ExitCLIError
	}
	switch {
	case res.Interrupted:
		return ExitInterrupted
	case res.ExitCode < 0:
		// Engine status unknown.
		return ExitCLIError
	case res.ExitCode != 0:
		return res.ExitCode
	case res.Failed:
		return ExitBuildFailed
	}
	return ExitOK
}

func exitError(res supervisor.Result, err error) error {
	code := exitCodeFor(res, err)
	if code == ExitOK {
		return nil
	}
	// The console already shows what went wrong with the build itself.
	return &ExitError{Code: code, Err: err}
}

func runTool(ctx context.Context, ninja, dir string, opts model.CLIOptions) error {
	args := append([]string{"-f", opts.File, "-t", opts.Tool}, opts.Targets...)
	res, err := util.Run(ctx, util.CmdSpec{
		Path:        ninja,
		Args:        args,
		Dir:         dir,
		Verbose:     opts.Verbose,
		Interactive: true,
	})
	if err == nil {
		return nil
	}
	if res.Code > 0 {
		return &ExitError{Code: res.Code}
	}
	return &ExitError{Code: ExitCLIError, Err: err}
}

func recordBuild(log *zap.SugaredLogger, dir string, targets []string, started time.Time, res supervisor.Result, runErr error) {
	path, err := dirs.HistoryPath()
	if err == nil {
		err = dirs.Ensure(filepath.Dir(path))
	}
	if err != nil {
		log.Warnw("history unavailable", "err", err)
		return
	}
	store, err := history.Open(path)
	if err != nil {
		log.Warnw("open history", "path", path, "err", err)
		return
	}
	defer store.Close()

	id, err := store.Record(model.BuildRecord{
		Dir:         dir,
		Targets:     targets,
		StartedAt:   started,
		Duration:    res.Duration,
		Total:       res.Counters.Total,
		Finished:    res.Counters.Finished,
		ExitCode:    exitCodeFor(res, runErr),
		Failed:      res.Failed,
		Interrupted: res.Interrupted,
	})
	if err != nil {
		log.Warnw("record build", "err", err)
		return
	}
	log.Debugw("recorded build", "id", id)
}
