// Package progress tracks a build from its status events and decides what
// the console shows for each of them.
package progress

import (
	"fmt"
	"strings"

	"ja/internal/console"
	"ja/internal/frontend"
	"ja/internal/status"
	"ja/internal/util/format"
)

// Printer is the part of the console the tracker draws on.
// *console.Printer implements it.
type Printer interface {
	PrintLine(text string, kind console.LineKind)
	SetConsoleLocked(locked bool)
	Smart() bool
}

// ConsistencyError reports an event stream that contradicts itself, such as
// a finish for an edge that never started.
type ConsistencyError struct {
	ID     uint32
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("status stream: edge %d %s", e.ID, e.Reason)
}

// Tracker holds the state of one build and renders its events.
type Tracker struct {
	printer  Printer
	format   *status.Formatter
	styles   console.Styles
	counters status.Counters
	rate     *status.RateWindow
	running  registry
	verbose  bool
}

// NewTracker returns a tracker drawing on p with status lines from f.
func NewTracker(p Printer, f *status.Formatter, styles console.Styles) *Tracker {
	return &Tracker{
		printer: p,
		format:  f,
		styles:  styles,
		rate:    status.NewRateWindow(status.DefaultWindow),
	}
}

// Counters returns the current progress counters.
func (t *Tracker) Counters() status.Counters { return t.counters }

// Verbose reports whether the build asked for command lines.
func (t *Tracker) Verbose() bool { return t.verbose }

// Handle applies ev and renders it. failed is true when the event reports a
// failed edge or an error message. A *ConsistencyError means the stream can
// no longer be trusted.
func (t *Tracker) Handle(ev frontend.Event) (failed bool, err error) {
	switch e := ev.(type) {
	case frontend.TotalEdges:
		t.counters.Total = int(e.Total)
	case frontend.BuildStarted:
		t.buildStarted(e)
	case frontend.BuildFinished:
		t.buildFinished()
	case frontend.EdgeStarted:
		return false, t.edgeStarted(e)
	case frontend.EdgeFinished:
		return t.edgeFinished(e)
	case frontend.Message:
		return t.message(e), nil
	}
	return false, nil
}

func (t *Tracker) buildStarted(e frontend.BuildStarted) {
	t.verbose = e.Verbose
	t.rate = status.NewRateWindow(int(e.Parallelism))
	t.counters.Started = 0
	t.counters.Running = 0
	t.counters.Finished = 0
	t.running.reset()
}

func (t *Tracker) buildFinished() {
	t.printer.SetConsoleLocked(false)
	jobs := "jobs"
	if t.counters.Total == 1 {
		jobs = "job"
	}
	line := fmt.Sprintf("finished %d %s in %s.", t.counters.Total, jobs, format.Elapsed(t.counters.TimeMillis))
	t.printer.PrintLine(console.Paint(t.styles.Finished, line), console.LineFull)
}

func (t *Tracker) edgeStarted(e frontend.EdgeStarted) error {
	if t.running.get(e.ID) != nil {
		return &ConsistencyError{ID: e.ID, Reason: "started twice"}
	}
	t.counters.Started++
	t.counters.Running++
	t.advance(e.StartTimeMillis)
	rec := &edgeRecord{
		id:          e.ID,
		description: e.Description,
		command:     e.Command,
		console:     e.Console,
		startMillis: e.StartTimeMillis,
	}
	t.running.add(rec)

	if rec.console || t.printer.Smart() {
		t.printStatus(rec)
	}
	if rec.console {
		t.printer.SetConsoleLocked(true)
	}
	return nil
}

func (t *Tracker) edgeFinished(e frontend.EdgeFinished) (bool, error) {
	rec := t.running.get(e.ID)
	if rec == nil {
		return false, &ConsistencyError{ID: e.ID, Reason: "finished without being started"}
	}
	t.counters.Finished++
	t.advance(e.EndTimeMillis)

	// A console edge showed its line when it started.
	if rec.console {
		t.printer.SetConsoleLocked(false)
	} else {
		t.printStatus(rec)
	}
	t.counters.Running--
	t.running.remove(e.ID)

	failed := e.Status != 0
	var heading string
	switch {
	case failed:
		heading = console.Paint(t.styles.FailedCommand, rec.command) +
			console.Paint(t.styles.FailedStatus, fmt.Sprintf(" failed with exit code %d.", e.Status))
	case e.Output != "":
		heading = console.Paint(t.styles.Command, rec.command)
	}
	if heading != "" {
		if t.printer.Smart() {
			t.printer.PrintLine("", console.LineElide)
		}
		if t.verbose || e.Output == "" {
			t.printer.PrintLine(heading, console.LineFull)
		}
		out := e.Output
		// Tools force colors because their output goes to a pipe; keep them
		// only where they can be displayed.
		if !t.printer.Smart() {
			out = console.StripANSI(out)
		}
		if out = strings.TrimRight(out, "\n"); out != "" {
			t.printer.PrintLine(out, console.LineFull)
		}
	}

	// Never leave a finished edge on the status line.
	if !failed {
		if next := t.running.first(); next != nil {
			if next.console || t.printer.Smart() {
				t.printStatus(next)
			}
			if next.console {
				t.printer.SetConsoleLocked(true)
			}
		}
	}
	return failed, nil
}

func (t *Tracker) message(e frontend.Message) bool {
	style, prefix := t.styles.Info, ""
	switch e.Level {
	case frontend.LevelWarning:
		style, prefix = t.styles.Warning, "warning: "
	case frontend.LevelError:
		style, prefix = t.styles.Error, "error: "
	}
	t.printer.PrintLine(console.Paint(style, prefix+e.Text), console.LineFull)
	return e.Level == frontend.LevelError
}

func (t *Tracker) printStatus(rec *edgeRecord) {
	line := t.format.Bar(t.counters, t.rate) + status.EdgeText(rec.description, rec.command, t.verbose)
	kind := console.LineElide
	if t.verbose {
		kind = console.LineFull
	}
	t.printer.PrintLine(line, kind)
}

// advance moves the build clock forward. Timestamps never move it back.
func (t *Tracker) advance(ms int64) {
	if ms > t.counters.TimeMillis {
		t.counters.TimeMillis = ms
	}
}
