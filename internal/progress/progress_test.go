package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ja/internal/console"
	"ja/internal/frontend"
	"ja/internal/status"
)

type line struct {
	text string
	kind console.LineKind
}

// recorder keeps every line with escapes removed and marks lock changes
// with "<lock>" and "<unlock>".
type recorder struct {
	smart  bool
	locked bool
	lines  []line
}

func (r *recorder) PrintLine(text string, kind console.LineKind) {
	r.lines = append(r.lines, line{text: console.StripANSI(text), kind: kind})
}

func (r *recorder) SetConsoleLocked(locked bool) {
	if locked == r.locked {
		return
	}
	r.locked = locked
	if locked {
		r.lines = append(r.lines, line{text: "<lock>"})
	} else {
		r.lines = append(r.lines, line{text: "<unlock>"})
	}
}

func (r *recorder) Smart() bool { return r.smart }

func (r *recorder) texts() []string {
	out := make([]string, len(r.lines))
	for i, l := range r.lines {
		out[i] = l.text
	}
	return out
}

func newTracker(t *testing.T, p Printer, template string) *Tracker {
	t.Helper()
	f, err := status.NewFormatter(template)
	require.NoError(t, err)
	return NewTracker(p, f, console.DefaultStyles())
}

func handleAll(t *testing.T, tr *Tracker, events ...frontend.Event) (failed bool) {
	t.Helper()
	for _, ev := range events {
		f, err := tr.Handle(ev)
		require.NoError(t, err)
		failed = failed || f
	}
	return failed
}

func TestFinishWithoutStartIsInconsistent(t *testing.T) {
	tr := newTracker(t, &recorder{}, "")
	_, err := tr.Handle(frontend.EdgeFinished{ID: 7})
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, uint32(7), ce.ID)
}

func TestDuplicateStartIsInconsistent(t *testing.T) {
	tr := newTracker(t, &recorder{}, "")
	handleAll(t, tr, frontend.EdgeStarted{ID: 1, Description: "CC a"})
	_, err := tr.Handle(frontend.EdgeStarted{ID: 1, Description: "CC a"})
	var ce *ConsistencyError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, tr.Counters().Started)
}

func TestFailureReporting(t *testing.T) {
	tests := []struct {
		name   string
		events []frontend.Event
		failed bool
	}{
		{
			name:   "successful edge",
			events: []frontend.Event{frontend.EdgeStarted{ID: 1}, frontend.EdgeFinished{ID: 1}},
		},
		{
			name:   "edge with output",
			events: []frontend.Event{frontend.EdgeStarted{ID: 1}, frontend.EdgeFinished{ID: 1, Output: "warning\n"}},
		},
		{
			name:   "failed edge",
			events: []frontend.Event{frontend.EdgeStarted{ID: 1}, frontend.EdgeFinished{ID: 1, Status: 2}},
			failed: true,
		},
		{
			name:   "info message",
			events: []frontend.Event{frontend.Message{Level: frontend.LevelInfo, Text: "hi"}},
		},
		{
			name:   "warning message",
			events: []frontend.Event{frontend.Message{Level: frontend.LevelWarning, Text: "hm"}},
		},
		{
			name:   "error message",
			events: []frontend.Event{frontend.Message{Level: frontend.LevelError, Text: "no"}},
			failed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker(t, &recorder{}, "")
			assert.Equal(t, tt.failed, handleAll(t, tr, tt.events...))
		})
	}
}

func TestMessagePrefixes(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(t, rec, "")
	handleAll(t, tr,
		frontend.Message{Level: frontend.LevelInfo, Text: "entering directory"},
		frontend.Message{Level: frontend.LevelWarning, Text: "multiple rules"},
		frontend.Message{Level: frontend.LevelError, Text: "loading build.ninja"},
	)
	assert.Equal(t, []line{
		{text: "entering directory", kind: console.LineFull},
		{text: "warning: multiple rules", kind: console.LineFull},
		{text: "error: loading build.ninja", kind: console.LineFull},
	}, rec.lines)
}

func TestFailedEdgeOnDumbTerminal(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(t, rec, "")
	failed := handleAll(t, tr,
		frontend.TotalEdges{Total: 1},
		frontend.EdgeStarted{ID: 1, Description: "CC a.o", Command: "cc -c a.c"},
		frontend.EdgeFinished{ID: 1, Status: 1},
	)
	assert.True(t, failed)
	assert.Equal(t, []string{"CC a.o", "cc -c a.c failed with exit code 1."}, rec.texts())
}

func TestEdgeOutputIsStrippedOnDumbTerminal(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(t, rec, "")
	handleAll(t, tr,
		frontend.EdgeStarted{ID: 1, Description: "CC a.o", Command: "cc -c a.c"},
		frontend.EdgeFinished{ID: 1, Output: "a.c:1: \x1b[35mwarning\x1b[0m: x\n\n"},
	)
	var out bytes.Buffer
	p := console.NewPrinter(&out, console.DumbTerminal{})
	tr = newTracker(t, p, "")
	handleAll(t, tr,
		frontend.EdgeStarted{ID: 1, Description: "CC a.o", Command: "cc -c a.c"},
		frontend.EdgeFinished{ID: 1, Output: "a.c:1: \x1b[35mwarning\x1b[0m: x\n\n"},
	)
	assert.Contains(t, out.String(), "a.c:1: warning: x\n")
	assert.Equal(t, []string{"CC a.o", "a.c:1: warning: x"}, rec.texts())
}

func TestEdgeOutputKeepsColorsOnSmartTerminal(t *testing.T) {
	var out bytes.Buffer
	p := console.NewPrinter(&out, smartTerminal{cols: 120})
	tr := newTracker(t, p, "")
	handleAll(t, tr,
		frontend.EdgeStarted{ID: 1, Description: "CC a.o", Command: "cc -c a.c"},
		frontend.EdgeFinished{ID: 1, Output: "\x1b[35mwarning\x1b[0m\n"},
	)
	assert.Contains(t, out.String(), "\r\x1b[35mwarning\x1b[0m\x1b[K\n")
}

func TestVerboseShowsCommandBeforeOutput(t *testing.T) {
	rec := &recorder{}
	tr := newTracker(t, rec, "")
	handleAll(t, tr,
		frontend.BuildStarted{Parallelism: 4, Verbose: true},
		frontend.EdgeStarted{ID: 1, Description: "CC a.o", Command: "cc -c a.c"},
		frontend.EdgeFinished{ID: 1, Output: "note\n"},
	)
	assert.Equal(t, []line{
		{text: "cc -c a.c", kind: console.LineFull},
		{text: "cc -c a.c", kind: console.LineFull},
		{text: "note", kind: console.LineFull},
	}, rec.lines)
}

func TestRerendersFirstRunningEdge(t *testing.T) {
	rec := &recorder{smart: true}
	tr := newTracker(t, rec, "")
	handleAll(t, tr,
		frontend.TotalEdges{Total: 1},
		frontend.EdgeStarted{ID: 1, Description: "CC one"},
		frontend.EdgeStarted{ID: 2, Description: "CC two"},
		frontend.EdgeStarted{ID: 3, Description: "CC three"},
		frontend.EdgeFinished{ID: 2},
	)
	assert.Equal(t, []string{"CC one", "CC two", "CC three", "CC two", "CC one"}, rec.texts())
	assert.Equal(t, console.LineElide, rec.lines[4].kind)

	rec.lines = nil
	failed := handleAll(t, tr, frontend.EdgeFinished{ID: 1, Status: 1})
	assert.True(t, failed)
	assert.Equal(t, []string{"CC one", "", " failed with exit code 1."}, rec.texts())
	assert.Equal(t, 1, tr.running.len())
}

func TestBuildStartedResetsButKeepsTotal(t *testing.T) {
	tr := newTracker(t, &recorder{}, "")
	handleAll(t, tr,
		frontend.TotalEdges{Total: 5},
		frontend.EdgeStarted{ID: 1, StartTimeMillis: 10},
		frontend.EdgeStarted{ID: 2, StartTimeMillis: 20},
		frontend.EdgeFinished{ID: 1, EndTimeMillis: 30},
	)
	assert.Equal(t, status.Counters{Total: 5, Started: 2, Running: 1, Finished: 1, TimeMillis: 30}, tr.Counters())

	handleAll(t, tr, frontend.BuildStarted{Parallelism: 0, Verbose: true})
	assert.Equal(t, status.Counters{Total: 5, TimeMillis: 30}, tr.Counters())
	assert.True(t, tr.Verbose())
	assert.Equal(t, 0, tr.running.len())
	assert.Equal(t, status.DefaultWindow, tr.rate.Cap())

	_, err := tr.Handle(frontend.EdgeFinished{ID: 2})
	assert.Error(t, err)
}

func TestClockNeverMovesBack(t *testing.T) {
	tr := newTracker(t, &recorder{}, "")
	handleAll(t, tr,
		frontend.EdgeStarted{ID: 1, StartTimeMillis: 100},
		frontend.EdgeStarted{ID: 2, StartTimeMillis: 400},
		frontend.EdgeFinished{ID: 1, EndTimeMillis: 300},
	)
	assert.Equal(t, int64(400), tr.Counters().TimeMillis)
	c := tr.Counters()
	assert.Equal(t, c.Started-c.Finished, c.Running)
}

func TestFinishedLine(t *testing.T) {
	tests := []struct {
		total int
		ms    int64
		want  string
	}{
		{total: 1, ms: 42, want: "finished 1 job in 0.042s."},
		{total: 2, ms: 2000, want: "finished 2 jobs in 2.000s."},
		{total: 0, ms: 61_000, want: "finished 0 jobs in 1m1s."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := &recorder{}
			tr := newTracker(t, rec, "")
			tr.counters.Total = tt.total
			tr.counters.TimeMillis = tt.ms
			handleAll(t, tr, frontend.BuildFinished{})
			assert.Equal(t, []line{{text: tt.want, kind: console.LineFull}}, rec.lines)
		})
	}
}

type smartTerminal struct{ cols int }

func (s smartTerminal) Smart() bool          { return true }
func (s smartTerminal) Columns() (int, bool) { return s.cols, true }

// Edge A owns the console from 0 to 2000ms; edge B runs from 500 to 1000ms.
// B's completion must only reach the terminal after A releases the console.
func TestConsoleEdgeHoldsOutputUntilItFinishes(t *testing.T) {
	for _, term := range []console.Terminal{console.DumbTerminal{}, smartTerminal{cols: 200}} {
		var out bytes.Buffer
		p := console.NewPrinter(&out, term)
		tr := newTracker(t, p, "[%f/%t] ")

		handleAll(t, tr,
			frontend.TotalEdges{Total: 2},
			frontend.BuildStarted{Parallelism: 2},
			frontend.EdgeStarted{ID: 1, StartTimeMillis: 0, Description: "RUN console A", Command: "a", Console: true},
		)
		require.True(t, p.Locked())
		atLock := out.String()
		assert.Contains(t, console.StripANSI(atLock), "[0/2]")
		assert.Contains(t, console.StripANSI(atLock), "RUN console A")

		handleAll(t, tr,
			frontend.EdgeStarted{ID: 2, StartTimeMillis: 500, Description: "CC b.o", Command: "b"},
			frontend.EdgeFinished{ID: 2, EndTimeMillis: 1000},
		)
		assert.True(t, p.Locked())
		assert.Equal(t, atLock, out.String(), "output leaked while the console was locked")

		handleAll(t, tr, frontend.EdgeFinished{ID: 1, EndTimeMillis: 2000})
		assert.False(t, p.Locked())
		released := console.StripANSI(strings.TrimPrefix(out.String(), atLock))
		assert.Contains(t, released, "[1/2]")
		assert.Contains(t, released, "CC b.o")

		handleAll(t, tr, frontend.BuildFinished{})
		assert.True(t, strings.HasSuffix(console.StripANSI(out.String()), "finished 2 jobs in 2.000s.\n"))
		assert.NoError(t, p.Err())
	}
}

func TestConsoleEdgeKeepsRepeatedMessages(t *testing.T) {
	for _, term := range []console.Terminal{console.DumbTerminal{}, smartTerminal{cols: 200}} {
		var out bytes.Buffer
		p := console.NewPrinter(&out, term)
		tr := newTracker(t, p, "")

		handleAll(t, tr,
			frontend.EdgeStarted{ID: 1, Description: "RUN console", Command: "run", Console: true},
			frontend.Message{Level: frontend.LevelWarning, Text: "dup"},
			frontend.Message{Level: frontend.LevelWarning, Text: "dup"},
			frontend.EdgeFinished{ID: 1, EndTimeMillis: 10},
		)
		assert.Equal(t, 2, strings.Count(console.StripANSI(out.String()), "warning: dup"))
	}
}
