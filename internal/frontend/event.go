// Package frontend decodes the status stream Ninja writes to its --frontend
// command: a sequence of varint32 length-prefixed ninja.Status messages.
package frontend

import "strconv"

// Event is one decoded status message. Exactly one of the concrete types
// below is produced per frame.
type Event interface {
	isEvent()
}

// TotalEdges announces the number of edges the build plans to run.
type TotalEdges struct {
	Total uint32
}

// BuildStarted opens a build.
type BuildStarted struct {
	Parallelism uint32
	Verbose     bool
}

// BuildFinished closes a build.
type BuildFinished struct{}

// EdgeStarted reports that an edge's command was launched.
type EdgeStarted struct {
	ID              uint32
	StartTimeMillis int64
	Inputs          []uint32
	Outputs         []uint32
	Description     string
	Command         string
	Console         bool // the command owns the terminal while it runs
}

// EdgeFinished reports the completion of a previously started edge.
type EdgeFinished struct {
	ID            uint32
	EndTimeMillis int64
	Status        int32
	Output        string
}

// Level is the severity of a Message.
type Level int32

const (
	LevelInfo    Level = 0
	LevelWarning Level = 1
	LevelError   Level = 2
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "level(" + strconv.Itoa(int(l)) + ")"
	}
}

// Message is a free-form diagnostic emitted by Ninja itself.
type Message struct {
	Level Level
	Text  string
}

func (TotalEdges) isEvent()    {}
func (BuildStarted) isEvent()  {}
func (BuildFinished) isEvent() {}
func (EdgeStarted) isEvent()   {}
func (EdgeFinished) isEvent()  {}
func (Message) isEvent()       {}
