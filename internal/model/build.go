package model

import "time"

// CLIOptions holds user-configurable runtime options as parsed from flags.
type CLIOptions struct {
	Dir          string   // -C: directory to change to before anything else
	File         string   // -f: build file, relative to Dir
	Jobs         int      // -j: parallel jobs; 0 leaves the engine default
	Tool         string   // -t: run an engine subtool instead of building
	Verbose      bool     // -v: show full command lines
	Targets      []string // Positional build targets
	StatusFormat string   // Status line template
	NinjaBinary  string   // Optional explicit path to ninja
	LockTimeout  time.Duration
	NoHistory    bool
}

// BuildRecord is one supervised build as kept in the history.
type BuildRecord struct {
	ID          string
	Dir         string
	Targets     []string
	StartedAt   time.Time
	Duration    time.Duration
	Total       int
	Finished    int
	ExitCode    int
	Failed      bool
	Interrupted bool
}
