// Package status renders the status line: the progress template, the
// progress bar drawn over it and the per-edge coloring of descriptions.
package status

// Counters is the progress state a status line is rendered from.
// Running is always Started minus Finished.
type Counters struct {
	Total    int
	Started  int
	Running  int
	Finished int
	// TimeMillis is the build-relative clock taken from the latest event.
	TimeMillis int64
}

// Unstarted is the number of planned edges not yet started.
func (c Counters) Unstarted() int { return c.Total - c.Started }
