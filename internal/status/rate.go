package status

// DefaultWindow is the rate window capacity used when the build does not
// report its parallelism.
const DefaultWindow = 32

// RateWindow estimates throughput from the timestamps of the most recent
// distinct finished counts.
type RateWindow struct {
	capacity int
	last     int
	times    []int64
}

// NewRateWindow returns an empty window holding at most capacity samples.
func NewRateWindow(capacity int) *RateWindow {
	if capacity <= 0 {
		capacity = DefaultWindow
	}
	return &RateWindow{
		capacity: capacity,
		last:     -1,
		times:    make([]int64, 0, capacity),
	}
}

// Update records that count edges had finished at timeMillis. Repeating the
// previous count is a no-op.
func (w *RateWindow) Update(count int, timeMillis int64) {
	if count == w.last {
		return
	}
	w.last = count
	if len(w.times) == w.capacity {
		copy(w.times, w.times[1:])
		w.times = w.times[:len(w.times)-1]
	}
	w.times = append(w.times, timeMillis)
}

// Rate returns edges per second across the window. ok is false until the
// oldest and newest samples were taken at different times.
func (w *RateWindow) Rate() (rate float64, ok bool) {
	if len(w.times) < 2 {
		return 0, false
	}
	span := w.times[len(w.times)-1] - w.times[0]
	if span == 0 {
		return 0, false
	}
	return float64(len(w.times)-1) / (float64(span) / 1e3), true
}

// Len is the number of retained samples.
func (w *RateWindow) Len() int { return len(w.times) }

// Cap is the window capacity.
func (w *RateWindow) Cap() int { return w.capacity }
