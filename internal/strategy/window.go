package strategy

import "math"

// RollingWindow is a fixed-capacity FIFO of samples backed by a ring buffer.
type RollingWindow struct {
	samples []float64
	head    int // next write slot; oldest sample once full
	count   int
}

// NewRollingWindow allocates a window holding at most capacity samples (minimum 1).
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &RollingWindow{samples: make([]float64, capacity)}
}

// RestoreWindow rebuilds a window from persisted samples ordered oldest to newest.
// Samples beyond capacity are dropped from the old end.
func RestoreWindow(capacity int, history []float64) *RollingWindow {
	w := NewRollingWindow(capacity)
	if len(history) > len(w.samples) {
		history = history[len(history)-len(w.samples):]
	}
	for _, v := range history {
		w.Push(v)
	}
	return w
}

// Len returns the number of samples currently held.
func (w *RollingWindow) Len() int { return w.count }

// Push appends a sample, evicting the oldest one once the window is full.
func (w *RollingWindow) Push(v float64) {
	if w.count < len(w.samples) {
		w.count++
	}
	w.samples[w.head] = v
	w.head = (w.head + 1) % len(w.samples)
}

// Values returns a copy of the samples ordered oldest to newest.
func (w *RollingWindow) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := w.head - w.count
	if start < 0 {
		start += len(w.samples)
	}
	for i := 0; i < w.count; i++ {
		out = append(out, w.samples[(start+i)%len(w.samples)])
	}
	return out
}

// Mean returns the arithmetic mean, ok=false when empty.
func (w *RollingWindow) Mean() (float64, bool) {
	if w.count == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range w.Values() {
		sum += v
	}
	return sum / float64(w.count), true
}

// StdDev returns the sample standard deviation (n-1). Fewer than two samples yield 0.
func (w *RollingWindow) StdDev() float64 {
	if w.count < 2 {
		return 0
	}
	mean, _ := w.Mean()
	var ss float64
	for _, v := range w.Values() {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(w.count-1))
}
