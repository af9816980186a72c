package bandit

import (
	"gonum.org/v1/gonum/stat"
)

// MovingAverages returns the mean of every full window of rewards, oldest
// first. The result has len(rewards)-window+1 entries, or none when fewer
// than window rewards are given.
func MovingAverages(rewards []int, window int) ([]float64, error) {
	if err := requirePositive("moving_average_window", window); err != nil {
		return nil, err
	}
	if len(rewards) < window {
		return []float64{}, nil
	}

	values := make([]float64, len(rewards))
	for i, r := range rewards {
		values[i] = float64(r)
	}

	out := make([]float64, 0, len(values)-window+1)
	for end := window; end <= len(values); end++ {
		out = append(out, stat.Mean(values[end-window:end], nil))
	}
	return out, nil
}

// movingWindow keeps a running integer sum over the last size rewards.
type movingWindow struct {
	buf    []int
	next   int
	sum    int
	filled int
}

func newMovingWindow(size int) *movingWindow {
	return &movingWindow{buf: make([]int, size)}
}

// push adds a reward and reports the window mean once the window is full.
func (w *movingWindow) push(reward int) (float64, bool) {
	w.sum += reward - w.buf[w.next]
	w.buf[w.next] = reward
	w.next = (w.next + 1) % len(w.buf)
	if w.filled < len(w.buf) {
		w.filled++
	}
	if w.filled < len(w.buf) {
		return 0, false
	}
	return float64(w.sum) / float64(len(w.buf)), true
}
