//go:build !nogpu

package gpu

import (
	"time"

	"github.com/gogpu/deepzoom"
)

// disjointAfter marks a measurement as disjoint when its interval exceeds
// it. Such intervals span a stall (suspend, device reset, preemption) rather
// than rendering work.
const disjointAfter = 250 * time.Millisecond

// fenceTimer measures frame time from the host: a query starts when
// BeginTimer is called and completes when the fence passes the last submit
// recorded before EndTimer.
type fenceTimer struct {
	open    bool
	start   time.Time
	first   uint64 // fence value at BeginTimer
	pending []timerQuery
}

type timerQuery struct {
	start time.Time
	value uint64
}

func (t *fenceTimer) reset() {
	t.open = false
	t.pending = nil
}

// BeginTimer opens a measurement. A measurement left open is discarded.
func (b *Backend) BeginTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timer.open = true
	b.timer.start = b.now()
	b.timer.first = b.fenceValue
}

// EndTimer closes the open measurement. Nothing is queued when no work was
// submitted in between.
func (b *Backend) EndTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.timer.open {
		return
	}
	b.timer.open = false
	if b.fenceValue == b.timer.first {
		return
	}
	b.timer.pending = append(b.timer.pending, timerQuery{start: b.timer.start, value: b.fenceValue})
}

// PollTimer returns the oldest completed measurement.
func (b *Backend) PollTimer() (deepzoom.TimerSample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.timer.pending) == 0 || b.lost || b.fence == nil {
		return deepzoom.TimerSample{}, false
	}
	q := b.timer.pending[0]
	if !b.completedLocked(q.value) {
		return deepzoom.TimerSample{}, false
	}
	b.timer.pending = b.timer.pending[1:]
	elapsed := b.now().Sub(q.start)
	return deepzoom.TimerSample{
		Elapsed:  elapsed,
		Disjoint: elapsed > disjointAfter,
	}, true
}
