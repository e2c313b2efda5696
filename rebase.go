package deepzoom

import "time"

// RebaseScheduler decides when the reference orbit may be rebuilt.
//
// While a gesture is in flight the orbit is rebuilt only when drift forces
// a rebase. Once input has been quiet for the settle delay, exactly one
// clean rebuild runs; after that a dirty orbit is rebuilt on the next frame.
type RebaseScheduler struct {
	settle      time.Duration
	lastInput   time.Time
	interacting bool
}

// NewRebaseScheduler returns an idle scheduler.
func NewRebaseScheduler(settle time.Duration) *RebaseScheduler {
	return &RebaseScheduler{settle: settle}
}

// Touch records gesture input at now.
func (s *RebaseScheduler) Touch(now time.Time) {
	s.lastInput = now
	s.interacting = true
}

// Interacting reports whether a gesture is in flight.
func (s *RebaseScheduler) Interacting() bool { return s.interacting }

// Update advances the scheduler to now and reports whether the settle
// delay elapsed on this call.
func (s *RebaseScheduler) Update(now time.Time) (settled bool) {
	if s.interacting && now.Sub(s.lastInput) >= s.settle {
		s.interacting = false
		return true
	}
	return false
}

// ShouldRebuild reports whether the orbit is rebuilt this frame.
func (s *RebaseScheduler) ShouldRebuild(settled, dirty, needsRebase bool) bool {
	switch {
	case settled, needsRebase:
		return true
	case s.interacting:
		return false
	default:
		return dirty
	}
}
