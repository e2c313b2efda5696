package deepzoom

import "time"

// QualityController is an integral controller that trades iteration count
// for frame time. Each observed GPU sample above HighWater removes Step
// iterations from the budget; each sample below LowWater adds Step back.
// The accumulated adjustment stays within [MinExtra, MaxExtra].
type QualityController struct {
	cfg   QualityConfig
	extra int
}

// NewQualityController returns a controller with no accumulated adjustment.
func NewQualityController(cfg QualityConfig) *QualityController {
	if cfg.MinExtra > cfg.MaxExtra {
		cfg.MinExtra, cfg.MaxExtra = cfg.MaxExtra, cfg.MinExtra
	}
	return &QualityController{cfg: cfg}
}

// Extra returns the current iteration adjustment.
func (q *QualityController) Extra() int { return q.extra }

// Reset clears the accumulated adjustment.
func (q *QualityController) Reset() { q.extra = 0 }

// Observe feeds one GPU frame time and reports whether the adjustment
// changed.
func (q *QualityController) Observe(elapsed time.Duration) bool {
	prev := q.extra
	switch {
	case elapsed > q.cfg.HighWater:
		q.extra -= q.cfg.Step
	case elapsed < q.cfg.LowWater:
		q.extra += q.cfg.Step
	}
	q.extra = max(q.cfg.MinExtra, min(q.cfg.MaxExtra, q.extra))
	if q.extra != prev {
		Logger().Debug("deepzoom: quality step", "elapsed", elapsed, "extra", q.extra)
		return true
	}
	return false
}
