package deepzoom

import "time"

// Config holds the tuned constants of the renderer. The reference-picking
// hysteresis and rebase factor are empirical; they stay configurable.
type Config struct {
	// Width and Height are the viewport size in pixels.
	Width, Height int

	// MaxIter is the hard iteration cap and the width of the reference
	// orbit texture.
	MaxIter int
	// MinIter is the lower clamp of the iteration budget.
	MinIter int
	// BaseIter is the budget at the fractal's default zoom.
	BaseIter int
	// ItersPerDecade is added to the budget per factor of ten zoomed in.
	ItersPerDecade float64

	// RebaseFactor triggers a rebase once |pan-refPan| > zoom*RebaseFactor.
	RebaseFactor float64
	// SearchRadius bounds reference candidates to SearchRadius*zoom around
	// the view center.
	SearchRadius float64
	// SearchGrid is N for the N×N candidate grid.
	SearchGrid int
	// ImproveRatio and ImproveIters are the hysteresis margins a candidate
	// must beat the current reference by (either one suffices).
	ImproveRatio float64
	ImproveIters int

	// SettleDelay is the quiet time after the last gesture before one
	// clean rebuild of the reference orbit.
	SettleDelay time.Duration

	// InteractiveBlock is the preview block size a progressive backend
	// uses while a gesture is in flight. 1 disables previews.
	InteractiveBlock int

	Quality QualityConfig
}

// QualityConfig tunes the adaptive-quality integral controller.
type QualityConfig struct {
	// HighWater and LowWater bound the acceptable GPU frame time.
	HighWater, LowWater time.Duration
	// Step is the iteration adjustment per observed sample.
	Step int
	// MinExtra and MaxExtra clamp the accumulated adjustment.
	MinExtra, MaxExtra int
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Width:            1024,
		Height:           768,
		MaxIter:          2048,
		MinIter:          64,
		BaseIter:         200,
		ItersPerDecade:   100,
		RebaseFactor:     0.75,
		SearchRadius:     0.5,
		SearchGrid:       5,
		ImproveRatio:     0.10,
		ImproveIters:     50,
		SettleDelay:      160 * time.Millisecond,
		InteractiveBlock: 8,
		Quality: QualityConfig{
			HighWater: 22 * time.Millisecond,
			LowWater:  12 * time.Millisecond,
			Step:      32,
			MinExtra:  -1536,
			MaxExtra:  512,
		},
	}
}

// sanitized fills zero or nonsensical fields from DefaultConfig.
func (c Config) sanitized() Config {
	d := DefaultConfig()
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.MaxIter <= 0 {
		c.MaxIter = d.MaxIter
	}
	if c.MinIter <= 0 || c.MinIter > c.MaxIter {
		c.MinIter = min(d.MinIter, c.MaxIter)
	}
	if c.BaseIter <= 0 {
		c.BaseIter = d.BaseIter
	}
	if c.ItersPerDecade < 0 {
		c.ItersPerDecade = d.ItersPerDecade
	}
	if c.RebaseFactor <= 0 {
		c.RebaseFactor = d.RebaseFactor
	}
	if c.SearchRadius <= 0 {
		c.SearchRadius = d.SearchRadius
	}
	// A reference picked inside the search disc must not already need a
	// rebase.
	if c.SearchRadius >= c.RebaseFactor {
		c.SearchRadius = c.RebaseFactor * d.SearchRadius / d.RebaseFactor
	}
	if c.SearchGrid < 1 {
		c.SearchGrid = d.SearchGrid
	}
	if c.ImproveRatio < 0 {
		c.ImproveRatio = d.ImproveRatio
	}
	if c.ImproveIters < 0 {
		c.ImproveIters = d.ImproveIters
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.InteractiveBlock < 1 {
		c.InteractiveBlock = 1
	}
	if c.Quality.Step <= 0 {
		c.Quality = d.Quality
	}
	return c
}
