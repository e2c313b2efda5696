package deepzoom

import "time"

// SessionOption configures a Session during creation.
//
// Example:
//
//	// Best available backend, default tuning
//	s, err := deepzoom.NewSession()
//
//	// Headless 4K Julia session on the software backend
//	s, err := deepzoom.NewSession(
//	    deepzoom.WithMode(deepzoom.ModeJulia),
//	    deepzoom.WithSize(3840, 2160),
//	    deepzoom.WithBackendName("cpu"),
//	)
type SessionOption func(*sessionOptions)

// sessionOptions holds optional configuration for Session creation.
type sessionOptions struct {
	cfg         Config
	mode        Mode
	backend     Backend
	backendName string
	palette     Palette
	presets     []Preset
	clock       func() time.Time
}

// defaultOptions returns the default session options.
func defaultOptions() sessionOptions {
	return sessionOptions{
		cfg:     DefaultConfig(),
		mode:    ModeMandelbrot,
		palette: DefaultPalette,
		clock:   time.Now,
	}
}

// WithConfig replaces the whole configuration. Options applied after it
// still adjust individual fields.
func WithConfig(cfg Config) SessionOption {
	return func(o *sessionOptions) {
		o.cfg = cfg
	}
}

// WithSize sets the viewport size in pixels.
func WithSize(width, height int) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.Width, o.cfg.Height = width, height
	}
}

// WithMaxIter sets the iteration cap and reference orbit texture width.
func WithMaxIter(n int) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.MaxIter = n
	}
}

// WithRebaseFactor sets the drift, in multiples of zoom, past which the
// reference orbit is rebuilt.
func WithRebaseFactor(f float64) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.RebaseFactor = f
	}
}

// WithImprovementThreshold sets the hysteresis margins a new reference
// candidate must beat the current reference by: a relative gain or an
// absolute number of iterations, whichever is reached first.
func WithImprovementThreshold(ratio float64, iters int) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.ImproveRatio = ratio
		o.cfg.ImproveIters = iters
	}
}

// WithSearchGrid sets the N of the N×N reference candidate grid and the
// search radius in multiples of zoom.
func WithSearchGrid(n int, radius float64) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.SearchGrid = n
		o.cfg.SearchRadius = radius
	}
}

// WithSettleDelay sets the quiet time after the last gesture before the
// clean reference rebuild.
func WithSettleDelay(d time.Duration) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.SettleDelay = d
	}
}

// WithQuality tunes the adaptive-quality controller.
func WithQuality(q QualityConfig) SessionOption {
	return func(o *sessionOptions) {
		o.cfg.Quality = q
	}
}

// WithMode sets the initial fractal.
func WithMode(m Mode) SessionOption {
	return func(o *sessionOptions) {
		o.mode = m
	}
}

// WithPalette sets the initial palette.
func WithPalette(p Palette) SessionOption {
	return func(o *sessionOptions) {
		o.palette = p
	}
}

// WithPresets adds travel targets on top of the fractals' built-in ones.
// They are searched first by TravelToPreset.
func WithPresets(p []Preset) SessionOption {
	return func(o *sessionOptions) {
		o.presets = append(o.presets, p...)
	}
}

// WithBackend injects a backend instance. The session does not close it.
func WithBackend(b Backend) SessionOption {
	return func(o *sessionOptions) {
		o.backend = b
	}
}

// WithBackendName selects a registered backend by name instead of the
// best available one.
func WithBackendName(name string) SessionOption {
	return func(o *sessionOptions) {
		o.backendName = name
	}
}

// WithClock replaces time.Now as the frame clock. Tests use it to drive
// animations deterministically.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) {
		if now != nil {
			o.clock = now
		}
	}
}
