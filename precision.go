package deepzoom

import "math"

// HealthLevel buckets a precision health score.
type HealthLevel int

const (
	HealthGood HealthLevel = iota
	HealthDegraded
	HealthExhausted
)

func (l HealthLevel) String() string {
	switch l {
	case HealthGood:
		return "good"
	case HealthDegraded:
		return "degraded"
	}
	return "exhausted"
}

const (
	ddDigits      = 31.0 // decimal digits carried by a double-double pan
	ddMarginDigit = 4.0  // digits of headroom scored as fully healthy
	dfLoFraction  = 0x1p-24
	float32Normal = 0x1p-126
)

// PrecisionHealth is a diagnostic of how close the view is to the limits of
// the double-double pan and double-float shader arithmetic. It is a
// heuristic for overlays; rendering never depends on it.
type PrecisionHealth struct {
	// Score is in [0, 1]; 1 is healthy. It is the minimum of the three
	// component scores.
	Score float64
	Level HealthLevel

	// Digits is the number of significant decimal digits needed to address
	// one pixel at the current pan.
	Digits float64
	// Drift is |pan - refPan| over the rebase distance; above 1 the next
	// frame rebases.
	Drift float64

	HostScore   float64
	DriftScore  float64
	ShaderScore float64
}

// Health scores v against the reference orbit o, which may be nil for
// views rendered without perturbation.
func Health(v *View, o *ReferenceOrbit) PrecisionHealth {
	px := v.PixelSize()
	mag := math.Max(math.Abs(v.Pan().X), math.Abs(v.Pan().Y))
	mag = math.Max(mag, px)

	h := PrecisionHealth{
		Digits:     math.Log10(mag / px),
		DriftScore: 1,
	}
	h.HostScore = clamp01((ddDigits - h.Digits) / ddMarginDigit)

	if o != nil && o.HasReference() {
		h.Drift = o.Drift(v) / (v.Zoom() * o.cfg.RebaseFactor)
		h.DriftScore = clamp01(1 - h.Drift)
	}

	// The low word of a double-float pixel delta must stay a normal float32.
	margin := math.Log10(px * dfLoFraction / float32Normal)
	h.ShaderScore = clamp01(margin / 3)

	h.Score = min(h.HostScore, h.DriftScore, h.ShaderScore)
	switch {
	case h.Score >= 0.75:
		h.Level = HealthGood
	case h.Score >= 0.25:
		h.Level = HealthDegraded
	default:
		h.Level = HealthExhausted
	}
	if math.IsNaN(h.Score) {
		h.Score, h.Level = 0, HealthExhausted
	}
	return h
}
