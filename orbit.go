package deepzoom

import (
	"math"
	"sort"
)

// bailout is the squared escape radius.
const bailout = 4.0

// orbitTexelFloats is the number of float32 values per orbit entry:
// real-hi, real-lo, imag-hi, imag-lo.
const orbitTexelFloats = 4

// ReferenceOrbit is the cached exact iteration sequence perturbation
// rendering measures every pixel against.
//
// The orbit is rebuilt as a whole: each ComputeReferenceOrbit starts again
// from iteration 0. Entries past the reference's escape repeat the escape
// value, so texture reads beyond it stay finite and stable.
type ReferenceOrbit struct {
	cfg Config

	refX, refY DD
	hasRef     bool
	refScore   int

	data       []float32
	length     int // iterations the orbit was built for
	escapeAt   int // first index with |Z|² > 4, or length when it never escaped
	builtX     DD
	builtY     DD
	builtValid bool

	dirty bool
	rev   uint64 // view revision the orbit was last checked against
}

// NewReferenceOrbit returns an empty, dirty orbit sized for cfg.MaxIter.
func NewReferenceOrbit(cfg Config) *ReferenceOrbit {
	cfg = cfg.sanitized()
	return &ReferenceOrbit{
		cfg:   cfg,
		data:  make([]float32, cfg.MaxIter*orbitTexelFloats),
		dirty: true,
	}
}

// Width is the texture width: one texel per possible iteration.
func (o *ReferenceOrbit) Width() int { return o.cfg.MaxIter }

// Data returns the flat texel buffer. It is overwritten by the next
// ComputeReferenceOrbit.
func (o *ReferenceOrbit) Data() []float32 { return o.data }

// Dirty reports whether the orbit must be rebuilt before the next draw is
// trustworthy.
func (o *ReferenceOrbit) Dirty() bool { return o.dirty }

// MarkDirty schedules a rebuild.
func (o *ReferenceOrbit) MarkDirty() { o.dirty = true }

// RefPan returns the reference point.
func (o *ReferenceOrbit) RefPan() (x, y DD) { return o.refX, o.refY }

// HasReference reports whether a reference point has been picked.
func (o *ReferenceOrbit) HasReference() bool { return o.hasRef }

// Length returns the iteration count the orbit was built for.
func (o *ReferenceOrbit) Length() int { return o.length }

// EscapeIndex returns the first index at which the reference escaped, or
// Length when it stayed bounded.
func (o *ReferenceOrbit) EscapeIndex() int { return o.escapeAt }

// SetReference moves the reference to (x, y) and marks the orbit dirty.
func (o *ReferenceOrbit) SetReference(x, y DD) {
	o.refX, o.refY = x, y
	o.hasRef = true
	o.refScore = -1
	o.dirty = true
}

// observe marks the orbit dirty when the view moved since the last check.
func (o *ReferenceOrbit) observe(v *View) {
	if rev := v.Revision(); rev != o.rev {
		o.rev = rev
		o.dirty = true
	}
}

// EscapeIters returns how many iterations of z ← z² + c starting from
// z = 0 stay within the bailout radius, capped at maxIter.
func EscapeIters(cx, cy float64, maxIter int) int {
	var zx, zy float64
	for i := range maxIter {
		x2, y2 := zx*zx, zy*zy
		if x2+y2 > bailout {
			return i
		}
		zx, zy = x2-y2+cx, 2*zx*zy+cy
	}
	return maxIter
}

type refCandidate struct {
	x, y  DD
	dist  float64
	score int
}

// PickReferenceNearViewCenter searches an N×N grid of candidates inside
// SearchRadius*zoom of the view center and keeps the one surviving the most
// iterations. The current reference is kept unless it left the search
// disc, or the best candidate beats its score by ImproveRatio or by
// ImproveIters. It reports whether the reference changed.
func (o *ReferenceOrbit) PickReferenceNearViewCenter(v *View, maxIter int) bool {
	cx, cy := v.PanDD()
	radius := o.cfg.SearchRadius * v.Zoom()

	cands := o.candidates(cx, cy, radius)
	for i := range cands {
		cands[i].score = EscapeIters(cands[i].x.Value(), cands[i].y.Value(), maxIter)
	}
	// Closest first, so ties go to the candidate nearest the center.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score > best.score {
			best = c
		}
	}

	if o.hasRef {
		d := math.Hypot(o.refX.Sub(cx).Value(), o.refY.Sub(cy).Value())
		if d <= radius {
			cur := EscapeIters(o.refX.Value(), o.refY.Value(), maxIter)
			o.refScore = cur
			if !o.materiallyBetter(best.score, cur) {
				return false
			}
		}
	}

	o.refX, o.refY = best.x, best.y
	o.refScore = best.score
	o.hasRef = true
	o.dirty = true
	Logger().Debug("reference picked",
		"x", best.x.Value(), "y", best.y.Value(), "score", best.score, "maxIter", maxIter)
	return true
}

func (o *ReferenceOrbit) materiallyBetter(candidate, current int) bool {
	if candidate <= current {
		return false
	}
	gain := candidate - current
	return gain >= o.cfg.ImproveIters || float64(gain) >= o.cfg.ImproveRatio*float64(current)
}

// candidates lays an N×N grid over the square of half-side radius and drops
// the corners outside the disc.
func (o *ReferenceOrbit) candidates(cx, cy DD, radius float64) []refCandidate {
	n := o.cfg.SearchGrid
	out := make([]refCandidate, 0, n*n)
	if n == 1 {
		return append(out, refCandidate{x: cx, y: cy})
	}
	step := 2 * radius / float64(n-1)
	for i := range n {
		for j := range n {
			ox := -radius + float64(i)*step
			oy := -radius + float64(j)*step
			d := math.Hypot(ox, oy)
			if d > radius {
				continue
			}
			out = append(out, refCandidate{x: cx.Add(ox), y: cy.Add(oy), dist: d})
		}
	}
	if len(out) == 0 {
		out = append(out, refCandidate{x: cx, y: cy})
	}
	return out
}

// ComputeReferenceOrbit iterates Z ← Z² + C from Z = 0 at the reference
// point for maxIter steps (capped at Width), storing each Zₙ split into
// float32 hi/lo pairs. The iteration runs in double-double with the full
// reference, the same C the pixel deltas are measured from. Once |Z|² exceeds 4 the remaining entries, through
// the end of the texture, repeat that escaped value; a bounded orbit pads
// the tail with its last value the same way. The result depends only on the
// reference and maxIter, so repeated calls produce identical buffers.
func (o *ReferenceOrbit) ComputeReferenceOrbit(maxIter int) {
	width := o.Width()
	n := min(max(maxIter, 1), width)
	cx, cy := o.refX, o.refY

	var zx, zy DD
	escaped := -1
	var hx, lx, hy, ly float32
	for i := range width {
		if escaped < 0 && i < n {
			hx, lx = zx.Split()
			hy, ly = zy.Split()
			x2, y2 := zx.Mul(zx), zy.Mul(zy)
			if x2.AddDD(y2).Value() > bailout {
				escaped = i
			} else {
				zx, zy = x2.Sub(y2).AddDD(cx), zx.Mul(zy).Scale(2).AddDD(cy)
			}
		}
		k := i * orbitTexelFloats
		o.data[k+0] = hx
		o.data[k+1] = lx
		o.data[k+2] = hy
		o.data[k+3] = ly
	}

	o.length = n
	o.escapeAt = n
	if escaped >= 0 {
		o.escapeAt = escaped
	}
	o.builtX, o.builtY = cx, cy
	o.builtValid = true
	o.dirty = false
}

// Built reports whether the orbit buffer holds data for the current
// reference point.
func (o *ReferenceOrbit) Built() bool {
	return o.builtValid && o.builtX == o.refX && o.builtY == o.refY
}

// BuiltFor returns the point the current buffer was iterated at.
func (o *ReferenceOrbit) BuiltFor() (x, y DD) { return o.builtX, o.builtY }

// NeedsRebase reports whether the view drifted further than
// zoom*RebaseFactor from the reference, past which the perturbation deltas
// outgrow the shader's double-float precision. Without a reference it is
// always true.
func (o *ReferenceOrbit) NeedsRebase(v *View) bool {
	if !o.hasRef {
		return true
	}
	return o.Drift(v) > v.Zoom()*o.cfg.RebaseFactor
}

// Drift returns |pan - refPan| in fractal units.
func (o *ReferenceOrbit) Drift(v *View) float64 {
	px, py := v.PanDD()
	return math.Hypot(px.Sub(o.refX).Value(), py.Sub(o.refY).Value())
}

// IterationBudget returns clamp(base + extra, MinIter, MaxIter) where base
// grows with log10(defaultZoom/zoom).
func IterationBudget(cfg Config, zoom, defaultZoom float64, extra int) int {
	base := float64(cfg.BaseIter)
	if zoom > 0 && defaultZoom > zoom {
		base += cfg.ItersPerDecade * math.Log10(defaultZoom/zoom)
	}
	n := int(math.Round(base)) + extra
	return min(max(n, cfg.MinIter), cfg.MaxIter)
}
