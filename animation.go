package deepzoom

import (
	"math"
	"time"
)

// Kind identifies the state a transition drives. At most one transition
// per kind is active.
type Kind int

const (
	KindPan Kind = iota
	KindZoom
	KindRotation
	KindColor
	KindParams
	KindTravel
	kindCount
)

var kindNames = [kindCount]string{"pan", "zoom", "rotation", "color", "params", "travel"}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

type tokenState uint8

const (
	tokenRunning tokenState = iota
	tokenDone
	tokenCancelled
)

// Token is the handle of one transition.
type Token struct {
	kind     Kind
	state    tokenState
	onDone   []func()
	onCancel []func()
}

// Kind returns the kind of the transition.
func (t *Token) Kind() Kind { return t.kind }

// Done reports whether the transition reached its target.
func (t *Token) Done() bool { return t.state == tokenDone }

// Cancelled reports whether the transition was cancelled.
func (t *Token) Cancelled() bool { return t.state == tokenCancelled }

// Running reports whether the transition is still in flight.
func (t *Token) Running() bool { return t.state == tokenRunning }

// OnDone registers f to run when the transition completes. It never runs
// for a cancelled transition.
func (t *Token) OnDone(f func()) {
	if t.state == tokenDone {
		f()
		return
	}
	t.onDone = append(t.onDone, f)
}

// Cancel stops the transition immediately. The next Step does not touch
// its state and OnDone callbacks are dropped. Cancelling a finished
// transition does nothing.
func (t *Token) Cancel() {
	if t == nil || t.state != tokenRunning {
		return
	}
	t.state = tokenCancelled
	t.onDone = nil
	hooks := t.onCancel
	t.onCancel = nil
	for _, f := range hooks {
		f()
	}
}

func (t *Token) finish() {
	t.state = tokenDone
	t.onCancel = nil
	done := t.onDone
	t.onDone = nil
	for _, f := range done {
		f()
	}
}

// AnimationTarget is the state an Animator drives. *Renderer implements it.
type AnimationTarget interface {
	View() *View
	Fractal() FractalView
	Palette() Palette
	SetPalette(Palette)
}

// transition advances one animation. step is called once per Animator.Step
// with the time since the transition's first step and reports completion.
type transition struct {
	token   *Token
	start   time.Time
	started bool
	begin   func()
	step    func(elapsed time.Duration) bool
}

// Animator is a frame-driven transition engine. The host calls Step once per
// frame; nothing runs between calls. Start values are captured on a
// transition's first Step, so transitions queued behind each other chain
// from where the previous one ended.
//
// An Animator is not safe for concurrent use.
type Animator struct {
	target AnimationTarget
	active [kindCount]*transition

	// Ease shapes every tween started after it is set. Zoom applies it to
	// the exponent of its geometric interpolation.
	Ease Easing
}

// NewAnimator returns an idle animator driving target.
func NewAnimator(target AnimationTarget) *Animator {
	return &Animator{target: target, Ease: EaseInOutCubic}
}

// Step advances every active transition to now and reports whether any
// transition is still active.
func (a *Animator) Step(now time.Time) bool {
	for k := range a.active {
		tr := a.active[k]
		if tr == nil {
			continue
		}
		if !tr.token.Running() {
			a.active[k] = nil
			continue
		}
		if !tr.started {
			tr.started = true
			tr.start = now
			if tr.begin != nil {
				tr.begin()
			}
		}
		if tr.step(now.Sub(tr.start)) {
			if a.active[k] == tr {
				a.active[k] = nil
			}
			tr.token.finish()
		}
	}
	return a.Busy()
}

// Busy reports whether any transition is active.
func (a *Animator) Busy() bool {
	for _, tr := range a.active {
		if tr != nil && tr.token.Running() {
			return true
		}
	}
	return false
}

// Active returns the token of the running transition of kind k, or nil.
func (a *Animator) Active(k Kind) *Token {
	if k < 0 || k >= kindCount {
		return nil
	}
	if tr := a.active[k]; tr != nil && tr.token.Running() {
		return tr.token
	}
	return nil
}

// Cancel cancels the running transition of kind k.
func (a *Animator) Cancel(k Kind) {
	if tok := a.Active(k); tok != nil {
		tok.Cancel()
	}
	if k >= 0 && k < kindCount {
		a.active[k] = nil
	}
}

// CancelAll cancels every running transition.
func (a *Animator) CancelAll() {
	for k := range a.active {
		a.Cancel(Kind(k))
	}
}

// start installs tr as the transition of kind k, cancelling the one it
// replaces.
func (a *Animator) start(k Kind, begin func(), step func(time.Duration) bool) *Token {
	a.Cancel(k)
	tok := &Token{kind: k}
	a.active[k] = &transition{token: tok, begin: begin, step: step}
	return tok
}

// tween builds a step function over duration d: apply receives eased
// progress while t < 1, then end runs once with the exact target.
func (a *Animator) tween(d time.Duration, apply func(k float64), end func()) func(time.Duration) bool {
	ease := a.Ease
	if ease == nil {
		ease = Linear
	}
	return func(elapsed time.Duration) bool {
		if d <= 0 || elapsed >= d {
			end()
			return true
		}
		apply(ease(float64(elapsed) / float64(d)))
		return false
	}
}

// PanTo moves the view center to target over d. Intermediate positions are
// interpolated in double-double so deep views do not jitter.
func (a *Animator) PanTo(target Point, d time.Duration) *Token {
	v := a.target.View()
	var sx, sy DD
	var dx, dy float64
	begin := func() {
		sx, sy = v.PanDD()
		dx = DDFrom(target.X).Sub(sx).Value()
		dy = DDFrom(target.Y).Sub(sy).Value()
	}
	return a.start(KindPan, begin, a.tween(d,
		func(k float64) { v.setPanDD(sx.Add(dx*k), sy.Add(dy*k)) },
		func() { v.SetPan(target.X, target.Y) },
	))
}

// ZoomTo zooms about the view center to target over d, interpolating
// geometrically. target is clamped to the fractal's zoom bounds, and the
// final frame lands on it exactly.
func (a *Animator) ZoomTo(target float64, d time.Duration) *Token {
	v := a.target.View()
	target = ClampZoom(a.target.Fractal(), target)
	var z0 float64
	begin := func() { z0 = v.Zoom() }
	return a.start(KindZoom, begin, a.tween(d,
		func(k float64) { v.SetZoom(ExpLerp(z0, target, k)) },
		func() { v.SetZoom(target) },
	))
}

// ZoomAround is ZoomTo keeping the fractal point under screen position
// (sx, sy) fixed.
func (a *Animator) ZoomAround(target, sx, sy float64, d time.Duration) *Token {
	v := a.target.View()
	target = ClampZoom(a.target.Fractal(), target)
	var z0 float64
	begin := func() { z0 = v.Zoom() }
	return a.start(KindZoom, begin, a.tween(d,
		func(k float64) { v.SetZoomKeepingAnchor(ExpLerp(z0, target, k), sx, sy) },
		func() { v.SetZoomKeepingAnchor(target, sx, sy) },
	))
}

// RotateTo turns the view to target radians along the shorter arc.
func (a *Animator) RotateTo(target float64, d time.Duration) *Token {
	v := a.target.View()
	target = NormalizeAngle(target)
	var r0, arc float64
	begin := func() {
		r0 = v.Rotation()
		arc = shortestArc(r0, target)
	}
	return a.start(KindRotation, begin, a.tween(d,
		func(k float64) { v.SetRotation(r0 + arc*k) },
		func() { v.SetRotation(target) },
	))
}

// PaletteTo blends the active palette into p.
func (a *Animator) PaletteTo(p Palette, d time.Duration) *Token {
	var p0 Palette
	begin := func() { p0 = a.target.Palette() }
	return a.start(KindColor, begin, a.tween(d,
		func(k float64) { a.target.SetPalette(p0.Lerp(p, k)) },
		func() { a.target.SetPalette(p) },
	))
}

// CyclePalette shifts the palette phase by speed cycles per second until
// cancelled.
func (a *Animator) CyclePalette(speed float64) *Token {
	var last time.Duration
	return a.start(KindColor, nil, func(elapsed time.Duration) bool {
		dt := (elapsed - last).Seconds()
		last = elapsed
		a.target.SetPalette(a.target.Palette().Cycle(speed * dt))
		return false
	})
}

// ParamsTo interpolates the shape parameters of a Parametric view. Keys the
// view does not have are ignored. On other views it completes on the next
// Step without effect.
func (a *Animator) ParamsTo(target map[string]float64, d time.Duration) *Token {
	pv, ok := a.target.Fractal().(Parametric)
	if !ok {
		return a.start(KindParams, nil, func(time.Duration) bool { return true })
	}
	var p0 map[string]float64
	begin := func() { p0 = pv.Params() }
	blend := func(k float64) map[string]float64 {
		out := make(map[string]float64, len(p0))
		for name, from := range p0 {
			to, ok := target[name]
			if !ok || math.IsNaN(to) || math.IsInf(to, 0) {
				to = from
			}
			out[name] = Lerp(from, to, k)
			if k >= 1 {
				out[name] = to
			}
		}
		return out
	}
	return a.start(KindParams, begin, a.tween(d,
		func(k float64) { pv.SetParams(blend(k)) },
		func() { pv.SetParams(blend(1)) },
	))
}
