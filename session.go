package deepzoom

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// Session is one explorer instance: the active fractal, its renderer and
// animator, and the backend they run on. Switching fractals destroys the
// old renderer before building the new one, so only one program holds
// backend resources at a time.
//
// A Session is not safe for concurrent use. Front ends that decode input on
// other goroutines hand gestures to the frame loop (see internal/remote).
type Session struct {
	opts        sessionOptions
	backend     Backend
	ownsBackend bool

	renderer *Renderer
	anim     *Animator
	palette  Palette
	tour     *tour
	pixels   *image.RGBA
	closed   bool
}

// NewSession opens a backend and builds the initial fractal.
//
// A fractal program that fails to compile does not fail NewSession; Frame
// reports ErrProgramInvalid instead.
func NewSession(opts ...SessionOption) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg = o.cfg.sanitized()

	s := &Session{opts: o, backend: o.backend, palette: o.palette}
	if s.backend == nil {
		b, err := OpenBackend(o.backendName)
		if err != nil {
			return nil, err
		}
		s.backend = b
		s.ownsBackend = true
	}
	if err := s.backend.Resize(o.cfg.Width, o.cfg.Height); err != nil {
		s.releaseBackend()
		return nil, fmt.Errorf("deepzoom: size backend: %w", err)
	}
	if err := s.SetMode(o.mode); err != nil {
		s.releaseBackend()
		return nil, err
	}
	return s, nil
}

func (s *Session) releaseBackend() {
	if s.ownsBackend {
		CloseBackend(s.backend)
	}
}

// SetMode switches to a fresh instance of the registered fractal m at its
// default view. Running animations and tours are cancelled.
func (s *Session) SetMode(m Mode) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.stopTour()
	return s.switchMode(m)
}

func (s *Session) switchMode(m Mode) error {
	f, err := NewFractal(m)
	if err != nil {
		return err
	}
	return s.setFractal(f)
}

func (s *Session) setFractal(f FractalView) error {
	cfg := s.opts.cfg
	if s.renderer != nil {
		s.anim.CancelAll()
		cfg.Width, cfg.Height = s.renderer.View().Size()
		s.renderer.Destroy()
		s.renderer = nil
	}
	r, err := NewRenderer(s.backend, f, cfg)
	if err != nil {
		return err
	}
	r.SetPalette(s.palette)
	s.renderer = r
	s.anim = NewAnimator(sessionTarget{s})
	Logger().Info("deepzoom: mode", "fractal", f.Name(), "backend", s.backend.Name())
	return nil
}

// sessionTarget routes palette changes through the session so they survive
// mode switches.
type sessionTarget struct{ s *Session }

func (t sessionTarget) View() *View          { return t.s.renderer.View() }
func (t sessionTarget) Fractal() FractalView { return t.s.renderer.Fractal() }
func (t sessionTarget) Palette() Palette     { return t.s.palette }

func (t sessionTarget) SetPalette(p Palette) {
	t.s.palette = p
	t.s.renderer.SetPalette(p)
}

// Mode returns the active fractal mode.
func (s *Session) Mode() Mode { return s.renderer.Fractal().Mode() }

// Fractal returns the active fractal strategy.
func (s *Session) Fractal() FractalView { return s.renderer.Fractal() }

// View returns the camera of the active fractal.
func (s *Session) View() *View { return s.renderer.View() }

// Renderer returns the active renderer.
func (s *Session) Renderer() *Renderer { return s.renderer }

// Animator returns the transition engine of the active fractal.
func (s *Session) Animator() *Animator { return s.anim }

// Backend returns the backend the session renders on.
func (s *Session) Backend() Backend { return s.backend }

// Palette returns the active palette.
func (s *Session) Palette() Palette { return s.palette }

// SetPalette replaces the palette immediately, cancelling a color
// transition.
func (s *Session) SetPalette(p Palette) {
	s.anim.Cancel(KindColor)
	sessionTarget{s}.SetPalette(p)
}

// Frame advances animations to the session clock and renders one frame.
// After ErrContextLost every animation is cancelled; the next Frame
// rebuilds the program.
func (s *Session) Frame() error {
	if s.closed {
		return ErrSessionClosed
	}
	now := s.opts.clock()
	s.anim.Step(now)
	s.stepTour(now)
	err := s.renderer.Frame(now)
	if errors.Is(err, ErrContextLost) {
		s.stopTour()
		s.anim.CancelAll()
	}
	return err
}

// Busy reports whether an animation or tour is running, that is whether the
// host should keep scheduling frames without input.
func (s *Session) Busy() bool {
	return s.anim.Busy() || s.tour != nil || s.renderer.Interacting()
}

// Pixels reads the last frame back. The returned image is reused by the
// next call.
func (s *Session) Pixels() (*image.RGBA, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	w, h := s.View().Size()
	if s.pixels == nil || s.pixels.Rect.Dx() != w || s.pixels.Rect.Dy() != h {
		s.pixels = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	if err := s.renderer.ReadPixels(s.pixels); err != nil {
		return nil, err
	}
	return s.pixels, nil
}

// Resize changes the viewport size.
func (s *Session) Resize(width, height int) error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.renderer.Resize(width, height)
}

func (s *Session) touch() {
	s.stopTour()
	s.anim.Cancel(KindTravel)
	s.renderer.Touch(s.opts.clock())
}

// Pan moves the view by (dx, dy) fractal units.
func (s *Session) Pan(dx, dy float64) {
	s.touch()
	s.anim.Cancel(KindPan)
	s.View().AddPan(dx, dy)
}

// Drag moves the view so content follows a pointer moved by (dx, dy)
// pixels.
func (s *Session) Drag(dx, dy float64) {
	v := s.View()
	w, h := v.Size()
	cx, cy := float64(w)/2, float64(h)/2
	vec := v.ScreenToViewVector(cx+dx, cy+dy)
	s.Pan(-vec.X*v.Zoom(), -vec.Y*v.Zoom())
}

// ZoomAt multiplies the zoom by ratio (below 1 zooms in) keeping the
// fractal point under screen position (sx, sy) in place. The result is
// clamped to the fractal's bounds.
func (s *Session) ZoomAt(ratio, sx, sy float64) {
	if !(ratio > 0) {
		return
	}
	s.touch()
	s.anim.Cancel(KindZoom)
	v := s.View()
	v.SetZoomKeepingAnchor(ClampZoom(s.Fractal(), v.Zoom()*ratio), sx, sy)
}

// Rotate turns the view by delta radians.
func (s *Session) Rotate(delta float64) {
	s.touch()
	s.anim.Cancel(KindRotation)
	s.View().Rotate(delta)
}

// Reset cancels animations and returns to the default view.
func (s *Session) Reset() {
	s.stopTour()
	s.anim.CancelAll()
	s.View().Reset()
}

// Apply dispatches a decoded gesture.
func (s *Session) Apply(g Gesture) error {
	if s.closed {
		return ErrSessionClosed
	}
	switch g.Kind {
	case GesturePan:
		s.Pan(g.DX, g.DY)
	case GestureDrag:
		s.Drag(g.DX, g.DY)
	case GestureZoom:
		s.ZoomAt(g.Ratio, g.X, g.Y)
	case GestureRotate:
		s.Rotate(g.Angle)
	case GestureReset:
		s.Reset()
	case GestureMode:
		return s.SetMode(g.Mode)
	case GestureJulia:
		return s.JuliaAt(g.X, g.Y)
	case GestureTravel:
		_, err := s.TravelToPreset(g.Preset)
		return err
	default:
		return fmt.Errorf("deepzoom: unknown gesture %q", g.Kind)
	}
	return nil
}

// Presets returns the session presets followed by the built-in presets of
// every registered fractal.
func (s *Session) Presets() []Preset {
	out := append([]Preset(nil), s.opts.presets...)
	for _, m := range Modes() {
		f, err := NewFractal(m)
		if err != nil {
			continue
		}
		for _, p := range f.Presets() {
			if p.Mode == "" {
				p.Mode = m
			}
			out = append(out, p)
		}
	}
	return out
}

// TravelToPreset animates to the named preset, ending any tour. A preset
// of the current mode is searched first; a preset of another mode switches
// to that mode before travelling.
func (s *Session) TravelToPreset(name string) (*Token, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}
	p, err := s.findPreset(name)
	if err != nil {
		return nil, err
	}
	s.stopTour()
	return s.travel(p)
}

func (s *Session) findPreset(name string) (Preset, error) {
	all := s.Presets()
	for _, p := range all {
		if p.Name == name && (p.Mode == "" || p.Mode == s.Mode()) {
			return p, nil
		}
	}
	return FindPreset(all, name)
}

func (s *Session) travel(p Preset) (*Token, error) {
	if p.Mode != "" && p.Mode != s.Mode() {
		if err := s.switchMode(p.Mode); err != nil {
			return nil, err
		}
	}
	return s.anim.TravelTo(p, 0), nil
}

// JuliaAt switches to a Julia set whose c is the fractal point under
// screen position (sx, sy).
func (s *Session) JuliaAt(sx, sy float64) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.stopTour()
	c := s.View().ScreenToFractal(sx, sy)
	j := NewJulia()
	j.C = c
	return s.setFractal(j)
}

// Probe returns the orbit of the point under screen position (sx, sy):
// started at 0 with c at the point for Mandelbrot, started at the point
// with the view's c for Julia.
func (s *Session) Probe(sx, sy float64) OrbitProbe {
	p := s.View().ScreenToFractal(sx, sy)
	if j, ok := s.Fractal().(*Julia); ok {
		return ProbeOrbit(p, j.C, 0)
	}
	return ProbeOrbit(Pt(0, 0), p, 0)
}

// Health scores the current view's numeric precision.
func (s *Session) Health() PrecisionHealth {
	return Health(s.View(), s.renderer.Orbit())
}

// ViewState captures the shareable view.
func (s *Session) ViewState() ViewState {
	v := s.View()
	st := ViewState{Mode: s.Mode(), Pan: v.Pan(), Zoom: v.Zoom(), Rotation: v.Rotation()}
	if j, ok := s.Fractal().(*Julia); ok {
		st.JuliaC = j.C
	}
	return st
}

// ApplyViewState switches to st.Mode if needed and jumps to the view.
func (s *Session) ApplyViewState(st ViewState) error {
	if s.closed {
		return ErrSessionClosed
	}
	if st.Mode == "" {
		st.Mode = ModeMandelbrot
	}
	if st.Mode != s.Mode() {
		if err := s.SetMode(st.Mode); err != nil {
			return err
		}
	}
	s.stopTour()
	s.anim.CancelAll()
	if j, ok := s.Fractal().(*Julia); ok && st.Mode == ModeJulia {
		j.C = st.JuliaC
	}
	v := s.View()
	v.SetPan(st.Pan.X, st.Pan.Y)
	if st.Zoom > 0 {
		v.SetZoom(ClampZoom(s.Fractal(), st.Zoom))
	}
	v.SetRotation(st.Rotation)
	return nil
}

// Close releases the renderer and, unless it was injected, the backend.
// Further calls return ErrSessionClosed.
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	s.stopTour()
	s.anim.CancelAll()
	s.renderer.Destroy()
	s.releaseBackend()
	return nil
}

// tour travels through a list of presets, pausing on each.
type tour struct {
	presets []Preset
	next    int
	dwell   time.Duration
	current *Token
	arrived time.Time
	handle  *Token
}

// Tour travels through presets in order, dwelling on each for dwell, and
// loops until cancelled. Gestures, mode switches and context loss end the
// tour. An empty list tours the presets of the current mode.
func (s *Session) Tour(presets []Preset, dwell time.Duration) *Token {
	s.stopTour()
	if len(presets) == 0 {
		presets = s.Fractal().Presets()
	}
	handle := &Token{kind: KindTravel}
	if len(presets) == 0 {
		handle.finish()
		return handle
	}
	t := &tour{presets: presets, dwell: dwell, handle: handle}
	handle.onCancel = append(handle.onCancel, func() {
		if t.current != nil {
			t.current.Cancel()
		}
		if s.tour == t {
			s.tour = nil
		}
	})
	s.tour = t
	return handle
}

func (s *Session) stepTour(now time.Time) {
	t := s.tour
	if t == nil {
		return
	}
	if t.current != nil {
		switch {
		case t.current.Cancelled():
			s.stopTour()
			return
		case t.current.Running():
			return
		}
		if t.arrived.IsZero() {
			t.arrived = now
		}
		if now.Sub(t.arrived) < t.dwell {
			return
		}
	}

	p := t.presets[t.next%len(t.presets)]
	t.next++
	t.arrived = time.Time{}
	tok, err := s.travel(p)
	if err != nil {
		Logger().Warn("deepzoom: tour stopped", "preset", p.Name, "err", err)
		s.stopTour()
		return
	}
	t.current = tok
}

func (s *Session) stopTour() {
	if t := s.tour; t != nil {
		s.tour = nil
		t.handle.Cancel()
	}
}
