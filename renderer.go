package deepzoom

import (
	"errors"
	"fmt"
	"image"
	"time"
)

type programState int

const (
	programReady programState = iota
	programInvalid
	programLost
)

// FrameStats summarizes the most recent frame.
type FrameStats struct {
	Frames     uint64
	Iterations int
	Extra      int // quality controller adjustment
	Preview    int // block size, 1 for full resolution

	Rebased   bool // reference orbit rebuilt this frame
	Rebases   int
	RefEscape int

	GPUTime   time.Duration // latest accepted timer sample
	Discarded int           // disjoint timer samples dropped
}

// Renderer drives one fractal program on a backend: it maintains the
// reference orbit, marshals uniforms and adapts the iteration budget to
// the measured GPU time.
//
// A Renderer is not safe for concurrent use.
type Renderer struct {
	cfg     Config
	backend Backend
	fractal FractalView
	view    *View
	palette Palette

	program Program
	state   programState
	err     error

	orbit         *ReferenceOrbit
	orbitUploaded bool

	quality     *QualityController
	sched       *RebaseScheduler
	timer       TimerQuery
	progressive bool

	stats FrameStats
}

// NewRenderer builds f's program on b. A program that fails to compile or
// link does not fail construction: the error is logged and the renderer
// stays in a non-rendering state where Frame returns ErrProgramInvalid.
func NewRenderer(b Backend, f FractalView, cfg Config) (*Renderer, error) {
	if b == nil {
		return nil, ErrNoBackend
	}
	if f == nil {
		return nil, fmt.Errorf("%w: nil fractal view", ErrUnknownFractal)
	}
	cfg = cfg.sanitized()
	r := &Renderer{
		cfg:     cfg,
		backend: b,
		fractal: f,
		view:    NewView(cfg.Width, cfg.Height, f.Defaults()),
		palette: DefaultPalette,
		quality: NewQualityController(cfg.Quality),
		sched:   NewRebaseScheduler(cfg.SettleDelay),
	}
	if t, ok := b.(TimerQuery); ok {
		r.timer = t
	}
	if p, ok := b.(Progressive); ok {
		r.progressive = p.Progressive()
	}
	r.buildProgram()
	return r, nil
}

func (r *Renderer) buildProgram() {
	desc := ProgramDesc{
		Mode:   r.fractal.Mode(),
		Label:  r.fractal.Name(),
		Source: r.fractal.ShaderSource(),
	}
	if r.fractal.NeedsPerturbation() {
		desc.OrbitWidth = r.cfg.MaxIter
	}

	p, err := r.backend.BuildProgram(desc)
	if err != nil {
		if !errors.Is(err, ErrProgramInvalid) {
			err = fmt.Errorf("%w: %w", ErrProgramInvalid, err)
		}
		r.program = nil
		r.state = programInvalid
		r.err = err
		Logger().Error("deepzoom: program build failed",
			"fractal", r.fractal.Name(), "backend", r.backend.Name(), "err", err)
		return
	}

	r.program = p
	r.state = programReady
	r.err = nil
	r.fractal.OnProgramReady(ProgramInfo{
		Backend:    r.backend.Name(),
		OrbitWidth: desc.OrbitWidth,
		Config:     r.cfg,
	})
	r.orbit = nil
	if pv, ok := r.fractal.(Perturbed); ok && r.fractal.NeedsPerturbation() {
		r.orbit = pv.ReferenceOrbit()
	}
	r.orbitUploaded = false
	Logger().Info("deepzoom: program ready", "fractal", r.fractal.Name(), "backend", r.backend.Name())
}

// View returns the camera. Mutations take effect on the next Frame.
func (r *Renderer) View() *View { return r.view }

// Fractal returns the fractal strategy being rendered.
func (r *Renderer) Fractal() FractalView { return r.fractal }

// Backend returns the backend the program runs on.
func (r *Renderer) Backend() Backend { return r.backend }

// Config returns the sanitized configuration.
func (r *Renderer) Config() Config { return r.cfg }

// Palette returns the active palette.
func (r *Renderer) Palette() Palette { return r.palette }

// SetPalette replaces the active palette.
func (r *Renderer) SetPalette(p Palette) { r.palette = p }

// Stats returns statistics for the most recent frame.
func (r *Renderer) Stats() FrameStats { return r.stats }

// Err returns the program error that put the renderer in its
// non-rendering state, or nil.
func (r *Renderer) Err() error { return r.err }

// Orbit returns the reference orbit manager, or nil for views rendered
// without perturbation.
func (r *Renderer) Orbit() *ReferenceOrbit { return r.orbit }

// Touch records gesture input. Until the settle delay passes without
// another Touch, orbit rebuilds are limited to forced rebases, the quality
// controller ignores timer samples and progressive backends draw previews.
func (r *Renderer) Touch(now time.Time) { r.sched.Touch(now) }

// Interacting reports whether a gesture is in flight.
func (r *Renderer) Interacting() bool { return r.sched.Interacting() }

// Resize changes the viewport and render target size.
func (r *Renderer) Resize(width, height int) error {
	r.view.Resize(width, height)
	r.cfg.Width, r.cfg.Height = r.view.Size()
	return r.backend.Resize(r.cfg.Width, r.cfg.Height)
}

// ReadPixels copies the last frame into dst.
func (r *Renderer) ReadPixels(dst *image.RGBA) error {
	return r.backend.ReadPixels(dst)
}

// Frame renders one frame at time now.
func (r *Renderer) Frame(now time.Time) error {
	switch r.state {
	case programInvalid:
		return r.err
	case programLost:
		if err := r.recover(); err != nil {
			return err
		}
	}

	settled := r.sched.Update(now)
	r.pollTimer()

	iters := IterationBudget(r.cfg, r.view.Zoom(), r.fractal.Defaults().Zoom, r.quality.Extra())
	r.stats.Rebased = false
	if r.orbit != nil {
		if err := r.updateOrbit(iters, settled); err != nil {
			return r.fail(err)
		}
	}

	u := r.uniforms(iters)
	if r.timer != nil {
		r.timer.BeginTimer()
	}
	err := r.program.Draw(&u)
	if r.timer != nil {
		r.timer.EndTimer()
	}
	if err != nil {
		return r.fail(err)
	}

	r.stats.Frames++
	r.stats.Iterations = iters
	r.stats.Extra = r.quality.Extra()
	r.stats.Preview = int(u.Preview)
	return nil
}

// updateOrbit rebuilds and uploads the reference orbit when the scheduler
// allows it.
func (r *Renderer) updateOrbit(iters int, settled bool) error {
	o := r.orbit
	o.observe(r.view)
	short := iters > o.Length()
	if short {
		o.MarkDirty()
	}
	if !r.sched.ShouldRebuild(settled, o.Dirty(), short || o.NeedsRebase(r.view)) {
		if r.orbitUploaded {
			return nil
		}
		// A fresh program has an empty texture; fill it with what we have.
		if !o.Built() {
			o.PickReferenceNearViewCenter(r.view, iters)
			o.ComputeReferenceOrbit(iters)
		}
		return r.uploadOrbit()
	}

	changed := o.PickReferenceNearViewCenter(r.view, iters)
	if changed || settled || short || !o.Built() {
		o.ComputeReferenceOrbit(iters)
		r.stats.Rebased = true
		r.stats.Rebases++
		r.stats.RefEscape = o.EscapeIndex()
		Logger().Debug("deepzoom: orbit rebuilt",
			"iters", iters, "escape", o.EscapeIndex(), "settled", settled, "changed", changed)
		return r.uploadOrbit()
	}
	o.dirty = false
	if !r.orbitUploaded {
		return r.uploadOrbit()
	}
	return nil
}

func (r *Renderer) uploadOrbit() error {
	if err := r.program.UploadOrbit(r.orbit.Data()); err != nil {
		return err
	}
	r.orbitUploaded = true
	return nil
}

// uniforms assembles the block for one draw.
func (r *Renderer) uniforms(iters int) Uniforms {
	var u Uniforms
	px, py := r.view.PanDD()
	u.SetPan(px, py)
	rx, ry := px, py
	if r.orbit != nil && r.orbit.HasReference() {
		rx, ry = r.orbit.RefPan()
		u.RefEscape = float32(r.orbit.EscapeIndex())
	}
	u.SetRefPan(rx, ry)
	u.SetPanDelta(px, py, rx, ry)
	u.SetZoom(r.view.Zoom())
	w, h := r.view.Size()
	u.Resolution = [2]float32{float32(w), float32(h)}
	u.Rotation = float32(r.view.Rotation())
	u.Iterations = float32(iters)
	u.SetPalette(r.palette)
	u.Params = r.fractal.ExtraUniforms()

	u.Preview = 1
	if r.progressive && r.sched.Interacting() {
		u.Preview = float32(r.cfg.InteractiveBlock)
	}
	return u
}

// pollTimer drains completed timer samples. Results lag the draw they
// measure by one or more frames; disjoint samples are dropped, and samples
// taken during a gesture never move the quality controller.
func (r *Renderer) pollTimer() {
	if r.timer == nil {
		return
	}
	for {
		s, ok := r.timer.PollTimer()
		if !ok {
			return
		}
		if s.Disjoint {
			r.stats.Discarded++
			Logger().Warn("deepzoom: discarded disjoint timer sample")
			continue
		}
		r.stats.GPUTime = s.Elapsed
		if !r.sched.Interacting() {
			r.quality.Observe(s.Elapsed)
		}
	}
}

// fail classifies a draw or upload error; a lost context is recovered on
// the next Frame.
func (r *Renderer) fail(err error) error {
	if errors.Is(err, ErrContextLost) {
		r.state = programLost
		r.orbitUploaded = false
		Logger().Warn("deepzoom: rendering context lost", "backend", r.backend.Name(), "err", err)
	}
	return err
}

// recover re-creates backend resources and rebuilds the program.
func (r *Renderer) recover() error {
	if r.program != nil {
		r.program.Destroy()
		r.program = nil
	}
	if err := r.backend.Recover(); err != nil {
		return fmt.Errorf("deepzoom: recover %s backend: %w", r.backend.Name(), err)
	}
	r.buildProgram()
	if r.state != programReady {
		return r.err
	}
	r.quality.Reset()
	Logger().Info("deepzoom: rendering context restored", "backend", r.backend.Name())
	return nil
}

// Destroy releases the program. The backend stays open.
func (r *Renderer) Destroy() {
	if r.program != nil {
		r.program.Destroy()
		r.program = nil
	}
	r.state = programInvalid
	r.err = ErrSessionClosed
}
