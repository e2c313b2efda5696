package deepzoom

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Mode names a fractal family.
type Mode string

// Built-in modes.
const (
	ModeMandelbrot Mode = "mandelbrot"
	ModeJulia      Mode = "julia"
	ModeRossler    Mode = "rossler"
	ModeRiemann    Mode = "riemann"
)

// ProgramInfo describes a program a backend has just built for a fractal.
type ProgramInfo struct {
	// Backend is the name of the backend that compiled the program.
	Backend string
	// OrbitWidth is the width of the bound reference-orbit texture, or 0
	// for programs without one.
	OrbitWidth int
	// Config is the renderer configuration in effect.
	Config Config
}

// FractalView is the per-fractal strategy plugged into the shared render
// loop and animation driver.
//
// Implementations are small: they supply a program, say whether the render
// loop must maintain a reference orbit for them, and contribute their own
// shape parameters to the uniform block.
type FractalView interface {
	Mode() Mode
	Name() string

	// ShaderSource returns the WGSL program text.
	ShaderSource() string

	// OnProgramReady is called after every successful program build,
	// including rebuilds after context loss.
	OnProgramReady(info ProgramInfo)

	// NeedsPerturbation reports whether the render loop must maintain a
	// reference orbit. Such views also implement Perturbed.
	NeedsPerturbation() bool

	// ExtraUniforms returns the fractal's shape parameters, uploaded as
	// u_params.
	ExtraUniforms() [4]float32

	// Defaults returns the initial camera.
	Defaults() ViewDefaults

	// ZoomBounds returns the accepted zoom range. maxZoom is the deepest
	// (numerically smallest) zoom, minZoom the widest.
	ZoomBounds() (maxZoom, minZoom float64)

	// Presets returns the fractal's built-in travel targets.
	Presets() []Preset
}

// Perturbed is implemented by views rendered by perturbation.
type Perturbed interface {
	ReferenceOrbit() *ReferenceOrbit
}

// Parametric is implemented by views with named shape parameters that
// presets may set (Julia c, Rössler coefficients).
type Parametric interface {
	Params() map[string]float64
	SetParams(map[string]float64)
}

// ClampZoom limits z to the view's zoom bounds. NaN maps to the view's
// default zoom.
func ClampZoom(f FractalView, z float64) float64 {
	lo, hi := f.ZoomBounds()
	switch {
	case math.IsNaN(z):
		return min(max(f.Defaults().Zoom, lo), hi)
	case z < lo:
		return lo
	case z > hi:
		return hi
	default:
		return z
	}
}

var (
	fractalMu sync.RWMutex
	fractals  = map[Mode]func() FractalView{}
)

// RegisterFractal makes a fractal available to NewFractal and sessions.
// Registering an existing mode replaces it.
func RegisterFractal(mode Mode, factory func() FractalView) {
	fractalMu.Lock()
	defer fractalMu.Unlock()
	fractals[mode] = factory
}

// NewFractal returns a fresh view strategy for mode.
func NewFractal(mode Mode) (FractalView, error) {
	fractalMu.RLock()
	factory, ok := fractals[mode]
	fractalMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFractal, mode)
	}
	return factory(), nil
}

// Modes returns the registered modes in sorted order.
func Modes() []Mode {
	fractalMu.RLock()
	defer fractalMu.RUnlock()
	out := make([]Mode, 0, len(fractals))
	for m := range fractals {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func init() {
	RegisterFractal(ModeMandelbrot, func() FractalView { return NewMandelbrot() })
	RegisterFractal(ModeJulia, func() FractalView { return NewJulia() })
	RegisterFractal(ModeRossler, func() FractalView { return NewRossler() })
	RegisterFractal(ModeRiemann, func() FractalView { return NewRiemann() })
}
