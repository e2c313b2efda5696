package deepzoom

import _ "embed"

//go:embed shaders/mandelbrot.wgsl
var mandelbrotShader string

// Mandelbrot renders z ← z² + c by perturbation around a reference orbit.
// The orbit manager is created on the first program build and survives
// rebuilds after context loss.
type Mandelbrot struct {
	orbit *ReferenceOrbit
}

// NewMandelbrot returns the Mandelbrot strategy.
func NewMandelbrot() *Mandelbrot { return &Mandelbrot{} }

func (m *Mandelbrot) Mode() Mode              { return ModeMandelbrot }
func (m *Mandelbrot) Name() string            { return "Mandelbrot" }
func (m *Mandelbrot) ShaderSource() string    { return mandelbrotShader }
func (m *Mandelbrot) NeedsPerturbation() bool { return true }

// OnProgramReady creates the orbit manager on first use, or when the
// texture width changed, and marks the orbit dirty so the freshly bound
// texture gets filled before drawing.
func (m *Mandelbrot) OnProgramReady(info ProgramInfo) {
	if m.orbit == nil || m.orbit.Width() != info.OrbitWidth {
		m.orbit = NewReferenceOrbit(info.Config)
	}
	m.orbit.MarkDirty()
}

// ReferenceOrbit returns the orbit manager, nil before the first build.
func (m *Mandelbrot) ReferenceOrbit() *ReferenceOrbit { return m.orbit }

func (m *Mandelbrot) ExtraUniforms() [4]float32 { return [4]float32{} }

func (m *Mandelbrot) Defaults() ViewDefaults {
	return ViewDefaults{Pan: Pt(-0.5, 0), Zoom: 3.0}
}

// ZoomBounds stops where double-double pan plus double-float deltas run out
// of digits.
func (m *Mandelbrot) ZoomBounds() (maxZoom, minZoom float64) {
	return 1e-28, 8
}

func (m *Mandelbrot) Presets() []Preset {
	return append([]Preset(nil), mandelbrotPresets...)
}

// region converts an axis-aligned window to a preset centered on it with
// the window height as zoom.
func region(name string, xmin, xmax, ymin, ymax float64, palette string) Preset {
	return Preset{
		Name:      name,
		Mode:      ModeMandelbrot,
		Pan:       Pt((xmin+xmax)/2, (ymin+ymax)/2),
		Zoom:      ymax - ymin,
		PaletteID: palette,
	}
}

var mandelbrotPresets = []Preset{
	{Name: "home", Mode: ModeMandelbrot, Pan: Pt(-0.5, 0), Zoom: 3.0, PaletteID: "classic"},
	region("seahorse-valley", -0.8, -0.7, 0.05, 0.15, "ocean"),
	region("elephant-valley", -1.85, -1.75, -0.10, -0.02, "fire"),
	region("spiral-minibrot", -0.7435, -0.7420, 0.1310, 0.1325, "electric"),
	region("triple-spiral", -0.7480, -0.7450, 0.0950, 0.0980, "moss"),
	region("valley-of-the-dragon", -0.7400, -0.7350, 0.1800, 0.1850, "fire"),
	region("minibrot-in-mini-spiral", -1.7390, -1.7375, -0.0235, -0.0220, "ocean"),
	{
		Name: "deep-seahorse", Mode: ModeMandelbrot,
		Pan: Pt(-0.743643887037151, 0.131825904205330), Zoom: 1e-10,
		Rotation: 0.6, PaletteID: "electric",
	},
	{
		Name: "needle-minibrot", Mode: ModeMandelbrot,
		Pan: Pt(-1.985540371654130, 0), Zoom: 2e-11,
		PaletteID: "classic",
	},
	{
		Name: "double-double-floor", Mode: ModeMandelbrot,
		Pan: Pt(-1.7497219297423385, -0.0000290166477536), Zoom: 4e-22,
		Rotation: 1.2, PaletteID: "moss",
	},
}
