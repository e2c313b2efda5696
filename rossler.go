package deepzoom

import _ "embed"

//go:embed shaders/rossler.wgsl
var rosslerShader string

// Rossler renders the x-y projection of the Rössler attractor
//
//	ẋ = -y - z,  ẏ = x + a·y,  ż = b + z·(x - c)
//
// as a glow around the integrated trajectory. The iteration budget is the
// number of integration steps.
type Rossler struct {
	A, B, C float64
	// Dt is the integration step.
	Dt float64
}

// NewRossler returns the classic a=0.2, b=0.2, c=5.7 attractor.
func NewRossler() *Rossler { return &Rossler{A: 0.2, B: 0.2, C: 5.7, Dt: 0.02} }

func (r *Rossler) Mode() Mode              { return ModeRossler }
func (r *Rossler) Name() string            { return "Rössler" }
func (r *Rossler) ShaderSource() string    { return rosslerShader }
func (r *Rossler) NeedsPerturbation() bool { return false }

// OnProgramReady has nothing to prepare.
func (r *Rossler) OnProgramReady(ProgramInfo) {}

func (r *Rossler) ExtraUniforms() [4]float32 {
	return [4]float32{float32(r.A), float32(r.B), float32(r.C), float32(r.Dt)}
}

func (r *Rossler) Defaults() ViewDefaults {
	return ViewDefaults{Pan: Pt(0.5, -1.5), Zoom: 28}
}

func (r *Rossler) ZoomBounds() (maxZoom, minZoom float64) { return 0.25, 200 }

func (r *Rossler) Params() map[string]float64 {
	return map[string]float64{"a": r.A, "b": r.B, "c": r.C, "dt": r.Dt}
}

// SetParams reads a, b, c and dt; missing keys keep their value and a
// non-positive dt is ignored.
func (r *Rossler) SetParams(p map[string]float64) {
	if v, ok := p["a"]; ok {
		r.A = v
	}
	if v, ok := p["b"]; ok {
		r.B = v
	}
	if v, ok := p["c"]; ok {
		r.C = v
	}
	if v, ok := p["dt"]; ok && v > 0 {
		r.Dt = v
	}
}

func (r *Rossler) Presets() []Preset {
	return []Preset{
		{Name: "classic", Mode: ModeRossler, Pan: Pt(0.5, -1.5), Zoom: 28, PaletteID: "fire", Params: map[string]float64{"a": 0.2, "b": 0.2, "c": 5.7}},
		{Name: "period-two", Mode: ModeRossler, Pan: Pt(0, -0.5), Zoom: 16, PaletteID: "ocean", Params: map[string]float64{"a": 0.1, "b": 0.1, "c": 4}},
		{Name: "funnel", Mode: ModeRossler, Pan: Pt(1, -2), Zoom: 36, Rotation: 0.4, PaletteID: "electric", Params: map[string]float64{"a": 0.3, "b": 0.2, "c": 5.7}},
		{Name: "fold-detail", Mode: ModeRossler, Pan: Pt(-6.5, 2), Zoom: 4, PaletteID: "moss", Params: map[string]float64{"a": 0.2, "b": 0.2, "c": 5.7}},
	}
}
