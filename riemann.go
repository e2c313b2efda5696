package deepzoom

import _ "embed"

//go:embed shaders/riemann.wgsl
var riemannShader string

// Riemann domain-colors the Riemann zeta function. ζ(s) is evaluated through
// the alternating Dirichlet series η(s)/(1-2^(1-s)), with the iteration
// budget as the number of series terms. Hue follows arg ζ, brightness bands
// follow log|ζ|.
type Riemann struct {
	// Contours is the number of brightness bands per e-fold of |ζ|.
	Contours float64
}

// NewRiemann returns a Riemann strategy with one band per e-fold.
func NewRiemann() *Riemann { return &Riemann{Contours: 1} }

func (r *Riemann) Mode() Mode              { return ModeRiemann }
func (r *Riemann) Name() string            { return "Riemann ζ" }
func (r *Riemann) ShaderSource() string    { return riemannShader }
func (r *Riemann) NeedsPerturbation() bool { return false }

// OnProgramReady has nothing to prepare.
func (r *Riemann) OnProgramReady(ProgramInfo) {}

func (r *Riemann) ExtraUniforms() [4]float32 {
	return [4]float32{float32(r.Contours), 0, 0, 0}
}

func (r *Riemann) Defaults() ViewDefaults {
	return ViewDefaults{Pan: Pt(0.5, 14), Zoom: 40}
}

func (r *Riemann) ZoomBounds() (maxZoom, minZoom float64) { return 1e-3, 400 }

func (r *Riemann) Params() map[string]float64 {
	return map[string]float64{"contours": r.Contours}
}

func (r *Riemann) SetParams(p map[string]float64) {
	if v, ok := p["contours"]; ok && v > 0 {
		r.Contours = v
	}
}

func (r *Riemann) Presets() []Preset {
	return []Preset{
		{Name: "critical-strip", Mode: ModeRiemann, Pan: Pt(0.5, 14), Zoom: 40, PaletteID: "classic"},
		{Name: "first-zero", Mode: ModeRiemann, Pan: Pt(0.5, 14.134725), Zoom: 2, PaletteID: "ocean"},
		{Name: "pole", Mode: ModeRiemann, Pan: Pt(1, 0), Zoom: 4, PaletteID: "fire", Params: map[string]float64{"contours": 2}},
		{Name: "zero-pair", Mode: ModeRiemann, Pan: Pt(0.5, 22.5), Zoom: 6, Rotation: 1.5707963267948966, PaletteID: "electric"},
	}
}
