package deepzoom

import _ "embed"

//go:embed shaders/julia.wgsl
var juliaShader string

// Julia renders z ← z² + c with a fixed c and z₀ at the pixel.
type Julia struct {
	C Point
}

// DefaultJuliaC is the c a new Julia view starts with.
var DefaultJuliaC = Pt(-0.8, 0.156)

// NewJulia returns a Julia strategy at DefaultJuliaC.
func NewJulia() *Julia { return &Julia{C: DefaultJuliaC} }

func (j *Julia) Mode() Mode              { return ModeJulia }
func (j *Julia) Name() string            { return "Julia" }
func (j *Julia) ShaderSource() string    { return juliaShader }
func (j *Julia) NeedsPerturbation() bool { return false }

// OnProgramReady has nothing to prepare.
func (j *Julia) OnProgramReady(ProgramInfo) {}

func (j *Julia) ExtraUniforms() [4]float32 {
	return [4]float32{float32(j.C.X), float32(j.C.Y), 0, 0}
}

func (j *Julia) Defaults() ViewDefaults {
	return ViewDefaults{Pan: Pt(0, 0), Zoom: 3.2}
}

func (j *Julia) ZoomBounds() (maxZoom, minZoom float64) { return 1e-5, 8 }

func (j *Julia) Params() map[string]float64 {
	return map[string]float64{"cx": j.C.X, "cy": j.C.Y}
}

// SetParams reads cx and cy; missing keys keep their value.
func (j *Julia) SetParams(p map[string]float64) {
	if v, ok := p["cx"]; ok {
		j.C.X = v
	}
	if v, ok := p["cy"]; ok {
		j.C.Y = v
	}
}

func (j *Julia) Presets() []Preset {
	return []Preset{
		{Name: "dendrite", Mode: ModeJulia, Zoom: 3.2, PaletteID: "classic", Params: map[string]float64{"cx": 0, "cy": 1}},
		{Name: "douady-rabbit", Mode: ModeJulia, Zoom: 3.0, PaletteID: "fire", Params: map[string]float64{"cx": -0.123, "cy": 0.745}},
		{Name: "san-marco", Mode: ModeJulia, Zoom: 3.6, PaletteID: "ocean", Params: map[string]float64{"cx": -0.75, "cy": 0}},
		{Name: "siegel-disk", Mode: ModeJulia, Zoom: 2.8, Rotation: 0.5, PaletteID: "moss", Params: map[string]float64{"cx": -0.391, "cy": -0.587}},
		{Name: "dragon-spiral", Mode: ModeJulia, Pan: Pt(0.12, 0.05), Zoom: 0.4, PaletteID: "electric", Params: map[string]float64{"cx": -0.8, "cy": 0.156}},
	}
}
