package deepzoom

import (
	"image/color"
	"math"
)

// Palette parameterizes the cosine color ramp every fractal program uses:
//
//	rgb = Theme * (0.5 + 0.5*cos(2π*(Frequency*t + Phase)))
//
// where t is the normalized escape value. Palettes are plain data and
// interpolate component-wise.
type Palette struct {
	ID        string     `json:"id,omitempty"`
	Theme     [3]float64 `json:"theme"`
	Frequency [3]float64 `json:"frequency"`
	Phase     [3]float64 `json:"phase"`
}

// Lerp interpolates every component from p (t=0) to q (t=1). At t >= 1 it
// returns q exactly.
func (p Palette) Lerp(q Palette, t float64) Palette {
	if t >= 1 {
		return q
	}
	out := Palette{ID: p.ID}
	for i := range 3 {
		out.Theme[i] = p.Theme[i] + (q.Theme[i]-p.Theme[i])*t
		out.Frequency[i] = p.Frequency[i] + (q.Frequency[i]-p.Frequency[i])*t
		out.Phase[i] = p.Phase[i] + (q.Phase[i]-p.Phase[i])*t
	}
	return out
}

// Cycle shifts every phase by delta, wrapped to [0, 1). Repeated small
// shifts rotate the colors through the bands like a palette rotation.
func (p Palette) Cycle(delta float64) Palette {
	for i := range p.Phase {
		ph := math.Mod(p.Phase[i]+delta, 1)
		if ph < 0 {
			ph++
		}
		p.Phase[i] = ph
	}
	return p
}

// Color evaluates the ramp at t. Shaders implement the same formula.
func (p Palette) Color(t float64) color.NRGBA {
	var c [3]uint8
	for i := range 3 {
		v := p.Theme[i] * (0.5 + 0.5*math.Cos(twoPi*(p.Frequency[i]*t+p.Phase[i])))
		c[i] = uint8(math.Round(clamp01(v) * 255))
	}
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 255}
}

func clamp01(x float64) float64 {
	switch {
	case x < 0 || math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

// Built-in palettes. DefaultPalette is used when a preset names none or an
// unknown one.
var (
	PaletteClassic = Palette{
		ID:        "classic",
		Theme:     [3]float64{1, 1, 1},
		Frequency: [3]float64{1, 1, 1},
		Phase:     [3]float64{0.0, 0.10, 0.20},
	}
	PaletteFire = Palette{
		ID:        "fire",
		Theme:     [3]float64{1.0, 0.7, 0.35},
		Frequency: [3]float64{1.0, 1.0, 0.5},
		Phase:     [3]float64{0.0, 0.15, 0.20},
	}
	PaletteOcean = Palette{
		ID:        "ocean",
		Theme:     [3]float64{0.35, 0.75, 1.0},
		Frequency: [3]float64{1.0, 1.0, 1.0},
		Phase:     [3]float64{0.30, 0.20, 0.20},
	}
	PaletteElectric = Palette{
		ID:        "electric",
		Theme:     [3]float64{0.9, 0.6, 1.0},
		Frequency: [3]float64{2.0, 1.0, 0.0},
		Phase:     [3]float64{0.50, 0.20, 0.25},
	}
	PaletteMoss = Palette{
		ID:        "moss",
		Theme:     [3]float64{0.6, 1.0, 0.5},
		Frequency: [3]float64{1.0, 0.7, 0.4},
		Phase:     [3]float64{0.0, 0.15, 0.20},
	}

	DefaultPalette = PaletteClassic
)

var builtinPalettes = []Palette{PaletteClassic, PaletteFire, PaletteOcean, PaletteElectric, PaletteMoss}

// PaletteByID looks up a built-in palette.
func PaletteByID(id string) (Palette, bool) {
	for _, p := range builtinPalettes {
		if p.ID == id {
			return p, true
		}
	}
	return Palette{}, false
}

// Palettes returns the built-in palettes in display order.
func Palettes() []Palette {
	return append([]Palette(nil), builtinPalettes...)
}
