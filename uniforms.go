package deepzoom

import (
	"encoding/binary"
	"math"
	"reflect"
)

// UniformBlockSize is the byte size of the packed Uniforms block.
const UniformBlockSize = 144

// Uniforms is the per-frame parameter block shared by every fractal
// program. Field order and the uniform tags match the WGSL Uniforms struct
// member for member; the layout needs no implicit padding:
//
//	offset  0  u_pan_h, u_pan_l, u_ref_pan_h, u_ref_pan_l, u_resolution (vec2 each)
//	offset 40  u_zoom_h, u_zoom_l, u_rotation, u_iterations, u_ref_escape, u_preview
//	offset 64  u_color_palette, u_frequency, u_phase, u_params (vec4 each)
//	offset 128 u_pan_delta_h, u_pan_delta_l (vec2 each)
//
// High-precision values travel as hi/lo float32 pairs (the _h and _l
// members) that the shader recombines in double-float arithmetic.
// u_pan_delta carries pan - refPan formed in double-double on the host; a
// difference of the two absolute pairs would cancel away everything below
// about 1e-14 of the pan magnitude.
type Uniforms struct {
	PanH       [2]float32 `uniform:"u_pan_h"`
	PanL       [2]float32 `uniform:"u_pan_l"`
	RefPanH    [2]float32 `uniform:"u_ref_pan_h"`
	RefPanL    [2]float32 `uniform:"u_ref_pan_l"`
	Resolution [2]float32 `uniform:"u_resolution"`
	ZoomH      float32    `uniform:"u_zoom_h"`
	ZoomL      float32    `uniform:"u_zoom_l"`
	Rotation   float32    `uniform:"u_rotation"`
	Iterations float32    `uniform:"u_iterations"`
	RefEscape  float32    `uniform:"u_ref_escape"`
	Preview    float32    `uniform:"u_preview"`

	ColorPalette [4]float32 `uniform:"u_color_palette"`
	Frequency    [4]float32 `uniform:"u_frequency"`
	Phase        [4]float32 `uniform:"u_phase"`
	Params       [4]float32 `uniform:"u_params"`

	PanDeltaH [2]float32 `uniform:"u_pan_delta_h"`
	PanDeltaL [2]float32 `uniform:"u_pan_delta_l"`
}

// SetPan splits a double-double pan into the u_pan pair.
func (u *Uniforms) SetPan(x, y DD) {
	u.PanH[0], u.PanL[0] = x.Split()
	u.PanH[1], u.PanL[1] = y.Split()
}

// SetRefPan splits the reference point into the u_ref_pan pair.
func (u *Uniforms) SetRefPan(x, y DD) {
	u.RefPanH[0], u.RefPanL[0] = x.Split()
	u.RefPanH[1], u.RefPanL[1] = y.Split()
}

// SetPanDelta forms pan - ref in double-double and splits the result into
// the u_pan_delta pair.
func (u *Uniforms) SetPanDelta(px, py, rx, ry DD) {
	u.PanDeltaH[0], u.PanDeltaL[0] = px.Sub(rx).Split()
	u.PanDeltaH[1], u.PanDeltaL[1] = py.Sub(ry).Split()
}

// SetZoom splits zoom into u_zoom_h and u_zoom_l.
func (u *Uniforms) SetZoom(z float64) {
	u.ZoomH, u.ZoomL = Split(z)
}

// SetPalette copies a palette into the color members.
func (u *Uniforms) SetPalette(p Palette) {
	for i := range 3 {
		u.ColorPalette[i] = float32(p.Theme[i])
		u.Frequency[i] = float32(p.Frequency[i])
		u.Phase[i] = float32(p.Phase[i])
	}
}

// Pan returns the recombined u_pan pair.
func (u *Uniforms) Pan() Point {
	return Point{X: Join(u.PanH[0], u.PanL[0]), Y: Join(u.PanH[1], u.PanL[1])}
}

// RefPan returns the recombined u_ref_pan pair.
func (u *Uniforms) RefPan() Point {
	return Point{X: Join(u.RefPanH[0], u.RefPanL[0]), Y: Join(u.RefPanH[1], u.RefPanL[1])}
}

// PanDelta returns the recombined u_pan_delta pair.
func (u *Uniforms) PanDelta() Point {
	return Point{X: Join(u.PanDeltaH[0], u.PanDeltaL[0]), Y: Join(u.PanDeltaH[1], u.PanDeltaL[1])}
}

// Zoom returns the recombined u_zoom pair.
func (u *Uniforms) Zoom() float64 { return Join(u.ZoomH, u.ZoomL) }

// Palette rebuilds the palette from the color members.
func (u *Uniforms) Palette() Palette {
	var p Palette
	for i := range 3 {
		p.Theme[i] = float64(u.ColorPalette[i])
		p.Frequency[i] = float64(u.Frequency[i])
		p.Phase[i] = float64(u.Phase[i])
	}
	return p
}

// Bytes packs the block little-endian in declaration order, ready for a
// uniform buffer write.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, 0, UniformBlockSize)
	rv := reflect.ValueOf(u).Elem()
	for i := range rv.NumField() {
		buf = appendFloats(buf, rv.Field(i))
	}
	return buf
}

func appendFloats(buf []byte, v reflect.Value) []byte {
	if v.Kind() == reflect.Array {
		for i := range v.Len() {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v.Index(i).Float())))
		}
		return buf
	}
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v.Float())))
}

// Named returns the members keyed by uniform name, each as a float slice.
func (u *Uniforms) Named() map[string][]float32 {
	rv := reflect.ValueOf(u).Elem()
	rt := rv.Type()
	out := make(map[string][]float32, rt.NumField())
	for i := range rt.NumField() {
		name := rt.Field(i).Tag.Get("uniform")
		f := rv.Field(i)
		if f.Kind() == reflect.Array {
			vals := make([]float32, f.Len())
			for j := range vals {
				vals[j] = float32(f.Index(j).Float())
			}
			out[name] = vals
			continue
		}
		out[name] = []float32{float32(f.Float())}
	}
	return out
}
