package deepzoom

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestUniformsLayout(t *testing.T) {
	var u Uniforms
	u.SetPan(DDFrom(-0.75).Add(1e-12), DDFrom(0.1))
	u.SetZoom(1e-9)
	u.Rotation = 1.5
	u.Iterations = 700
	u.Params = [4]float32{1, 2, 3, 4}

	b := u.Bytes()
	if len(b) != UniformBlockSize {
		t.Fatalf("len(Bytes()) = %d, want %d", len(b), UniformBlockSize)
	}

	at := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b[off:])) }
	checks := []struct {
		name string
		off  int
		want float32
	}{
		{"u_pan_h.x", 0, u.PanH[0]},
		{"u_pan_l.x", 8, u.PanL[0]},
		{"u_zoom_h", 40, u.ZoomH},
		{"u_zoom_l", 44, u.ZoomL},
		{"u_rotation", 48, 1.5},
		{"u_iterations", 52, 700},
		{"u_params.w", 124, 4},
		{"u_pan_delta_h.x", 128, u.PanDeltaH[0]},
	}
	for _, c := range checks {
		if got := at(c.off); got != c.want {
			t.Errorf("%s at offset %d = %v, want %v", c.name, c.off, got, c.want)
		}
	}
}

func TestUniformsNamedCoversShaderSurface(t *testing.T) {
	var u Uniforms
	named := u.Named()
	for _, name := range []string{
		"u_pan_h", "u_pan_l", "u_ref_pan_h", "u_ref_pan_l", "u_zoom_h", "u_zoom_l",
		"u_rotation", "u_iterations", "u_resolution", "u_color_palette", "u_frequency", "u_phase",
		"u_pan_delta_h", "u_pan_delta_l",
	} {
		if _, ok := named[name]; !ok {
			t.Errorf("Named() is missing %q", name)
		}
	}
	if len(named["u_pan_h"]) != 2 || len(named["u_color_palette"]) != 4 {
		t.Errorf("unexpected member sizes: %v", named)
	}
}

func TestUniformsHiLoRecombine(t *testing.T) {
	var u Uniforms
	x := DDFrom(-1.7497219297423385).Add(3e-19)
	u.SetPan(x, DDFrom(0))
	u.SetRefPan(DDFrom(-1.7497219297423385), DDFrom(0))
	u.SetZoom(4e-22)

	if got := u.Zoom(); math.Abs(got-4e-22) > 4e-22*1e-12 {
		t.Errorf("Zoom() = %g, want 4e-22", got)
	}
	if d := u.Pan().X - u.RefPan().X; math.Abs(d) > 1e-15 {
		t.Errorf("pan and refPan pairs differ by %g", d)
	}
}

func TestUniformsPanDeltaAtDeepZoom(t *testing.T) {
	tests := []struct {
		name string
		zoom float64
	}{
		{"shallow", 2e-11},
		{"float64 edge", 1e-13},
		{"deep", 1e-20},
		{"double-double floor", 4e-22},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView(800, 600, ViewDefaults{Pan: Pt(-1.7497219297423385, 1e-7), Zoom: tt.zoom})
			rx, ry := v.PanDD()
			// Drag 0.4 view heights in small steps.
			for range 1000 {
				v.AddPan(0.0004*tt.zoom, 0)
			}
			px, py := v.PanDD()

			var u Uniforms
			u.SetPan(px, py)
			u.SetRefPan(rx, ry)
			u.SetPanDelta(px, py, rx, ry)

			want := px.Sub(rx).Value()
			got := u.PanDelta()
			if math.Abs(got.X-want) > math.Abs(want)*1e-12 {
				t.Errorf("PanDelta().X = %g, want %g", got.X, want)
			}
			if got.Y != 0 {
				t.Errorf("PanDelta().Y = %g, want 0", got.Y)
			}
			if views := got.X / tt.zoom; math.Abs(views-0.4) > 1e-6 {
				t.Errorf("delta = %v view heights, want 0.4", views)
			}
		})
	}
}

func TestUniformsPaletteRoundTrip(t *testing.T) {
	var u Uniforms
	u.SetPalette(PaletteOcean)
	got := u.Palette()
	for i := range 3 {
		if math.Abs(got.Theme[i]-PaletteOcean.Theme[i]) > 1e-7 {
			t.Errorf("Theme[%d] = %v, want %v", i, got.Theme[i], PaletteOcean.Theme[i])
		}
	}
}
