package deepzoom

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func testOrbitConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxIter = 512
	return cfg
}

func orbitBytes(t *testing.T, data []float32) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
	return buf.Bytes()
}

func TestComputeReferenceOrbitIdempotent(t *testing.T) {
	o := NewReferenceOrbit(testOrbitConfig())
	o.SetReference(DDFrom(-0.743643887037151), DDFrom(0.131825904205330))

	o.ComputeReferenceOrbit(400)
	first := orbitBytes(t, o.Data())
	o.ComputeReferenceOrbit(400)
	second := orbitBytes(t, o.Data())

	if !bytes.Equal(first, second) {
		t.Error("two builds with an unchanged reference differ")
	}
	if o.Dirty() {
		t.Error("orbit still dirty after ComputeReferenceOrbit")
	}
}

func TestComputeReferenceOrbitUsesFullReference(t *testing.T) {
	o := NewReferenceOrbit(testOrbitConfig())
	x := DDFrom(-1.75).Add(1e-20)
	y := DDFrom(0)
	o.SetReference(x, y)
	o.ComputeReferenceOrbit(64)

	if bx, by := o.BuiltFor(); bx != x || by != y {
		t.Errorf("BuiltFor() = (%v, %v), want (%v, %v)", bx, by, x, y)
	}
	rx, ry := o.RefPan()
	if rx != x || ry != y {
		t.Errorf("RefPan() = (%v, %v), want (%v, %v)", rx, ry, x, y)
	}
	if !o.Built() {
		t.Error("Built() = false right after ComputeReferenceOrbit")
	}
	// Z1 = c, so the low word of c reaches the texture.
	if got := o.Data()[4+1]; got != float32(1e-20) {
		t.Errorf("Z1 real low word = %g, want 1e-20", got)
	}

	o.SetReference(x.Add(1e-25), y)
	if o.Built() {
		t.Error("Built() = true after the reference moved below float64 resolution")
	}
}

func TestComputeReferenceOrbitEscapeFill(t *testing.T) {
	o := NewReferenceOrbit(testOrbitConfig())
	// c = 0.5 escapes within a handful of iterations.
	o.SetReference(DDFrom(0.5), DDFrom(0))
	o.ComputeReferenceOrbit(o.Width())

	k := o.EscapeIndex()
	if k <= 0 || k >= o.Width() {
		t.Fatalf("EscapeIndex() = %d, want in (0, %d)", k, o.Width())
	}
	data := o.Data()
	esc := data[k*4 : k*4+4]
	x := Join(esc[0], esc[1])
	y := Join(esc[2], esc[3])
	if x*x+y*y <= 4 {
		t.Errorf("entry %d = (%v, %v) is not escaped", k, x, y)
	}
	for i := k; i < o.Width(); i++ {
		for c := range 4 {
			if data[i*4+c] != esc[c] {
				t.Fatalf("entry %d component %d = %v, want %v", i, c, data[i*4+c], esc[c])
			}
		}
	}
	// Entries before the escape follow the recurrence.
	prev := Pt(Join(data[(k-1)*4], data[(k-1)*4+1]), Join(data[(k-1)*4+2], data[(k-1)*4+3]))
	want := Pt(prev.X*prev.X-prev.Y*prev.Y+0.5, 2*prev.X*prev.Y)
	if want.Distance(Pt(x, y)) > 1e-9*math.Max(1, want.Length()) {
		t.Errorf("escape entry %v does not follow %v", Pt(x, y), prev)
	}
}

func TestComputeReferenceOrbitBoundedPadsTail(t *testing.T) {
	o := NewReferenceOrbit(testOrbitConfig())
	o.SetReference(DDFrom(-0.1), DDFrom(0))
	o.ComputeReferenceOrbit(100)

	if o.Length() != 100 || o.EscapeIndex() != 100 {
		t.Fatalf("Length()=%d EscapeIndex()=%d, want 100, 100", o.Length(), o.EscapeIndex())
	}
	data := o.Data()
	last := data[99*4 : 100*4]
	for i := 100; i < o.Width(); i++ {
		for c := range 4 {
			if data[i*4+c] != last[c] {
				t.Fatalf("tail entry %d differs from last computed entry", i)
			}
		}
	}
	for _, f := range data {
		if math.IsNaN(float64(f)) {
			t.Fatal("orbit buffer contains NaN")
		}
	}
}

func TestNeedsRebaseThreshold(t *testing.T) {
	tests := []struct {
		name   string
		offset float64 // in units of zoom
		want   bool
	}{
		{"at reference", 0, false},
		{"half zoom", 0.5, false},
		{"just inside", 0.74, false},
		{"past factor", 0.9, true},
		{"far", 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const zoom = 1e-9
			v := NewView(800, 600, ViewDefaults{Pan: Pt(-0.75, 0.1), Zoom: zoom})
			o := NewReferenceOrbit(DefaultConfig())
			px, py := v.PanDD()
			o.SetReference(px, py)

			// Split the offset across both axes.
			d := tt.offset * zoom / math.Sqrt2
			v.AddPan(d, d)

			if got := o.NeedsRebase(v); got != tt.want {
				t.Errorf("NeedsRebase() with drift %g·zoom = %v, want %v", tt.offset, got, tt.want)
			}
		})
	}
}

func TestNeedsRebaseWithoutReference(t *testing.T) {
	v := NewView(8, 8, NewMandelbrot().Defaults())
	if !NewReferenceOrbit(DefaultConfig()).NeedsRebase(v) {
		t.Error("NeedsRebase() = false before any reference was picked")
	}
}

func TestPickReferenceStaysInsideSearchRadius(t *testing.T) {
	for _, grid := range []int{1, 5, 6, 7} {
		cfg := DefaultConfig()
		cfg.SearchGrid = grid
		v := NewView(800, 600, ViewDefaults{Pan: Pt(-0.75, 0.1), Zoom: 1e-10})
		o := NewReferenceOrbit(cfg)

		if !o.PickReferenceNearViewCenter(v, 1000) {
			t.Fatalf("grid %d: first pick reported no change", grid)
		}
		rx, ry := o.RefPan()
		px, py := v.PanDD()
		d := math.Hypot(rx.Sub(px).Value(), ry.Sub(py).Value())
		if limit := cfg.SearchRadius * v.Zoom(); d > limit*(1+1e-9) {
			t.Errorf("grid %d: reference %g from center, limit %g", grid, d, limit)
		}
	}
}

func TestPickReferenceHysteresis(t *testing.T) {
	cfg := testOrbitConfig()

	t.Run("keeps equal reference", func(t *testing.T) {
		// Every candidate lies inside the main cardioid and scores maxIter.
		v := NewView(800, 600, ViewDefaults{Pan: Pt(-0.1, 0), Zoom: 1e-3})
		o := NewReferenceOrbit(cfg)
		o.SetReference(DDFrom(-0.1001), DDFrom(0.0001))
		if o.PickReferenceNearViewCenter(v, 300) {
			t.Error("reference replaced without a material improvement")
		}
		if x, _ := o.RefPan(); x.Value() != -0.1001 {
			t.Errorf("reference moved to %v", x.Value())
		}
	})

	t.Run("switches on large gain", func(t *testing.T) {
		// c = 0.3 escapes quickly; candidates left of 0.25 never do.
		v := NewView(800, 600, ViewDefaults{Pan: Pt(0.26, 0), Zoom: 0.1})
		o := NewReferenceOrbit(cfg)
		o.SetReference(DDFrom(0.3), DDFrom(0))
		if !o.PickReferenceNearViewCenter(v, 300) {
			t.Fatal("reference kept despite a large improvement")
		}
		x, y := o.RefPan()
		if EscapeIters(x.Value(), y.Value(), 300) <= EscapeIters(0.3, 0, 300) {
			t.Errorf("new reference (%v, %v) is not better", x.Value(), y.Value())
		}
	})

	t.Run("replaces reference outside search disc", func(t *testing.T) {
		v := NewView(800, 600, ViewDefaults{Pan: Pt(-0.1, 0), Zoom: 1e-3})
		o := NewReferenceOrbit(cfg)
		o.SetReference(DDFrom(-0.2), DDFrom(0))
		if !o.PickReferenceNearViewCenter(v, 300) {
			t.Error("far reference was kept")
		}
	})
}

func TestMateriallyBetter(t *testing.T) {
	o := NewReferenceOrbit(DefaultConfig())
	tests := []struct {
		cand, cur int
		want      bool
	}{
		{100, 100, false},
		{90, 100, false},
		{105, 100, false},
		{110, 100, true},
		{1049, 1000, false},
		{1050, 1000, true},
		{1, 0, true},
	}
	for _, tt := range tests {
		if got := o.materiallyBetter(tt.cand, tt.cur); got != tt.want {
			t.Errorf("materiallyBetter(%d, %d) = %v, want %v", tt.cand, tt.cur, got, tt.want)
		}
	}
}

func TestIterationBudget(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		zoom  float64
		extra int
		want  int
	}{
		{"default zoom", 3, 0, cfg.BaseIter},
		{"zoomed out", 8, 0, cfg.BaseIter},
		{"three decades", 3e-3, 0, cfg.BaseIter + 300},
		{"extra", 3e-3, 64, cfg.BaseIter + 364},
		{"floor", 3, -10000, cfg.MinIter},
		{"ceiling", 3e-40, 0, cfg.MaxIter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IterationBudget(cfg, tt.zoom, 3, tt.extra); got != tt.want {
				t.Errorf("IterationBudget(%g, %d) = %d, want %d", tt.zoom, tt.extra, got, tt.want)
			}
		})
	}
}
