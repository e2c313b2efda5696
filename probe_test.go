package deepzoom

import "testing"

func TestProbeOrbitMatchesEscapeIters(t *testing.T) {
	tests := []struct {
		c       Point
		escaped bool
	}{
		{Pt(0.5, 0.5), true},
		{Pt(2, 2), true},
		{Pt(-0.1, 0.1), false},
		{Pt(-0.75, 0.1), true},
	}
	for _, tt := range tests {
		p := ProbeOrbit(Pt(0, 0), tt.c, 500)
		if p.Escaped != tt.escaped {
			t.Errorf("ProbeOrbit(%v).Escaped = %v, want %v", tt.c, p.Escaped, tt.escaped)
		}
		if want := EscapeIters(tt.c.X, tt.c.Y, 500); p.EscapeIndex != want {
			t.Errorf("ProbeOrbit(%v).EscapeIndex = %d, EscapeIters = %d", tt.c, p.EscapeIndex, want)
		}
		if p.Escaped && len(p.Points) != p.EscapeIndex+1 {
			t.Errorf("len(Points) = %d, want EscapeIndex+1 = %d", len(p.Points), p.EscapeIndex+1)
		}
	}
}

func TestProbeOrbitJuliaStart(t *testing.T) {
	p := ProbeOrbit(Pt(1.5, 1.5), DefaultJuliaC, 0)
	if !p.Escaped || p.EscapeIndex != 0 || len(p.Points) != 1 {
		t.Errorf("ProbeOrbit outside the radius = %+v", p)
	}
	if g := p.Gradient(0); g != 1 {
		t.Errorf("Gradient(0) of a single point = %v, want 1", g)
	}
}

func TestProbeOrbitBoundedUsesLimit(t *testing.T) {
	p := ProbeOrbit(Pt(0, 0), Pt(-1, 0), 0)
	if p.Escaped || p.EscapeIndex != DefaultProbeLimit {
		t.Errorf("ProbeOrbit(-1) = escaped %v at %d, want bounded at %d", p.Escaped, p.EscapeIndex, DefaultProbeLimit)
	}
	if g := p.Gradient(len(p.Points) - 1); g != 1 {
		t.Errorf("Gradient(last) = %v, want 1", g)
	}
}
