package deepzoom

import (
	"math"
	"testing"
)

func TestEasingEndpoints(t *testing.T) {
	easings := map[string]Easing{
		"Linear":         Linear,
		"EaseInOutCubic": EaseInOutCubic,
		"EaseOutQuad":    EaseOutQuad,
		"EaseInOutSine":  EaseInOutSine,
	}
	for name, e := range easings {
		t.Run(name, func(t *testing.T) {
			if got := e(0); math.Abs(got) > 1e-15 {
				t.Errorf("%s(0) = %v, want 0", name, got)
			}
			if got := e(1); math.Abs(got-1) > 1e-15 {
				t.Errorf("%s(1) = %v, want 1", name, got)
			}
			prev := e(0)
			for i := 1; i <= 100; i++ {
				v := e(float64(i) / 100)
				if v < prev-1e-12 {
					t.Fatalf("%s not monotonic at %d: %v < %v", name, i, v, prev)
				}
				prev = v
			}
		})
	}
}

func TestExpLerpBoundaries(t *testing.T) {
	tests := []struct {
		a, b float64
	}{
		{3, 1e-13},
		{2.5e-7, 4.1},
		{1e-21, 3.3e-22},
		{0.1, 0.3},
	}
	for _, tt := range tests {
		if got := ExpLerp(tt.a, tt.b, 0); got != tt.a {
			t.Errorf("ExpLerp(%g, %g, 0) = %g, want %g", tt.a, tt.b, got, tt.a)
		}
		if got := ExpLerp(tt.a, tt.b, 1); got != tt.b {
			t.Errorf("ExpLerp(%g, %g, 1) = %g, want exactly %g", tt.a, tt.b, got, tt.b)
		}
		mid := ExpLerp(tt.a, tt.b, 0.5)
		if want := math.Sqrt(tt.a * tt.b); math.Abs(mid-want) > want*1e-12 {
			t.Errorf("ExpLerp(%g, %g, 0.5) = %g, want geometric mean %g", tt.a, tt.b, mid, want)
		}
	}
}

func TestShortestArc(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{0, 1, 1},
		{0.1, twoPi - 0.1, -0.2},
		{twoPi - 0.1, 0.1, 0.2},
		{0, math.Pi / 2, math.Pi / 2},
	}
	for _, tt := range tests {
		if got := shortestArc(tt.from, tt.to); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("shortestArc(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
