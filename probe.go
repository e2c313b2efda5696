package deepzoom

// DefaultProbeLimit caps ProbeOrbit when no limit is given.
const DefaultProbeLimit = 0xFFF

// OrbitProbe is the trajectory of one start point under z ← z² + c.
type OrbitProbe struct {
	// Points holds z₀, z₁, … up to and including the first point outside
	// the bailout radius.
	Points []Point
	// Escaped reports whether the orbit left the bailout radius within the
	// limit; EscapeIndex is then the index of that point in Points.
	Escaped     bool
	EscapeIndex int
}

// ProbeOrbit iterates z ← z² + c from z0 for at most limit steps. Use
// z0 = 0 and c = the point for Mandelbrot, z0 = the point and c = the Julia
// constant for Julia. A non-positive limit means DefaultProbeLimit.
func ProbeOrbit(z0, c Point, limit int) OrbitProbe {
	if limit <= 0 {
		limit = DefaultProbeLimit
	}
	p := OrbitProbe{Points: make([]Point, 0, min(limit+1, 256))}
	zx, zy := z0.X, z0.Y
	for i := 0; i <= limit; i++ {
		p.Points = append(p.Points, Pt(zx, zy))
		if zx*zx+zy*zy > bailout {
			p.Escaped = true
			p.EscapeIndex = i
			return p
		}
		zx, zy = zx*zx-zy*zy+c.X, 2*zx*zy+c.Y
	}
	p.EscapeIndex = limit
	return p
}

// Gradient returns the position of point i along the orbit in [0, 1], for
// coloring the trajectory from start to escape.
func (p OrbitProbe) Gradient(i int) float64 {
	if len(p.Points) < 2 {
		return 1
	}
	return clamp01(float64(i) / float64(len(p.Points)-1))
}
