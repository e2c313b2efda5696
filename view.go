package deepzoom

import "math"

const twoPi = 2 * math.Pi

// ViewDefaults is the camera a fractal starts from and returns to on Reset.
type ViewDefaults struct {
	Pan      Point
	Zoom     float64
	Rotation float64
}

// View is the mutable camera of one fractal session.
//
// The pan is held twice: as a double-double per axis, which every mutation
// goes through, and as a derived float64 pair that always equals Hi+Lo.
// The derived pair is readable through Pan but never writable.
//
// Zoom is the fractal-plane length spanned by the viewport height. Callers
// clamp it to the fractal's bounds before SetZoom; the View stores what it
// is given.
type View struct {
	panX, panY DD
	pan        Point

	zoom     float64
	rotation float64

	width, height int
	defaults      ViewDefaults

	rev uint64
}

// NewView returns a view of the given pixel size positioned at d.
func NewView(width, height int, d ViewDefaults) *View {
	v := &View{defaults: d}
	v.Resize(width, height)
	v.Reset()
	return v
}

// Reset restores the default pan, zoom and rotation.
func (v *View) Reset() {
	v.SetPan(v.defaults.Pan.X, v.defaults.Pan.Y)
	v.SetZoom(v.defaults.Zoom)
	v.SetRotation(v.defaults.Rotation)
}

// Defaults returns the camera Reset returns to.
func (v *View) Defaults() ViewDefaults { return v.defaults }

// Resize sets the viewport size in pixels. Non-positive sizes are stored as 1.
func (v *View) Resize(width, height int) {
	v.width = max(width, 1)
	v.height = max(height, 1)
	v.rev++
}

// Size returns the viewport size in pixels.
func (v *View) Size() (width, height int) { return v.width, v.height }

// Revision increments on every camera change. The renderer compares it to
// detect pan/zoom motion since the last reference orbit.
func (v *View) Revision() uint64 { return v.rev }

// Pan returns the derived float64 pan.
func (v *View) Pan() Point { return v.pan }

// PanDD returns the double-double pan per axis.
func (v *View) PanDD() (x, y DD) { return v.panX, v.panY }

// SetPan jumps to (x, y), discarding any accumulated low part.
func (v *View) SetPan(x, y float64) {
	v.setPanDD(DDFrom(x), DDFrom(y))
}

// AddPan moves the pan by (dx, dy) with compensated addition, so many tiny
// increments at deep zoom are not rounded away.
func (v *View) AddPan(dx, dy float64) {
	v.setPanDD(v.panX.Add(dx), v.panY.Add(dy))
}

func (v *View) setPanDD(x, y DD) {
	v.panX, v.panY = x, y
	v.pan = Point{X: x.Value(), Y: y.Value()}
	v.rev++
}

// Zoom returns the current zoom.
func (v *View) Zoom() float64 { return v.zoom }

// SetZoom stores z as is. Clamp with FractalView.ZoomBounds first.
func (v *View) SetZoom(z float64) {
	v.zoom = z
	v.rev++
}

// Rotation returns the rotation in radians, always in [0, 2π).
func (v *View) Rotation() float64 { return v.rotation }

// SetRotation stores r normalized to [0, 2π).
func (v *View) SetRotation(r float64) {
	v.rotation = NormalizeAngle(r)
	v.rev++
}

// Rotate adds delta radians to the rotation.
func (v *View) Rotate(delta float64) {
	v.SetRotation(v.rotation + delta)
}

// NormalizeAngle maps r into [0, 2π). Non-finite input maps to 0.
func NormalizeAngle(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	r = math.Mod(r, twoPi)
	if r < 0 {
		r += twoPi
	}
	if r >= twoPi {
		r = 0
	}
	return r
}

// screenMatrix maps pixel coordinates to the rotated, aspect-corrected unit
// vector the shaders compute from the fragment position: centered, divided
// by the height, y flipped up, then rotated by +rotation.
func (v *View) screenMatrix() Matrix {
	w, h := float64(v.width), float64(v.height)
	return Rotate(v.rotation).
		Multiply(Scale(1/h, -1/h)).
		Multiply(Translate(-w/2, -h/2))
}

// ScreenToViewVector returns the direction from the viewport center to the
// screen point in fractal orientation, before zoom scaling and pan.
// Anchored zoom and drag panning both go through it.
func (v *View) ScreenToViewVector(sx, sy float64) Point {
	return v.screenMatrix().TransformPoint(Point{X: sx, Y: sy})
}

// ScreenToFractal maps a screen point to the fractal plane:
// pan + ScreenToViewVector * zoom.
func (v *View) ScreenToFractal(sx, sy float64) Point {
	vec := v.ScreenToViewVector(sx, sy)
	return Point{
		X: v.panX.Add(vec.X * v.zoom).Value(),
		Y: v.panY.Add(vec.Y * v.zoom).Value(),
	}
}

// FractalToScreen is the inverse of ScreenToFractal.
func (v *View) FractalToScreen(p Point) Point {
	dx := DDFrom(p.X).Sub(v.panX).Value() / v.zoom
	dy := DDFrom(p.Y).Sub(v.panY).Value() / v.zoom
	return v.screenMatrix().Invert().TransformPoint(Point{X: dx, Y: dy})
}

// SetPanFromAnchor solves anchor = pan + view*zoom for pan, so the fractal
// point (fx, fy) lands under the screen direction (vx, vy).
func (v *View) SetPanFromAnchor(fx, fy, vx, vy float64) {
	v.setPanDD(DDFrom(fx).Add(-vx*v.zoom), DDFrom(fy).Add(-vy*v.zoom))
}

// SetZoomKeepingAnchor changes the zoom to target while the fractal point
// under screen position (ax, ay) stays put. The pan moves by
// view*(old-new) through AddPan, keeping the accumulated low part.
func (v *View) SetZoomKeepingAnchor(target, ax, ay float64) {
	vec := v.ScreenToViewVector(ax, ay)
	d := v.zoom - target
	v.AddPan(vec.X*d, vec.Y*d)
	v.SetZoom(target)
}

// PixelSize returns the fractal-plane size of one pixel.
func (v *View) PixelSize() float64 {
	return v.zoom / float64(v.height)
}
