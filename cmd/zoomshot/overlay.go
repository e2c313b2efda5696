package main

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/gogpu/deepzoom"
)

// probeWidth is the orbit line width in output pixels.
const probeWidth = 1.5

// drawProbe strokes the orbit onto dst, shading each segment from white at
// the start point to red at the escape point. scale is the supersampling
// factor of dst.
func drawProbe(dst *image.RGBA, v *deepzoom.View, p deepzoom.OrbitProbe, scale float64) {
	half := probeWidth * scale / 2
	var z vector.Rasterizer
	for i := 1; i < len(p.Points); i++ {
		a := v.FractalToScreen(p.Points[i-1])
		b := v.FractalToScreen(p.Points[i])
		drawSegment(dst, &z, a, b, half, probeColor(p.Gradient(i)))
	}
}

func probeColor(t float64) color.RGBA {
	k := uint8(math.Round(255 * (1 - t)))
	return color.RGBA{0xff, k, k, 0xff}
}

// drawSegment fills the quad around a→b. The rasterizer covers only the
// segment's bounds.
func drawSegment(dst *image.RGBA, z *vector.Rasterizer, a, b deepzoom.Point, half float64, c color.RGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	n := math.Hypot(dx, dy)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return
	}
	nx, ny := -dy/n*half, dx/n*half

	r := image.Rect(
		int(math.Floor(math.Min(a.X, b.X)-half)), int(math.Floor(math.Min(a.Y, b.Y)-half)),
		int(math.Ceil(math.Max(a.X, b.X)+half)), int(math.Ceil(math.Max(a.Y, b.Y)+half)),
	).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	pt := func(x, y float64) (float32, float32) { return float32(x - ox), float32(y - oy) }
	z.Reset(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	z.MoveTo(pt(a.X+nx, a.Y+ny))
	z.LineTo(pt(b.X+nx, b.Y+ny))
	z.LineTo(pt(b.X-nx, b.Y-ny))
	z.LineTo(pt(a.X-nx, a.Y-ny))
	z.ClosePath()
	z.Draw(dst, r, image.NewUniform(c), image.Point{})
}
