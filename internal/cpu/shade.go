package cpu

import (
	"image"
	"math"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/deepzoom/internal/parallel"
)

// escapeRadius2 is the squared bailout radius shared by the escape-time
// modes.
const escapeRadius2 = 4.0

// pixelFunc shades the fragment at (fx, fy). ok is false for interior
// points, which are drawn black.
type pixelFunc func(fp *frameParams, fx, fy float64) (c [3]float64, ok bool)

// frameFunc renders a whole frame at once.
type frameFunc func(fp *frameParams, dst *image.RGBA, pool *parallel.WorkerPool)

type shader struct {
	pixel pixelFunc
	frame frameFunc
}

var shaders = map[deepzoom.Mode]shader{
	deepzoom.ModeMandelbrot: {pixel: shadeMandelbrot},
	deepzoom.ModeJulia:      {pixel: shadeJulia},
	deepzoom.ModeRiemann:    {pixel: shadeRiemann},
	deepzoom.ModeRossler:    {frame: drawRossler},
}

// shadePixels evaluates fn once per Preview block, at the block center,
// and fills the block.
func shadePixels(fp *frameParams, dst *image.RGBA, pool *parallel.WorkerPool, band int, fn pixelFunc) {
	bs := fp.block
	blocksY := (fp.height + bs - 1) / bs
	rows := max(1, band/bs)
	if band <= 0 {
		rows = 0
	}
	pool.Rows(blocksY, rows, func(by0, by1 int) {
		for by := by0; by < by1; by++ {
			y0 := by * bs
			y1 := min(y0+bs, fp.height)
			fy := float64(y0) + 0.5*float64(y1-y0)
			for x0 := 0; x0 < fp.width; x0 += bs {
				x1 := min(x0+bs, fp.width)
				fx := float64(x0) + 0.5*float64(x1-x0)
				c, ok := fn(fp, fx, fy)
				if !ok {
					c = [3]float64{}
				}
				fill(dst, x0, y0, x1, y1, c)
			}
		}
	})
}

func fill(dst *image.RGBA, x0, y0, x1, y1 int, c [3]float64) {
	r, g, b := to8(c[0]), to8(c[1]), to8(c[2])
	for y := y0; y < y1; y++ {
		i := y*dst.Stride + x0*4
		for x := x0; x < x1; x++ {
			dst.Pix[i+0] = r
			dst.Pix[i+1] = g
			dst.Pix[i+2] = b
			dst.Pix[i+3] = 0xff
			i += 4
		}
	}
}

func to8(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 1:
		return 0xff
	default:
		return uint8(v*255 + 0.5)
	}
}

// smoothColor maps an escaped iterate to a palette color.
func smoothColor(fp *frameParams, n int, mag2 float64) [3]float64 {
	mu := float64(n) + 1 - math.Log2(math.Log(math.Sqrt(mag2)))
	return fp.palette(mu / 64)
}

// shadeMandelbrot iterates the pixel's delta from the reference orbit,
// rebasing onto the orbit start when the full value gets smaller than the
// delta or the reference runs out.
func shadeMandelbrot(fp *frameParams, fx, fy float64) ([3]float64, bool) {
	orbit := fp.orbit
	if len(orbit) == 0 {
		return [3]float64{}, false
	}
	vx, vy := fp.viewVector(fx, fy)
	dcx := fp.dpX + fp.zoom*vx
	dcy := fp.dpY + fp.zoom*vy
	refEscape := min(fp.refEscape, len(orbit)-1)

	var dx, dy float64
	m := 0
	for n := 0; n < fp.iters; n++ {
		z := orbit[m]
		zx, zy := real(z)+dx, imag(z)+dy
		mag := zx*zx + zy*zy
		if mag > escapeRadius2 {
			return smoothColor(fp, n, mag), true
		}
		if mag < dx*dx+dy*dy || m >= refEscape {
			dx, dy = zx, zy
			m = 0
		}
		a := orbit[m]
		ax, ay := real(a), imag(a)
		tx := ax*dx - ay*dy
		ty := ax*dy + ay*dx
		dx, dy = 2*tx+dx*dx-dy*dy+dcx, 2*ty+2*dx*dy+dcy
		m++
	}
	return [3]float64{}, false
}

func shadeJulia(fp *frameParams, fx, fy float64) ([3]float64, bool) {
	vx, vy := fp.viewVector(fx, fy)
	zx := fp.panX + vx*fp.zoom
	zy := fp.panY + vy*fp.zoom
	cx, cy := fp.params[0], fp.params[1]
	for n := 0; n < fp.iters; n++ {
		mag := zx*zx + zy*zy
		if mag > escapeRadius2 {
			return smoothColor(fp, n, mag), true
		}
		zx, zy = zx*zx-zy*zy+cx, 2*zx*zy+cy
	}
	return [3]float64{}, false
}

// shadeRiemann colors zeta(s) = eta(s) / (1 - 2^(1-s)), with eta summed
// over u_iterations terms and the last one halved.
func shadeRiemann(fp *frameParams, fx, fy float64) ([3]float64, bool) {
	vx, vy := fp.viewVector(fx, fy)
	s := complex(fp.panX+vx*fp.zoom, fp.panY+vy*fp.zoom)
	terms := max(fp.iters, 1)

	var eta complex128
	alt := 1.0
	for n := 1; n <= terms; n++ {
		lnN := math.Log(float64(n))
		mag := math.Exp(-real(s) * lnN)
		term := complex(math.Cos(imag(s)*lnN), -math.Sin(imag(s)*lnN)) * complex(mag*alt, 0)
		if n == terms {
			term *= 0.5
		}
		eta += term
		alt = -alt
	}
	pm := math.Exp((1 - real(s)) * math.Ln2)
	den := complex(1-pm*math.Cos(-imag(s)*math.Ln2), -pm*math.Sin(-imag(s)*math.Ln2))
	zeta := eta / den

	hue := math.Atan2(imag(zeta), real(zeta))/(2*math.Pi) + 0.5
	lm := math.Log(math.Max(abs(zeta), 1e-30)) * fp.params[0]
	band := 0.65 + 0.35*(lm-math.Floor(lm))
	c := fp.palette(hue)
	for i := range c {
		c[i] *= band
	}
	return c, true
}

func abs(z complex128) float64 { return math.Hypot(real(z), imag(z)) }

// glowRadius is the Rössler glow width in pixels; splats reach three
// widths.
const glowRadius = 2.0

// drawRossler integrates the trajectory once and splats a Gaussian glow of
// each step into the bands that it touches.
func drawRossler(fp *frameParams, dst *image.RGBA, pool *parallel.WorkerPool) {
	a, b, c, dt := fp.params[0], fp.params[1], fp.params[2], fp.params[3]
	steps := fp.iters * 4
	pts := make([][3]float64, steps) // screen x, screen y, z
	x, y, z := 0.1, 0.0, 0.0
	for i := range steps {
		x, y, z = x+dt*(-y-z), y+dt*(x+a*y), z+dt*(b+z*(x-c))
		sx, sy := fp.toScreen(x, y)
		pts[i] = [3]float64{sx, sy, z}
	}

	w, h := fp.width, fp.height
	reach := 3 * glowRadius
	inv := 1 / (glowRadius * glowRadius)
	pool.Rows(h, 0, func(y0, y1 int) {
		glow := make([]float64, (y1-y0)*w)
		depth := make([]float64, (y1-y0)*w)
		for _, p := range pts {
			if p[1]+reach < float64(y0) || p[1]-reach > float64(y1) {
				continue
			}
			px0 := max(0, int(math.Floor(p[0]-reach)))
			px1 := min(w-1, int(math.Ceil(p[0]+reach)))
			py0 := max(y0, int(math.Floor(p[1]-reach)))
			py1 := min(y1-1, int(math.Ceil(p[1]+reach)))
			for py := py0; py <= py1; py++ {
				ddy := float64(py) + 0.5 - p[1]
				row := (py - y0) * w
				for px := px0; px <= px1; px++ {
					ddx := float64(px) + 0.5 - p[0]
					g := math.Exp(-(ddx*ddx + ddy*ddy) * inv)
					glow[row+px] += g
					depth[row+px] += g * p[2]
				}
			}
		}
		for py := y0; py < y1; py++ {
			row := (py - y0) * w
			for px := range w {
				g := glow[row+px]
				var col [3]float64
				if g >= 1e-3 {
					col = fp.palette(depth[row+px] / g / 24)
					k := 1 - math.Exp(-g*0.25)
					for i := range col {
						col[i] *= k
					}
				}
				fill(dst, px, py, px+1, py+1, col)
			}
		}
	})
}
