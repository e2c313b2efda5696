package cpu

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gogpu/deepzoom"
)

// Program evaluates one fractal mode on the CPU.
type Program struct {
	backend *Backend
	desc    deepzoom.ProgramDesc
	shader  shader
	orbit   []complex128
}

var _ deepzoom.Program = (*Program)(nil)

func checkSource(src string) error {
	for _, entry := range []string{"vs_main", "fs_main"} {
		if !strings.Contains(src, "fn "+entry) {
			return fmt.Errorf("missing entry point %s", entry)
		}
	}
	return nil
}

// UploadOrbit stores the reference orbit, recombining each hi/lo pair.
func (p *Program) UploadOrbit(data []float32) error {
	if p.desc.OrbitWidth == 0 {
		return fmt.Errorf("cpu: program %q has no orbit", p.desc.Label)
	}
	n := len(data) / 4
	if n > p.desc.OrbitWidth {
		return fmt.Errorf("cpu: orbit of %d entries exceeds width %d", n, p.desc.OrbitWidth)
	}
	p.orbit = p.orbit[:0]
	for i := range n {
		re := deepzoom.Join(data[4*i], data[4*i+1])
		im := deepzoom.Join(data[4*i+2], data[4*i+3])
		p.orbit = append(p.orbit, complex(re, im))
	}
	return nil
}

// Draw renders one frame into the backend frame.
func (p *Program) Draw(u *deepzoom.Uniforms) error {
	b := p.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("cpu: backend closed")
	}
	if b.frame == nil {
		return errors.New("cpu: Draw before Resize")
	}
	fp := newFrameParams(u, b.frame, p.orbit)
	if p.shader.frame != nil {
		p.shader.frame(fp, b.frame, b.pool)
		return nil
	}
	shadePixels(fp, b.frame, b.pool, b.band, p.shader.pixel)
	return nil
}

// Destroy drops the orbit.
func (p *Program) Destroy() { p.orbit = nil }

// frameParams is the Uniforms block widened to float64.
type frameParams struct {
	width, height int
	resX, resY    float64
	panX, panY    float64
	dpX, dpY      float64 // pan minus reference pan
	zoom          float64
	cos, sin      float64
	iters         int
	refEscape     int
	block         int
	theme         [3]float64
	freq          [3]float64
	phase         [3]float64
	params        [4]float64
	orbit         []complex128
}

func newFrameParams(u *deepzoom.Uniforms, frame *image.RGBA, orbit []complex128) *frameParams {
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	fp := &frameParams{
		width:     w,
		height:    h,
		resX:      float64(u.Resolution[0]),
		resY:      float64(u.Resolution[1]),
		panX:      deepzoom.Join(u.PanH[0], u.PanL[0]),
		panY:      deepzoom.Join(u.PanH[1], u.PanL[1]),
		dpX:       deepzoom.Join(u.PanDeltaH[0], u.PanDeltaL[0]),
		dpY:       deepzoom.Join(u.PanDeltaH[1], u.PanDeltaL[1]),
		zoom:      deepzoom.Join(u.ZoomH, u.ZoomL),
		cos:       math.Cos(float64(u.Rotation)),
		sin:       math.Sin(float64(u.Rotation)),
		iters:     int(u.Iterations),
		refEscape: int(u.RefEscape),
		block:     max(1, int(u.Preview)),
		orbit:     orbit,
	}
	if fp.resX <= 0 || fp.resY <= 0 {
		fp.resX, fp.resY = float64(w), float64(h)
	}
	for i := range 3 {
		fp.theme[i] = float64(u.ColorPalette[i])
		fp.freq[i] = float64(u.Frequency[i])
		fp.phase[i] = float64(u.Phase[i])
	}
	for i := range 4 {
		fp.params[i] = float64(u.Params[i])
	}
	return fp
}

// viewVector maps a fragment coordinate to the rotated, height-normalized
// offset from the screen center (y up).
func (fp *frameParams) viewVector(fx, fy float64) (x, y float64) {
	sx := (fx - 0.5*fp.resX) / fp.resY
	sy := (0.5*fp.resY - fy) / fp.resY
	return fp.cos*sx - fp.sin*sy, fp.sin*sx + fp.cos*sy
}

// toScreen is the inverse of viewVector after panning and zooming.
func (fp *frameParams) toScreen(x, y float64) (fx, fy float64) {
	dx := (x - fp.panX) / fp.zoom
	dy := (y - fp.panY) / fp.zoom
	sx := fp.cos*dx + fp.sin*dy
	sy := -fp.sin*dx + fp.cos*dy
	return sx*fp.resY + 0.5*fp.resX, 0.5*fp.resY - sy*fp.resY
}

func (fp *frameParams) palette(t float64) [3]float64 {
	var c [3]float64
	for i := range 3 {
		k := fp.freq[i]*t + fp.phase[i]
		c[i] = fp.theme[i] * (0.5 + 0.5*math.Cos(2*math.Pi*k))
	}
	return c
}
