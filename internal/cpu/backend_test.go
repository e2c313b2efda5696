package cpu

import (
	"errors"
	"image"
	"math"
	"testing"
	"time"

	"github.com/gogpu/deepzoom"
)

func newRenderer(t *testing.T, mode deepzoom.Mode, w, h int) (*deepzoom.Renderer, *Backend) {
	t.Helper()
	b := New(WithWorkers(2))
	t.Cleanup(b.Close)
	f, err := deepzoom.NewFractal(mode)
	if err != nil {
		t.Fatalf("NewFractal(%q) error = %v", mode, err)
	}
	cfg := deepzoom.DefaultConfig()
	cfg.MaxIter = 512
	r, err := deepzoom.NewRenderer(b, f, cfg)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if err := r.Resize(w, h); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	return r, b
}

func render(t *testing.T, r *deepzoom.Renderer, w, h int) *image.RGBA {
	t.Helper()
	if err := r.Frame(time.Unix(100, 0)); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := r.ReadPixels(img); err != nil {
		t.Fatalf("ReadPixels() error = %v", err)
	}
	return img
}

func lit(img *image.RGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i]|img.Pix[i+1]|img.Pix[i+2] != 0 {
			n++
		}
	}
	return n
}

func TestBuildProgramUnknownMode(t *testing.T) {
	b := New()
	defer b.Close()
	_, err := b.BuildProgram(deepzoom.ProgramDesc{Mode: "lyapunov", Source: "fn vs_main() {} fn fs_main() {}"})
	if !errors.Is(err, deepzoom.ErrProgramInvalid) {
		t.Errorf("BuildProgram() error = %v, want ErrProgramInvalid", err)
	}
	_, err = b.BuildProgram(deepzoom.ProgramDesc{Mode: deepzoom.ModeJulia, Source: "fn main() {}"})
	if !errors.Is(err, deepzoom.ErrProgramInvalid) {
		t.Errorf("BuildProgram() without entry points error = %v, want ErrProgramInvalid", err)
	}
}

func TestMandelbrotFrame(t *testing.T) {
	const w, h = 48, 32
	r, _ := newRenderer(t, deepzoom.ModeMandelbrot, w, h)
	img := render(t, r, w, h)

	// The default view is centered on (-0.5, 0), inside the main cardioid.
	if c := img.RGBAAt(w/2, h/2); c.R|c.G|c.B != 0 {
		t.Errorf("center = %v, want black", c)
	}
	if c := img.RGBAAt(w/2, h/2); c.A != 0xff {
		t.Errorf("center alpha = %d, want 255", c.A)
	}
	if lit(img) == 0 {
		t.Error("no escaping pixels in the default view")
	}
	if r.Stats().Frames != 1 {
		t.Errorf("Stats().Frames = %d, want 1", r.Stats().Frames)
	}
}

func TestMandelbrotMatchesDirectIteration(t *testing.T) {
	const w, h = 24, 16
	r, _ := newRenderer(t, deepzoom.ModeMandelbrot, w, h)
	img := render(t, r, w, h)

	v := r.View()
	for _, px := range [][2]int{{0, 0}, {3, 12}, {20, 2}, {w / 2, h / 2}} {
		c := v.ScreenToFractal(float64(px[0])+0.5, float64(px[1])+0.5)
		escaped := false
		var zx, zy float64
		for range int(r.Stats().Iterations) {
			zx, zy = zx*zx-zy*zy+c.X, 2*zx*zy+c.Y
			if zx*zx+zy*zy > 4 {
				escaped = true
				break
			}
		}
		got := img.RGBAAt(px[0], px[1])
		if !escaped && got.R|got.G|got.B != 0 {
			t.Errorf("pixel %v = %v, want black interior", px, got)
		}
	}
}

func TestPreviewBlocks(t *testing.T) {
	const w, h = 32, 32
	r, b := newRenderer(t, deepzoom.ModeJulia, w, h)
	if !b.Progressive() {
		t.Fatal("Progressive() = false")
	}
	r.Touch(time.Unix(100, 0))
	img := render(t, r, w, h)
	if r.Stats().Preview != 8 {
		t.Fatalf("Stats().Preview = %d, want 8", r.Stats().Preview)
	}
	for by := 0; by < h; by += 8 {
		for bx := 0; bx < w; bx += 8 {
			want := img.RGBAAt(bx, by)
			for y := by; y < by+8; y++ {
				for x := bx; x < bx+8; x++ {
					if got := img.RGBAAt(x, y); got != want {
						t.Fatalf("pixel (%d,%d) = %v, want block color %v", x, y, got, want)
					}
				}
			}
		}
	}
}

func TestRosslerAndRiemannFrames(t *testing.T) {
	for _, mode := range []deepzoom.Mode{deepzoom.ModeRossler, deepzoom.ModeRiemann} {
		t.Run(string(mode), func(t *testing.T) {
			const w, h = 40, 30
			r, _ := newRenderer(t, mode, w, h)
			img := render(t, r, w, h)
			if lit(img) == 0 {
				t.Error("frame is entirely black")
			}
		})
	}
}

func TestTimerIsImmediate(t *testing.T) {
	b := New(WithWorkers(1))
	defer b.Close()
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	b.BeginTimer()
	now = now.Add(15 * time.Millisecond)
	b.EndTimer()
	s, ok := b.PollTimer()
	if !ok || s.Elapsed != 15*time.Millisecond || s.Disjoint {
		t.Errorf("PollTimer() = %+v, %v, want 15ms", s, ok)
	}
	if _, ok := b.PollTimer(); ok {
		t.Error("PollTimer() returned a second sample")
	}
}

func TestReadPixelsSizeMismatch(t *testing.T) {
	b := New(WithWorkers(1))
	defer b.Close()
	if err := b.Resize(8, 8); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := b.ReadPixels(image.NewRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Error("ReadPixels() with a smaller image should fail")
	}
}

func TestUploadOrbitRecombines(t *testing.T) {
	b := New(WithWorkers(1))
	defer b.Close()
	p, err := b.BuildProgram(deepzoom.ProgramDesc{
		Mode:       deepzoom.ModeMandelbrot,
		Source:     "fn vs_main() {} fn fs_main() {}",
		OrbitWidth: 4,
	})
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	x := -0.75 + 1e-12
	hi, lo := deepzoom.Split(x)
	if err := p.UploadOrbit([]float32{hi, lo, 0.5, 0}); err != nil {
		t.Fatalf("UploadOrbit() error = %v", err)
	}
	got := p.(*Program).orbit[0]
	if real(got) != deepzoom.Join(hi, lo) || imag(got) != 0.5 {
		t.Errorf("orbit[0] = %v, want (%v+0.5i)", got, deepzoom.Join(hi, lo))
	}
	if err := p.UploadOrbit(make([]float32, 4*5)); err == nil {
		t.Error("UploadOrbit() past the width should fail")
	}
}

func TestFrameParamsUsePanDelta(t *testing.T) {
	px := deepzoom.DDFrom(-1.7497219297423385).Add(1.6e-22)
	rx := deepzoom.DDFrom(-1.7497219297423385)
	py, ry := deepzoom.DDFrom(0), deepzoom.DDFrom(0)
	var u deepzoom.Uniforms
	u.SetPan(px, py)
	u.SetRefPan(rx, ry)
	u.SetPanDelta(px, py, rx, ry)
	u.Resolution = [2]float32{4, 4}

	fp := newFrameParams(&u, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil)
	if want := px.Sub(rx).Value(); math.Abs(fp.dpX-want) > want*1e-12 {
		t.Errorf("dpX = %g, want %g", fp.dpX, want)
	}
	if fp.dpY != 0 {
		t.Errorf("dpY = %g, want 0", fp.dpY)
	}
}
