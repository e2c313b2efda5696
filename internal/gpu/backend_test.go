//go:build !nogpu

package gpu

import (
	"errors"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

func newNoopBackend(t *testing.T, w, h int) *Backend {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	b, err := NewWithDevice(device, queue)
	if err != nil {
		t.Fatalf("NewWithDevice() error = %v", err)
	}
	t.Cleanup(b.Close)
	if err := b.Resize(w, h); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	return b
}

func programDesc(t *testing.T, mode deepzoom.Mode, orbitWidth int) deepzoom.ProgramDesc {
	t.Helper()
	f, err := deepzoom.NewFractal(mode)
	if err != nil {
		t.Fatalf("NewFractal(%q) error = %v", mode, err)
	}
	return deepzoom.ProgramDesc{
		Mode:       mode,
		Label:      string(mode),
		Source:     f.ShaderSource(),
		OrbitWidth: orbitWidth,
	}
}

func TestNewWithDeviceNil(t *testing.T) {
	if _, err := NewWithDevice(nil, nil); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("NewWithDevice(nil, nil) error = %v, want ErrNotInitialized", err)
	}
}

func TestBackendResize(t *testing.T) {
	b := newNoopBackend(t, 320, 200)
	if w, h := b.Size(); w != 320 || h != 200 {
		t.Errorf("Size() = %dx%d, want 320x200", w, h)
	}
	if err := b.Resize(640, 480); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := b.Size(); w != 640 || h != 480 {
		t.Errorf("Size() = %dx%d, want 640x480", w, h)
	}
	if err := b.Resize(0, 10); err == nil {
		t.Error("Resize(0, 10) should fail")
	}
}

func TestCompileShaders(t *testing.T) {
	for _, mode := range []deepzoom.Mode{
		deepzoom.ModeMandelbrot,
		deepzoom.ModeJulia,
		deepzoom.ModeRossler,
		deepzoom.ModeRiemann,
	} {
		t.Run(string(mode), func(t *testing.T) {
			desc := programDesc(t, mode, 0)
			for _, want := range []string{"@vertex", "@fragment", "@group(0) @binding(0)", "vs_main", "fs_main", "u_zoom_h", "u_zoom_l"} {
				if !strings.Contains(desc.Source, want) {
					t.Errorf("source missing %q", want)
				}
			}
			words, err := compileWGSL(desc.Label, desc.Source)
			if err != nil {
				t.Fatalf("compileWGSL() error = %v", err)
			}
			if words[0] != spirvMagic {
				t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
			}
		})
	}
}

func TestCompileInvalid(t *testing.T) {
	for range 2 {
		_, err := compileWGSL("broken", "fn fs_main( {")
		if !errors.Is(err, deepzoom.ErrProgramInvalid) {
			t.Errorf("compileWGSL() error = %v, want ErrProgramInvalid", err)
		}
	}
}

func TestCompileReusesModules(t *testing.T) {
	desc := programDesc(t, deepzoom.ModeJulia, 0)
	first, err := compileWGSL(desc.Label, desc.Source)
	if err != nil {
		t.Fatalf("compileWGSL() error = %v", err)
	}
	hits := spirvCache.Stats().Hits
	second, err := compileWGSL("other label", desc.Source)
	if err != nil {
		t.Fatalf("compileWGSL() error = %v", err)
	}
	if spirvCache.Stats().Hits != hits+1 {
		t.Error("second compile of the same source missed the cache")
	}
	if &first[0] != &second[0] {
		t.Error("cached module was not reused")
	}
}

func TestBuildAndDraw(t *testing.T) {
	b := newNoopBackend(t, 64, 48)
	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeMandelbrot, 256))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	defer p.Destroy()

	orbit := make([]float32, 4*100)
	if err := p.UploadOrbit(orbit); err != nil {
		t.Errorf("UploadOrbit() error = %v", err)
	}
	if err := p.UploadOrbit(make([]float32, 4*300)); err == nil {
		t.Error("UploadOrbit() past the texture width should fail")
	}

	var u deepzoom.Uniforms
	u.SetZoom(2.5)
	for i := 0; i < 3; i++ {
		if err := p.Draw(&u); err != nil {
			t.Fatalf("Draw() #%d error = %v", i, err)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, 64, 48))
	if err := b.ReadPixels(dst); err != nil {
		t.Errorf("ReadPixels() error = %v", err)
	}
	if err := b.ReadPixels(image.NewRGBA(image.Rect(0, 0, 10, 10))); !errors.Is(err, ErrTargetSize) {
		t.Errorf("ReadPixels(10x10) error = %v, want ErrTargetSize", err)
	}
}

func TestProgramWithoutOrbit(t *testing.T) {
	b := newNoopBackend(t, 32, 32)
	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeRossler, 0))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	defer p.Destroy()
	if err := p.UploadOrbit(make([]float32, 4)); err == nil {
		t.Error("UploadOrbit() on a program without orbit should fail")
	}
}

func TestBuildInvalidProgram(t *testing.T) {
	b := newNoopBackend(t, 32, 32)
	_, err := b.BuildProgram(deepzoom.ProgramDesc{Label: "bad", Source: "not wgsl"})
	if !errors.Is(err, deepzoom.ErrProgramInvalid) {
		t.Errorf("BuildProgram() error = %v, want ErrProgramInvalid", err)
	}
	if len(b.programs) != 0 {
		t.Errorf("programs = %d, want 0", len(b.programs))
	}
}

func TestDestroyTwice(t *testing.T) {
	b := newNoopBackend(t, 32, 32)
	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeJulia, 0))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	p.Destroy()
	p.Destroy()
	var u deepzoom.Uniforms
	if err := p.Draw(&u); !errors.Is(err, deepzoom.ErrProgramInvalid) {
		t.Errorf("Draw() after Destroy error = %v, want ErrProgramInvalid", err)
	}
}

func TestDeviceLostAndRecover(t *testing.T) {
	b := newNoopBackend(t, 32, 32)
	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeJulia, 0))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}

	b.mu.Lock()
	b.markLostLocked(errors.New("test"))
	b.mu.Unlock()

	var u deepzoom.Uniforms
	if err := p.Draw(&u); !errors.Is(err, deepzoom.ErrContextLost) {
		t.Fatalf("Draw() error = %v, want ErrContextLost", err)
	}
	if _, err := b.BuildProgram(programDesc(t, deepzoom.ModeJulia, 0)); !errors.Is(err, deepzoom.ErrContextLost) {
		t.Errorf("BuildProgram() while lost error = %v, want ErrContextLost", err)
	}

	p.Destroy()
	if err := b.Recover(); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	if w, h := b.Size(); w != 32 || h != 32 {
		t.Errorf("Size() after Recover = %dx%d, want 32x32", w, h)
	}
	p, err = b.BuildProgram(programDesc(t, deepzoom.ModeJulia, 0))
	if err != nil {
		t.Fatalf("BuildProgram() after Recover error = %v", err)
	}
	if err := p.Draw(&u); err != nil {
		t.Errorf("Draw() after Recover error = %v", err)
	}
}

func TestRecoverReleasesPrograms(t *testing.T) {
	b := newNoopBackend(t, 16, 16)
	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeRiemann, 0))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	if err := b.Recover(); err != nil {
		t.Fatalf("Recover() error = %v", err)
	}
	var u deepzoom.Uniforms
	if err := p.Draw(&u); !errors.Is(err, deepzoom.ErrProgramInvalid) {
		t.Errorf("Draw() on a pre-recovery program error = %v, want ErrProgramInvalid", err)
	}
}

func TestFenceTimer(t *testing.T) {
	b := newNoopBackend(t, 16, 16)
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	p, err := b.BuildProgram(programDesc(t, deepzoom.ModeJulia, 0))
	if err != nil {
		t.Fatalf("BuildProgram() error = %v", err)
	}
	defer p.Destroy()
	var u deepzoom.Uniforms

	if _, ok := b.PollTimer(); ok {
		t.Fatal("PollTimer() with nothing queued returned a sample")
	}

	// No submit between Begin and End: nothing queued.
	b.BeginTimer()
	b.EndTimer()
	if _, ok := b.PollTimer(); ok {
		t.Error("empty measurement produced a sample")
	}

	b.BeginTimer()
	if err := p.Draw(&u); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	b.EndTimer()
	now = now.Add(8 * time.Millisecond)
	s, ok := b.PollTimer()
	if !ok {
		t.Fatal("PollTimer() returned no sample")
	}
	if s.Elapsed != 8*time.Millisecond || s.Disjoint {
		t.Errorf("PollTimer() = %+v, want 8ms, not disjoint", s)
	}

	b.BeginTimer()
	if err := p.Draw(&u); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	b.EndTimer()
	now = now.Add(time.Second)
	s, ok = b.PollTimer()
	if !ok || !s.Disjoint {
		t.Errorf("PollTimer() = %+v, %v, want a disjoint sample", s, ok)
	}
}
