// Package cpu implements the deepzoom software backend.
//
// Programs are evaluated in Go with the same math as the WGSL sources:
// perturbation with rebasing for the Mandelbrot set, direct iteration for
// Julia sets, an eta-series domain coloring for the Riemann zeta function
// and a splatted trajectory for the Rössler attractor. Rows are shaded in
// parallel on an internal/parallel.WorkerPool.
//
// The backend is progressive: when Uniforms.Preview is greater than one it
// shades a single sample per Preview x Preview block.
package cpu

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/deepzoom/internal/parallel"
)

// BackendCPU is the identifier for the software backend.
const BackendCPU = "cpu"

// Backend renders into an image.RGBA held in memory.
type Backend struct {
	mu     sync.Mutex
	frame  *image.RGBA
	pool   *parallel.WorkerPool
	band   int
	log    *slog.Logger
	closed bool

	timerStart time.Time
	timerOpen  bool
	samples    []deepzoom.TimerSample
	now        func() time.Time
}

var (
	_ deepzoom.Backend     = (*Backend)(nil)
	_ deepzoom.TimerQuery  = (*Backend)(nil)
	_ deepzoom.Progressive = (*Backend)(nil)
)

// Option configures a Backend.
type Option func(*Backend)

// WithWorkers sets the worker count. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Backend) {
		b.pool.Close()
		b.pool = parallel.NewWorkerPool(n)
	}
}

// WithBand sets the number of rows per work item. Zero picks a band from
// the image height and worker count.
func WithBand(rows int) Option {
	return func(b *Backend) { b.band = rows }
}

// New creates a software backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		pool: parallel.NewWorkerPool(0),
		log:  deepzoom.Logger(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendCPU }

// Progressive reports that the backend honors Uniforms.Preview.
func (b *Backend) Progressive() bool { return true }

// SetLogger receives the logger from deepzoom.SetLogger.
func (b *Backend) SetLogger(l *slog.Logger) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.log = l
}

// Resize reallocates the frame.
func (b *Backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("cpu: invalid size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame != nil && b.frame.Bounds().Dx() == width && b.frame.Bounds().Dy() == height {
		return nil
	}
	b.frame = image.NewRGBA(image.Rect(0, 0, width, height))
	return nil
}

// BuildProgram selects the evaluator for desc.Mode. The WGSL source is
// only checked for its entry points.
func (b *Backend) BuildProgram(desc deepzoom.ProgramDesc) (deepzoom.Program, error) {
	sh, ok := shaders[desc.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: cpu: no evaluator for mode %q", deepzoom.ErrProgramInvalid, desc.Mode)
	}
	if err := checkSource(desc.Source); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", deepzoom.ErrProgramInvalid, desc.Label, err)
	}
	p := &Program{backend: b, desc: desc, shader: sh}
	if desc.OrbitWidth > 0 {
		p.orbit = make([]complex128, 0, desc.OrbitWidth)
	}
	b.mu.Lock()
	b.log.Info("cpu: program built", "label", desc.Label, "orbit_width", desc.OrbitWidth)
	b.mu.Unlock()
	return p, nil
}

// ReadPixels copies the frame into dst.
func (b *Backend) ReadPixels(dst *image.RGBA) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return fmt.Errorf("cpu: no frame")
	}
	if dst.Bounds().Size() != b.frame.Bounds().Size() {
		return fmt.Errorf("cpu: destination %v does not match frame %v", dst.Bounds(), b.frame.Bounds())
	}
	w := b.frame.Bounds().Dx() * 4
	for y := 0; y < b.frame.Bounds().Dy(); y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], b.frame.Pix[y*b.frame.Stride:])
	}
	return nil
}

// Recover is a no-op: the software backend has no device to lose.
func (b *Backend) Recover() error { return nil }

// Close stops the worker pool.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.pool.Close()
}

// BeginTimer starts a wall-clock measurement of the next draw.
func (b *Backend) BeginTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timerOpen = true
	b.timerStart = b.now()
}

// EndTimer queues the measurement. Draws are synchronous, so the sample is
// available immediately.
func (b *Backend) EndTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.timerOpen {
		return
	}
	b.timerOpen = false
	b.samples = append(b.samples, deepzoom.TimerSample{Elapsed: b.now().Sub(b.timerStart)})
}

// PollTimer returns the oldest measurement.
func (b *Backend) PollTimer() (deepzoom.TimerSample, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.samples) == 0 {
		return deepzoom.TimerSample{}, false
	}
	s := b.samples[0]
	b.samples = b.samples[1:]
	return s, true
}
