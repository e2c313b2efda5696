package deepzoom

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"
	"time"
)

// ProgramDesc describes a fractal program to build on a backend.
type ProgramDesc struct {
	Mode   Mode
	Label  string
	Source string // WGSL with vs_main and fs_main entry points

	// OrbitWidth is the reference orbit texture width in texels. Zero
	// means the program samples no orbit.
	OrbitWidth int
}

// Program is a compiled fractal program bound to a backend.
type Program interface {
	// UploadOrbit replaces the reference orbit texture contents. data holds
	// four floats per texel: re_hi, re_lo, im_hi, im_lo.
	UploadOrbit(data []float32) error

	// Draw renders one frame with the given uniforms. A lost device is
	// reported as an error wrapping ErrContextLost.
	Draw(u *Uniforms) error

	// Destroy releases program resources. It tolerates a lost device.
	Destroy()
}

// Backend executes fractal programs.
//
// Implementations live in backend packages and register themselves through
// RegisterBackend. Users opt in by blank import:
//
//	import _ "github.com/gogpu/deepzoom/gpu" // Vulkan via wgpu
//	import _ "github.com/gogpu/deepzoom/cpu" // software fallback
type Backend interface {
	// Name returns the backend name (e.g., "gpu", "cpu").
	Name() string

	// BuildProgram compiles and links a program. Compile and link failures
	// wrap ErrProgramInvalid.
	BuildProgram(desc ProgramDesc) (Program, error)

	// Resize changes the render target size in pixels.
	Resize(width, height int) error

	// ReadPixels copies the last drawn frame into dst. dst must match the
	// render target size.
	ReadPixels(dst *image.RGBA) error

	// Recover re-creates device resources after ErrContextLost. Programs
	// built before the loss are invalid and must be rebuilt.
	Recover() error

	// Close releases all backend resources.
	Close()
}

// TimerSample is a completed GPU timing measurement.
type TimerSample struct {
	Elapsed time.Duration

	// Disjoint reports that the measurement interval was interrupted
	// (power state change, context switch). Such samples are unreliable.
	Disjoint bool
}

// TimerQuery is an optional Backend capability for measuring GPU time.
// Results arrive one or more frames after the measured work; PollTimer
// returns the oldest completed sample, if any.
type TimerQuery interface {
	BeginTimer()
	EndTimer()
	PollTimer() (TimerSample, bool)
}

// Progressive is an optional Backend capability: the backend can shade one
// sample per Uniforms.Preview-sized block to speed up interactive frames.
type Progressive interface {
	Progressive() bool
}

// BackendFactory creates a backend instance.
type BackendFactory func() (Backend, error)

type backendEntry struct {
	name     string
	priority int
	factory  BackendFactory
}

var (
	backendMu    sync.RWMutex
	backendReg   []backendEntry
	liveBackends = map[Backend]struct{}{}
)

// RegisterBackend registers a backend factory under name. When no name is
// requested, OpenBackend tries factories from highest priority down.
// Registering an existing name replaces it.
//
// Typical usage in backend packages:
//
//	func init() {
//	    deepzoom.RegisterBackend("gpu", 100, newBackend)
//	}
func RegisterBackend(name string, priority int, f BackendFactory) {
	if name == "" || f == nil {
		panic("deepzoom: RegisterBackend requires a name and a factory")
	}
	backendMu.Lock()
	defer backendMu.Unlock()
	for i := range backendReg {
		if backendReg[i].name == name {
			backendReg[i] = backendEntry{name, priority, f}
			return
		}
	}
	backendReg = append(backendReg, backendEntry{name, priority, f})
	sort.SliceStable(backendReg, func(i, j int) bool {
		return backendReg[i].priority > backendReg[j].priority
	})
}

// Backends returns registered backend names in preference order.
func Backends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	names := make([]string, len(backendReg))
	for i, e := range backendReg {
		names[i] = e.name
	}
	return names
}

// OpenBackend creates the named backend. An empty name selects the first
// registered backend that initializes successfully.
func OpenBackend(name string) (Backend, error) {
	backendMu.RLock()
	entries := append([]backendEntry(nil), backendReg...)
	backendMu.RUnlock()

	var errs []error
	for _, e := range entries {
		if name != "" && e.name != name {
			continue
		}
		b, err := e.factory()
		if err != nil {
			Logger().Warn("deepzoom: backend unavailable", "backend", e.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
			continue
		}
		trackBackend(b)
		Logger().Info("deepzoom: backend selected", "backend", b.Name())
		return b, nil
	}
	if len(errs) == 0 {
		if name != "" {
			return nil, fmt.Errorf("%w: %q is not registered", ErrNoBackend, name)
		}
		return nil, ErrNoBackend
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

// CloseBackend closes b and stops logger propagation to it.
func CloseBackend(b Backend) {
	if b == nil {
		return
	}
	backendMu.Lock()
	delete(liveBackends, b)
	backendMu.Unlock()
	b.Close()
}

func trackBackend(b Backend) {
	propagateLogger(b, Logger())
	backendMu.Lock()
	liveBackends[b] = struct{}{}
	backendMu.Unlock()
}
