// Package cpu registers the software rendering backend.
//
// The software backend evaluates every fractal mode in Go and works
// everywhere. It registers at a low priority, so deepzoom.OpenBackend picks
// it only when no GPU backend is imported or the GPU fails to initialize.
//
// Usage:
//
//	import _ "github.com/gogpu/deepzoom/cpu"
package cpu

import (
	"github.com/gogpu/deepzoom"
	cpuimpl "github.com/gogpu/deepzoom/internal/cpu"
)

// Priority is the registry priority of the software backend.
const Priority = 10

func init() {
	deepzoom.RegisterBackend(cpuimpl.BackendCPU, Priority, func() (deepzoom.Backend, error) {
		return cpuimpl.New(), nil
	})
}

// New creates a software backend with workers goroutines. Zero uses
// GOMAXPROCS.
func New(workers int) deepzoom.Backend {
	return cpuimpl.New(cpuimpl.WithWorkers(workers))
}
