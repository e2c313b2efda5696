//go:build !nogpu

// Package gpu registers the Vulkan rendering backend.
//
// The backend renders fractal programs with gogpu/wgpu/hal and is preferred
// over the software backend whenever a Vulkan adapter is present. If device
// creation fails, deepzoom.OpenBackend logs the reason and moves on to the
// next registered backend.
//
// Usage:
//
//	import _ "github.com/gogpu/deepzoom/gpu"
package gpu

import (
	"github.com/gogpu/deepzoom"
	gpuimpl "github.com/gogpu/deepzoom/internal/gpu"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Priority is the registry priority of the GPU backend.
const Priority = 100

func init() {
	deepzoom.RegisterBackend(gpuimpl.BackendGPU, Priority, func() (deepzoom.Backend, error) {
		return gpuimpl.New()
	})
}

// SetDeviceProvider moves a GPU backend onto a shared device from an
// external provider (e.g., gogpu.App.GPUContextProvider()). Backends of
// other kinds are left alone.
func SetDeviceProvider(b deepzoom.Backend, provider any) error {
	gb, ok := b.(*gpuimpl.Backend)
	if !ok {
		return nil
	}
	return gb.SetDeviceProvider(provider)
}
