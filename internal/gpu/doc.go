//go:build !nogpu

// Package gpu implements the deepzoom GPU backend on gogpu/wgpu/hal.
//
// Each fractal program is a render pipeline drawing one fullscreen triangle
// into an offscreen RGBA8 target:
//
//	binding 0: uniform block (deepzoom.Uniforms, 144 bytes)
//	binding 1: reference orbit, RGBA32Float, MaxIter x 1 (Mandelbrot only)
//
// WGSL sources are compiled to SPIR-V with gogpu/naga. Submits are not
// waited on; frame time is measured with the queue fence and reported
// through deepzoom.TimerQuery. A failed submit or fence wait marks the
// device lost, and every call then returns an error wrapping
// deepzoom.ErrContextLost until Recover succeeds.
//
// The package is internal; import github.com/gogpu/deepzoom/gpu to register
// the backend.
package gpu
