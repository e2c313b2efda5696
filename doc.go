// Package deepzoom renders escape-time fractals at zoom depths past
// float32 precision on consumer GPUs.
//
// # Overview
//
// A Session ties a fractal view to a rendering backend:
//
//	import (
//	    "github.com/gogpu/deepzoom"
//	    _ "github.com/gogpu/deepzoom/gpu" // Vulkan backend
//	    _ "github.com/gogpu/deepzoom/cpu" // software fallback
//	)
//
//	s, err := deepzoom.NewSession(deepzoom.WithMode(deepzoom.ModeMandelbrot))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.ZoomAt(0.5, 512, 384) // zoom in 2x around the screen center
//	if err := s.Frame(); err != nil {
//	    log.Fatal(err)
//	}
//	img, _ := s.Pixels()
//
// # Precision
//
// The view keeps its pan as a double-double per axis and hands it to the
// shader as float32 hi/lo pairs. Mandelbrot views past the float32 limit
// render by perturbation: one reference orbit is computed on the host in
// float64, uploaded as a texture, and each pixel iterates its small delta
// from it. Pixels whose delta outgrows the reference are rebased onto the
// orbit start.
//
// # Fractals
//
//   - Mandelbrot: perturbation against a reference orbit
//   - Julia: direct iteration with c in the shape parameters
//   - Rössler: the attractor projected with a Gaussian glow
//   - Riemann: domain coloring of the zeta function
//
// # Animation
//
// Animator runs at most one transition per Kind (zoom, pan, rotation,
// color, params, travel). Starting a transition cancels the previous one
// of the same kind; every transition is driven by the Session clock.
//
// # Backends
//
// Backends register themselves with RegisterBackend. The gpu package draws
// through gogpu/wgpu with WGSL shaders compiled by naga; the cpu package
// evaluates the same uniforms on a worker pool.
//
// # Coordinate System
//
// Screen coordinates have the origin at the top-left with y down. The
// fractal plane has y up. Zoom is the fractal length spanned by the
// viewport height; rotation is in radians, counter-clockwise, normalized
// to [0, 2π).
package deepzoom

// Version is the current version of the library.
const Version = "0.1.0"
