//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/deepzoom"
)

var (
	// ErrNoGPU is returned when no Vulkan adapter is available.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrNotInitialized is returned when the backend has no device.
	ErrNotInitialized = errors.New("gpu: backend not initialized")

	// ErrDeviceLost is returned when a submit or fence wait fails. It wraps
	// deepzoom.ErrContextLost so the renderer schedules a recovery.
	ErrDeviceLost = fmt.Errorf("gpu: device lost: %w", deepzoom.ErrContextLost)

	// ErrTargetSize is returned by ReadPixels for a destination whose
	// bounds differ from the render target.
	ErrTargetSize = errors.New("gpu: destination size mismatch")
)
