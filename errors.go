package deepzoom

import "errors"

var (
	// ErrNoBackend is returned when no rendering backend is registered or
	// every registered backend failed to initialize.
	ErrNoBackend = errors.New("deepzoom: no rendering backend available")

	// ErrProgramInvalid marks a fractal program that failed to compile or
	// link. A renderer holding an invalid program issues no draw calls.
	ErrProgramInvalid = errors.New("deepzoom: fractal program is invalid")

	// ErrContextLost is returned by a backend when its GPU device or context
	// went away. The renderer rebuilds its program and textures on the next
	// frame.
	ErrContextLost = errors.New("deepzoom: rendering context lost")

	// ErrSessionClosed is returned by Session methods after Close.
	ErrSessionClosed = errors.New("deepzoom: session closed")

	// ErrUnknownFractal is returned for a mode with no registered FractalView.
	ErrUnknownFractal = errors.New("deepzoom: unknown fractal mode")

	// ErrUnknownPreset is returned when a preset name is not found.
	ErrUnknownPreset = errors.New("deepzoom: unknown preset")

	// ErrInvalidViewState is returned when a view-state token cannot be
	// decoded at all. Individual malformed fields never produce it.
	ErrInvalidViewState = errors.New("deepzoom: invalid view state")
)
