package deepzoom

// GestureKind names a decoded input event.
type GestureKind string

const (
	GesturePan    GestureKind = "pan"    // DX, DY in fractal units
	GestureDrag   GestureKind = "drag"   // DX, DY in pixels
	GestureZoom   GestureKind = "zoom"   // Ratio at anchor X, Y
	GestureRotate GestureKind = "rotate" // Angle in radians
	GestureTravel GestureKind = "travel" // Preset name
	GestureMode   GestureKind = "mode"   // Mode
	GestureJulia  GestureKind = "julia"  // Julia at anchor X, Y
	GestureReset  GestureKind = "reset"
)

// Gesture is an input event decoded by a front end (window, remote) and
// applied to a Session.
type Gesture struct {
	Kind GestureKind `json:"kind"`

	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Ratio float64 `json:"ratio,omitempty"`
	Angle float64 `json:"angle,omitempty"`

	Preset string `json:"preset,omitempty"`
	Mode   Mode   `json:"mode,omitempty"`
}
