package deepzoom

import (
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestViewStateRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		state  ViewState
		prefix string
	}{
		{
			name:   "mandelbrot",
			state:  ViewState{Mode: ModeMandelbrot, Pan: Pt(-0.743644, 0.131826), Zoom: 2.5e-9, Rotation: 1.25},
			prefix: "#?view=",
		},
		{
			name:   "julia",
			state:  ViewState{Mode: ModeJulia, Pan: Pt(0.1, -0.2), Zoom: 0.75, JuliaC: Pt(-0.123, 0.745)},
			prefix: "#julia?view=",
		},
		{
			name:   "riemann",
			state:  ViewState{Mode: ModeRiemann, Pan: Pt(0.5, 14.134725), Zoom: 2},
			prefix: "#riemann?view=",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := EncodeViewState(tt.state)
			if !strings.HasPrefix(enc, tt.prefix) {
				t.Fatalf("EncodeViewState() = %q, want prefix %q", enc, tt.prefix)
			}
			got, err := DecodeViewState("https://example.org/explore" + enc)
			if err != nil {
				t.Fatalf("DecodeViewState: %v", err)
			}
			if got.Mode != tt.state.Mode {
				t.Errorf("Mode = %q, want %q", got.Mode, tt.state.Mode)
			}
			if got.Pan.Distance(tt.state.Pan) > 1e-6 {
				t.Errorf("Pan = %v, want %v", got.Pan, tt.state.Pan)
			}
			if math.Abs(got.Zoom-tt.state.Zoom) > tt.state.Zoom*1e-6 {
				t.Errorf("Zoom = %g, want %g", got.Zoom, tt.state.Zoom)
			}
			if math.Abs(got.Rotation-tt.state.Rotation) > 1e-6 {
				t.Errorf("Rotation = %v, want %v", got.Rotation, tt.state.Rotation)
			}
			if tt.state.Mode == ModeJulia && got.JuliaC.Distance(tt.state.JuliaC) > 1e-6 {
				t.Errorf("JuliaC = %v, want %v", got.JuliaC, tt.state.JuliaC)
			}
		})
	}
}

func TestViewStateUsesSixDecimals(t *testing.T) {
	enc := EncodeViewState(ViewState{Mode: ModeJulia, Pan: Pt(0.1234567891, 0), Zoom: 1, JuliaC: Pt(-0.8, 0.156)})
	token := enc[strings.Index(enc, "view=")+len("view="):]
	token = strings.NewReplacer("%2B", "+", "%2F", "/", "%3D", "=").Replace(token)
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	for _, want := range []string{`"x":"0.123457"`, `"cx":"-0.800000"`, `"cy":"0.156000"`, `"zoom":"1.000000e+00"`} {
		if !strings.Contains(string(raw), want) {
			t.Errorf("payload %s lacks %s", raw, want)
		}
	}
}

func TestDecodeViewStateFailsSoft(t *testing.T) {
	payload := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	tests := []struct {
		name     string
		in       string
		wantMode Mode
		wantPan  Point
		wantZoom float64
		wantErr  bool
	}{
		{"empty", "", ModeMandelbrot, Pt(-0.5, 0), 3, true},
		{"no payload", "#julia", ModeJulia, Pt(0, 0), 3.2, true},
		{"garbage base64", "#?view=%%%%", ModeMandelbrot, Pt(-0.5, 0), 3, true},
		{"not json", "#?view=" + payload("nope"), ModeMandelbrot, Pt(-0.5, 0), 3, true},
		{"bad zoom", "#?view=" + payload(`{"x":"-1","y":"0.1","zoom":"abc"}`), ModeMandelbrot, Pt(-1, 0.1), 3, true},
		{"negative zoom", "#?view=" + payload(`{"x":"-1","y":"0","zoom":"-2"}`), ModeMandelbrot, Pt(-1, 0), 3, true},
		{"unknown mode", "#sierpinski?view=" + payload(`{"x":"0.2"}`), ModeMandelbrot, Pt(0.2, 0), 3, true},
		{"numbers not strings", "#?view=" + payload(`{"x":-1.25,"y":0,"zoom":0.5,"rotation":0}`), ModeMandelbrot, Pt(-1.25, 0), 0.5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeViewState(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeViewState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidViewState) {
				t.Errorf("error %v does not wrap ErrInvalidViewState", err)
			}
			if got.Mode != tt.wantMode || got.Pan != tt.wantPan || got.Zoom != tt.wantZoom {
				t.Errorf("DecodeViewState() = %+v, want mode %q pan %v zoom %g",
					got, tt.wantMode, tt.wantPan, tt.wantZoom)
			}
		})
	}
}
