package main

import (
	"image"
	"testing"

	"github.com/gogpu/deepzoom"
)

func TestParsePoint(t *testing.T) {
	tests := []struct {
		in      string
		x, y    float64
		wantErr bool
	}{
		{"400,300", 400, 300, false},
		{" 1.5 , -2 ", 1.5, -2, false},
		{"400", 0, 0, true},
		{"a,1", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			x, y, err := parsePoint(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePoint() error = %v, wantErr %v", err, tt.wantErr)
			}
			if x != tt.x || y != tt.y {
				t.Errorf("parsePoint() = %v, %v, want %v, %v", x, y, tt.x, tt.y)
			}
		})
	}
}

func TestFormatMagnification(t *testing.T) {
	tests := []struct {
		m    float64
		want string
	}{
		{1, "1.00"},
		{1234567, "1,234,567"},
		{2.5e12, "2.500e+12"},
		{0, "?"},
	}
	for _, tt := range tests {
		if got := formatMagnification(tt.m); got != tt.want {
			t.Errorf("formatMagnification(%v) = %q, want %q", tt.m, got, tt.want)
		}
	}
}

func TestDrawCaptionDarkensBottom(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 60))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	if err := drawCaption(img, "mandelbrot"); err != nil {
		t.Fatalf("drawCaption() error = %v", err)
	}
	if c := img.RGBAAt(199, 59); c.R == 0xff {
		t.Errorf("bottom-right = %v, want darkened", c)
	}
	if c := img.RGBAAt(0, 0); c.R != 0xff {
		t.Errorf("top-left = %v, want untouched", c)
	}
}

func TestDrawProbe(t *testing.T) {
	v := deepzoom.NewView(64, 64, deepzoom.ViewDefaults{Zoom: 4})
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	p := deepzoom.ProbeOrbit(deepzoom.Pt(0, 0), deepzoom.Pt(1, 1), 0)
	drawProbe(img, v, p, 1)
	painted := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			painted++
		}
	}
	if painted == 0 {
		t.Error("drawProbe() painted nothing")
	}
}
