package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/deepzoom"
)

const (
	captionSize    = 14
	captionPadding = 6
)

var (
	captionBackground = color.RGBA{0, 0, 0, 0xa0}
	captionText       = color.RGBA{0xf0, 0xf0, 0xf0, 0xff}
)

var printer = message.NewPrinter(language.English)

// captionFor describes the session's view in one line.
func captionFor(sess *deepzoom.Session) string {
	v := sess.View()
	mag := v.Defaults().Zoom / v.Zoom()
	h := sess.Health()
	return printer.Sprintf("%s  %s  ×%s  %d iterations  precision %s",
		sess.Mode(), formatPan(v.Pan()), formatMagnification(mag),
		sess.Renderer().Stats().Iterations, h.Level)
}

const panDigits = 12

func formatPan(p deepzoom.Point) string {
	return fmt.Sprintf("(%.*f, %.*f)", panDigits, p.X, panDigits, p.Y)
}

// formatMagnification groups thousands below 1e9 and switches to an
// exponent above.
func formatMagnification(m float64) string {
	switch {
	case m <= 0 || math.IsNaN(m) || math.IsInf(m, 0):
		return "?"
	case m < 10:
		return printer.Sprintf("%.2f", m)
	case m < 1e9:
		return printer.Sprintf("%d", int64(math.Round(m)))
	default:
		return fmt.Sprintf("%.3e", m)
	}
}

// drawCaption writes text on a translucent bar along the bottom edge.
func drawCaption(dst *image.RGBA, text string) error {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("caption font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("caption face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	lineHeight := (m.Ascent + m.Descent).Ceil()
	b := dst.Bounds()
	bar := image.Rect(b.Min.X, b.Max.Y-lineHeight-2*captionPadding, b.Max.X, b.Max.Y)
	draw.Draw(dst, bar, image.NewUniform(captionBackground), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(captionText),
		Face: face,
		Dot:  fixed.P(bar.Min.X+captionPadding, bar.Min.Y+captionPadding+m.Ascent.Ceil()),
	}
	d.DrawString(text)
	return nil
}
