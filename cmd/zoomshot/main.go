// Command zoomshot renders a fractal view to a PNG file.
//
// The view comes from a share token (-view), a preset (-preset) or the
// mode's defaults. The frame is rendered supersampled, downscaled with a
// Catmull-Rom filter and optionally captioned.
//
// Usage:
//
//	zoomshot -preset seahorse-valley -o seahorse.png
//	zoomshot -view '#julia?view=eyJ...' -ss 2 -caption=false
//	zoomshot -mode mandelbrot -probe 400,300 -o orbit.png
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/deepzoom"
	_ "github.com/gogpu/deepzoom/cpu"
	_ "github.com/gogpu/deepzoom/gpu"
)

type options struct {
	width, height int
	supersample   int
	mode          string
	backend       string
	preset        string
	presets       string
	view          string
	palette       string
	maxIter       int
	probe         string
	caption       bool
	output        string
	verbose       bool
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.width, "width", 1024, "image width")
	flag.IntVar(&o.height, "height", 768, "image height")
	flag.IntVar(&o.supersample, "ss", 1, "supersampling factor")
	flag.StringVar(&o.mode, "mode", string(deepzoom.ModeMandelbrot), "fractal: mandelbrot, julia, rossler, riemann")
	flag.StringVar(&o.backend, "backend", "", "backend name (gpu, cpu); empty picks the best available")
	flag.StringVar(&o.preset, "preset", "", "render this preset")
	flag.StringVar(&o.presets, "presets", "", "JSON file with extra presets")
	flag.StringVar(&o.view, "view", "", "view-state token or URL")
	flag.StringVar(&o.palette, "palette", "", "palette id")
	flag.IntVar(&o.maxIter, "max-iter", 0, "iteration ceiling (0 = default)")
	flag.StringVar(&o.probe, "probe", "", "overlay the orbit of pixel x,y")
	flag.BoolVar(&o.caption, "caption", true, "draw the view caption")
	flag.StringVar(&o.output, "o", "zoomshot.png", "output file")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()
	return o
}

func main() {
	if err := run(parseFlags()); err != nil {
		log.Fatal(err)
	}
}

func run(o options) error {
	if o.verbose {
		deepzoom.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if o.width <= 0 || o.height <= 0 {
		return fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	ss := max(1, o.supersample)

	sessOpts := []deepzoom.SessionOption{
		deepzoom.WithSize(o.width*ss, o.height*ss),
		deepzoom.WithMode(deepzoom.Mode(o.mode)),
		deepzoom.WithBackendName(o.backend),
	}
	if o.maxIter > 0 {
		sessOpts = append(sessOpts, deepzoom.WithMaxIter(o.maxIter))
	}
	if o.presets != "" {
		extra, err := loadPresets(o.presets)
		if err != nil {
			return err
		}
		sessOpts = append(sessOpts, deepzoom.WithPresets(extra))
	}
	sess, err := deepzoom.NewSession(sessOpts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer sess.Close()

	if err := setView(sess, o); err != nil {
		return err
	}
	if o.palette != "" {
		p, ok := deepzoom.PaletteByID(o.palette)
		if !ok {
			return fmt.Errorf("unknown palette %q", o.palette)
		}
		sess.SetPalette(p)
	}

	if err := sess.Frame(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	frame, err := sess.Pixels()
	if err != nil {
		return fmt.Errorf("readback: %w", err)
	}

	if o.probe != "" {
		x, y, err := parsePoint(o.probe)
		if err != nil {
			return err
		}
		drawProbe(frame, sess.View(), sess.Probe(x*float64(ss), y*float64(ss)), float64(ss))
	}

	out := image.NewRGBA(image.Rect(0, 0, o.width, o.height))
	if ss == 1 {
		copy(out.Pix, frame.Pix)
	} else {
		xdraw.CatmullRom.Scale(out, out.Bounds(), frame, frame.Bounds(), xdraw.Src, nil)
	}

	if o.caption {
		if err := drawCaption(out, captionFor(sess)); err != nil {
			return err
		}
	}

	if err := writePNG(o.output, out); err != nil {
		return err
	}
	log.Printf("%s: %dx%d, %s, backend %s", o.output, o.width, o.height, sess.Mode(), sess.Backend().Name())
	return nil
}

// setView applies -view, then -preset. A partly readable token still
// applies the fields it could decode.
func setView(sess *deepzoom.Session, o options) error {
	if o.view != "" {
		st, err := deepzoom.DecodeViewState(o.view)
		if err != nil {
			log.Printf("view state: %v (using what could be read)", err)
		}
		if err := sess.ApplyViewState(st); err != nil {
			return fmt.Errorf("apply view: %w", err)
		}
	}
	if o.preset == "" {
		return nil
	}
	p, err := deepzoom.FindPreset(sess.Presets(), o.preset)
	if err != nil {
		return err
	}
	mode := p.Mode
	if mode == "" {
		mode = sess.Mode()
	}
	if err := sess.ApplyViewState(deepzoom.ViewState{
		Mode:     mode,
		Pan:      p.Pan,
		Zoom:     p.Zoom,
		Rotation: p.Rotation,
	}); err != nil {
		return fmt.Errorf("apply preset: %w", err)
	}
	if pf, ok := sess.Fractal().(deepzoom.Parametric); ok && len(p.Params) > 0 {
		pf.SetParams(p.Params)
	}
	if pal, ok := deepzoom.PaletteByID(p.PaletteID); ok {
		sess.SetPalette(pal)
	}
	return nil
}

func parsePoint(s string) (x, y float64, err error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("point %q: want x,y", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err := errors.Join(errX, errY); err != nil {
		return 0, 0, fmt.Errorf("point %q: %w", s, err)
	}
	return x, y, nil
}

func loadPresets(path string) ([]deepzoom.Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return deepzoom.LoadPresets(f, deepzoom.ViewDefaults{Zoom: 3})
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
