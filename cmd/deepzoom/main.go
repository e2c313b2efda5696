// Command deepzoom is the interactive fractal explorer.
//
// It opens a gogpu window, renders the session offscreen on the best
// available backend and presents each frame as a texture. Input arrives
// over a websocket (-listen) as JSON gestures; Space toggles the preset
// tour.
//
// Usage:
//
//	deepzoom -mode julia -listen :8080
//	deepzoom -view 'https://example.org/#eyJ6b29tIjoi...'
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/deepzoom"
	_ "github.com/gogpu/deepzoom/cpu" // software fallback
	"github.com/gogpu/deepzoom/gpu"
	"github.com/gogpu/deepzoom/internal/remote"
)

// statusInterval throttles Status broadcasts to remote clients.
const statusInterval = 250 * time.Millisecond

type options struct {
	width, height int
	mode          string
	backend       string
	presets       string
	view          string
	listen        string
	tour          bool
	dwell         time.Duration
	maxIter       int
	sharedDevice  bool
	verbose       bool
}

func parseFlags() options {
	var o options
	flag.IntVar(&o.width, "width", 1024, "window width")
	flag.IntVar(&o.height, "height", 768, "window height")
	flag.StringVar(&o.mode, "mode", string(deepzoom.ModeMandelbrot), "fractal: mandelbrot, julia, rossler, riemann")
	flag.StringVar(&o.backend, "backend", "", "backend name (gpu, cpu); empty picks the best available")
	flag.StringVar(&o.presets, "presets", "", "JSON file with extra presets")
	flag.StringVar(&o.view, "view", "", "view-state token or URL to start from")
	flag.StringVar(&o.listen, "listen", "", "serve the gesture websocket on this address (e.g. :8080)")
	flag.BoolVar(&o.tour, "tour", false, "start touring the presets")
	flag.DurationVar(&o.dwell, "dwell", 3*time.Second, "time spent at each tour stop")
	flag.IntVar(&o.maxIter, "max-iter", 0, "iteration ceiling and orbit texture width (0 = default)")
	flag.BoolVar(&o.sharedDevice, "shared-device", false, "render on the window's GPU device")
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

	sessOpts := []deepzoom.SessionOption{
		deepzoom.WithSize(o.width, o.height),
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
	log.Printf("backend: %s, mode: %s", sess.Backend().Name(), sess.Mode())

	if o.view != "" {
		st, err := deepzoom.DecodeViewState(o.view)
		if err != nil {
			log.Printf("view state: %v (using what could be read)", err)
		}
		if err := sess.ApplyViewState(st); err != nil {
			log.Printf("apply view state: %v", err)
		}
	}

	var rs *remote.Server
	if o.listen != "" {
		rs = remote.NewServer(64)
		srv := &http.Server{
			Addr:              o.listen,
			Handler:           rs.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("gestures: ws://%s/ws", o.listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("gesture server: %v", err)
			}
		}()
		defer func() {
			rs.Close()
			_ = srv.Close()
		}()
	}

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("deepzoom").
		WithSize(o.width, o.height).
		WithContinuousRender(false))

	var (
		scr        screen
		animToken  *gogpu.AnimationToken
		tour       *deepzoom.Token
		lastStatus time.Time
		frame      int
	)
	if o.tour {
		tour = sess.Tour(nil, o.dwell)
	}

	app.OnDraw(func(dc *gogpu.Context) {
		if frame == 0 {
			log.Printf("window backend: %s", dc.Backend())
			if o.sharedDevice {
				if err := gpu.SetDeviceProvider(sess.Backend(), app.GPUContextProvider()); err != nil {
					log.Printf("shared device: %v", err)
				}
			}
		}
		frame++

		w, h := dc.Width(), dc.Height()
		if w <= 0 || h <= 0 {
			return
		}
		if vw, vh := sess.View().Size(); vw != w || vh != h {
			if err := sess.Resize(w, h); err != nil {
				log.Printf("resize: %v", err)
				return
			}
		}

		if rs != nil {
			drainGestures(sess, rs)
		}
		if err := sess.Frame(); err != nil {
			log.Printf("frame %d: %v", frame, err)
		}
		img, err := sess.Pixels()
		if err != nil {
			log.Printf("readback: %v", err)
			return
		}
		if err := scr.present(dc.AsTextureDrawer(), img.Pix, w, h); err != nil {
			log.Printf("present: %v", err)
		}

		if rs != nil && time.Since(lastStatus) >= statusInterval {
			lastStatus = time.Now()
			rs.Broadcast(remote.StatusOf(sess))
		}

		// Keep rendering at VSync only while something moves.
		switch busy := sess.Busy() || rs != nil; {
		case busy && animToken == nil:
			animToken = app.StartAnimation()
		case !busy && animToken != nil:
			animToken.Stop()
			animToken = nil
		}
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		if key != gpucontext.KeySpace {
			return
		}
		if tour != nil && tour.Running() {
			tour.Cancel()
			tour = nil
			log.Printf("tour stopped")
			return
		}
		tour = sess.Tour(nil, o.dwell)
		log.Printf("touring %d presets", len(sess.Fractal().Presets()))
		if animToken == nil {
			animToken = app.StartAnimation()
		}
	})

	app.OnClose(func() {
		if animToken != nil {
			animToken.Stop()
		}
		scr.destroy()
		if err := sess.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	})

	return app.Run()
}

// drainGestures applies every queued remote gesture.
func drainGestures(sess *deepzoom.Session, rs *remote.Server) {
	for {
		select {
		case g := <-rs.Gestures():
			if err := sess.Apply(g); err != nil {
				log.Printf("gesture %s: %v", g.Kind, err)
			}
		default:
			return
		}
	}
}

func loadPresets(path string) ([]deepzoom.Preset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return deepzoom.LoadPresets(f, deepzoom.ViewDefaults{Zoom: 3})
}
