package deepzoom

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
)

// fakeBackend records what the render loop asks of a backend.
type fakeBackend struct {
	name        string
	progressive bool
	failBuild   bool

	builds    int
	recovers  int
	closed    bool
	width     int
	height    int
	loseNext  bool
	lastDraw  Uniforms
	draws     int
	uploads   int
	lastOrbit []float32
	live      int
	maxLive   int

	timing   bool
	latency  int // frames before a sample becomes readable
	script   []TimerSample
	frame    int
	inflight []fakeSample
}

type fakeSample struct {
	issued int
	s      TimerSample
}

type fakeProgram struct {
	b         *fakeBackend
	destroyed bool
}

func newFakeBackend() *fakeBackend { return &fakeBackend{name: "fake"} }

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) BuildProgram(desc ProgramDesc) (Program, error) {
	b.builds++
	if b.failBuild || !strings.Contains(desc.Source, "fs_main") {
		return nil, fmt.Errorf("%w: %s: entry point fs_main missing", ErrProgramInvalid, desc.Label)
	}
	b.live++
	b.maxLive = max(b.maxLive, b.live)
	return &fakeProgram{b: b}, nil
}

func (b *fakeBackend) Resize(w, h int) error {
	b.width, b.height = w, h
	return nil
}

func (b *fakeBackend) ReadPixels(dst *image.RGBA) error { return nil }

func (b *fakeBackend) Recover() error {
	b.recovers++
	return nil
}

func (b *fakeBackend) Close() { b.closed = true }

func (b *fakeBackend) Progressive() bool { return b.progressive }

func (p *fakeProgram) UploadOrbit(data []float32) error {
	p.b.uploads++
	p.b.lastOrbit = append(p.b.lastOrbit[:0], data...)
	return nil
}

func (p *fakeProgram) Draw(u *Uniforms) error {
	if p.b.loseNext {
		p.b.loseNext = false
		return fmt.Errorf("fake: submit: %w", ErrContextLost)
	}
	p.b.draws++
	p.b.lastDraw = *u
	return nil
}

func (p *fakeProgram) Destroy() {
	if !p.destroyed {
		p.destroyed = true
		p.b.live--
	}
}

// timedBackend adds the TimerQuery capability to fakeBackend.
type timedBackend struct{ *fakeBackend }

func (b timedBackend) BeginTimer() { b.frame++ }

func (b timedBackend) EndTimer() {
	if len(b.script) == 0 {
		return
	}
	b.inflight = append(b.inflight, fakeSample{issued: b.frame, s: b.script[0]})
	b.script = b.script[1:]
}

func (b timedBackend) PollTimer() (TimerSample, bool) {
	if len(b.inflight) == 0 || b.frame < b.inflight[0].issued+b.latency {
		return TimerSample{}, false
	}
	s := b.inflight[0].s
	b.inflight = b.inflight[1:]
	return s, true
}

func TestOpenBackendPrefersPriority(t *testing.T) {
	saved := backendReg
	t.Cleanup(func() { backendReg = saved })
	backendReg = nil

	RegisterBackend("slow", 10, func() (Backend, error) { return &fakeBackend{name: "slow"}, nil })
	RegisterBackend("broken", 100, func() (Backend, error) { return nil, errors.New("no adapter") })

	if got := Backends(); len(got) != 2 || got[0] != "broken" {
		t.Fatalf("Backends() = %v, want broken first", got)
	}
	b, err := OpenBackend("")
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer CloseBackend(b)
	if b.Name() != "slow" {
		t.Errorf("OpenBackend picked %q, want fallback %q", b.Name(), "slow")
	}

	if _, err := OpenBackend("broken"); !errors.Is(err, ErrNoBackend) {
		t.Errorf("OpenBackend(broken) error = %v, want ErrNoBackend", err)
	}
	if _, err := OpenBackend("missing"); !errors.Is(err, ErrNoBackend) {
		t.Errorf("OpenBackend(missing) error = %v, want ErrNoBackend", err)
	}
}

func TestCloseBackendUntracks(t *testing.T) {
	fb := newFakeBackend()
	trackBackend(fb)
	CloseBackend(fb)
	if !fb.closed {
		t.Error("backend not closed")
	}
	backendMu.RLock()
	_, live := liveBackends[fb]
	backendMu.RUnlock()
	if live {
		t.Error("closed backend still tracked")
	}
}
