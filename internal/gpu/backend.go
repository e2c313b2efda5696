//go:build !nogpu

package gpu

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BackendGPU is the identifier for the GPU backend.
const BackendGPU = "gpu"

// targetFormat is the offscreen color format. It matches image.RGBA so
// readback needs no swizzle.
const targetFormat = gputypes.TextureFormatRGBA8Unorm

// waitTimeout bounds a blocking fence wait. A longer stall is treated as a
// lost device.
const waitTimeout = 5 * time.Second

// copyPitchAlignment is the WebGPU row pitch alignment for buffer copies.
const copyPitchAlignment = 256

// Backend renders fractal programs into an offscreen texture with wgpu/hal.
//
// The backend owns its Vulkan device unless SetDeviceProvider hands it a
// shared one. Work is submitted without waiting; ReadPixels and fence
// polling observe completion.
type Backend struct {
	mu sync.Mutex

	instance    hal.Instance
	device      hal.Device
	queue       hal.Queue
	external    bool // shared device, never destroyed here
	adapterName string

	width, height uint32
	target        hal.Texture
	targetView    hal.TextureView

	fence      hal.Fence
	fenceValue uint64
	inflight   []inflightCmd
	lost       bool

	programs map[*Program]struct{}
	timer    fenceTimer
	now      func() time.Time
}

type inflightCmd struct {
	buf   hal.CommandBuffer
	value uint64
}

var (
	_ deepzoom.Backend    = (*Backend)(nil)
	_ deepzoom.TimerQuery = (*Backend)(nil)
)

// New opens the first Vulkan adapter, preferring discrete and integrated
// GPUs over software implementations.
func New() (*Backend, error) {
	b := newBackend()
	if err := b.openDevice(); err != nil {
		return nil, err
	}
	if err := b.createFence(); err != nil {
		b.closeDevice()
		return nil, err
	}
	return b, nil
}

// NewWithDevice wraps an existing device and queue. The caller keeps
// ownership: Close does not destroy them.
func NewWithDevice(device hal.Device, queue hal.Queue) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNotInitialized
	}
	b := newBackend()
	b.device = device
	b.queue = queue
	b.external = true
	b.adapterName = "external"
	if err := b.createFence(); err != nil {
		return nil, err
	}
	return b, nil
}

func newBackend() *Backend {
	return &Backend{
		programs: make(map[*Program]struct{}),
		now:      time.Now,
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendGPU }

// Adapter returns the name of the device the backend renders on.
func (b *Backend) Adapter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adapterName
}

// SetLogger receives the logger from deepzoom.SetLogger.
func (b *Backend) SetLogger(l *slog.Logger) { setLogger(l) }

func (b *Backend) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", ErrNoGPU)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoGPU
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("open device: %w", err)
	}
	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.adapterName = selected.Info.Name
	slogger().Info("gpu: device opened", "adapter", b.adapterName)
	return nil
}

func (b *Backend) createFence() error {
	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	b.fence = fence
	b.fenceValue = 0
	return nil
}

// SetDeviceProvider switches the backend to a shared GPU device from an
// external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
//
// Programs built on the previous device are invalid afterwards; the next
// Draw reports a lost context so the renderer rebuilds them.
func (b *Backend) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()
	b.closeDevice()
	b.device = device
	b.queue = queue
	b.external = true
	b.adapterName = "shared"
	if err := b.createFence(); err != nil {
		return err
	}
	if b.width > 0 && b.height > 0 {
		if err := b.ensureTargetLocked(b.width, b.height); err != nil {
			return err
		}
	}
	b.lost = true
	slogger().Info("gpu: switched to shared GPU device")
	return nil
}

// Resize recreates the render target.
func (b *Backend) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpu: invalid size %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return ErrNotInitialized
	}
	return b.ensureTargetLocked(uint32(width), uint32(height)) //nolint:gosec // checked positive
}

// Size returns the render target size.
func (b *Backend) Size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.width), int(b.height)
}

func (b *Backend) ensureTargetLocked(w, h uint32) error {
	if b.width == w && b.height == h && b.target != nil {
		return nil
	}
	b.waitIdleLocked()
	b.destroyTargetLocked()

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "deepzoom_target",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        targetFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create target texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "deepzoom_target_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return fmt.Errorf("create target view: %w", err)
	}
	b.target = tex
	b.targetView = view
	b.width = w
	b.height = h
	return nil
}

func (b *Backend) destroyTargetLocked() {
	if b.device == nil {
		return
	}
	if b.targetView != nil {
		b.device.DestroyTextureView(b.targetView)
		b.targetView = nil
	}
	if b.target != nil {
		b.device.DestroyTexture(b.target)
		b.target = nil
	}
}

// BuildProgram compiles desc.Source and creates its pipeline, uniform
// buffer and, for perturbation programs, the orbit texture.
func (b *Backend) BuildProgram(desc deepzoom.ProgramDesc) (deepzoom.Program, error) {
	words, err := compileWGSL(desc.Label, desc.Source)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device == nil {
		return nil, ErrNotInitialized
	}
	if b.lost {
		return nil, ErrDeviceLost
	}
	p := &Program{backend: b, desc: desc}
	if err := p.create(b.device, words); err != nil {
		p.destroyLocked()
		return nil, err
	}
	b.programs[p] = struct{}{}
	slogger().Info("gpu: program built", "label", desc.Label, "orbit_width", desc.OrbitWidth)
	return p, nil
}

// submitLocked submits cmd and signals the next fence value. The command
// buffer is freed once the fence passes it.
func (b *Backend) submitLocked(cmd hal.CommandBuffer) (uint64, error) {
	b.reclaimLocked()
	b.fenceValue++
	if err := b.queue.Submit([]hal.CommandBuffer{cmd}, b.fence, b.fenceValue); err != nil {
		b.device.FreeCommandBuffer(cmd)
		b.markLostLocked(err)
		return 0, fmt.Errorf("%w: submit: %w", ErrDeviceLost, err)
	}
	b.inflight = append(b.inflight, inflightCmd{buf: cmd, value: b.fenceValue})
	return b.fenceValue, nil
}

// waitLocked blocks until the fence reaches value.
func (b *Backend) waitLocked(value uint64) error {
	ok, err := b.device.Wait(b.fence, value, waitTimeout)
	if err != nil || !ok {
		b.markLostLocked(err)
		return fmt.Errorf("%w: wait for fence %d: ok=%v err=%v", ErrDeviceLost, value, ok, err)
	}
	b.reclaimLocked()
	return nil
}

// completedLocked reports whether the fence has reached value, without
// blocking.
func (b *Backend) completedLocked(value uint64) bool {
	ok, err := b.device.Wait(b.fence, value, 0)
	return err == nil && ok
}

func (b *Backend) reclaimLocked() {
	n := 0
	for _, c := range b.inflight {
		if !b.completedLocked(c.value) {
			break
		}
		b.device.FreeCommandBuffer(c.buf)
		n++
	}
	b.inflight = b.inflight[n:]
}

func (b *Backend) waitIdleLocked() {
	if b.lost || b.fence == nil || len(b.inflight) == 0 {
		return
	}
	_ = b.waitLocked(b.fenceValue)
}

func (b *Backend) markLostLocked(err error) {
	if b.lost {
		return
	}
	b.lost = true
	slogger().Warn("gpu: device lost", "err", err)
}

// ReadPixels copies the render target into dst.
func (b *Backend) ReadPixels(dst *image.RGBA) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lost {
		return ErrDeviceLost
	}
	if b.target == nil {
		return ErrNotInitialized
	}
	w, h := b.width, b.height
	if dst.Bounds().Dx() != int(w) || dst.Bounds().Dy() != int(h) {
		return fmt.Errorf("%w: got %v, target %dx%d", ErrTargetSize, dst.Bounds(), w, h)
	}

	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "deepzoom_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer b.device.DestroyBuffer(staging)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "deepzoom_readback"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("deepzoom_readback"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(b.target, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: b.target, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: b.target,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	value, err := b.submitLocked(cmd)
	if err != nil {
		return err
	}
	if err := b.waitLocked(value); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := b.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	for row := 0; row < int(h); row++ {
		src := readback[row*int(alignedBytesPerRow):]
		copy(dst.Pix[row*dst.Stride:row*dst.Stride+int(bytesPerRow)], src[:bytesPerRow])
	}
	return nil
}

// Recover re-creates device resources after a loss. A backend that owns
// its device reopens it; a shared device is reused.
func (b *Backend) Recover() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()
	if !b.external {
		b.closeDevice()
		if err := b.openDevice(); err != nil {
			return err
		}
	}
	if b.device == nil {
		return ErrNotInitialized
	}
	if err := b.createFence(); err != nil {
		return err
	}
	if b.width > 0 && b.height > 0 {
		w, h := b.width, b.height
		b.width, b.height = 0, 0
		if err := b.ensureTargetLocked(w, h); err != nil {
			return err
		}
	}
	b.lost = false
	slogger().Info("gpu: device recovered", "adapter", b.adapterName)
	return nil
}

// releaseLocked drops every device object except the device itself.
// Programs built before the call become unusable.
func (b *Backend) releaseLocked() {
	if b.device == nil {
		return
	}
	b.waitIdleLocked()
	for p := range b.programs {
		p.destroyLocked()
	}
	clear(b.programs)
	for _, c := range b.inflight {
		b.device.FreeCommandBuffer(c.buf)
	}
	b.inflight = nil
	b.timer.reset()
	b.destroyTargetLocked()
	if b.fence != nil {
		b.device.DestroyFence(b.fence)
		b.fence = nil
	}
}

func (b *Backend) closeDevice() {
	if !b.external {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.queue = nil
	b.instance = nil
}

// Close releases all backend resources.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.closeDevice()
	b.width, b.height = 0, 0
	slogger().Info("gpu: backend closed")
}
