//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/deepzoom"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// orbitTexelSize is the byte size of one RGBA32Float texel.
const orbitTexelSize = 16

// Program is a fractal render pipeline: a fullscreen triangle whose fragment
// stage evaluates the fractal, a uniform buffer and, for perturbation
// programs, the reference orbit texture at binding 1.
type Program struct {
	backend *Backend
	desc    deepzoom.ProgramDesc

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.RenderPipeline
	uniforms   hal.Buffer
	orbit      hal.Texture
	orbitView  hal.TextureView
	bindGroup  hal.BindGroup

	released bool
}

var _ deepzoom.Program = (*Program)(nil)

func (p *Program) create(device hal.Device, words []uint32) error {
	label := p.desc.Label
	shader, err := createShaderModule(device, label, words)
	if err != nil {
		return fmt.Errorf("%w: %s: create shader module: %w", deepzoom.ErrProgramInvalid, label, err)
	}
	p.shader = shader

	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
	}
	if p.desc.OrbitWidth > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    targetFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %s: create render pipeline: %w", deepzoom.ErrProgramInvalid, label, err)
	}
	p.pipeline = pipeline

	uniforms, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_uniforms",
		Size:  deepzoom.UniformBlockSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	p.uniforms = uniforms

	bindEntries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: uniforms.NativeHandle(), Offset: 0, Size: deepzoom.UniformBlockSize}},
	}
	if p.desc.OrbitWidth > 0 {
		if err := p.createOrbit(device); err != nil {
			return err
		}
		bindEntries = append(bindEntries, gputypes.BindGroupEntry{
			Binding:  1,
			Resource: gputypes.TextureViewBinding{TextureView: gputypes.TextureViewHandle(p.orbitView.NativeHandle())},
		})
	}
	bindGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label + "_bind",
		Layout:  p.bindLayout,
		Entries: bindEntries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	p.bindGroup = bindGroup
	return nil
}

func (p *Program) createOrbit(device hal.Device) error {
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         p.desc.Label + "_orbit",
		Size:          hal.Extent3D{Width: uint32(p.desc.OrbitWidth), Height: 1, DepthOrArrayLayers: 1}, //nolint:gosec // orbit width is MaxIter
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA32Float,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create orbit texture: %w", err)
	}
	p.orbit = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         p.desc.Label + "_orbit_view",
		Format:        gputypes.TextureFormatRGBA32Float,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create orbit view: %w", err)
	}
	p.orbitView = view
	return nil
}

// UploadOrbit writes data into the orbit texture starting at texel 0.
// Texels past len(data)/4 keep their previous contents; the shader never
// reads past the reference escape index.
func (p *Program) UploadOrbit(data []float32) error {
	b := p.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return err
	}
	if p.orbit == nil {
		return fmt.Errorf("gpu: program %q has no orbit texture", p.desc.Label)
	}
	texels := len(data) / 4
	if texels == 0 {
		return nil
	}
	if texels > p.desc.OrbitWidth {
		return fmt.Errorf("gpu: orbit of %d entries exceeds texture width %d", texels, p.desc.OrbitWidth)
	}

	buf := make([]byte, 0, texels*orbitTexelSize)
	for _, f := range data[:texels*4] {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  p.orbit,
			MipLevel: 0,
		},
		buf,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(texels * orbitTexelSize), //nolint:gosec // bounded by orbit width
			RowsPerImage: 1,
		},
		&hal.Extent3D{Width: uint32(texels), Height: 1, DepthOrArrayLayers: 1}, //nolint:gosec // bounded by orbit width
	)
	return nil
}

// Draw writes the uniform block and renders one fullscreen triangle into
// the backend target. The submit is not waited on.
func (p *Program) Draw(u *deepzoom.Uniforms) error {
	b := p.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := p.usableLocked(); err != nil {
		return err
	}
	if b.targetView == nil {
		return ErrNotInitialized
	}
	b.queue.WriteBuffer(p.uniforms, 0, u.Bytes())

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.desc.Label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(p.desc.Label + "_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: p.desc.Label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       b.targetView,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	_, err = b.submitLocked(cmd)
	return err
}

func (p *Program) usableLocked() error {
	if p.backend.lost {
		return ErrDeviceLost
	}
	if p.released {
		return fmt.Errorf("%w: %s was released", deepzoom.ErrProgramInvalid, p.desc.Label)
	}
	return nil
}

// Destroy releases the program. Safe to call more than once and after
// the device was lost.
func (p *Program) Destroy() {
	b := p.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	p.destroyLocked()
	delete(b.programs, p)
}

func (p *Program) destroyLocked() {
	if p.released {
		return
	}
	p.released = true
	device := p.backend.device
	if device == nil {
		return
	}
	if p.bindGroup != nil {
		device.DestroyBindGroup(p.bindGroup)
	}
	if p.orbitView != nil {
		device.DestroyTextureView(p.orbitView)
	}
	if p.orbit != nil {
		device.DestroyTexture(p.orbit)
	}
	if p.uniforms != nil {
		device.DestroyBuffer(p.uniforms)
	}
	if p.pipeline != nil {
		device.DestroyRenderPipeline(p.pipeline)
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.shader != nil {
		device.DestroyShaderModule(p.shader)
	}
}
