package renderer

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	label  string
	size   uint64
	usage  wgpu.BufferUsage
	buffer *wgpu.Buffer
}

func (b *wgpuBuffer) Label() string {
	return b.label
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *wgpuBuffer) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

type wgpuBindGroup struct {
	label  string
	layout *wgpu.BindGroupLayout
	group  *wgpu.BindGroup
}

func (g *wgpuBindGroup) Label() string {
	return g.label
}

func (g *wgpuBindGroup) Release() {
	if g.group != nil {
		g.group.Release()
		g.group = nil
	}
	if g.layout != nil {
		g.layout.Release()
		g.layout = nil
	}
}

type wgpuRenderPipeline struct {
	label            string
	module           *wgpu.ShaderModule
	bindGroupLayouts []*wgpu.BindGroupLayout
	layout           *wgpu.PipelineLayout
	pipeline         *wgpu.RenderPipeline
}

func (p *wgpuRenderPipeline) Label() string {
	return p.label
}

func (p *wgpuRenderPipeline) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	p.bindGroupLayouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// wgpuFrame holds the per-frame GPU objects between BeginFrame and Present.
type wgpuFrame struct {
	ctx     *wgpuContextImpl
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type wgpuContextImpl struct {
	mu   *sync.Mutex
	opts *contextOptions

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	width, height int

	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	// frame is the frame between BeginFrame and Present, nil otherwise.
	frame *wgpuFrame
}

var _ Context = &wgpuContextImpl{}

// NewWGPUContext creates the WebGPU instance, surface, adapter, device, and queue for the given
// window surface and configures the surface at the given size. The calling goroutine is locked
// to its OS thread since surface presentation must happen on the thread that owns the window.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually from window.Window.SurfaceDescriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: functional options for present mode, MSAA, clear color, and adapter selection
//
// Returns:
//   - Context: the created context
//   - error: an error if any part of the device bootstrap failed
func NewWGPUContext(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...ContextBuilderOption) (Context, error) {
	runtime.LockOSThread()

	opts := defaultContextOptions()
	for _, opt := range options {
		opt(opts)
	}
	if opts.sampleCount != MSAAOff && opts.sampleCount != MSAA4x {
		return nil, fmt.Errorf("unsupported MSAA sample count %d: %w", opts.sampleCount, ErrInvalidUsage)
	}
	if surfaceDescriptor == nil {
		return nil, fmt.Errorf("nil surface descriptor: %w", ErrSurfaceUnavailable)
	}

	c := &wgpuContextImpl{
		mu:       &sync.Mutex{},
		opts:     opts,
		instance: wgpu.CreateInstance(nil),
	}
	c.surface = c.instance.CreateSurface(surfaceDescriptor)

	a, err := c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: opts.forceFallbackAdapter,
		CompatibleSurface:    c.surface,
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	c.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		c.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	c.device = d
	c.queue = d.GetQueue()

	switch opts.presentMode {
	case PresentModeUncapped:
		c.presentMode = wgpu.PresentModeImmediate
	default:
		c.presentMode = wgpu.PresentModeFifo
	}

	c.Configure(width, height)
	return c, nil
}

func (c *wgpuContextImpl) Configure(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configure(width, height)
}

// configure rebuilds the surface configuration and the depth and MSAA attachments.
// A zero-sized surface (minimized window) is recorded but not configured; BeginFrame reports
// it as unavailable until a non-zero size arrives.
func (c *wgpuContextImpl) configure(width, height int) {
	c.width, c.height = width, height
	c.releaseAttachments()
	if width <= 0 || height <= 0 {
		return
	}

	capabilities := c.surface.GetCapabilities(c.adapter)
	c.surfaceFormat = common.Coalesce(c.opts.surfaceFormat, capabilities.Formats[0])

	c.surface.Configure(c.adapter, c.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      c.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: c.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(c.opts.sampleCount)
	msaaEnabled := count > 1

	var err error
	if msaaEnabled {
		// The pass draws into the MSAA texture and resolves into the surface image.
		c.msaaTexture, err = c.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        c.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			log.Printf("[Renderer] failed to create MSAA texture: %v", err)
			return
		}
		c.msaaTextureView, err = c.msaaTexture.CreateView(nil)
		if err != nil {
			log.Printf("[Renderer] failed to create MSAA texture view: %v", err)
			return
		}
	}

	// Depth texture sample count must match the color attachment.
	c.depthTexture, err = c.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		log.Printf("[Renderer] failed to create depth texture: %v", err)
		return
	}
	c.depthTextureView, err = c.depthTexture.CreateView(nil)
	if err != nil {
		log.Printf("[Renderer] failed to create depth texture view: %v", err)
		return
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	c.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       c.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: c.opts.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            c.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (c *wgpuContextImpl) releaseAttachments() {
	c.renderPassDescriptor = nil
	if c.msaaTextureView != nil {
		c.msaaTextureView.Release()
		c.msaaTextureView = nil
	}
	if c.msaaTexture != nil {
		c.msaaTexture.Release()
		c.msaaTexture = nil
	}
	if c.depthTextureView != nil {
		c.depthTextureView.Release()
		c.depthTextureView = nil
	}
	if c.depthTexture != nil {
		c.depthTexture.Release()
		c.depthTexture = nil
	}
}

func (c *wgpuContextImpl) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *wgpuContextImpl) SurfaceFormat() wgpu.TextureFormat {
	return c.surfaceFormat
}

func (c *wgpuContextImpl) SampleCount() MSAASampleCount {
	return c.opts.sampleCount
}

func (c *wgpuContextImpl) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q (%d bytes): %w: %w", label, size, ErrAllocationFailure, err)
	}
	return &wgpuBuffer{label: label, size: size, usage: usage, buffer: buf}, nil
}

func (c *wgpuContextImpl) WriteBuffer(b Buffer, offset uint64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wb, err := c.liveBuffer(b)
	if err != nil {
		return err
	}
	if err := checkWriteRange(wb.label, wb.size, offset, uint64(len(data))); err != nil {
		return err
	}
	if err := c.queue.WriteBuffer(wb.buffer, offset, data); err != nil {
		return fmt.Errorf("failed to write buffer %q: %w", wb.label, err)
	}
	return nil
}

func (c *wgpuContextImpl) ReadBuffer(b Buffer, offset, size uint64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wb, err := c.liveBuffer(b)
	if err != nil {
		return nil, err
	}
	if err := checkReadRange(wb.label, wb.size, offset, size); err != nil {
		return nil, err
	}
	if wb.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("buffer %q was not created with CopySrc usage: %w", wb.label, ErrInvalidUsage)
	}

	alignedSize := common.AlignSize(size)
	staging, err := c.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: wb.label + " Readback",
		Size:  alignedSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readback buffer: %w: %w", ErrAllocationFailure, err)
	}
	defer staging.Release()

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(wb.buffer, offset, staging, 0, alignedSize)
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return nil, err
	}
	c.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, alignedSize, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, fmt.Errorf("failed to map readback buffer: %w", err)
	}
	c.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.New("readback buffer map was not successful")
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(alignedSize)))
	staging.Unmap()
	return out, nil
}

func (c *wgpuContextImpl) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	groupEntries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		wb, err := c.liveBuffer(e.Buffer)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", e.Binding, err)
		}
		layoutEntries[i] = toWGPULayoutEntry(e.BindGroupLayoutEntry)
		groupEntries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  wb.buffer,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	layout, err := c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layout %q: %w", desc.Label, err)
	}
	group, err := c.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: groupEntries,
	})
	if err != nil {
		layout.Release()
		return nil, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	return &wgpuBindGroup{label: desc.Label, layout: layout, group: group}, nil
}

func (c *wgpuContextImpl) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rp := &wgpuRenderPipeline{label: desc.Label}

	module, err := c.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrShaderCompileFailure, err)
	}
	rp.module = module

	for g, entries := range desc.BindGroupLayouts {
		layoutEntries := make([]wgpu.BindGroupLayoutEntry, len(entries))
		for i, e := range entries {
			layoutEntries[i] = toWGPULayoutEntry(e)
		}
		layout, layoutErr := c.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Group %d", desc.Label, g),
			Entries: layoutEntries,
		})
		if layoutErr != nil {
			rp.Release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		rp.bindGroupLayouts = append(rp.bindGroupLayouts, layout)
	}

	rp.layout, err = c.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: rp.bindGroupLayouts,
	})
	if err != nil {
		rp.Release()
		return nil, err
	}

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexLayouts))
	for _, vl := range desc.VertexLayouts {
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: vl.ArrayStride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  vl.Attributes,
		})
	}

	depthCompare := wgpu.CompareFunctionLess
	if !desc.DepthTestEnabled {
		depthCompare = wgpu.CompareFunctionAlways
	}

	rp.pipeline, err = c.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: rp.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    c.surfaceFormat,
					WriteMask: desc.WriteMask,
					Blend:     desc.Blend,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: desc.SampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: desc.DepthWriteEnabled,
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		rp.Release()
		return nil, fmt.Errorf("%w: %w", ErrShaderCompileFailure, err)
	}

	return rp, nil
}

func (c *wgpuContextImpl) BeginFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Acquiring a second image before the first is presented is a wgpu-native validation error.
	if c.frame != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented: %w", ErrInvalidUsage)
	}
	if c.renderPassDescriptor == nil {
		return nil, fmt.Errorf("surface is not configured (%dx%d): %w", c.width, c.height, ErrSurfaceUnavailable)
	}

	surfaceTexture, err := c.surface.GetCurrentTexture()
	if err != nil {
		log.Printf("[Renderer] surface acquire failed, reconfiguring at %dx%d: %v", c.width, c.height, err)
		c.configure(c.width, c.height)
		return nil, fmt.Errorf("failed to acquire surface texture: %w: %w", ErrSurfaceUnavailable, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("failed to create surface view: %w: %w", ErrSurfaceUnavailable, err)
	}

	encoder, err := c.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}

	// With MSAA the surface view is the resolve target, otherwise it is the attachment itself.
	if c.opts.sampleCount > 1 {
		c.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		c.renderPassDescriptor.ColorAttachments[0].View = view
	}

	c.frame = &wgpuFrame{
		ctx:     c,
		encoder: encoder,
		pass:    encoder.BeginRenderPass(c.renderPassDescriptor),
		texture: surfaceTexture,
		view:    view,
	}
	return c.frame, nil
}

func (c *wgpuContextImpl) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseAttachments()
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}

// liveBuffer unwraps a Buffer handle created by this context.
func (c *wgpuContextImpl) liveBuffer(b Buffer) (*wgpuBuffer, error) {
	wb, ok := b.(*wgpuBuffer)
	if !ok || wb == nil {
		return nil, fmt.Errorf("buffer %T was not created by this context: %w", b, ErrInvalidUsage)
	}
	if wb.buffer == nil {
		return nil, fmt.Errorf("buffer %q used after release: %w", wb.label, ErrInvalidUsage)
	}
	return wb, nil
}

func (f *wgpuFrame) SetPipeline(p RenderPipeline) {
	if rp, ok := p.(*wgpuRenderPipeline); ok && rp.pipeline != nil {
		f.pass.SetPipeline(rp.pipeline)
	}
}

func (f *wgpuFrame) SetVertexBuffer(slot uint32, b Buffer) {
	if wb, ok := b.(*wgpuBuffer); ok && wb.buffer != nil {
		f.pass.SetVertexBuffer(slot, wb.buffer, 0, wgpu.WholeSize)
	}
}

func (f *wgpuFrame) SetIndexBuffer(b Buffer, format wgpu.IndexFormat) {
	if wb, ok := b.(*wgpuBuffer); ok && wb.buffer != nil {
		f.pass.SetIndexBuffer(wb.buffer, format, 0, wgpu.WholeSize)
	}
}

func (f *wgpuFrame) SetBindGroup(index uint32, g BindGroup) {
	if wg, ok := g.(*wgpuBindGroup); ok && wg.group != nil {
		f.pass.SetBindGroup(index, wg.group, nil)
	}
}

func (f *wgpuFrame) Draw(vertexCount, instanceCount uint32) {
	f.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (f *wgpuFrame) DrawIndexed(indexCount, instanceCount uint32) {
	f.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (f *wgpuFrame) Submit() error {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	if f.pass == nil {
		return fmt.Errorf("frame already submitted: %w", ErrInvalidUsage)
	}
	f.pass.End()
	f.pass = nil

	commandBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		f.encoder.Release()
		f.encoder = nil
		f.release()
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}

	f.ctx.queue.Submit(commandBuffer)
	commandBuffer.Release()
	f.encoder.Release()
	f.encoder = nil
	return nil
}

func (f *wgpuFrame) Present() {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	if f.texture == nil {
		return
	}
	f.ctx.surface.Present()
	f.release()
}

// release drops the surface image and view and detaches the frame from its context.
func (f *wgpuFrame) release() {
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.texture != nil {
		f.texture.Release()
		f.texture = nil
	}
	if f.ctx.frame == f {
		f.ctx.frame = nil
	}
}

func toWGPULayoutEntry(e BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: e.Visibility,
	}
	entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	entry.Buffer.MinBindingSize = e.Size
	return entry
}

// checkWriteRange validates a queue write against the destination buffer's bounds and
// WebGPU's 4-byte alignment of both offset and length.
func checkWriteRange(label string, bufferSize, offset, length uint64) error {
	if offset%common.BufferAlignment != 0 {
		return fmt.Errorf("write offset %d into buffer %q is not 4-byte aligned: %w", offset, label, ErrInvalidUsage)
	}
	if length%common.BufferAlignment != 0 {
		return fmt.Errorf("write of %d bytes into buffer %q is not a multiple of 4: %w", length, label, ErrInvalidUsage)
	}
	if offset+length > bufferSize {
		return fmt.Errorf("write of %d bytes at offset %d overruns buffer %q (%d bytes): %w", length, offset, label, bufferSize, ErrInvalidUsage)
	}
	return nil
}

// checkReadRange validates a read-back against the source buffer's bounds. The copy into the
// staging buffer needs a 4-byte aligned offset; the size is rounded up by the caller.
func checkReadRange(label string, bufferSize, offset, size uint64) error {
	if offset%common.BufferAlignment != 0 {
		return fmt.Errorf("read offset %d from buffer %q is not 4-byte aligned: %w", offset, label, ErrInvalidUsage)
	}
	if offset+size > bufferSize {
		return fmt.Errorf("read of %d bytes at offset %d overruns buffer %q (%d bytes): %w", size, offset, label, bufferSize, ErrInvalidUsage)
	}
	return nil
}
