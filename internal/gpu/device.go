//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/fractal"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// fenceTimeout bounds the wait for one frame. A frame that takes longer
// is reported as a device failure rather than hanging the host.
const fenceTimeout = 5 * time.Second

// initialPaletteEntries is the palette buffer capacity allocated up front.
// The buffer grows when a view asks for more iterations.
const initialPaletteEntries = 1024

var errClosed = errors.New("gpu: device closed")

// ComputeDevice runs the escape-time and colorize kernels on a GPU through
// wgpu/hal. It implements fractal.Device.
//
// All buffers are created once for the image size given to Open and reused
// by every frame. A frame is one command buffer holding the escape pass, the
// colorize pass and a copy of the colors into a mappable staging buffer.
// The boundary between the two compute passes orders the colorize reads
// after the escape writes.
type ComputeDevice struct {
	mu sync.Mutex

	instance    hal.Instance
	device      hal.Device
	queue       hal.Queue
	external    bool // shared device; not destroyed on Close
	adapterName string

	width, height int

	escapeShader       hal.ShaderModule
	escapeBindLayout   hal.BindGroupLayout
	escapePipeLayout   hal.PipelineLayout
	escapePipeline     hal.ComputePipeline
	colorizeShader     hal.ShaderModule
	colorizeBindLayout hal.BindGroupLayout
	colorizePipeLayout hal.PipelineLayout
	colorizePipeline   hal.ComputePipeline

	paramsBuf  hal.Buffer
	iterBuf    hal.Buffer
	paletteBuf hal.Buffer
	colorBuf   hal.Buffer
	stagingBuf hal.Buffer
	paletteCap int

	escapeBind   hal.BindGroup
	colorizeBind hal.BindGroup

	// uploaded is the palette table last written to paletteBuf.
	uploaded []uint32
}

var _ fractal.Device = (*ComputeDevice)(nil)

// Open creates a GPU compute device for cfg. It is registered as the
// fractal "gpu" device factory.
//
// The kernels evaluate in float32, so Open fails with
// fractal.ErrPrecisionUnsupported when cfg.MinPrecision is higher.
func Open(cfg fractal.DeviceConfig) (fractal.Device, error) {
	if cfg.MinPrecision > fractal.Float32 {
		return nil, fmt.Errorf("%w: gpu kernels evaluate in %s, need %s",
			fractal.ErrPrecisionUnsupported, fractal.Float32, cfg.MinPrecision)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", fractal.ErrInvalidDimensions, cfg.Width, cfg.Height)
	}

	d := &ComputeDevice{width: cfg.Width, height: cfg.Height}
	var err error
	if cfg.Provider != nil {
		err = d.useProvider(cfg.Provider)
	} else {
		err = d.openStandalone()
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %w", fractal.ErrDeviceUnavailable, err)
	}

	if err := d.createPipelines(); err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: create pipelines: %w", fractal.ErrDeviceUnavailable, err)
	}
	if err := d.createBuffers(); err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %w", fractal.ErrDeviceUnavailable, err)
	}

	slogger().Info("gpu compute device ready",
		"adapter", d.adapterName, "shared", d.external, "width", d.width, "height", d.height)
	return d, nil
}

func (d *ComputeDevice) openStandalone() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
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
		return fmt.Errorf("open device: %w", err)
	}
	d.device = openDev.Device
	d.queue = openDev.Queue
	d.adapterName = selected.Info.Name
	return nil
}

// useProvider adopts a device owned by the host. The provider must expose
// HalDevice() and HalQueue() returning hal.Device and hal.Queue.
func (d *ComputeDevice) useProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("provider HalQueue is not hal.Queue")
	}

	d.device = device
	d.queue = queue
	d.external = true
	d.adapterName = "shared"
	return nil
}

func (d *ComputeDevice) createPipelines() error {
	var err error

	d.escapeShader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mandel_escape",
		Source: hal.ShaderSource{WGSL: escapeShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile escape shader: %w", err)
	}
	d.escapeBindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mandel_escape_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create escape bind group layout: %w", err)
	}
	d.escapePipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "mandel_escape_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.escapeBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create escape pipeline layout: %w", err)
	}
	d.escapePipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "mandel_escape_pipeline", Layout: d.escapePipeLayout,
		Compute: hal.ComputeState{Module: d.escapeShader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create escape compute pipeline: %w", err)
	}

	d.colorizeShader, err = d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "mandel_colorize",
		Source: hal.ShaderSource{WGSL: colorizeShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile colorize shader: %w", err)
	}
	d.colorizeBindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "mandel_colorize_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create colorize bind group layout: %w", err)
	}
	d.colorizePipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "mandel_colorize_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{d.colorizeBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create colorize pipeline layout: %w", err)
	}
	d.colorizePipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "mandel_colorize_pipeline", Layout: d.colorizePipeLayout,
		Compute: hal.ComputeState{Module: d.colorizeShader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create colorize compute pipeline: %w", err)
	}
	return nil
}

func (d *ComputeDevice) createBuffers() error {
	pixelBytes := uint64(d.width) * uint64(d.height) * 4 //nolint:gosec // validated positive
	var err error

	d.paramsBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandel_params", Size: frameParamsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	d.iterBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandel_iterations", Size: pixelBytes,
		Usage: gputypes.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("create iteration buffer: %w", err)
	}
	d.colorBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandel_colors", Size: pixelBytes,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create color buffer: %w", err)
	}
	d.stagingBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandel_staging", Size: pixelBytes,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}

	d.escapeBind, err = d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "mandel_escape_bind", Layout: d.escapeBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: d.paramsBuf.NativeHandle(), Offset: 0, Size: frameParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: d.iterBuf.NativeHandle(), Offset: 0, Size: pixelBytes}},
		},
	})
	if err != nil {
		return fmt.Errorf("create escape bind group: %w", err)
	}

	slogger().Debug("gpu buffers allocated", "pixel_bytes", pixelBytes)
	return d.growPalette(initialPaletteEntries)
}

// growPalette reallocates the palette buffer for at least entries colors
// and rebuilds the colorize bind group that references it.
func (d *ComputeDevice) growPalette(entries int) error {
	if entries <= d.paletteCap {
		return nil
	}
	capacity := max(entries, d.paletteCap*2)
	size := uint64(capacity) * 4 //nolint:gosec // positive

	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "mandel_palette", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create palette buffer: %w", err)
	}

	pixelBytes := uint64(d.width) * uint64(d.height) * 4 //nolint:gosec // validated positive
	bind, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "mandel_colorize_bind", Layout: d.colorizeBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: d.paramsBuf.NativeHandle(), Offset: 0, Size: frameParamsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: d.iterBuf.NativeHandle(), Offset: 0, Size: pixelBytes}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: d.colorBuf.NativeHandle(), Offset: 0, Size: pixelBytes}},
		},
	})
	if err != nil {
		d.device.DestroyBuffer(buf)
		return fmt.Errorf("create colorize bind group: %w", err)
	}

	if d.colorizeBind != nil {
		d.device.DestroyBindGroup(d.colorizeBind)
	}
	if d.paletteBuf != nil {
		d.device.DestroyBuffer(d.paletteBuf)
	}
	d.paletteBuf, d.colorizeBind, d.paletteCap = buf, bind, capacity
	d.uploaded = nil

	slogger().Debug("gpu palette buffer grown", "entries", capacity)
	return nil
}

// Name implements fractal.Device.
func (d *ComputeDevice) Name() string { return fractal.DeviceGPU }

// Precision implements fractal.Device.
func (d *ComputeDevice) Precision() fractal.Precision { return fractal.Float32 }

// AdapterName returns the name of the GPU adapter, or "shared" for a device
// adopted from a provider.
func (d *ComputeDevice) AdapterName() string { return d.adapterName }

// SetLogger receives the fractal logger while a pipeline holds the device.
func (d *ComputeDevice) SetLogger(l *slog.Logger) { setLogger(l) }

// Dispatch implements fractal.Device. It returns after the GPU finished both
// stages and the colors were copied to the staging buffer.
func (d *ComputeDevice) Dispatch(p fractal.FrameParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return errClosed
	}
	v := p.View
	if v.ImageWidth != d.width || v.ImageHeight != d.height {
		return fmt.Errorf("%w: view %dx%d, device %dx%d", fractal.ErrViewMismatch,
			v.ImageWidth, v.ImageHeight, d.width, d.height)
	}
	if len(p.Palette) < v.MaxIterations+1 {
		return fmt.Errorf("gpu: palette has %d entries, need %d", len(p.Palette), v.MaxIterations+1)
	}

	if err := d.growPalette(len(p.Palette)); err != nil {
		return err
	}
	d.queue.WriteBuffer(d.paramsBuf, 0, packFrameParams(v))
	if !samePalette(d.uploaded, p.Palette) {
		d.queue.WriteBuffer(d.paletteBuf, 0, packPalette(p.Palette))
		d.uploaded = p.Palette
	}

	return d.encodeAndSubmit()
}

// samePalette reports whether a and b are the same table, not merely equal.
func samePalette(a, b []uint32) bool {
	return len(a) == len(b) && len(a) > 0 && &a[0] == &b[0]
}

func (d *ComputeDevice) encodeAndSubmit() error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "mandel_frame_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("mandel_frame"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	wx, wy := workgroups(d.width), workgroups(d.height)

	escape := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mandel_escape_pass"})
	escape.SetPipeline(d.escapePipeline)
	escape.SetBindGroup(0, d.escapeBind, nil)
	escape.Dispatch(wx, wy, 1)
	escape.End()

	colorize := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "mandel_colorize_pass"})
	colorize.SetPipeline(d.colorizePipeline)
	colorize.SetBindGroup(0, d.colorizeBind, nil)
	colorize.Dispatch(wx, wy, 1)
	colorize.End()

	pixelBytes := uint64(d.width) * uint64(d.height) * 4 //nolint:gosec // validated positive
	encoder.CopyBufferToBuffer(d.colorBuf, d.stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: pixelBytes},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !fenceOK {
		return fmt.Errorf("wait for GPU: timed out after %v", fenceTimeout)
	}

	slogger().Debug("gpu frame dispatched", "workgroups_x", wx, "workgroups_y", wy)
	return nil
}

// ReadColors implements fractal.Device.
func (d *ComputeDevice) ReadColors(dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return errClosed
	}
	if want := d.width * d.height * 4; len(dst) != want {
		return fmt.Errorf("gpu: read buffer has %d bytes, need %d", len(dst), want)
	}
	if err := d.queue.ReadBuffer(d.stagingBuf, 0, dst); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	return nil
}

// Close releases GPU resources. A shared device is left to its owner.
func (d *ComputeDevice) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.destroyResources()
		if !d.external {
			d.device.Destroy()
		}
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	d.device, d.queue, d.instance = nil, nil, nil
}

func (d *ComputeDevice) destroyResources() {
	for _, bg := range []hal.BindGroup{d.escapeBind, d.colorizeBind} {
		if bg != nil {
			d.device.DestroyBindGroup(bg)
		}
	}
	for _, buf := range []hal.Buffer{d.paramsBuf, d.iterBuf, d.paletteBuf, d.colorBuf, d.stagingBuf} {
		if buf != nil {
			d.device.DestroyBuffer(buf)
		}
	}
	for _, p := range []hal.ComputePipeline{d.escapePipeline, d.colorizePipeline} {
		if p != nil {
			d.device.DestroyComputePipeline(p)
		}
	}
	for _, l := range []hal.PipelineLayout{d.escapePipeLayout, d.colorizePipeLayout} {
		if l != nil {
			d.device.DestroyPipelineLayout(l)
		}
	}
	for _, l := range []hal.BindGroupLayout{d.escapeBindLayout, d.colorizeBindLayout} {
		if l != nil {
			d.device.DestroyBindGroupLayout(l)
		}
	}
	for _, s := range []hal.ShaderModule{d.escapeShader, d.colorizeShader} {
		if s != nil {
			d.device.DestroyShaderModule(s)
		}
	}
}
