package fractal

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/fractal/internal/cache"
)

type pipelineState uint8

const (
	stateUninitialized pipelineState = iota
	stateReady
	stateClosed
)

// Pipeline computes frames on a compute device and hands out the resulting
// color buffer.
//
// A Pipeline moves through three states: uninitialized, ready and closed.
// Initialize opens the device and allocates the iteration and color buffers
// once; every RenderFrame overwrites them in place. Calling RenderFrame or
// ReadColorBuffer before a successful Initialize is a programming error and
// panics with ErrNotInitialized.
//
// Pipeline is safe for concurrent use; frames are serialized.
type Pipeline struct {
	mu    sync.Mutex
	opts  pipelineOptions
	state pipelineState

	device        Device
	width, height int

	// Packed palette tables keyed by MaxIterations.
	tables *cache.Cache[int, []uint32]

	frames          atomic.Uint64
	precisionWarned bool
}

// NewPipeline creates an uninitialized pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pipeline{opts: o, tables: cache.New[int, []uint32](paletteCacheSize)}
}

// Initialize selects and opens the compute device and allocates buffers for
// width x height pixels.
//
// Initialize on a ready pipeline is a no-op and returns nil, even if the
// dimensions differ. Device failures are returned as *DeviceError and never
// ignored; when automatic selection finds no usable device the causes of
// every attempt are joined.
func (p *Pipeline) Initialize(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case stateReady:
		if width != p.width || height != p.height {
			Logger().Warn("pipeline already initialized, ignoring new size",
				"width", p.width, "height", p.height, "requested_width", width, "requested_height", height)
		}
		return nil
	case stateClosed:
		return ErrClosed
	}

	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}

	d, err := p.openDevice(width, height)
	if err != nil {
		return err
	}
	attachLogger(d)

	p.device = d
	p.width, p.height = width, height
	p.state = stateReady

	Logger().Info("compute device selected",
		"device", d.Name(), "precision", d.Precision(), "width", width, "height", height)
	return nil
}

func (p *Pipeline) openDevice(width, height int) (Device, error) {
	cfg := DeviceConfig{
		Width:        width,
		Height:       height,
		MinPrecision: p.opts.minPrecision,
		Workers:      p.opts.workers,
		Provider:     p.opts.provider,
	}

	if p.opts.device != DeviceAuto {
		f, ok := lookupDevice(p.opts.device)
		if !ok {
			return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDevice, p.opts.device, Devices())
		}
		d, err := f(cfg)
		if err != nil {
			return nil, &DeviceError{Device: p.opts.device, Op: "open", Err: err}
		}
		return d, nil
	}

	var errs []error
	for _, name := range devicePriority {
		f, ok := lookupDevice(name)
		if !ok {
			Logger().Debug("compute device not registered", "device", name)
			continue
		}
		d, err := f(cfg)
		if err != nil {
			Logger().Warn("compute device skipped", "device", name, "err", err)
			errs = append(errs, &DeviceError{Device: name, Op: "open", Err: err})
			continue
		}
		return d, nil
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no devices registered", ErrDeviceUnavailable)
	}
	return nil, errors.Join(errs...)
}

// RenderFrame computes the escape time of every pixel of v and colors it.
// When RenderFrame returns nil, the color buffer holds the complete frame.
func (p *Pipeline) RenderFrame(v View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderLocked(v)
}

func (p *Pipeline) renderLocked(v View) error {
	p.mustBeReady()

	if err := v.Validate(); err != nil {
		return err
	}
	if v.ImageWidth != p.width || v.ImageHeight != p.height {
		return fmt.Errorf("%w: view %dx%d, pipeline %dx%d",
			ErrViewMismatch, v.ImageWidth, v.ImageHeight, p.width, p.height)
	}

	if !p.precisionWarned && !v.Resolvable(p.device.Precision()) {
		p.precisionWarned = true
		Logger().Warn("zoom exceeds device precision, pixels will repeat",
			"device", p.device.Name(), "precision", p.device.Precision(), "width", v.Width)
	}

	if err := p.device.Dispatch(FrameParams{View: v, Palette: p.palette(v.MaxIterations)}); err != nil {
		return &DeviceError{Device: p.device.Name(), Op: "dispatch", Err: err}
	}
	p.frames.Add(1)
	return nil
}

// paletteCacheSize bounds the number of iteration caps whose tables are kept.
// Viewers sharing a pipeline usually sit on a handful of caps.
const paletteCacheSize = 8

// palette returns the packed color table for maxIterations. Tables are
// cached, so the same cap yields the same slice.
func (p *Pipeline) palette(maxIterations int) []uint32 {
	return p.tables.GetOrCreate(maxIterations, func() []uint32 {
		t := p.opts.mapper.Table(maxIterations)
		Logger().Debug("palette table built", "entries", len(t))
		return t
	})
}

// ReadColorBuffer returns the color buffer of the most recent frame:
// Width*Height pixels, row-major, 4 bytes each in the configured PixelFormat.
//
// dst is reused when its capacity is large enough, otherwise a new slice is
// allocated. ReadColorBuffer blocks until the device copy is complete.
// Before the first RenderFrame the buffer content is unspecified.
func (p *Pipeline) ReadColorBuffer(dst []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readLocked(dst)
}

func (p *Pipeline) readLocked(dst []byte) ([]byte, error) {
	p.mustBeReady()

	n := p.width * p.height * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	if err := p.device.ReadColors(dst); err != nil {
		return nil, &DeviceError{Device: p.device.Name(), Op: "read", Err: err}
	}
	return dst, nil
}

// Frame renders v and reads the result back as one step, so that frames
// requested concurrently by several hosts cannot interleave.
func (p *Pipeline) Frame(v View, dst []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.renderLocked(v); err != nil {
		return nil, err
	}
	return p.readLocked(dst)
}

func (p *Pipeline) mustBeReady() {
	if p.state != stateReady {
		panic(ErrNotInitialized)
	}
}

// Size returns the image size given to Initialize, or zeros.
func (p *Pipeline) Size() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Device returns the name of the selected device, or "" before Initialize.
func (p *Pipeline) Device() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return ""
	}
	return p.device.Name()
}

// Format returns the byte order of the color buffer.
func (p *Pipeline) Format() PixelFormat {
	return p.opts.mapper.Format
}

// Frames returns the number of frames rendered so far.
func (p *Pipeline) Frames() uint64 {
	return p.frames.Load()
}

// Close releases the device. The pipeline cannot be reinitialized.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device != nil {
		detachLogger(p.device)
		p.device.Close()
		p.device = nil
	}
	p.state = stateClosed
}
