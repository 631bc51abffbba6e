package fractal

import (
	"image/color"

	"github.com/gogpu/gpucontext"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Automatic device selection, default palette
//	p := fractal.NewPipeline()
//
//	// Force the CPU device and emit BGRA pixels for a window texture
//	p := fractal.NewPipeline(fractal.WithDevice(fractal.DeviceCPU),
//	    fractal.WithPixelFormat(fractal.FormatBGRA))
type Option func(*pipelineOptions)

type pipelineOptions struct {
	device       string
	minPrecision Precision
	mapper       ColorMapper
	workers      int
	provider     gpucontext.DeviceProvider
}

func defaultOptions() pipelineOptions {
	return pipelineOptions{
		device:       DeviceAuto,
		minPrecision: Float64,
		mapper:       DefaultColorMapper(),
	}
}

// WithDevice selects a registered device by name. The empty name (the
// default) tries the GPU first and falls back to the CPU. A named device is
// the only one tried: if it cannot be opened, Initialize fails.
func WithDevice(name string) Option {
	return func(o *pipelineOptions) {
		o.device = name
	}
}

// WithPrecision sets the minimum precision a device must evaluate orbits
// with. The default, Float64, rules out GPU devices that only offer float32;
// pass Float32 to accept them and trade deep-zoom fidelity for speed.
func WithPrecision(p Precision) Option {
	return func(o *pipelineOptions) {
		o.minPrecision = p
	}
}

// WithPalette sets the exterior palette.
func WithPalette(p Palette) Option {
	return func(o *pipelineOptions) {
		o.mapper.Palette = p
	}
}

// WithInterior sets the color of pixels that never escape.
func WithInterior(c color.RGBA) Option {
	return func(o *pipelineOptions) {
		o.mapper.Interior = c
	}
}

// WithPixelFormat sets the byte order of the color buffer.
func WithPixelFormat(f PixelFormat) Option {
	return func(o *pipelineOptions) {
		o.mapper.Format = f
	}
}

// WithWorkers bounds the number of goroutines used by the CPU device.
// Zero, the default, uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *pipelineOptions) {
		o.workers = n
	}
}

// WithDeviceProvider shares a GPU device owned by the host application
// (for example a gogpu window) instead of opening a separate one.
// The provider must also expose HAL access through HalDevice and HalQueue.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *pipelineOptions) {
		o.provider = p
	}
}
