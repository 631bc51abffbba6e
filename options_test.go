package fractal

import (
	"image/color"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.device != DeviceAuto {
		t.Errorf("device = %q, want auto", o.device)
	}
	if o.minPrecision != Float64 {
		t.Errorf("minPrecision = %v, want float64", o.minPrecision)
	}
	if o.mapper.Format != FormatRGBA || o.mapper.Interior != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("mapper = %+v", o.mapper)
	}
	if o.workers != 0 || o.provider != nil {
		t.Errorf("workers = %d, provider = %v; want 0, nil", o.workers, o.provider)
	}
}

func TestOptionsApply(t *testing.T) {
	interior := color.RGBA{10, 20, 30, 255}
	p := NewPipeline(
		WithDevice(DeviceCPU),
		WithPrecision(Float32),
		WithPalette(Grayscale),
		WithInterior(interior),
		WithPixelFormat(FormatBGRA),
		WithWorkers(3),
	)
	o := p.opts

	if o.device != DeviceCPU || o.minPrecision != Float32 || o.workers != 3 {
		t.Errorf("opts = %+v", o)
	}
	if o.mapper.Interior != interior || o.mapper.Format != FormatBGRA {
		t.Errorf("mapper = %+v", o.mapper)
	}
	// The palette option must survive the later mapper options.
	if got, want := o.mapper.Color(0, 10), Grayscale(0, 10); got != want {
		t.Errorf("palette color = %v, want %v", got, want)
	}
	if p.Format() != FormatBGRA {
		t.Errorf("Format() = %v, want bgra", p.Format())
	}
}

func TestOptionsLastWins(t *testing.T) {
	p := NewPipeline(WithDevice("gpu"), WithDevice(DeviceCPU))
	if p.opts.device != DeviceCPU {
		t.Errorf("device = %q, want the last option", p.opts.device)
	}
}
