package fractal

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/fractal/internal/parallel"
)

// cpuDevice evaluates frames on all cores in float64.
//
// Both stages run as one WorkerPool.ExecuteAll over row bands. ExecuteAll
// returns only when every band is done, so the colorize stage never reads a
// partially written iteration buffer.
type cpuDevice struct {
	width, height int

	pool  *parallel.WorkerPool
	bands []parallel.Band

	iterations []uint32
	colors     []byte

	// params is read by the stage closures; written only between stages.
	params FrameParams

	escapeWork   []func()
	colorizeWork []func()
}

func newCPUDevice(cfg DeviceConfig) (Device, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, cfg.Width, cfg.Height)
	}
	if cfg.MinPrecision > Float64 {
		return nil, fmt.Errorf("%w: cpu provides %s, need %s", ErrPrecisionUnsupported, Float64, cfg.MinPrecision)
	}

	d := &cpuDevice{
		width:      cfg.Width,
		height:     cfg.Height,
		pool:       parallel.NewWorkerPool(cfg.Workers),
		bands:      parallel.SplitRows(cfg.Height, parallel.DefaultBandHeight),
		iterations: make([]uint32, cfg.Width*cfg.Height),
		colors:     make([]byte, cfg.Width*cfg.Height*4),
	}

	d.escapeWork = make([]func(), len(d.bands))
	d.colorizeWork = make([]func(), len(d.bands))
	for i, b := range d.bands {
		d.escapeWork[i] = func() { d.escapeBand(b) }
		d.colorizeWork[i] = func() { d.colorizeBand(b) }
	}

	Logger().Debug("cpu device allocated",
		"width", cfg.Width, "height", cfg.Height,
		"workers", d.pool.Workers(), "bands", len(d.bands))
	return d, nil
}

func (d *cpuDevice) Name() string         { return DeviceCPU }
func (d *cpuDevice) Precision() Precision { return Float64 }

func (d *cpuDevice) Dispatch(params FrameParams) error {
	if params.View.ImageWidth != d.width || params.View.ImageHeight != d.height {
		return fmt.Errorf("%w: view %dx%d, device %dx%d", ErrViewMismatch,
			params.View.ImageWidth, params.View.ImageHeight, d.width, d.height)
	}
	if len(params.Palette) < params.View.MaxIterations+1 {
		return fmt.Errorf("fractal: palette has %d entries, need %d",
			len(params.Palette), params.View.MaxIterations+1)
	}

	d.params = params
	d.pool.ExecuteAll(d.escapeWork)
	d.pool.ExecuteAll(d.colorizeWork)
	return nil
}

func (d *cpuDevice) escapeBand(b parallel.Band) {
	v := d.params.View
	for y := b.Y0; y < b.Y1; y++ {
		escapeRow(v, y, d.iterations[y*d.width:(y+1)*d.width])
	}
}

func (d *cpuDevice) colorizeBand(b parallel.Band) {
	lut := d.params.Palette
	for i := b.Y0 * d.width; i < b.Y1*d.width; i++ {
		binary.LittleEndian.PutUint32(d.colors[i*4:], lut[d.iterations[i]])
	}
}

func (d *cpuDevice) ReadColors(dst []byte) error {
	if len(dst) != len(d.colors) {
		return fmt.Errorf("fractal: read buffer has %d bytes, need %d", len(dst), len(d.colors))
	}
	copy(dst, d.colors)
	return nil
}

func (d *cpuDevice) Close() {
	d.pool.Close()
}
