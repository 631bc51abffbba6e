//go:build !nogpu

package gpu

import (
	"github.com/gogpu/fractal"
	gpuimpl "github.com/gogpu/fractal/internal/gpu"
)

func init() {
	fractal.RegisterDevice(fractal.DeviceGPU, gpuimpl.Open)
}

// Available reports whether a standalone GPU device can be opened, and the
// reason when it cannot. It opens and immediately closes a small device.
func Available() (bool, error) {
	d, err := gpuimpl.Open(fractal.DeviceConfig{Width: 1, Height: 1, MinPrecision: fractal.Float32})
	if err != nil {
		return false, err
	}
	d.Close()
	return true, nil
}
