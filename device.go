package fractal

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
)

// Registered device names.
const (
	DeviceAuto = ""    // try DeviceGPU, then DeviceCPU
	DeviceGPU  = "gpu" // registered by importing github.com/gogpu/fractal/gpu
	DeviceCPU  = "cpu"
)

// Precision is the floating point width a device evaluates orbits with.
type Precision uint8

const (
	Float32 Precision = 32
	Float64 Precision = 64
)

func (p Precision) String() string {
	switch p {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("Precision(%d)", uint8(p))
	}
}

// Epsilon returns the machine epsilon of p.
func (p Precision) Epsilon() float64 {
	if p == Float32 {
		return 0x1p-23
	}
	return 0x1p-52
}

// ParsePrecision parses "float32"/"f32"/"32" or "float64"/"f64"/"64".
func ParsePrecision(s string) (Precision, error) {
	switch s {
	case "float32", "f32", "32", "single":
		return Float32, nil
	case "float64", "f64", "64", "double", "":
		return Float64, nil
	default:
		return 0, fmt.Errorf("fractal: unknown precision %q", s)
	}
}

// FrameParams is everything a device needs to compute one frame.
type FrameParams struct {
	View View

	// Palette holds the packed color of each iteration count in
	// [0, View.MaxIterations], as produced by ColorMapper.Table.
	Palette []uint32
}

// Device is a compute backend that owns the iteration and color buffers of a
// pipeline.
//
// Buffers are allocated once by the DeviceFactory for the configured image
// size and overwritten in place by every Dispatch.
type Device interface {
	// Name returns the registered device name.
	Name() string

	// Precision returns the precision orbits are evaluated with.
	Precision() Precision

	// Dispatch computes one frame: the escape-time stage writes the
	// iteration buffer, then, after every pixel of it is complete, the
	// colorize stage writes the color buffer. Dispatch returns once both
	// stages have finished.
	Dispatch(params FrameParams) error

	// ReadColors copies the color buffer into dst, which holds exactly
	// Width*Height*4 bytes. It blocks until the copy is complete.
	ReadColors(dst []byte) error

	// Close releases device resources.
	Close()
}

// DeviceConfig is passed to a DeviceFactory.
type DeviceConfig struct {
	Width, Height int

	// MinPrecision is the lowest acceptable precision. Factories for
	// devices that cannot meet it return ErrPrecisionUnsupported.
	MinPrecision Precision

	// Workers bounds CPU parallelism; 0 means GOMAXPROCS.
	Workers int

	// Provider, when set, supplies a GPU device owned by the host
	// application that GPU devices should share instead of opening their own.
	Provider gpucontext.DeviceProvider
}

// DeviceFactory opens a device and allocates its buffers.
type DeviceFactory func(cfg DeviceConfig) (Device, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]DeviceFactory)
	// Automatic selection order, first device that opens wins.
	devicePriority = []string{DeviceGPU, DeviceCPU}
)

// RegisterDevice registers a device factory under name, replacing any
// previous factory with the same name. It is typically called from init.
func RegisterDevice(name string, factory DeviceFactory) {
	if name == DeviceAuto || factory == nil {
		panic("fractal: RegisterDevice requires a name and a factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Devices returns the registered device names, sorted.
func Devices() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupDevice(name string) (DeviceFactory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

func init() {
	RegisterDevice(DeviceCPU, newCPUDevice)
}
