package fractal

import (
	"errors"
	"fmt"
)

// Validation errors. Returned wrapped with the offending values, so callers
// should test them with errors.Is.
var (
	ErrInvalidDimensions = errors.New("fractal: image dimensions must be positive")
	ErrInvalidExtent     = errors.New("fractal: view extent must be positive and finite")
	ErrInvalidCenter     = errors.New("fractal: view center must be finite")
	ErrInvalidIterations = errors.New("fractal: max iterations out of range")
)

// Pipeline and device errors.
var (
	// ErrNotInitialized is the panic value used when a frame is rendered or
	// read before Pipeline.Initialize succeeded.
	ErrNotInitialized = errors.New("fractal: pipeline not initialized")

	// ErrClosed is returned by Initialize on a closed pipeline.
	ErrClosed = errors.New("fractal: pipeline closed")

	// ErrViewMismatch is returned when a view's image size differs from the
	// size the pipeline was initialized with.
	ErrViewMismatch = errors.New("fractal: view size does not match pipeline")

	// ErrDeviceUnavailable reports that no usable compute device could be opened.
	ErrDeviceUnavailable = errors.New("fractal: compute device unavailable")

	// ErrPrecisionUnsupported reports that a device cannot meet the
	// requested minimum floating point precision.
	ErrPrecisionUnsupported = errors.New("fractal: device precision unsupported")

	// ErrUnknownDevice is returned for a device name that was never registered.
	ErrUnknownDevice = errors.New("fractal: unknown device")

	// ErrUnknownPalette is returned by PaletteByName.
	ErrUnknownPalette = errors.New("fractal: unknown palette")

	// ErrUnknownPreset is returned for a preset name with no region.
	ErrUnknownPreset = errors.New("fractal: unknown preset")

	// ErrInvalidEvent is returned by Controller.Apply when an event would
	// produce an invalid view. The view is left unchanged.
	ErrInvalidEvent = errors.New("fractal: event produces invalid view")
)

// DeviceError wraps a failure reported by a compute device, either while it
// was being opened or while a frame was dispatched or read back.
type DeviceError struct {
	Device string // registered device name
	Op     string // "open", "dispatch" or "read"
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("fractal: %s device %s: %v", e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
