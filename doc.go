// Package fractal renders interactively explorable images of the Mandelbrot
// set on a parallel compute device.
//
// # Overview
//
// A frame is computed in two data-parallel stages. The escape-time stage
// maps every pixel to a point of the complex plane and counts the iterations
// of z <- z*z + c before the orbit leaves the radius-2 disk. The colorize
// stage turns each count into a 4-byte pixel. The host reads the finished
// color buffer and uploads it wherever it likes: a window texture, a PNG
// file or a browser canvas.
//
// # Quick Start
//
//	import "github.com/gogpu/fractal"
//
//	p := fractal.NewPipeline()
//	if err := p.Initialize(1200, 800); err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	v := fractal.DefaultView(1200, 800)
//	if err := p.RenderFrame(v); err != nil {
//	    log.Fatal(err)
//	}
//	pix, err := p.ReadColorBuffer(nil)
//
// # Devices
//
// The CPU device is always available and evaluates in float64 across all
// cores. The GPU device runs WGSL compute shaders through gogpu/wgpu and is
// enabled by a blank import:
//
//	import _ "github.com/gogpu/fractal/gpu"
//
// GPU shaders evaluate in float32, so the GPU is only selected when the
// pipeline is created with WithPrecision(Float32).
//
// # Interaction
//
// A Controller owns the view being explored. Hosts translate pointer drags
// and wheel ticks into Drag and Scroll events, and call Tick once per
// display refresh to render only when the view changed.
//
// # Coordinate System
//
//   - Pixel (0,0) is the top-left corner; y grows downward
//   - The imaginary axis grows upward
//   - Pixel (W/2, H/2) maps exactly to the view center
package fractal

// Version is the current version of the library.
const Version = "0.1.0"
