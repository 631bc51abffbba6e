package fractal

import (
	"fmt"
	"math"
)

// Default view parameters: the whole set framed around its main cardioid.
const (
	DefaultCenterX       = -0.5
	DefaultCenterY       = 0.0
	DefaultExtent        = 2.0
	DefaultMaxIterations = 30
)

// MaxIterationsLimit is the largest accepted iteration cap. Escape counts
// are stored as uint32 and the palette table holds MaxIterations+1 entries,
// so the cap keeps both well inside memory and index range.
const MaxIterationsLimit = 1 << 24

// View describes which rectangle of the complex plane is rendered and how.
//
// A View is a value. Mutating operations (Pan, Zoom, ...) return a new View
// and leave the receiver untouched, so a View can be handed to another
// goroutine without copying concerns.
//
// The image dimensions are fixed for the lifetime of a pipeline; only the
// center, extent and iteration limit change while exploring.
type View struct {
	ImageWidth  int // pixels, > 0
	ImageHeight int // pixels, > 0

	CenterX float64 // real part of the point at the image center
	CenterY float64 // imaginary part of the point at the image center

	Width  float64 // real-axis extent covered by ImageWidth pixels
	Height float64 // imaginary-axis extent covered by ImageHeight pixels

	MaxIterations int // escape-time iteration cap, in [1, MaxIterationsLimit]
}

// DefaultView returns the initial view for an image of the given size:
// center -0.5+0i, extent 2x2, 30 iterations.
func DefaultView(imageWidth, imageHeight int) View {
	return View{
		ImageWidth:    imageWidth,
		ImageHeight:   imageHeight,
		CenterX:       DefaultCenterX,
		CenterY:       DefaultCenterY,
		Width:         DefaultExtent,
		Height:        DefaultExtent,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate reports whether v can be rendered.
func (v View) Validate() error {
	if v.ImageWidth <= 0 || v.ImageHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, v.ImageWidth, v.ImageHeight)
	}
	if !positiveFinite(v.Width) || !positiveFinite(v.Height) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidExtent, v.Width, v.Height)
	}
	if !finite(v.CenterX) || !finite(v.CenterY) {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCenter, v.CenterX, v.CenterY)
	}
	if v.MaxIterations <= 0 || v.MaxIterations > MaxIterationsLimit {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidIterations, v.MaxIterations, MaxIterationsLimit)
	}
	return nil
}

// PixelToComplex maps pixel (px, py) to the complex number it samples.
//
// The horizontal axis grows to the right and the vertical axis is inverted
// so that imaginary values grow upward. Pixel (ImageWidth/2, ImageHeight/2),
// using integer division, maps exactly to the view center.
func (v View) PixelToComplex(px, py int) complex128 {
	re := v.CenterX + float64(px-v.ImageWidth/2)/float64(v.ImageWidth)*v.Width
	im := v.CenterY + float64(v.ImageHeight/2-py)/float64(v.ImageHeight)*v.Height
	return complex(re, im)
}

// PixelSize returns the complex-plane distance between adjacent pixels.
func (v View) PixelSize() (dx, dy float64) {
	return v.Width / float64(v.ImageWidth), v.Height / float64(v.ImageHeight)
}

// Pan moves the view so that the image content follows a pointer that moved
// by (dx, dy) pixels. Dragging right reveals points further left.
func (v View) Pan(dx, dy float64) View {
	v.CenterX -= dx / float64(v.ImageWidth) * v.Width
	v.CenterY += dy / float64(v.ImageHeight) * v.Height
	return v
}

// Zoom scales the extent by 2^-delta around the current center.
// Positive delta zooms in. Zoom(d) followed by Zoom(-d) restores the extent.
func (v View) Zoom(delta float64) View {
	f := math.Exp2(delta)
	v.Width /= f
	v.Height /= f
	return v
}

// Resolvable reports whether adjacent pixels of v still map to distinct
// values when computed at precision p. Once it returns false, deeper zooms
// render as flat blocks.
func (v View) Resolvable(p Precision) bool {
	m := math.Max(math.Max(math.Abs(v.CenterX), math.Abs(v.CenterY)), 1)
	dx, dy := v.PixelSize()
	return math.Min(dx, dy) > m*p.Epsilon()
}

// String returns a compact description of v for logs.
func (v View) String() string {
	return fmt.Sprintf("%dx%d @ (%g, %g) extent %gx%g iter %d",
		v.ImageWidth, v.ImageHeight, v.CenterX, v.CenterY, v.Width, v.Height, v.MaxIterations)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func positiveFinite(f float64) bool { return f > 0 && !math.IsInf(f, 1) }
