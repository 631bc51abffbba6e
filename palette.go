package fractal

import (
	"fmt"
	"image/color"
	"math"
	"slices"
	"strings"
)

// Palette maps the escape iteration n of an exterior pixel to a color.
// It is only called with 0 <= n < maxIterations; pixels that reached the
// iteration cap use the ColorMapper's interior color instead.
//
// A Palette must be pure: the same (n, maxIterations) always yields the same
// color.
type Palette func(n, maxIterations int) color.RGBA

// Grayscale shades exterior pixels from dark gray (fast escape) to white
// (escape just before the cap). It never returns black.
func Grayscale(n, maxIterations int) color.RGBA {
	l := uint8(32 + 223*(n+1)/maxIterations)
	return color.RGBA{l, l, l, 0xff}
}

// HueCycle returns a palette that walks once around the HSV color wheel
// every period iterations at full saturation and value.
func HueCycle(period int) Palette {
	if period <= 0 {
		period = 1
	}
	return func(n, _ int) color.RGBA {
		return hsv(float64(n%period)/float64(period), 1, 1)
	}
}

// ultraStops is the classic 16-entry exterior ramp.
var ultraStops = [16]color.RGBA{
	{66, 30, 15, 0xff},
	{25, 7, 26, 0xff},
	{9, 1, 47, 0xff},
	{4, 4, 73, 0xff},
	{0, 7, 100, 0xff},
	{12, 44, 138, 0xff},
	{24, 82, 177, 0xff},
	{57, 125, 209, 0xff},
	{134, 181, 229, 0xff},
	{211, 236, 248, 0xff},
	{241, 233, 191, 0xff},
	{248, 201, 95, 0xff},
	{255, 170, 0, 0xff},
	{204, 128, 0, 0xff},
	{153, 87, 0, 0xff},
	{106, 52, 3, 0xff},
}

// Ultra cycles through a fixed 16-color brown, blue and gold ramp.
func Ultra(n, _ int) color.RGBA {
	return ultraStops[n%len(ultraStops)]
}

// DefaultHuePeriod is the period of the default HueCycle palette.
const DefaultHuePeriod = 32

var palettes = map[string]Palette{
	"grayscale": Grayscale,
	"hue":       HueCycle(DefaultHuePeriod),
	"ultra":     Ultra,
}

// PaletteByName returns a built-in palette: "grayscale", "hue" or "ultra".
func PaletteByName(name string) (Palette, error) {
	p, ok := palettes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPalette, name)
	}
	return p, nil
}

// PaletteNames returns the names accepted by PaletteByName, sorted.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// PixelFormat is the byte order of one pixel in the color buffer.
type PixelFormat uint8

const (
	// FormatRGBA stores pixels as R, G, B, A bytes.
	FormatRGBA PixelFormat = iota
	// FormatBGRA stores pixels as B, G, R, A bytes, the native order of
	// most window-system textures.
	FormatBGRA
)

func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatBGRA:
		return "bgra"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// ParsePixelFormat parses "rgba" or "bgra", case-insensitively.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(s) {
	case "rgba", "":
		return FormatRGBA, nil
	case "bgra":
		return FormatBGRA, nil
	default:
		return 0, fmt.Errorf("fractal: unknown pixel format %q", s)
	}
}

// ColorMapper converts iteration counts into packed pixels.
type ColorMapper struct {
	Palette  Palette     // exterior colors; nil means HueCycle(DefaultHuePeriod)
	Interior color.RGBA  // color of pixels that never escaped
	Format   PixelFormat // byte order of packed pixels
}

// DefaultColorMapper returns the mapper used when no palette options are
// given: a 32-step hue cycle with a black interior, packed as RGBA.
func DefaultColorMapper() ColorMapper {
	return ColorMapper{
		Palette:  HueCycle(DefaultHuePeriod),
		Interior: color.RGBA{0, 0, 0, 0xff},
		Format:   FormatRGBA,
	}
}

// Color returns the color for iteration count n.
func (m ColorMapper) Color(n, maxIterations int) color.RGBA {
	if n >= maxIterations {
		return m.Interior
	}
	if m.Palette == nil {
		return palettes["hue"](n, maxIterations)
	}
	return m.Palette(n, maxIterations)
}

// Pack packs c into a little-endian uint32 whose bytes are in m.Format order.
func (m ColorMapper) Pack(c color.RGBA) uint32 {
	if m.Format == FormatBGRA {
		c.R, c.B = c.B, c.R
	}
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24
}

// Table returns the packed color of every possible iteration count,
// indexed by n in [0, maxIterations]. maxIterations is clamped to
// [0, MaxIterationsLimit].
func (m ColorMapper) Table(maxIterations int) []uint32 {
	maxIterations = min(max(maxIterations, 0), MaxIterationsLimit)
	t := make([]uint32, maxIterations+1)
	for n := range t {
		t[n] = m.Pack(m.Color(n, maxIterations))
	}
	return t
}

// hsv converts hue, saturation and value in [0, 1] to an opaque color.
func hsv(h, s, v float64) color.RGBA {
	h = math.Mod(h, 1)
	i := int(h * 6)
	f := h*6 - float64(i)
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	case 5:
		r, g, b = v, p, q
	}
	return color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), 0xff}
}
