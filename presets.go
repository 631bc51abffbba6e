package fractal

import (
	"fmt"
	"slices"
)

// Region is an axis-aligned rectangle of the complex plane.
type Region struct {
	XMin, XMax float64
	YMin, YMax float64
}

// Apply returns v framed on r: the center moves to the middle of r and the
// extent becomes the size of r. Image size and iteration cap are kept.
func (r Region) Apply(v View) View {
	v.CenterX = (r.XMin + r.XMax) / 2
	v.CenterY = (r.YMin + r.YMax) / 2
	v.Width = r.XMax - r.XMin
	v.Height = r.YMax - r.YMin
	return v
}

// RegionOf returns the region of the complex plane covered by v.
func RegionOf(v View) Region {
	return Region{
		XMin: v.CenterX - v.Width/2,
		XMax: v.CenterX + v.Width/2,
		YMin: v.CenterY - v.Height/2,
		YMax: v.CenterY + v.Height/2,
	}
}

// Landmark regions of the Mandelbrot set.
var (
	// Home is the default framing of the whole set.
	Home = Region{XMin: -1.5, XMax: 0.5, YMin: -1, YMax: 1}

	// SeahorseValley has dense filaments and repeating seahorse curls.
	SeahorseValley = Region{XMin: -0.8, XMax: -0.7, YMin: 0.05, YMax: 0.15}

	// ElephantValley has a large bulb with trunk-like tendrils.
	ElephantValley = Region{XMin: -1.85, XMax: -1.75, YMin: -0.10, YMax: -0.02}

	// SpiralMinibrot is a small copy of the set with tight spiral arms.
	SpiralMinibrot = Region{XMin: -0.7435, XMax: -0.7420, YMin: 0.1310, YMax: 0.1325}

	// TripleSpiral is a threefold symmetric spiral.
	TripleSpiral = Region{XMin: -0.7480, XMax: -0.7450, YMin: 0.0950, YMax: 0.0980}

	// ValleyOfTheDragon has deep spiral filaments.
	ValleyOfTheDragon = Region{XMin: -0.7400, XMax: -0.7350, YMin: 0.1800, YMax: 0.1850}

	// MinibrotInMiniSpiral is a copy of the set inside a spiral arm.
	MinibrotInMiniSpiral = Region{XMin: -1.7390, XMax: -1.7375, YMin: -0.0235, YMax: -0.0220}
)

var presets = map[string]Region{
	"home":                    Home,
	"seahorse-valley":         SeahorseValley,
	"elephant-valley":         ElephantValley,
	"spiral-minibrot":         SpiralMinibrot,
	"triple-spiral":           TripleSpiral,
	"valley-of-the-dragon":    ValleyOfTheDragon,
	"minibrot-in-mini-spiral": MinibrotInMiniSpiral,
}

// Preset returns the landmark region with the given name.
func Preset(name string) (Region, error) {
	r, ok := presets[name]
	if !ok {
		return Region{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return r, nil
}

// PresetNames returns the names accepted by Preset, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
