// Package snapshot turns rendered frames into image files.
//
// It scales frames with golang.org/x/image/draw, stamps a caption with the
// Go Regular font, and encodes PNG.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// CaptionSize is the caption font size in pixels.
const CaptionSize = 13

var (
	fontOnce sync.Once
	fontErr  error
	regular  *opentype.Font
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		regular, fontErr = opentype.Parse(goregular.TTF)
	})
	return regular, fontErr
}

// Scale returns src resampled by factor with Catmull-Rom filtering.
// A factor of 1 returns src unchanged.
func Scale(src *image.RGBA, factor float64) (*image.RGBA, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("snapshot: invalid scale factor %v", factor)
	}
	if factor == 1 {
		return src, nil
	}
	b := src.Bounds()
	w := int(float64(b.Dx())*factor + 0.5)
	h := int(float64(b.Dy())*factor + 0.5)
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("snapshot: scale factor %v collapses %dx%d image", factor, b.Dx(), b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst, nil
}

// Annotate draws caption in the bottom-left corner of img on a translucent
// backing strip.
func Annotate(img *image.RGBA, caption string) error {
	if caption == "" {
		return nil
	}
	f, err := loadFont()
	if err != nil {
		return fmt.Errorf("snapshot: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    CaptionSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("snapshot: font face: %w", err)
	}
	defer func() {
		_ = face.Close()
	}()

	m := face.Metrics()
	lineHeight := (m.Ascent + m.Descent).Ceil()
	const pad = 4

	b := img.Bounds()
	strip := image.Rect(b.Min.X, b.Max.Y-lineHeight-2*pad, b.Max.X, b.Max.Y).Intersect(b)
	draw.Draw(img, strip, image.NewUniform(color.RGBA{A: 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(b.Min.X + pad),
			Y: fixed.I(b.Max.Y-pad) - m.Descent,
		},
	}
	d.DrawString(caption)
	return nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("snapshot: encode png: %w", err)
	}
	return nil
}

// WritePNG encodes img to the file at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
