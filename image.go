package fractal

import "image"

// ReadImage reads the color buffer of the most recent frame into a new
// RGBA image, converting from BGRA if the pipeline emits that order.
func (p *Pipeline) ReadImage() (*image.RGBA, error) {
	w, h := p.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if _, err := p.ReadColorBuffer(img.Pix); err != nil {
		return nil, err
	}
	if p.Format() == FormatBGRA {
		SwapRedBlue(img.Pix)
	}
	return img, nil
}

// SwapRedBlue converts packed pixels between RGBA and BGRA in place.
func SwapRedBlue(pix []byte) {
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
}
