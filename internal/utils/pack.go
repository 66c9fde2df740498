package utils

import (
	"image"

	"github.com/disintegration/imaging"
)

// PackImage flattens img into a tightly packed, top-left origin buffer.
// Grayscale images stay single channel; everything else becomes
// non-premultiplied RGBA.
func PackImage(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if g, ok := img.(*image.Gray); ok {
		out := make([]byte, w*h)
		for y := range h {
			off := (b.Min.Y+y-g.Rect.Min.Y)*g.Stride + (b.Min.X - g.Rect.Min.X)
			copy(out[y*w:(y+1)*w], g.Pix[off:off+w])
		}
		return out, w, h
	}

	nrgba := imaging.Clone(img)
	return nrgba.Pix, w, h
}
