package gpu

import (
	"image"

	"golang.org/x/image/draw"
)

// Pixels converts img to tightly packed, non-premultiplied RGBA8 texels in
// row-major order starting at the top-left corner.
func Pixels(img image.Image) (width, height int, pix []byte) {
	if img == nil {
		return 0, 0, nil
	}
	b := img.Bounds()
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Stride == 4*b.Dx() {
		return b.Dx(), b.Dy(), nrgba.Pix
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return b.Dx(), b.Dy(), dst.Pix
}
