package render

import (
	"image"

	"github.com/slidemarks/viewer/pkg/colormap"
)

// GradientWidth is the length of the colorscale lookup strip.
const GradientWidth = 256

// Gradient returns the GradientWidth×1 strip the scalar shader samples.
func Gradient(cm colormap.Colormap) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, GradientWidth, 1))
	copy(img.Pix, colormap.Table(cm, GradientWidth))
	return img
}

// RenderGradient returns the lookup strip of a colorscale as PNG.
func (r *AssetRenderer) RenderGradient(colorscale string) ([]byte, error) {
	return r.EncodePNG(Gradient(colormap.Resolve(colorscale)))
}
