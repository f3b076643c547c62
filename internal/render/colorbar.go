package render

import (
	"image"
	"image/color"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/slidemarks/viewer/pkg/colormap"
)

const colorbarStops = 32

var colorbarOutline = color.RGBA{0x55, 0x55, 0x55, 0xff}

// Colorbar draws the legend of a colorscale: a horizontal gradient with
// the value name above and the range ends below, all with a drop shadow.
// The layout is proportional to a 384×96 canvas with a 256×16 bar.
func (r *AssetRenderer) Colorbar(cm colormap.Colormap, title string, lo, hi float64) image.Image {
	w, h := r.config.ColorbarWidth, r.config.ColorbarHeight
	dc := gg.NewContext(w, h)
	if cm == nil {
		return dc.Image()
	}
	sx, sy := float64(w)/384, float64(h)/96
	barX, barY, barW, barH := 64*sx, 64*sy, 256*sx, 16*sy

	grad := gg.NewLinearGradient(barX, 0, barX+barW, 0)
	for i := 0; i < colorbarStops; i++ {
		t := float64(i) / (colorbarStops - 1)
		// Stops are taken from the 256-entry table the shader samples.
		idx := int(t * 255.99)
		grad.AddColorStop(t, cm.At(float64(idx)/255))
	}
	dc.SetFillStyle(grad)
	dc.DrawRectangle(barX, barY, barW, barH)
	dc.Fill()
	dc.SetColor(colorbarOutline)
	dc.SetLineWidth(1)
	dc.DrawRectangle(barX, barY, barW, barH)
	dc.Stroke()

	mid := float64(w) / 2
	labels := []struct {
		text string
		x, y float64
	}{
		{title, mid, 32 * sy},
		{FormatRangeLabel(lo), mid - 128*sx, 56 * sy},
		{FormatRangeLabel(hi), mid + 128*sx, 56 * sy},
	}
	for _, pass := range []struct {
		c      color.Color
		offset float64
	}{{color.Black, 1}, {white, 0}} {
		dc.SetColor(pass.c)
		for _, l := range labels {
			dc.DrawStringAnchored(l.text, l.x+pass.offset, l.y+pass.offset, 0.5, 0)
		}
	}
	return dc.Image()
}

// RenderColorbar returns the colorbar as PNG. The colorscale names that
// hide the scalar gradient produce an empty legend.
func (r *AssetRenderer) RenderColorbar(colorscale, title string, lo, hi float64) ([]byte, error) {
	if !ShowsColorbar(colorscale) {
		return r.EncodePNG(CreateEmptyImage(r.config.ColorbarWidth, r.config.ColorbarHeight))
	}
	return r.EncodePNG(r.Colorbar(colormap.Resolve(colorscale), title, lo, hi))
}

// ShowsColorbar reports whether a colorscale selection has a legend.
func ShowsColorbar(colorscale string) bool {
	switch colorscale {
	case "", "null", "ownColorFromColumn":
		return false
	}
	return true
}

// FormatRangeLabel prints v in the shortest form, switching to scientific
// notation when that would exceed nine characters.
func FormatRangeLabel(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) > 9 {
		s = strconv.FormatFloat(v, 'e', 5, 64)
	}
	return s
}
