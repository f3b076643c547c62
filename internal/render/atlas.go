package render

import (
	"image"
	"math"

	"github.com/fogleman/gg"
)

// Glyphs of the shape atlas, in cell order.
const (
	GlyphStar = iota
	GlyphDiamond
	GlyphSquare
	GlyphTriangleUp
	GlyphPlus
	GlyphRing
	GlyphDisc
	GlyphTriangleDown
	NumGlyphs
)

// AtlasGrid is the number of cells per atlas side.
const AtlasGrid = 4

// glyphExtent is the glyph radius relative to the cell size. The shader
// samples the central 70% of each cell.
const glyphExtent = 0.3

// ShapeAtlas draws the marker glyphs as white shapes on a transparent
// size×size image. Glyph i occupies cell (i%4, i/4).
func (r *AssetRenderer) ShapeAtlas() image.Image {
	size := r.config.AtlasSize
	dc := gg.NewContext(size, size)
	cell := float64(size) / AtlasGrid

	dc.SetColor(white)
	for g := 0; g < NumGlyphs; g++ {
		cx := (float64(g%AtlasGrid) + 0.5) * cell
		cy := (float64(g/AtlasGrid) + 0.5) * cell
		drawGlyph(dc, g, cx, cy, cell*glyphExtent)
	}
	return dc.Image()
}

// RenderShapeAtlas returns the shape atlas as PNG.
func (r *AssetRenderer) RenderShapeAtlas() ([]byte, error) {
	return r.EncodePNG(r.ShapeAtlas())
}

func drawGlyph(dc *gg.Context, g int, cx, cy, radius float64) {
	switch g {
	case GlyphStar:
		for i := 0; i < 10; i++ {
			rad := radius
			if i%2 == 1 {
				rad = radius * 0.45
			}
			a := float64(i)*math.Pi/5 - math.Pi/2
			dc.LineTo(cx+rad*math.Cos(a), cy+rad*math.Sin(a))
		}
		dc.ClosePath()
		dc.Fill()
	case GlyphDiamond:
		dc.DrawRegularPolygon(4, cx, cy, radius, math.Pi/4)
		dc.Fill()
	case GlyphSquare:
		side := radius * math.Sqrt2
		dc.DrawRectangle(cx-side/2, cy-side/2, side, side)
		dc.Fill()
	case GlyphTriangleUp:
		dc.DrawRegularPolygon(3, cx, cy+radius*0.15, radius, 0)
		dc.Fill()
	case GlyphPlus:
		w := radius * 0.5
		dc.DrawRectangle(cx-radius, cy-w/2, 2*radius, w)
		dc.DrawRectangle(cx-w/2, cy-radius, w, 2*radius)
		dc.Fill()
	case GlyphRing:
		dc.SetLineWidth(radius * 0.35)
		dc.DrawCircle(cx, cy, radius*0.8)
		dc.Stroke()
	case GlyphDisc:
		dc.DrawCircle(cx, cy, radius)
		dc.Fill()
	case GlyphTriangleDown:
		dc.DrawRegularPolygon(3, cx, cy-radius*0.15, radius, math.Pi)
		dc.Fill()
	}
}
