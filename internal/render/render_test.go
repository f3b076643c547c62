package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/slidemarks/viewer/pkg/colormap"
)

func TestShapeAtlasLayout(t *testing.T) {
	r := NewAssetRenderer(Config{AtlasSize: 128})
	img := r.ShapeAtlas()

	if got := img.Bounds().Dx(); got != 128 {
		t.Fatalf("expected 128px atlas, got %d", got)
	}
	cell := 128 / AtlasGrid
	for g := 0; g < NumGlyphs; g++ {
		cx := (g%AtlasGrid)*cell + cell/2
		cy := (g/AtlasGrid)*cell + cell/2
		_, _, _, a := img.At(cx, cy).RGBA()
		if g == GlyphRing {
			if a != 0 {
				t.Errorf("ring glyph should be hollow, alpha %d", a)
			}
			continue
		}
		if a == 0 {
			t.Errorf("glyph %d: center pixel is transparent", g)
		}
	}
	// The bottom row is unused.
	_, _, _, a := img.At(cell/2, 3*cell+cell/2).RGBA()
	if a != 0 {
		t.Errorf("expected empty cell, alpha %d", a)
	}
}

func TestRenderShapeAtlasPNG(t *testing.T) {
	r := NewAssetRenderer(Config{AtlasSize: 64})
	data, err := r.RenderShapeAtlas()
	if err != nil {
		t.Fatalf("RenderShapeAtlas: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 64, 64) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestColorbar(t *testing.T) {
	r := NewAssetRenderer(Config{})
	img := r.Colorbar(colormap.Seurat, "Area", 10, 30)

	if img.Bounds() != image.Rect(0, 0, 384, 96) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	// Left end of the bar is the first colormap entry.
	cr, cg, cb, ca := img.At(70, 72).RGBA()
	if ca == 0 || cr>>8 < 200 || cg>>8 < 200 || cb>>8 < 200 {
		t.Errorf("expected light gray at bar start, got %d,%d,%d,%d", cr>>8, cg>>8, cb>>8, ca>>8)
	}
	cr, cg, _, _ = img.At(314, 72).RGBA()
	if cr>>8 < 200 || cg>>8 > 60 {
		t.Errorf("expected red at bar end, got r=%d g=%d", cr>>8, cg>>8)
	}
	// Outside the bar and labels stays transparent.
	if _, _, _, a := img.At(5, 90).RGBA(); a != 0 {
		t.Errorf("expected transparent margin, alpha %d", a)
	}
}

func TestRenderColorbarHidden(t *testing.T) {
	r := NewAssetRenderer(Config{ColorbarWidth: 48, ColorbarHeight: 12})
	for _, name := range []string{"null", "ownColorFromColumn", ""} {
		data, err := r.RenderColorbar(name, "x", 0, 1)
		if err != nil {
			t.Fatalf("%q: %v", name, err)
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%q: decode: %v", name, err)
		}
		if _, _, _, a := img.At(24, 10).RGBA(); a != 0 {
			t.Errorf("%q: expected empty legend", name)
		}
	}
}

func TestFormatRangeLabel(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{10, "10"},
		{0.5, "0.5"},
		{123456789, "123456789"},
		{1234567890, "1.23457e+09"},
		{0.000123456789, "1.23457e-04"},
	}
	for _, tt := range tests {
		if got := FormatRangeLabel(tt.in); got != tt.want {
			t.Errorf("FormatRangeLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGradient(t *testing.T) {
	img := Gradient(colormap.Viridis)
	if img.Bounds() != image.Rect(0, 0, GradientWidth, 1) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	first := img.RGBAAt(0, 0)
	want := colormap.Viridis.At(0)
	r, g, b, _ := want.RGBA()
	if first.R != uint8(r>>8) || first.G != uint8(g>>8) || first.B != uint8(b>>8) || first.A != 255 {
		t.Errorf("first texel %v, want %v", first, want)
	}
}
