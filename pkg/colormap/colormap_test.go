package colormap

import (
	"image/color"
	"testing"
)

func TestSeuratColormapEndpoints(t *testing.T) {
	t.Parallel()

	c0, ok := Seurat.At(0).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=0")
	}
	if c0 != (color.RGBA{R: 211, G: 211, B: 211, A: 255}) {
		t.Fatalf("unexpected Seurat.At(0): %#v", c0)
	}

	c1, ok := Seurat.At(1).(color.RGBA)
	if !ok {
		t.Fatalf("expected color.RGBA at t=1")
	}
	if c1 != (color.RGBA{R: 255, G: 0, B: 0, A: 255}) {
		t.Fatalf("unexpected Seurat.At(1): %#v", c1)
	}
}

func TestLinearColormapMidpoint(t *testing.T) {
	t.Parallel()

	cm := LinearColormap{colors: []color.RGBA{{0, 0, 0, 255}, {200, 100, 50, 255}}}
	got := cm.At(0.5).(color.RGBA)
	want := color.RGBA{R: 100, G: 50, B: 25, A: 255}
	if got != want {
		t.Fatalf("At(0.5) = %#v, want %#v", got, want)
	}
}

func TestUnregisteredScaleRendersAsTurbo(t *testing.T) {
	t.Parallel()

	got := Table(Resolve("interpolateCividis"), 16)
	want := Table(Turbo, 16)
	if string(got) != string(want) {
		t.Errorf("interpolateCividis did not resolve to Turbo")
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"viridis":            true,
		"interpolateViridis": true,
		"interpolateMagma":   true,
		"interpolateRainbow": true,
		"interpolateCividis": false,
		"interpolateBlues":   false,
		"Turbo":              true,
		"null":               false,
		"ownColorFromColumn": false,
	}
	for name, want := range cases {
		_, ok := Lookup(name)
		if ok != want {
			t.Errorf("Lookup(%q) ok=%v, want %v", name, ok, want)
		}
	}

	if _, ok := Resolve("interpolateSomethingElse").(FuncColormap); !ok {
		t.Errorf("expected Turbo fallback for unknown name")
	}
}

func TestTable(t *testing.T) {
	t.Parallel()

	pix := Table(Viridis, 256)
	if len(pix) != 256*4 {
		t.Fatalf("expected %d bytes, got %d", 256*4, len(pix))
	}
	if pix[0] != 68 || pix[1] != 1 || pix[2] != 84 || pix[3] != 255 {
		t.Errorf("unexpected first texel: %v", pix[:4])
	}
	last := pix[len(pix)-4:]
	if last[0] != 253 || last[1] != 231 || last[2] != 37 || last[3] != 255 {
		t.Errorf("unexpected last texel: %v", last)
	}

	if Table(Viridis, 0) != nil {
		t.Errorf("expected nil table for n=0")
	}
}

func TestTurboIsOpaqueAndClamped(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{-1, 0, 0.25, 0.5, 0.75, 1, 2} {
		c := Turbo.At(v).(color.RGBA)
		if c.A != 255 {
			t.Errorf("Turbo.At(%v) alpha = %d", v, c.A)
		}
	}
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	got, err := ParseHex("#112233")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if got != (color.RGBA{R: 17, G: 34, B: 51, A: 255}) {
		t.Fatalf("unexpected color: %#v", got)
	}
	if Hex(got) != "#112233" {
		t.Fatalf("Hex round trip = %q", Hex(got))
	}

	if _, err := ParseHex("#zzzzzz"); err == nil {
		t.Fatalf("expected error for invalid hex")
	}
}
