package service

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/slidemarks/viewer/internal/cache"
	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/render"
)

func newTestService(t *testing.T) *MarkerService {
	t.Helper()

	cm, err := cache.NewManager(cache.Config{AssetCacheSizeMB: 8, AssetTTL: time.Minute, QueryCacheSize: 16})
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { cm.Close() })

	svc, err := NewMarkerService(MarkerServiceConfig{
		SlideID:   "s1",
		ImageSize: markers.Size{Width: 100, Height: 100},
		Barcodes: []markers.Point{
			{X: 50, Y: 50, Key: "AAGT", Label: "EGFR"},
			{X: 10, Y: 10, Key: "CCGA", Label: "KRAS"},
			{X: 12, Y: 12, Key: "AAGT", Label: "EGFR"},
		},
		Measurements: []markers.Point{
			{X: 80, Y: 80, Value: 10},
			{X: 90, Y: 90, Value: 30},
		},
		Colorscale:  "interpolateViridis",
		ValueName:   "Area",
		MarkerScale: 5,
		Cache:       cm,
		Renderer:    render.NewAssetRenderer(render.Config{AtlasSize: 64}),
	})
	if err != nil {
		t.Fatalf("NewMarkerService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

func TestLegend(t *testing.T) {
	svc := newTestService(t)

	legend := svc.Legend()
	if len(legend) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(legend))
	}
	if legend[0].Key != "AAGT" || legend[0].Count != 2 || legend[0].Index != 0 {
		t.Errorf("unexpected first item: %+v", legend[0])
	}
	if legend[1].Key != "CCGA" || legend[1].Count != 1 || legend[1].Shape != 1 {
		t.Errorf("unexpected second item: %+v", legend[1])
	}
	if legend[0].Color != "#1f77b4" {
		t.Errorf("expected first palette color, got %s", legend[0].Color)
	}

	data, err := svc.LegendJSON()
	if err != nil {
		t.Fatalf("LegendJSON: %v", err)
	}
	var decoded []CategoryLegendItem
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("expected 2 decoded items, got %d", len(decoded))
	}
}

func TestScalarRange(t *testing.T) {
	svc := newTestService(t)
	lo, hi := svc.ScalarRange()
	if lo != 10 || hi != 30 {
		t.Errorf("expected [10,30], got [%v,%v]", lo, hi)
	}
}

func opaquePixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func TestPreview(t *testing.T) {
	svc := newTestService(t)

	data, err := svc.Preview(PreviewRequest{Width: 40, Height: 40})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	img := decodePNG(t, data)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 40 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	visible := opaquePixels(img)
	if visible == 0 {
		t.Fatal("expected markers in preview")
	}

	// Filtering to no category and dropping the gradient leaves nothing.
	data, err = svc.Preview(PreviewRequest{Width: 40, Height: 40, Categories: []string{}, Colorscale: "null"})
	if err != nil {
		t.Fatalf("Preview hidden: %v", err)
	}
	if n := opaquePixels(decodePNG(t, data)); n != 0 {
		t.Errorf("expected empty preview, got %d pixels", n)
	}

	// The filter does not leak into later previews.
	data, err = svc.Preview(PreviewRequest{Width: 40, Height: 40, Scale: 4.9})
	if err != nil {
		t.Fatalf("Preview again: %v", err)
	}
	if n := opaquePixels(decodePNG(t, data)); n == 0 {
		t.Error("expected markers after clearing the filter")
	}
}

func TestPreviewCached(t *testing.T) {
	svc := newTestService(t)
	req := PreviewRequest{Width: 16, Height: 16}
	first, err := svc.Preview(req)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	second, err := svc.Preview(req)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("expected identical cached preview")
	}
}

func TestPreviewClampsSize(t *testing.T) {
	svc := newTestService(t)
	data, err := svc.Preview(PreviewRequest{Width: 100000, Height: 8})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if w := decodePNG(t, data).Bounds().Dx(); w != 2048 {
		t.Errorf("expected width clamped to 2048, got %d", w)
	}
}

func TestColorbarAndAtlas(t *testing.T) {
	svc := newTestService(t)

	bar, err := svc.Colorbar("")
	if err != nil {
		t.Fatalf("Colorbar: %v", err)
	}
	if w := decodePNG(t, bar).Bounds().Dx(); w != 384 {
		t.Errorf("expected 384px colorbar, got %d", w)
	}

	atlas, err := svc.ShapeAtlas()
	if err != nil {
		t.Fatalf("ShapeAtlas: %v", err)
	}
	if w := decodePNG(t, atlas).Bounds().Dx(); w != 64 {
		t.Errorf("expected 64px atlas, got %d", w)
	}
}

func TestMarkersInBounds(t *testing.T) {
	svc := newTestService(t)

	t.Run("region", func(t *testing.T) {
		res := svc.MarkersInBounds(0, 0, 20, 20, markers.Discrete, nil, 0, 0)
		if res.TotalCount != 2 || res.Truncated {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		res := svc.MarkersInBounds(0, 0, 100, 100, markers.Discrete, []string{"EGFR"}, 0, 0)
		if res.TotalCount != 2 {
			t.Fatalf("expected 2 EGFR markers, got %d", res.TotalCount)
		}
		for _, m := range res.Markers {
			if m.Key != "AAGT" {
				t.Errorf("unexpected marker %+v", m)
			}
		}
	})

	t.Run("filterToNone", func(t *testing.T) {
		res := svc.MarkersInBounds(0, 0, 100, 100, markers.Discrete, []string{}, 0, 0)
		if res.TotalCount != 0 || len(res.Markers) != 0 {
			t.Fatalf("expected no markers, got %+v", res)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		res := svc.MarkersInBounds(0, 0, 100, 100, markers.Discrete, nil, 1, 7)
		if !res.Truncated || len(res.Markers) != 1 || res.TotalCount != 3 {
			t.Fatalf("unexpected result: %+v", res)
		}
	})

	t.Run("scalar", func(t *testing.T) {
		res := svc.MarkersInBounds(75, 75, 100, 100, markers.Scalar, nil, 0, 0)
		if res.TotalCount != 2 || res.Markers[0].Family != "scalar" {
			t.Fatalf("unexpected result: %+v", res)
		}
	})
}
