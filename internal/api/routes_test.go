package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/render"
	"github.com/slidemarks/viewer/internal/service"
)

func newTestRouter(t *testing.T, staticDir string) http.Handler {
	t.Helper()

	svc, err := service.NewMarkerService(service.MarkerServiceConfig{
		SlideID:   "default",
		Title:     "Test slide",
		ImageSize: markers.Size{Width: 100, Height: 50},
		Barcodes: []markers.Point{
			{X: 10, Y: 10, Key: "AAGT", Label: "EGFR"},
			{X: 60, Y: 30, Key: "CCGA", Label: "KRAS"},
		},
		Measurements: []markers.Point{
			{X: 20, Y: 20, Value: 1},
			{X: 40, Y: 40, Value: 3},
		},
		Colorscale:  "interpolateViridis",
		ValueName:   "Area",
		MarkerScale: 4,
		Renderer:    render.NewAssetRenderer(render.Config{AtlasSize: 64}),
	})
	if err != nil {
		t.Fatalf("NewMarkerService: %v", err)
	}
	registry := NewSlideRegistry("default", []string{"default"}, "")
	registry.Register("default", svc)
	t.Cleanup(registry.Close)

	return NewRouter(RouterConfig{
		Registry:    registry,
		CORSOrigins: []string{"*"},
		StaticDir:   staticDir,
		Index:       "index.html",
	})
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("unexpected health response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestSlidesEndpoint(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/api/slides", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Default string      `json:"default"`
		Slides  []SlideInfo `json:"slides"`
		Title   string      `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Default != "default" || len(body.Slides) != 1 || body.Slides[0].Title != "Test slide" {
		t.Errorf("unexpected slides body: %+v", body)
	}
	if body.Title != "Slide markers" {
		t.Errorf("expected default site title, got %q", body.Title)
	}
}

func TestColormapsEndpoint(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/api/colormaps", "")
	var body struct {
		Colormaps []string `json:"colormaps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Colormaps) < 3 || body.Colormaps[0] != markers.ColorscaleNone {
		t.Errorf("unexpected colormaps: %v", body.Colormaps)
	}
}

func TestUnknownSlide(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/s/missing/api/metadata", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMetadataEndpoint(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/s/default/api/metadata", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["image_width"].(float64) != 100 || body["barcode_count"].(float64) != 2 {
		t.Errorf("unexpected metadata: %v", body)
	}
	rng := body["scalar_range"].([]interface{})
	if rng[0].(float64) != 1 || rng[1].(float64) != 3 {
		t.Errorf("unexpected scalar range: %v", rng)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/s/default/api/categories", "")
	var legend []service.CategoryLegendItem
	if err := json.Unmarshal(rec.Body.Bytes(), &legend); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(legend) != 2 || legend[0].Key != "AAGT" {
		t.Errorf("unexpected legend: %+v", legend)
	}
}

func TestPNGEndpoints(t *testing.T) {
	h := newTestRouter(t, "")
	for _, target := range []string{
		"/assets/markershapes.png",
		"/assets/gradients/interpolateMagma.png",
		"/s/default/api/colorbar.png",
		"/s/default/preview.png?width=64&height=32",
	} {
		rec := doRequest(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Errorf("%s: expected image/png, got %q", target, ct)
		}
		if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
			t.Errorf("%s: body is not a PNG", target)
		}
	}
}

func TestUnknownGradient(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodGet, "/assets/gradients/nope.png", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPreviewPostFilter(t *testing.T) {
	h := newTestRouter(t, "")
	rec := doRequest(t, h, http.MethodPost, "/s/default/preview.png?width=32&height=16", `{"categories":["AAGT"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodPost, "/s/default/preview.png?width=32&height=16", `[]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for empty filter, got %d", rec.Code)
	}
}

func TestMarkersEndpoint(t *testing.T) {
	h := newTestRouter(t, "")

	t.Run("discrete", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/s/default/api/markers?bbox=0,0,100,50", "")
		var result service.MarkerQueryResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.TotalCount != 2 {
			t.Errorf("expected 2 markers, got %d", result.TotalCount)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/s/default/api/markers?bbox=0,0,100,50&categories=KRAS", "")
		var result service.MarkerQueryResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.TotalCount != 1 || result.Markers[0].Key != "CCGA" {
			t.Errorf("unexpected filtered result: %+v", result)
		}
	})

	t.Run("scalar", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/s/default/api/markers?bbox=0,0,30,30&family=scalar", "")
		var result service.MarkerQueryResult
		if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.TotalCount != 1 || result.Markers[0].Value != 1 {
			t.Errorf("unexpected scalar result: %+v", result)
		}
	})

	t.Run("badRequest", func(t *testing.T) {
		for _, target := range []string{
			"/s/default/api/markers",
			"/s/default/api/markers?bbox=1,2,3",
			"/s/default/api/markers?bbox=10,0,0,10",
			"/s/default/api/markers?bbox=0,0,1,1&family=tiles",
		} {
			rec := doRequest(t, h, http.MethodGet, target, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", target, rec.Code)
			}
		}
	})
}

func TestParseMarkerScale(t *testing.T) {
	cases := map[string]float64{
		"":        0,
		"abc":     0,
		"0.001":   markers.MinScale,
		"12":      markers.MaxScale,
		"1.23456": 1.235,
	}
	for raw, want := range cases {
		q := map[string][]string{"scale": {raw}}
		if got := parseMarkerScale(q); got != want {
			t.Errorf("scale %q: expected %v, got %v", raw, want, got)
		}
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>viewer</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := newTestRouter(t, dir)

	rec := doRequest(t, h, http.MethodGet, "/app.js", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "console.log") {
		t.Errorf("expected app.js, got %d %q", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/viewer/slide-2", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "viewer") {
		t.Errorf("expected index fallback, got %d %q", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/missing.css", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing asset, got %d", rec.Code)
	}
}
