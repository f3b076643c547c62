// Package api provides HTTP handlers for the slide marker viewer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/service"
	"github.com/slidemarks/viewer/pkg/colormap"
)

// RouterConfig contains router configuration.
type RouterConfig struct {
	Registry    *SlideRegistry
	CORSOrigins []string
	// StaticDir is served for every unmatched GET; unknown paths without
	// a file extension fall back to Index.
	StaticDir string
	Index     string
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Global endpoints (not slide-scoped)
	r.Get("/api/slides", slidesHandler(cfg.Registry))
	r.Get("/api/colormaps", colormapsHandler)
	r.Get("/assets/markershapes.png", shapeAtlasHandler(cfg.Registry))
	r.Get("/assets/gradients/{name}.png", gradientHandler(cfg.Registry))

	// Slide-scoped routes: /s/{slide}/...
	r.Route("/s/{slide}", func(r chi.Router) {
		r.Use(slideMiddleware(cfg.Registry))

		r.Get("/preview.png", slidePreviewHandler)
		r.Post("/preview.png", slidePreviewHandler)

		r.Route("/api", func(r chi.Router) {
			r.Get("/metadata", slideMetadataHandler)
			r.Get("/categories", slideCategoriesHandler)
			r.Get("/colorbar.png", slideColorbarHandler)
			r.Get("/markers", slideMarkersHandler)
			r.Post("/markers", slideMarkersHandler)
		})
	})

	if cfg.StaticDir != "" {
		r.NotFound(staticHandler(cfg.StaticDir, cfg.Index))
	}

	return r
}

// Context key for slide service
type ctxKey string

const slideServiceKey ctxKey = "slideService"

// slideMiddleware resolves the slide from URL and injects the marker service into context.
func slideMiddleware(registry *SlideRegistry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slideID := chi.URLParam(r, "slide")
			svc := registry.Get(slideID)
			if svc == nil {
				http.Error(w, "slide not found: "+slideID, http.StatusNotFound)
				return
			}
			ctx := context.WithValue(r.Context(), slideServiceKey, svc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func getSlideService(r *http.Request) *service.MarkerService {
	if svc, ok := r.Context().Value(slideServiceKey).(*service.MarkerService); ok {
		return svc
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// slidesHandler returns the list of available slides.
func slidesHandler(registry *SlideRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"default": registry.DefaultSlideID(),
			"slides":  registry.Slides(),
			"title":   registry.Title(),
		})
	}
}

// colormapsHandler lists the colorscale names accepted by the viewer.
func colormapsHandler(w http.ResponseWriter, r *http.Request) {
	names := append([]string{markers.ColorscaleNone, markers.ColorscaleOwnColumn}, colormap.Names()...)
	writeJSON(w, map[string]interface{}{
		"colormaps": names,
	})
}

func shapeAtlasHandler(registry *SlideRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Default()
		if svc == nil {
			http.Error(w, "no slides configured", http.StatusServiceUnavailable)
			return
		}
		data, err := svc.ShapeAtlas()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writePNG(w, data)
	}
}

func gradientHandler(registry *SlideRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := registry.Default()
		if svc == nil {
			http.Error(w, "no slides configured", http.StatusServiceUnavailable)
			return
		}
		name := chi.URLParam(r, "name")
		if _, ok := colormap.Lookup(name); !ok {
			http.Error(w, "unknown colormap: "+name, http.StatusNotFound)
			return
		}
		data, err := svc.Gradient(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writePNG(w, data)
	}
}

// Slide-scoped handlers (get service from context)

func slideMetadataHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSlideService(r)
	if svc == nil {
		http.Error(w, "slide service not found", http.StatusInternalServerError)
		return
	}
	size := svc.ImageSize()
	barcodes, measurements := svc.Counts()
	lo, hi := svc.ScalarRange()
	writeJSON(w, map[string]interface{}{
		"id":                svc.ID(),
		"title":             svc.Title(),
		"image_width":       size.Width,
		"image_height":      size.Height,
		"barcode_count":     barcodes,
		"measurement_count": measurements,
		"colorscale":        svc.Colorscale(),
		"scalar_range":      []float64{lo, hi},
	})
}

func slideCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSlideService(r)
	if svc == nil {
		http.Error(w, "slide service not found", http.StatusInternalServerError)
		return
	}
	data, err := svc.LegendJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func slideColorbarHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSlideService(r)
	if svc == nil {
		http.Error(w, "slide service not found", http.StatusInternalServerError)
		return
	}
	data, err := svc.Colorbar(strings.TrimSpace(r.URL.Query().Get("colorscale")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writePNG(w, data)
}

func slidePreviewHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSlideService(r)
	if svc == nil {
		http.Error(w, "slide service not found", http.StatusInternalServerError)
		return
	}
	filter, err := requestCategoryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	req := service.PreviewRequest{
		Bounds: markers.Rect{
			X:      parseFloatParam(q, "x", 0),
			Y:      parseFloatParam(q, "y", 0),
			Width:  parseFloatParam(q, "w", 1),
			Height: parseFloatParam(q, "h", 1),
		},
		Rotation:   parseFloatParam(q, "rotation", 0),
		Width:      parseIntParam(q, "width", 0),
		Height:     parseIntParam(q, "height", 0),
		Scale:      parseMarkerScale(q),
		Categories: filter,
		Colorscale: strings.TrimSpace(q.Get("colorscale")),
	}

	data, err := svc.Preview(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writePNG(w, data)
}

func slideMarkersHandler(w http.ResponseWriter, r *http.Request) {
	svc := getSlideService(r)
	if svc == nil {
		http.Error(w, "slide service not found", http.StatusInternalServerError)
		return
	}
	q := r.URL.Query()
	minX, minY, maxX, maxY, err := parseBBox(q.Get("bbox"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	family := markers.Discrete
	switch strings.TrimSpace(q.Get("family")) {
	case "", "discrete", "barcodes":
	case "scalar", "measurements":
		family = markers.Scalar
	default:
		http.Error(w, "unknown family: "+q.Get("family"), http.StatusBadRequest)
		return
	}
	filter, err := requestCategoryFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := svc.MarkersInBounds(minX, minY, maxX, maxY, family, filter,
		parseIntParam(q, "limit", 0), int64(parseIntParam(q, "seed", 0)))
	writeJSON(w, result)
}

// requestCategoryFilter reads the category filter from a POST body or the
// query string. nil means no filter.
func requestCategoryFilter(r *http.Request) ([]string, error) {
	var (
		filter    []string
		hasFilter bool
		err       error
	)
	if r.Method == http.MethodPost {
		filter, hasFilter, err = parseCategoryFilterBody(r)
		if err != nil {
			return nil, err
		}
	} else {
		filter, hasFilter = parseCategoryFilter(r.URL.Query())
	}
	if !hasFilter {
		return nil, nil
	}
	return filter, nil
}

func parseFloatParam(query url.Values, name string, def float64) float64 {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}

func parseIntParam(query url.Values, name string, def int) int {
	raw := strings.TrimSpace(query.Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// parseMarkerScale reads the global marker scale. Zero selects the slide's
// configured scale.
func parseMarkerScale(query url.Values) float64 {
	v := parseFloatParam(query, "scale", 0)
	if v == 0 {
		return 0
	}
	// Clamp to the renderer's range.
	if v < markers.MinScale {
		v = markers.MinScale
	}
	if v > markers.MaxScale {
		v = markers.MaxScale
	}
	// Quantize for stable caching.
	return math.Round(v*1000) / 1000
}

func parseBBox(raw string) (minX, minY, maxX, maxY float64, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("bbox must be minX,minY,maxX,maxY, got %q", raw)
	}
	var v [4]float64
	for i, p := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			return 0, 0, 0, 0, fmt.Errorf("invalid bbox value %q", p)
		}
	}
	if v[0] > v[2] || v[1] > v[3] {
		return 0, 0, 0, 0, fmt.Errorf("empty bbox %q", raw)
	}
	return v[0], v[1], v[2], v[3], nil
}
