// Package service provides business logic for the marker viewer server.
package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/slidemarks/viewer/internal/cache"
	"github.com/slidemarks/viewer/internal/gpu/soft"
	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/render"
	"github.com/slidemarks/viewer/pkg/colormap"
)

// Style keys understood by MarkerServiceConfig.StyleKey.
const (
	StyleByBarcode = "letters"
	StyleByGene    = "gene_name"
)

const (
	defaultPreviewSize = 512
	defaultQueryLimit  = 5000
	maxQueryLimit      = 50000
)

// MarkerServiceConfig contains marker service configuration.
type MarkerServiceConfig struct {
	SlideID        string
	Title          string
	ImageSize      markers.Size
	Barcodes       []markers.Point
	Measurements   []markers.Point
	StyleKey       string
	UseMarkerColor bool
	Colorscale     string
	ValueName      string
	MarkerScale    float64
	Opacity        float64
	PreviewMaxSize int
	Cache          *cache.Manager
	Renderer       *render.AssetRenderer
}

// CategoryLegendItem represents a legend item for a barcode category.
type CategoryLegendItem struct {
	Key      string `json:"key"`
	StyleKey string `json:"style_key"`
	Color    string `json:"color"`
	Shape    int    `json:"shape"`
	Index    int    `json:"index"`
	Count    int    `json:"count"`
}

// MarkerInfo is one marker returned by a region query.
type MarkerInfo struct {
	ID     int64   `json:"id"`
	Family string  `json:"family"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Key    string  `json:"key,omitempty"`
	Label  string  `json:"label,omitempty"`
	Value  float64 `json:"value"`
}

// MarkerQueryResult is the result of a region query.
type MarkerQueryResult struct {
	Markers    []MarkerInfo `json:"markers"`
	TotalCount int          `json:"total_count"`
	Truncated  bool         `json:"truncated"`
}

// PreviewRequest describes a server-rendered view of the markers.
type PreviewRequest struct {
	// Bounds is the visible region in normalized image coordinates.
	Bounds   markers.Rect
	Rotation float64
	Width    int
	Height   int
	Scale    float64
	// Categories lists the category or style keys to show. nil shows
	// every category and an empty list shows none.
	Categories []string
	Colorscale string
}

func (p PreviewRequest) viewKey() string {
	b := p.Bounds
	return fmt.Sprintf("%g,%g,%g,%g,%g@%dx%d:%s", b.X, b.Y, b.Width, b.Height, p.Rotation, p.Width, p.Height, p.Colorscale)
}

// MarkerService serves the markers of one slide.
type MarkerService struct {
	cfg      MarkerServiceConfig
	cache    *cache.Manager
	assets   *render.AssetRenderer
	styles   *markers.StyleTable
	legend   []CategoryLegendItem
	scalarLo float64
	scalarHi float64

	// Preview rendering shares one software device.
	mu       sync.Mutex
	dev      *soft.Device
	view     *markers.View
	renderer *markers.Renderer
}

// NewMarkerService loads the slide's markers into a preview renderer.
func NewMarkerService(cfg MarkerServiceConfig) (*MarkerService, error) {
	if cfg.Renderer == nil {
		cfg.Renderer = render.NewAssetRenderer(render.Config{})
	}
	if cfg.PreviewMaxSize <= 0 {
		cfg.PreviewMaxSize = 2048
	}
	if cfg.MarkerScale <= 0 {
		cfg.MarkerScale = 1
	}
	if cfg.Opacity <= 0 {
		cfg.Opacity = 1
	}
	if cfg.Title == "" {
		cfg.Title = cfg.SlideID
	}

	s := &MarkerService{
		cfg:    cfg,
		cache:  cfg.Cache,
		assets: cfg.Renderer,
		styles: markers.NewStyleTable(),
	}
	if err := s.buildLegend(); err != nil {
		return nil, err
	}

	s.dev = soft.New(defaultPreviewSize, defaultPreviewSize)
	s.view = markers.NewView(cfg.ImageSize, defaultPreviewSize, defaultPreviewSize)
	r, err := markers.New(s.dev, s.view, s.styles,
		markers.WithGlobalScale(cfg.MarkerScale),
		markers.WithOpacity(cfg.Opacity),
		markers.WithLogger(log.New(os.Stderr, "[preview "+cfg.SlideID+"] ", log.LstdFlags)),
	)
	if err != nil {
		return nil, fmt.Errorf("slide %s: %w", cfg.SlideID, err)
	}
	r.SetShapeAtlas(s.assets.ShapeAtlas())
	if err := r.LoadDiscretePoints(cfg.Barcodes, s.discreteOptions()); err != nil {
		r.Close()
		return nil, fmt.Errorf("slide %s: %w", cfg.SlideID, err)
	}
	if err := r.LoadScalarPoints(cfg.Measurements, markers.ScalarOptions{Colorscale: cfg.Colorscale}); err != nil {
		r.Close()
		return nil, fmt.Errorf("slide %s: %w", cfg.SlideID, err)
	}
	s.renderer = r
	s.scalarLo, s.scalarHi = r.ScalarRange()
	return s, nil
}

func (s *MarkerService) discreteOptions() markers.DiscreteOptions {
	opts := markers.DiscreteOptions{UseMarkerColor: s.cfg.UseMarkerColor}
	if s.cfg.StyleKey == StyleByGene {
		opts.StyleKeyOf = markers.ByLabel
	}
	return opts
}

// buildLegend indexes the barcode categories and gives every style key a
// default style.
func (s *MarkerService) buildLegend() error {
	opts := s.discreteOptions()
	styleKeyOf := opts.StyleKeyOf
	if styleKeyOf == nil {
		styleKeyOf = markers.ByKey
	}

	idx := markers.NewCategoryIndex()
	var counts []int
	for _, p := range s.cfg.Barcodes {
		i, err := idx.Assign(p.Key, styleKeyOf(p))
		if err != nil {
			return fmt.Errorf("slide %s: %w", s.cfg.SlideID, err)
		}
		if i == len(counts) {
			counts = append(counts, 0)
		}
		counts[i]++
	}

	var styleKeys []string
	seen := make(map[string]bool)
	for i := 0; i < idx.Len(); i++ {
		if k := idx.StyleKey(i); !seen[k] {
			seen[k] = true
			styleKeys = append(styleKeys, k)
		}
	}
	s.styles.EnsureDefaults(styleKeys, colormap.Categorical)

	s.legend = make([]CategoryLegendItem, idx.Len())
	for i := range s.legend {
		e, _ := s.styles.Style(idx.StyleKey(i))
		s.legend[i] = CategoryLegendItem{
			Key:      idx.Key(i),
			StyleKey: idx.StyleKey(i),
			Color:    colormap.Hex(e.Color),
			Shape:    e.Shape,
			Index:    i,
			Count:    counts[i],
		}
	}
	return nil
}

// ID returns the slide ID.
func (s *MarkerService) ID() string {
	return s.cfg.SlideID
}

// Title returns the slide title.
func (s *MarkerService) Title() string {
	return s.cfg.Title
}

// ImageSize returns the base image size in pixels.
func (s *MarkerService) ImageSize() markers.Size {
	return s.cfg.ImageSize
}

// Counts returns the number of markers per family.
func (s *MarkerService) Counts() (barcodes, measurements int) {
	return len(s.cfg.Barcodes), len(s.cfg.Measurements)
}

// Colorscale returns the default colorscale of the measurements.
func (s *MarkerService) Colorscale() string {
	return s.cfg.Colorscale
}

// ScalarRange returns the value range of the measurements.
func (s *MarkerService) ScalarRange() (lo, hi float64) {
	return s.scalarLo, s.scalarHi
}

// Legend returns the barcode categories in index order.
func (s *MarkerService) Legend() []CategoryLegendItem {
	out := make([]CategoryLegendItem, len(s.legend))
	copy(out, s.legend)
	return out
}

// LegendJSON returns the encoded legend, cached per style key.
func (s *MarkerService) LegendJSON() ([]byte, error) {
	key := cache.CategoriesKey(s.cfg.SlideID, s.cfg.StyleKey)
	if s.cache != nil {
		if data, ok := s.cache.GetQuery(key); ok {
			return data, nil
		}
	}
	data, err := json.Marshal(s.legend)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetQuery(key, data)
	}
	return data, nil
}

// ShapeAtlas returns the shape atlas PNG.
func (s *MarkerService) ShapeAtlas() ([]byte, error) {
	return s.cachedAsset(cache.AtlasKey(s.assets.Config().AtlasSize), s.assets.RenderShapeAtlas)
}

// Colorbar returns the legend PNG of the measurements for a colorscale.
// An empty name selects the configured colorscale.
func (s *MarkerService) Colorbar(colorscale string) ([]byte, error) {
	if colorscale == "" {
		colorscale = s.cfg.Colorscale
	}
	key := s.cfg.SlideID + ":" + cache.ColorbarKey(colorscale, s.cfg.ValueName, s.scalarLo, s.scalarHi)
	return s.cachedAsset(key, func() ([]byte, error) {
		return s.assets.RenderColorbar(colorscale, s.cfg.ValueName, s.scalarLo, s.scalarHi)
	})
}

// Gradient returns the colorscale lookup strip as PNG.
func (s *MarkerService) Gradient(colorscale string) ([]byte, error) {
	if colorscale == "" {
		colorscale = s.cfg.Colorscale
	}
	return s.cachedAsset(cache.GradientKey(colorscale), func() ([]byte, error) {
		return s.assets.RenderGradient(colorscale)
	})
}

func (s *MarkerService) cachedAsset(key string, build func() ([]byte, error)) ([]byte, error) {
	if s.cache != nil {
		if data, ok := s.cache.GetAsset(key); ok {
			return data, nil
		}
	}
	data, err := build()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetAsset(key, data); err != nil {
			log.Printf("cache %s: %v", key, err)
		}
	}
	return data, nil
}

func (s *MarkerService) normalizePreview(req PreviewRequest) PreviewRequest {
	if req.Width <= 0 {
		req.Width = defaultPreviewSize
	}
	if req.Height <= 0 {
		req.Height = defaultPreviewSize
	}
	if req.Width > s.cfg.PreviewMaxSize {
		req.Width = s.cfg.PreviewMaxSize
	}
	if req.Height > s.cfg.PreviewMaxSize {
		req.Height = s.cfg.PreviewMaxSize
	}
	if !(req.Bounds.Width > 0) || !(req.Bounds.Height > 0) {
		req.Bounds = markers.Rect{Width: 1, Height: 1}
	}
	if req.Scale <= 0 {
		req.Scale = s.cfg.MarkerScale
	}
	if req.Colorscale == "" {
		req.Colorscale = s.cfg.Colorscale
	}
	return req
}

// Preview renders the markers for a view into a PNG.
func (s *MarkerService) Preview(req PreviewRequest) ([]byte, error) {
	req = s.normalizePreview(req)
	key := cache.PreviewKey(s.cfg.SlideID, req.viewKey(), req.Scale, req.Categories)
	if s.cache != nil {
		if data, ok := s.cache.GetAsset(key); ok {
			return data, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.view.SetContainerSize(req.Width, req.Height)
	s.view.SetBounds(req.Bounds)
	s.view.SetRotation(req.Rotation)
	s.renderer.Resize()
	s.renderer.SetGlobalScale(req.Scale)

	s.applyFilter(req.Categories)
	s.renderer.UpdateStyleTable()
	if req.Colorscale != s.renderer.Colorscale() {
		if err := s.renderer.LoadScalarPoints(s.cfg.Measurements, markers.ScalarOptions{Colorscale: req.Colorscale}); err != nil {
			return nil, fmt.Errorf("failed to load measurements: %w", err)
		}
	}
	s.renderer.Draw()

	data, err := s.assets.EncodePNG(s.dev.Image())
	if err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetAsset(key, data); err != nil {
			log.Printf("cache %s: %v", key, err)
		}
	}
	return data, nil
}

func (s *MarkerService) applyFilter(filter []string) {
	set := make(map[string]bool, len(filter))
	for _, c := range filter {
		set[c] = true
	}
	visible := make(map[string]bool, len(s.legend))
	for _, item := range s.legend {
		if filter == nil || set[item.Key] || set[item.StyleKey] {
			visible[item.StyleKey] = true
		}
	}
	s.styles.Batch(func() {
		for _, item := range s.legend {
			s.styles.SetVisible(item.StyleKey, visible[item.StyleKey])
		}
	})
}

// MarkersInBounds returns the markers of a family inside an image-pixel
// rectangle. A nil filter keeps every category and an empty one keeps
// none. Results above limit are sampled deterministically by seed.
func (s *MarkerService) MarkersInBounds(
	minX, minY, maxX, maxY float64,
	family markers.Family,
	categoryFilter []string,
	limit int,
	seed int64,
) *MarkerQueryResult {
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	// Match preview filtering semantics:
	// - nil  => no filter (show all)
	// - []   => filter-to-none (show none)
	if categoryFilter != nil && len(categoryFilter) == 0 {
		return &MarkerQueryResult{Markers: []MarkerInfo{}}
	}
	var allowed map[string]bool
	if categoryFilter != nil {
		allowed = make(map[string]bool, len(categoryFilter))
		for _, c := range categoryFilter {
			allowed[c] = true
		}
	}

	points := s.cfg.Barcodes
	if family == markers.Scalar {
		points = s.cfg.Measurements
	}
	found := []MarkerInfo{}
	for i, p := range points {
		if p.X < minX || p.X > maxX || p.Y < minY || p.Y > maxY {
			continue
		}
		if allowed != nil && family == markers.Discrete && !allowed[p.Key] && !allowed[p.Label] {
			continue
		}
		found = append(found, MarkerInfo{
			ID:     int64(i),
			Family: family.String(),
			X:      p.X,
			Y:      p.Y,
			Key:    p.Key,
			Label:  p.Label,
			Value:  p.Value,
		})
	}

	result := &MarkerQueryResult{Markers: found, TotalCount: len(found)}
	if len(found) > limit {
		result.Markers = deterministicSample(found, limit, seed)
		result.Truncated = true
	}
	return result
}

// Close releases the preview renderer.
func (s *MarkerService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderer != nil {
		s.renderer.Close()
	}
}
