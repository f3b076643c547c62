// Package config handles configuration loading for the slide marker viewer.
package config

import (
	"fmt"
	"os"

	"github.com/slidemarks/viewer/internal/ingest"
	"github.com/slidemarks/viewer/internal/markers"
	"gopkg.in/yaml.v3"
)

// Config represents the viewer configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Viewer ViewerConfig `yaml:"viewer"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	StaticDir   string   `yaml:"static_dir"`
	Index       string   `yaml:"index"`
	Title       string   `yaml:"title"`
}

// ViewerConfig contains the initial marker display settings.
type ViewerConfig struct {
	MarkerScale   float64 `yaml:"marker_scale"`
	MarkerOpacity float64 `yaml:"marker_opacity"`
	Colorscale    string  `yaml:"colorscale"`
	ShapeAtlas    string  `yaml:"shape_atlas"`
}

// DataConfig lists the slides and their marker tables in file order.
type DataConfig struct {
	DefaultSlide string
	Slides       map[string]SlideConfig
	order        []string
}

// SlideConfig describes one slide.
type SlideConfig struct {
	Title        string            `yaml:"title"`
	ImageWidth   float64           `yaml:"image_width"`
	ImageHeight  float64           `yaml:"image_height"`
	Barcodes     BarcodeSource     `yaml:"barcodes"`
	Measurements MeasurementSource `yaml:"measurements"`
}

// BarcodeSource is an in-situ sequencing table.
type BarcodeSource struct {
	Path    string                `yaml:"path"`
	Columns ingest.BarcodeColumns `yaml:"columns"`
	// StyleKey selects the column categories are styled by: "letters" or
	// "gene_name".
	StyleKey       string `yaml:"style_key"`
	UseMarkerColor bool   `yaml:"use_marker_color"`
}

// MeasurementSource is a cell measurement table.
type MeasurementSource struct {
	Path       string                    `yaml:"path"`
	Columns    ingest.MeasurementColumns `yaml:"columns"`
	Colorscale string                    `yaml:"colorscale"`
}

// Style keys.
const (
	StyleByBarcode = "letters"
	StyleByGene    = "gene_name"
)

// CacheConfig contains caching settings.
type CacheConfig struct {
	AssetSizeMB     int `yaml:"asset_size_mb"`
	AssetTTLMinutes int `yaml:"asset_ttl_minutes"`
	QueryEntries    int `yaml:"query_entries"`
}

// RenderConfig contains server-side rendering settings.
type RenderConfig struct {
	AtlasSize      int `yaml:"atlas_size"`
	ColorbarWidth  int `yaml:"colorbar_width"`
	ColorbarHeight int `yaml:"colorbar_height"`
	PreviewMaxSize int `yaml:"preview_max_size"`
}

// slideKeys are the keys of a single-slide data section.
var slideKeys = map[string]bool{
	"title": true, "image_width": true, "image_height": true,
	"barcodes": true, "measurements": true,
}

// UnmarshalYAML accepts either a single slide or a mapping of slide IDs to
// slides. A single slide is registered as "default".
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("data: expected mapping, got %v", node.Tag)
	}
	d.Slides = make(map[string]SlideConfig)
	d.order = nil

	legacy := false
	for i := 0; i < len(node.Content); i += 2 {
		if slideKeys[node.Content[i].Value] {
			legacy = true
			break
		}
	}
	if legacy {
		var s SlideConfig
		if err := node.Decode(&s); err != nil {
			return fmt.Errorf("data: %w", err)
		}
		d.add("default", s)
		d.DefaultSlide = "default"
		return nil
	}

	for i := 0; i < len(node.Content); i += 2 {
		id := node.Content[i].Value
		var s SlideConfig
		if err := node.Content[i+1].Decode(&s); err != nil {
			return fmt.Errorf("data.%s: %w", id, err)
		}
		d.add(id, s)
	}
	if len(d.order) > 0 {
		d.DefaultSlide = d.order[0]
	}
	return nil
}

func (d *DataConfig) add(id string, s SlideConfig) {
	if d.Slides == nil {
		d.Slides = make(map[string]SlideConfig)
	}
	if _, ok := d.Slides[id]; !ok {
		d.order = append(d.order, id)
	}
	d.Slides[id] = s
}

// SlideIDs returns all slide IDs in config order.
func (d *DataConfig) SlideIDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// ImageSize returns the configured image size. Unset dimensions are taken
// from the extent of the markers.
func (s SlideConfig) ImageSize(sets ...[]markers.Point) markers.Size {
	size := markers.Size{Width: s.ImageWidth, Height: s.ImageHeight}
	if size.Width > 0 && size.Height > 0 {
		return size
	}
	extent := ingest.Extent(sets...)
	if size.Width <= 0 {
		size.Width = extent.Width
	}
	if size.Height <= 0 {
		size.Height = extent.Height
	}
	return size
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			StaticDir:   "./web",
			Index:       "index.html",
			Title:       "Slide markers",
		},
		Viewer: ViewerConfig{
			MarkerScale:   1,
			MarkerOpacity: 1,
			Colorscale:    "interpolateViridis",
		},
		Cache: CacheConfig{
			AssetSizeMB:     64,
			AssetTTLMinutes: 10,
			QueryEntries:    1000,
		},
		Render: RenderConfig{
			AtlasSize:      256,
			ColorbarWidth:  384,
			ColorbarHeight: 96,
			PreviewMaxSize: 2048,
		},
	}
	cfg.Data.add("default", defaultSlide())
	cfg.Data.DefaultSlide = "default"
	applySlideDefaults(&cfg.Data, cfg.Viewer)
	return cfg
}

func defaultSlide() SlideConfig {
	return SlideConfig{
		Barcodes:     BarcodeSource{Path: "./data/barcodes.csv"},
		Measurements: MeasurementSource{Path: "./data/measurements.csv"},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = defaults.Server.StaticDir
	}
	if cfg.Server.Index == "" {
		cfg.Server.Index = defaults.Server.Index
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Viewer.MarkerScale == 0 {
		cfg.Viewer.MarkerScale = defaults.Viewer.MarkerScale
	}
	// Zero opacity hides every marker, so it is treated as unset.
	if cfg.Viewer.MarkerOpacity == 0 {
		cfg.Viewer.MarkerOpacity = defaults.Viewer.MarkerOpacity
	}
	if cfg.Viewer.Colorscale == "" {
		cfg.Viewer.Colorscale = defaults.Viewer.Colorscale
	}
	if len(cfg.Data.order) == 0 {
		cfg.Data.add("default", defaultSlide())
		cfg.Data.DefaultSlide = "default"
	}
	applySlideDefaults(&cfg.Data, cfg.Viewer)
	if cfg.Cache.AssetSizeMB == 0 {
		cfg.Cache.AssetSizeMB = defaults.Cache.AssetSizeMB
	}
	if cfg.Cache.AssetTTLMinutes == 0 {
		cfg.Cache.AssetTTLMinutes = defaults.Cache.AssetTTLMinutes
	}
	if cfg.Cache.QueryEntries == 0 {
		cfg.Cache.QueryEntries = defaults.Cache.QueryEntries
	}
	if cfg.Render.AtlasSize == 0 {
		cfg.Render.AtlasSize = defaults.Render.AtlasSize
	}
	if cfg.Render.ColorbarWidth == 0 {
		cfg.Render.ColorbarWidth = defaults.Render.ColorbarWidth
	}
	if cfg.Render.ColorbarHeight == 0 {
		cfg.Render.ColorbarHeight = defaults.Render.ColorbarHeight
	}
	if cfg.Render.PreviewMaxSize == 0 {
		cfg.Render.PreviewMaxSize = defaults.Render.PreviewMaxSize
	}
}

func applySlideDefaults(d *DataConfig, viewer ViewerConfig) {
	bc := ingest.DefaultBarcodeColumns()
	mc := ingest.DefaultMeasurementColumns()
	for id, s := range d.Slides {
		if s.Title == "" {
			s.Title = id
		}
		b := &s.Barcodes
		if b.Columns.X == "" {
			b.Columns.X = bc.X
		}
		if b.Columns.Y == "" {
			b.Columns.Y = bc.Y
		}
		if b.Columns.Key == "" {
			b.Columns.Key = bc.Key
		}
		if b.Columns.Label == "" {
			b.Columns.Label = bc.Label
		}
		if b.Columns.Color == "" {
			b.Columns.Color = bc.Color
		}
		if b.StyleKey == "" {
			b.StyleKey = StyleByBarcode
		}
		m := &s.Measurements
		if m.Columns.X == "" {
			m.Columns.X = mc.X
		}
		if m.Columns.Y == "" {
			m.Columns.Y = mc.Y
		}
		if m.Columns.Value == "" {
			m.Columns.Value = mc.Value
		}
		if m.Colorscale == "" {
			m.Colorscale = viewer.Colorscale
		}
		d.Slides[id] = s
	}
}
