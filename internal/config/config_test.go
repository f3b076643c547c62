package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/slidemarks/viewer/internal/markers"
)

func TestLoad_SingleSlideFormat(t *testing.T) {
	content := `
server:
  port: 9000
data:
  image_width: 40000
  image_height: 30000
  barcodes:
    path: "/data/legacy/barcodes.csv.gz"
    style_key: gene_name
  measurements:
    path: "/data/legacy/cells.csv"
cache:
  asset_size_mb: 256
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Data.DefaultSlide != "default" {
		t.Errorf("expected default slide 'default', got %q", cfg.Data.DefaultSlide)
	}
	s, ok := cfg.Data.Slides["default"]
	if !ok {
		t.Fatal("expected 'default' slide")
	}
	if s.Barcodes.Path != "/data/legacy/barcodes.csv.gz" {
		t.Errorf("unexpected barcodes path: %s", s.Barcodes.Path)
	}
	if s.Barcodes.StyleKey != StyleByGene {
		t.Errorf("unexpected style key: %s", s.Barcodes.StyleKey)
	}
	if s.ImageWidth != 40000 || s.ImageHeight != 30000 {
		t.Errorf("unexpected image size: %vx%v", s.ImageWidth, s.ImageHeight)
	}
	if cfg.Cache.AssetSizeMB != 256 {
		t.Errorf("expected cache size 256, got %d", cfg.Cache.AssetSizeMB)
	}
}

func TestLoad_MultiSlideFormat(t *testing.T) {
	content := `
server:
  port: 8080
data:
  breast:
    barcodes:
      path: "/data/breast/barcodes.csv"
      columns:
        key: barcode
  lymph:
    barcodes:
      path: "/data/lymph/barcodes.csv"
`
	cfg := loadFromString(t, content)

	if len(cfg.Data.Slides) != 2 {
		t.Fatalf("expected 2 slides, got %d", len(cfg.Data.Slides))
	}

	// First slide in YAML order should be default
	if cfg.Data.DefaultSlide != "breast" {
		t.Errorf("expected default slide 'breast', got %q", cfg.Data.DefaultSlide)
	}

	breast, ok := cfg.Data.Slides["breast"]
	if !ok {
		t.Fatal("expected 'breast' slide")
	}
	if breast.Barcodes.Columns.Key != "barcode" {
		t.Errorf("unexpected key column: %s", breast.Barcodes.Columns.Key)
	}
	if breast.Barcodes.Columns.X != "global_X_pos" {
		t.Errorf("expected default x column, got %s", breast.Barcodes.Columns.X)
	}
	if breast.Title != "breast" {
		t.Errorf("expected title to default to id, got %q", breast.Title)
	}

	// Check order preserved
	ids := cfg.Data.SlideIDs()
	if len(ids) != 2 || ids[0] != "breast" || ids[1] != "lymph" {
		t.Errorf("unexpected slide order: %v", ids)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
viewer:
  colorscale: interpolateMagma
data:
  test:
    measurements:
      path: "/test/cells.csv"
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.AssetSizeMB != 64 {
		t.Errorf("expected default cache size 64, got %d", cfg.Cache.AssetSizeMB)
	}
	if cfg.Render.ColorbarWidth != 384 || cfg.Render.ColorbarHeight != 96 {
		t.Errorf("unexpected colorbar size %dx%d", cfg.Render.ColorbarWidth, cfg.Render.ColorbarHeight)
	}
	if cfg.Viewer.MarkerOpacity != 1 {
		t.Errorf("expected default opacity 1, got %v", cfg.Viewer.MarkerOpacity)
	}
	if got := cfg.Data.Slides["test"].Measurements.Colorscale; got != "interpolateMagma" {
		t.Errorf("expected slide colorscale from viewer, got %q", got)
	}
}

func TestLoad_NoDataSection(t *testing.T) {
	content := `
server:
  port: 8080
`
	cfg := loadFromString(t, content)

	if cfg.Data.DefaultSlide != "default" {
		t.Errorf("expected default slide, got %q", cfg.Data.DefaultSlide)
	}
	if len(cfg.Data.Slides) != 1 {
		t.Errorf("expected 1 default slide, got %d", len(cfg.Data.Slides))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoad_InvalidData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("data: [1, 2]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for non-mapping data section")
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func TestSlideImageSize(t *testing.T) {
	points := []markers.Point{{X: 120.5, Y: 40}, {X: 3, Y: 80.2}}

	full := SlideConfig{ImageWidth: 1000, ImageHeight: 500}
	if got := full.ImageSize(points); got != (markers.Size{Width: 1000, Height: 500}) {
		t.Errorf("configured size: got %+v", got)
	}

	partial := SlideConfig{ImageWidth: 1000}
	if got := partial.ImageSize(points); got != (markers.Size{Width: 1000, Height: 81}) {
		t.Errorf("partial size: got %+v", got)
	}

	if got := (SlideConfig{}).ImageSize(); got != (markers.Size{Width: 1, Height: 1}) {
		t.Errorf("empty size: got %+v", got)
	}
}
