// Package render draws the raster assets of the marker viewer with
// fogleman/gg: the shape atlas sampled by the marker shader and the
// colorbar legend of the scalar family.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

// Config contains renderer configuration.
type Config struct {
	AtlasSize      int
	ColorbarWidth  int
	ColorbarHeight int
}

// AssetRenderer renders and encodes viewer assets.
type AssetRenderer struct {
	config     Config
	bufferPool sync.Pool
}

// NewAssetRenderer creates a new asset renderer.
func NewAssetRenderer(cfg Config) *AssetRenderer {
	if cfg.AtlasSize <= 0 {
		cfg.AtlasSize = 256
	}
	if cfg.ColorbarWidth <= 0 {
		cfg.ColorbarWidth = 384
	}
	if cfg.ColorbarHeight <= 0 {
		cfg.ColorbarHeight = 96
	}
	return &AssetRenderer{
		config: cfg,
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 32*1024))
			},
		},
	}
}

// Config returns the renderer configuration with defaults applied.
func (r *AssetRenderer) Config() Config {
	return r.config
}

// EncodePNG encodes img with the fast PNG encoder.
func (r *AssetRenderer) EncodePNG(img image.Image) ([]byte, error) {
	buf := r.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		r.bufferPool.Put(buf)
	}()

	// Use fast PNG encoder
	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, img); err != nil {
		return nil, err
	}

	// Copy buffer contents (buffer will be reused)
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}

// CreateEmptyImage creates a transparent image.
func CreateEmptyImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	// Fill with transparent white
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255   // R
		img.Pix[i+1] = 255 // G
		img.Pix[i+2] = 255 // B
		img.Pix[i+3] = 0   // A (transparent)
	}
	return img
}

var white = color.White
