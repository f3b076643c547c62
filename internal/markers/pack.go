package markers

import (
	"math"

	"github.com/slidemarks/viewer/internal/gpu"
	"github.com/slidemarks/viewer/pkg/colormap"
)

// DiscreteOptions configures LoadDiscretePoints.
type DiscreteOptions struct {
	// KeyOf extracts the category key. Defaults to Point.Key.
	KeyOf func(Point) string
	// StyleKeyOf extracts the key used to query the StyleSource. Defaults
	// to the category key.
	StyleKeyOf func(Point) string
	// UseMarkerColor replaces the category color with Point.Color.
	UseMarkerColor bool
}

// ScalarOptions configures LoadScalarPoints.
type ScalarOptions struct {
	// ValueOf extracts the scalar. Defaults to Point.Value.
	ValueOf func(Point) float64
	// Colorscale names the gradient. ColorscaleNone hides the family and
	// ColorscaleOwnColumn colors every point by Point.Color.
	Colorscale string
}

// ByKey returns the category key of p.
func ByKey(p Point) string { return p.Key }

// ByLabel returns the label of p, falling back to its key.
func ByLabel(p Point) string {
	if p.Label != "" {
		return p.Label
	}
	return p.Key
}

// ByValue returns the scalar value of p.
func ByValue(p Point) float64 { return p.Value }

// colorPacker memoizes hex parsing; marker colors repeat heavily.
type colorPacker map[string]float32

func (cp colorPacker) pack(hex string) float32 {
	if hex == "" {
		return 0
	}
	if v, ok := cp[hex]; ok {
		return v
	}
	var v float32
	if c, err := colormap.ParseHex(hex); err == nil {
		v = gpu.PackColor(c)
	}
	cp[hex] = v
	return v
}

// imageScale returns the reciprocal image size, treating a degenerate size
// as one pixel.
func imageScale(s Size) (float64, float64) {
	w, h := s.Width, s.Height
	if !(w > 0) {
		w = 1
	}
	if !(h > 0) {
		h = 1
	}
	return 1 / w, 1 / h
}

// packDiscrete packs points into vertex data and a fresh category index.
func packDiscrete(points []Point, img Size, opts DiscreteOptions) ([]float32, *CategoryIndex, error) {
	keyOf := opts.KeyOf
	if keyOf == nil {
		keyOf = ByKey
	}
	styleKeyOf := opts.StyleKeyOf
	if styleKeyOf == nil {
		styleKeyOf = keyOf
	}
	sx, sy := imageScale(img)
	colors := colorPacker{}
	idx := NewCategoryIndex()

	data := make([]float32, gpu.FloatsPerVertex*len(points))
	for i, p := range points {
		key := keyOf(p)
		ci, ok := idx.Lookup(key)
		if !ok {
			var err error
			if ci, err = idx.Assign(key, styleKeyOf(p)); err != nil {
				return nil, nil, err
			}
		}
		v := data[i*gpu.FloatsPerVertex : (i+1)*gpu.FloatsPerVertex]
		v[0] = float32(p.X * sx)
		v[1] = float32(p.Y * sy)
		v[2] = float32(ci) / float32(MaxCategories-1)
		if opts.UseMarkerColor {
			v[3] = colors.pack(p.Color)
		}
	}
	return data, idx, nil
}

// packScalar packs points into vertex data and returns the value range.
// An empty batch yields [0,1] and a constant batch is widened by one.
func packScalar(points []Point, img Size, opts ScalarOptions) ([]float32, float64, float64) {
	valueOf := opts.ValueOf
	if valueOf == nil {
		valueOf = ByValue
	}
	ownColor := opts.Colorscale == ColorscaleOwnColumn
	sx, sy := imageScale(img)
	colors := colorPacker{}

	lo, hi := math.Inf(1), math.Inf(-1)
	data := make([]float32, gpu.FloatsPerVertex*len(points))
	for i, p := range points {
		value := valueOf(p)
		if value < lo {
			lo = value
		}
		if value > hi {
			hi = value
		}
		v := data[i*gpu.FloatsPerVertex : (i+1)*gpu.FloatsPerVertex]
		v[0] = float32(p.X * sx)
		v[1] = float32(p.Y * sy)
		v[2] = float32(value)
		if ownColor {
			v[3] = colors.pack(p.Color)
		}
	}
	switch {
	case lo > hi:
		lo, hi = 0, 1
	case lo == hi:
		hi = lo + 1
	}
	return data, lo, hi
}
