// Package markers renders point markers over a zoomable slide image with a
// single point-sprite GPU pipeline. Per-category styling (color, shape,
// visibility) lives in a lookup texture so that style edits never touch the
// vertex data.
package markers

import (
	"errors"
	"fmt"
	"image/color"
)

// ErrTooManyCategories is returned when a discrete load has more distinct
// category keys than the lookup texture has texels.
var ErrTooManyCategories = fmt.Errorf("more than %d distinct categories", MaxCategories)

// ErrNoViewport is returned when the renderer is built without a viewport.
var ErrNoViewport = errors.New("markers: viewport provider is required")

// MaxCategories is the number of texels in the category lookup texture.
const MaxCategories = 4096

// Global marker scale limits.
const (
	MinScale = 0.01
	MaxScale = 5.0
)

// Colorscale names with special meaning for the scalar family.
const (
	ColorscaleNone      = "null"
	ColorscaleOwnColumn = "ownColorFromColumn"
)

// Family tags the two point families. Their shading rules differ, so each
// has its own vertex buffer.
type Family int

const (
	// Discrete points are styled per category through the lookup texture
	// (in-situ sequencing barcodes).
	Discrete Family = iota
	// Scalar points are colored by a continuous value through the gradient
	// texture (cell measurements).
	Scalar
)

func (f Family) String() string {
	switch f {
	case Discrete:
		return "discrete"
	case Scalar:
		return "scalar"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Point is one ingested marker record. Positions are in image pixels.
type Point struct {
	X, Y  float64
	Key   string
	Label string
	Value float64
	// Color is an optional "#RRGGBB" override.
	Color string
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Size is a width and height pair.
type Size struct {
	Width, Height float64
}

// StyleEntry is the styling of one category.
type StyleEntry struct {
	Color   color.RGBA
	Shape   int
	Visible bool
}
