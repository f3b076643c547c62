//go:build js && wasm

// Package browser adapts the host page to the marker renderer: an
// OpenSeadragon viewer as the viewport provider and the marker control
// panel inputs as the style source.
package browser

import (
	"syscall/js"

	"github.com/slidemarks/viewer/internal/markers"
)

// Viewport reads the state of an OpenSeadragon viewer.
type Viewport struct {
	viewer js.Value
}

// NewViewport wraps an OpenSeadragon viewer object.
func NewViewport(viewer js.Value) *Viewport {
	return &Viewport{viewer: viewer}
}

// Container returns the viewer's canvas element, where the overlay canvas
// is inserted.
func (v *Viewport) Container() js.Value {
	return v.viewer.Get("canvas")
}

// aspect is the image height over width, the height of the viewer's
// world in viewport units.
func (v *Viewport) aspect() float64 {
	home := v.viewer.Get("world").Call("getHomeBounds")
	w := home.Get("width").Float()
	if w == 0 {
		return 1
	}
	return home.Get("height").Float() / w
}

// VisibleBounds converts the viewport bounds, where the image is one unit
// wide, to normalized image coordinates.
func (v *Viewport) VisibleBounds() markers.Rect {
	b := v.viewer.Get("viewport").Call("getBounds")
	aspect := v.aspect()
	return markers.Rect{
		X:      b.Get("x").Float(),
		Y:      b.Get("y").Float() / aspect,
		Width:  b.Get("width").Float(),
		Height: b.Get("height").Float() / aspect,
	}
}

// BaseImageSize is the content size of the first tiled image.
func (v *Viewport) BaseImageSize() markers.Size {
	world := v.viewer.Get("world")
	if world.Call("getItemCount").Int() == 0 {
		return markers.Size{Width: 1, Height: v.aspect()}
	}
	size := world.Call("getItemAt", 0).Call("getContentSize")
	return markers.Size{Width: size.Get("x").Float(), Height: size.Get("y").Float()}
}

func (v *Viewport) RotationDegrees() float64 {
	return v.viewer.Get("viewport").Call("getRotation").Float()
}

func (v *Viewport) ContainerSize() (int, int) {
	size := v.viewer.Get("viewport").Get("containerSize")
	return size.Get("x").Int(), size.Get("y").Int()
}

// OnChange calls fn after the viewer opens an image, pans, zooms, rotates
// or resizes.
func (v *Viewport) OnChange(fn func()) func() {
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		return nil
	})
	events := []string{"open", "viewport-change", "resize"}
	for _, ev := range events {
		v.viewer.Call("addHandler", ev, handler)
	}
	return func() {
		for _, ev := range events {
			v.viewer.Call("removeHandler", ev, handler)
		}
		handler.Release()
	}
}
