//go:build js && wasm

package browser

import (
	"image/color"
	"strconv"
	"syscall/js"

	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/pkg/colormap"
)

// Element ids of the marker control panel. Per-category inputs are the
// style key followed by the suffix.
const (
	ColorSuffix  = "-color-ISS"
	ShapeSuffix  = "-shape-ISS"
	CheckSuffix  = "-check-ISS"
	ShowAllID    = "AllMarkers-checkbox-ISS"
	PanelID      = "ISS_markers"
	MarkerSizeID = "ISS_globalmarkersize_text"
	ColorscaleID = "CP_colorscale"
)

// DOMStyles reads category styles from the control panel inputs.
type DOMStyles struct {
	doc js.Value
}

// NewDOMStyles reads inputs from the page document.
func NewDOMStyles() *DOMStyles {
	return &DOMStyles{doc: js.Global().Get("document")}
}

func (s *DOMStyles) element(id string) (js.Value, bool) {
	el := s.doc.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return js.Value{}, false
	}
	return el, true
}

// Style reads the colour, shape and checkbox of a category. A category
// without any input has no style. Missing inputs of a partly built row
// default to black, shape 0 and visible.
func (s *DOMStyles) Style(key string) (markers.StyleEntry, bool) {
	colorEl, hasColor := s.element(key + ColorSuffix)
	shapeEl, hasShape := s.element(key + ShapeSuffix)
	checkEl, hasCheck := s.element(key + CheckSuffix)
	if !hasColor && !hasShape && !hasCheck {
		return markers.StyleEntry{}, false
	}

	e := markers.StyleEntry{Color: color.RGBA{A: 255}, Visible: true}
	if hasColor {
		if c, err := colormap.ParseHex(colorEl.Get("value").String()); err == nil {
			e.Color = c
		}
	}
	if hasShape {
		if n, err := strconv.Atoi(shapeEl.Get("value").String()); err == nil {
			e.Shape = n
		}
	}
	if hasCheck {
		e.Visible = checkEl.Get("checked").Truthy()
	}
	return e, true
}

func (s *DOMStyles) ShowAll() bool {
	el, ok := s.element(ShowAllID)
	return ok && el.Get("checked").Truthy()
}

// OnChange calls fn when any input of the marker panel changes.
func (s *DOMStyles) OnChange(fn func()) func() {
	panel, ok := s.element(PanelID)
	if !ok {
		return func() {}
	}
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		return nil
	})
	panel.Call("addEventListener", "change", handler)
	return func() {
		panel.Call("removeEventListener", "change", handler)
		handler.Release()
	}
}

// MarkerScale reads the global marker size input, a percentage. It returns
// false when the input is absent or not a number.
func (s *DOMStyles) MarkerScale() (float64, bool) {
	el, ok := s.element(MarkerSizeID)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(el.Get("value").String(), 64)
	if err != nil {
		return 0, false
	}
	return v / 100, true
}

// Colorscale reads the selected measurement colorscale, or "null" when the
// selector is absent.
func (s *DOMStyles) Colorscale() string {
	el, ok := s.element(ColorscaleID)
	if !ok {
		return markers.ColorscaleNone
	}
	return el.Get("value").String()
}

// OnMarkerScale calls fn with the new scale whenever the size input changes.
func (s *DOMStyles) OnMarkerScale(fn func(scale float64)) func() {
	el, ok := s.element(MarkerSizeID)
	if !ok {
		return func() {}
	}
	handler := js.FuncOf(func(this js.Value, args []js.Value) any {
		if v, ok := s.MarkerScale(); ok {
			fn(v)
		}
		return nil
	})
	el.Call("addEventListener", "input", handler)
	return func() {
		el.Call("removeEventListener", "input", handler)
		handler.Release()
	}
}
