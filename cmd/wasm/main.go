//go:build js && wasm

// Package main is the browser entry point. It exposes
// window.slideMarkers.attach(viewer), which overlays the marker renderer on
// an OpenSeadragon viewer and returns an object driving it.
package main

import (
	"fmt"
	"image"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"strings"
	"syscall/js"

	"github.com/slidemarks/viewer/internal/browser"
	"github.com/slidemarks/viewer/internal/gpu/webgl"
	"github.com/slidemarks/viewer/internal/ingest"
	"github.com/slidemarks/viewer/internal/markers"
)

var logger = log.New(os.Stderr, "[markers] ", 0)

func main() {
	js.Global().Set("slideMarkers", js.ValueOf(map[string]any{
		"attach": js.FuncOf(attach),
	}))
	select {}
}

// overlay is the state behind one attached viewer.
type overlay struct {
	renderer     *markers.Renderer
	viewport     *browser.Viewport
	styles       *browser.DOMStyles
	measurements []markers.Point
	unbind       []func()
	funcs        []js.Func
}

func attach(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("attach: viewer argument required"))
	}
	vp := browser.NewViewport(args[0])
	styles := browser.NewDOMStyles()

	dev, err := webgl.NewOverlay(vp.Container())
	if err != nil {
		return errorResult(err)
	}
	opts := []markers.Option{markers.WithLogger(logger)}
	if scale, ok := styles.MarkerScale(); ok {
		opts = append(opts, markers.WithGlobalScale(scale))
	}
	r, err := markers.New(dev, vp, styles, opts...)
	if err != nil {
		return errorResult(err)
	}

	o := &overlay{renderer: r, viewport: vp, styles: styles}
	o.unbind = append(o.unbind,
		markers.Bind(r, vp, styles),
		styles.OnMarkerScale(func(scale float64) {
			r.SetGlobalScale(scale)
			r.Draw()
		}),
	)
	r.Resize()
	r.Draw()
	return o.api()
}

func (o *overlay) api() js.Value {
	methods := map[string]func(args []js.Value) any{
		"loadBarcodes":     o.loadBarcodes,
		"loadMeasurements": o.loadMeasurements,
		"setColorscale":    o.setColorscale,
		"setOpacity":       o.setOpacity,
		"setScale":         o.setScale,
		"loadShapeAtlas":   o.loadShapeAtlas,
		"updateStyles":     o.updateStyles,
		"draw":             o.draw,
		"close":            o.close,
	}
	obj := make(map[string]any, len(methods))
	for name, fn := range methods {
		f := js.FuncOf(func(this js.Value, args []js.Value) any { return fn(args) })
		o.funcs = append(o.funcs, f)
		obj[name] = f
	}
	return js.ValueOf(obj)
}

// loadBarcodes(csvText, {styleKey, useMarkerColor, columns})
func (o *overlay) loadBarcodes(args []js.Value) any {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("loadBarcodes: csv text required"))
	}
	opts := option(args, 1)
	cols := ingest.DefaultBarcodeColumns()
	if c := opts.Get("columns"); c.Truthy() {
		cols.X = stringOr(c, "x", cols.X)
		cols.Y = stringOr(c, "y", cols.Y)
		cols.Key = stringOr(c, "key", cols.Key)
		cols.Label = stringOr(c, "label", cols.Label)
		cols.Color = stringOr(c, "color", cols.Color)
	}
	points, err := ingest.ReadBarcodes(strings.NewReader(args[0].String()), cols)
	if err != nil {
		return errorResult(err)
	}

	dopts := markers.DiscreteOptions{UseMarkerColor: opts.Get("useMarkerColor").Truthy()}
	if stringOr(opts, "styleKey", "") == "gene_name" {
		dopts.StyleKeyOf = markers.ByLabel
	}
	if err := o.renderer.LoadDiscretePoints(points, dopts); err != nil {
		return errorResult(err)
	}
	o.renderer.Draw()

	idx := o.renderer.Categories()
	cats := make([]any, idx.Len())
	for i := range cats {
		cats[i] = map[string]any{"key": idx.Key(i), "styleKey": idx.StyleKey(i), "index": i}
	}
	return map[string]any{"count": len(points), "categories": cats}
}

// loadMeasurements(csvText, {colorscale, columns})
func (o *overlay) loadMeasurements(args []js.Value) any {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("loadMeasurements: csv text required"))
	}
	opts := option(args, 1)
	cols := ingest.DefaultMeasurementColumns()
	if c := opts.Get("columns"); c.Truthy() {
		cols.X = stringOr(c, "x", cols.X)
		cols.Y = stringOr(c, "y", cols.Y)
		cols.Value = stringOr(c, "value", cols.Value)
		cols.Color = stringOr(c, "color", cols.Color)
	}
	points, err := ingest.ReadMeasurements(strings.NewReader(args[0].String()), cols)
	if err != nil {
		return errorResult(err)
	}
	o.measurements = points
	colorscale := stringOr(opts, "colorscale", o.styles.Colorscale())
	if err := o.renderer.LoadScalarPoints(points, markers.ScalarOptions{Colorscale: colorscale}); err != nil {
		return errorResult(err)
	}
	o.renderer.Draw()
	lo, hi := o.renderer.ScalarRange()
	return map[string]any{"count": len(points), "min": lo, "max": hi}
}

func (o *overlay) setColorscale(args []js.Value) any {
	name := markers.ColorscaleNone
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	if err := o.renderer.LoadScalarPoints(o.measurements, markers.ScalarOptions{Colorscale: name}); err != nil {
		return errorResult(err)
	}
	o.renderer.Draw()
	return nil
}

func (o *overlay) setOpacity(args []js.Value) any {
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		o.renderer.SetOpacity(args[0].Float())
		o.renderer.Draw()
	}
	return nil
}

// setScale takes the marker size as a percentage, like the size input.
func (o *overlay) setScale(args []js.Value) any {
	if len(args) > 0 && args[0].Type() == js.TypeNumber {
		o.renderer.SetGlobalScale(args[0].Float() / 100)
		o.renderer.Draw()
	}
	return nil
}

// loadShapeAtlas fetches a PNG atlas; it is applied on the next draw.
func (o *overlay) loadShapeAtlas(args []js.Value) any {
	if len(args) < 1 {
		return errorResult(fmt.Errorf("loadShapeAtlas: url required"))
	}
	url := args[0].String()
	o.renderer.LoadShapeAtlas(func() (image.Image, error) {
		resp, err := http.Get(url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	})
	return nil
}

func (o *overlay) updateStyles(args []js.Value) any {
	o.renderer.UpdateStyleTable()
	o.renderer.Draw()
	return nil
}

func (o *overlay) draw(args []js.Value) any {
	o.renderer.Draw()
	return nil
}

func (o *overlay) close(args []js.Value) any {
	for _, unbind := range o.unbind {
		unbind()
	}
	o.renderer.Close()
	for _, f := range o.funcs {
		f.Release()
	}
	o.funcs = nil
	return nil
}

func option(args []js.Value, i int) js.Value {
	if len(args) > i && args[i].Type() == js.TypeObject {
		return args[i]
	}
	return js.ValueOf(map[string]any{})
}

func stringOr(obj js.Value, name, def string) string {
	v := obj.Get(name)
	if v.Type() != js.TypeString || v.String() == "" {
		return def
	}
	return v.String()
}

func errorResult(err error) any {
	logger.Print(err)
	return map[string]any{"error": err.Error()}
}
