//go:build !js

// Package main is the desktop marker viewer: it draws one configured slide's
// markers in a window with keyboard navigation.
//
//	arrows  pan          = / -   zoom
//	q / e   rotate       h       home
//	a       show all     1-9     toggle category
//	[ / ]   marker size  c       cycle colorscale
package main

import (
	"flag"
	"image"
	_ "image/png"
	"log"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/slidemarks/viewer/internal/config"
	"github.com/slidemarks/viewer/internal/gpu/glcore"
	"github.com/slidemarks/viewer/internal/ingest"
	"github.com/slidemarks/viewer/internal/markers"
	"github.com/slidemarks/viewer/internal/render"
	"github.com/slidemarks/viewer/pkg/colormap"
)

const (
	panStep    = 0.1
	zoomStep   = 1.25
	rotateStep = 15
	scaleStep  = 1.25
)

func init() {
	// GL calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config/server.yaml", "Path to configuration file")
	slideID := flag.String("slide", "", "Slide to show (default: the configured default)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	id := *slideID
	if id == "" {
		id = cfg.Data.DefaultSlide
	}
	sc, ok := cfg.Data.Slides[id]
	if !ok {
		log.Fatalf("Unknown slide %q", id)
	}

	var barcodes, measurements []markers.Point
	if sc.Barcodes.Path != "" {
		if barcodes, err = ingest.LoadBarcodes(sc.Barcodes.Path, sc.Barcodes.Columns); err != nil {
			log.Fatalf("Failed to load barcodes: %v", err)
		}
	}
	if sc.Measurements.Path != "" {
		if measurements, err = ingest.LoadMeasurements(sc.Measurements.Path, sc.Measurements.Columns); err != nil {
			log.Fatalf("Failed to load measurements: %v", err)
		}
	}
	log.Printf("[%s] %d barcodes, %d measurements", id, len(barcodes), len(measurements))

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize glfw: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(1024, 768, sc.Title, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	dev, err := glcore.New()
	if err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}
	log.Printf("OpenGL %s", dev.Version())

	fbw, fbh := window.GetFramebufferSize()
	view := markers.NewView(sc.ImageSize(barcodes, measurements), fbw, fbh)
	styles := markers.NewStyleTable()

	r, err := markers.New(dev, view, styles,
		markers.WithLogger(log.New(os.Stderr, "[markers] ", log.LstdFlags)),
		markers.WithGlobalScale(cfg.Viewer.MarkerScale),
		markers.WithOpacity(cfg.Viewer.MarkerOpacity),
	)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer r.Close()

	if cfg.Viewer.ShapeAtlas != "" {
		path := cfg.Viewer.ShapeAtlas
		r.LoadShapeAtlas(func() (image.Image, error) {
			defer glfw.PostEmptyEvent()
			return loadImage(path)
		})
	} else {
		r.SetShapeAtlas(render.NewAssetRenderer(render.Config{AtlasSize: cfg.Render.AtlasSize}).ShapeAtlas())
	}

	dopts := markers.DiscreteOptions{UseMarkerColor: sc.Barcodes.UseMarkerColor}
	if sc.Barcodes.StyleKey == config.StyleByGene {
		dopts.StyleKeyOf = markers.ByLabel
	}
	if err := r.LoadDiscretePoints(barcodes, dopts); err != nil {
		log.Fatalf("Failed to load barcodes: %v", err)
	}
	idx := r.Categories()
	styleKeys := make([]string, 0, idx.Len())
	seen := make(map[string]bool, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		if k := idx.StyleKey(i); !seen[k] {
			seen[k] = true
			styleKeys = append(styleKeys, k)
		}
	}
	styles.EnsureDefaults(styleKeys, colormap.Categorical)

	colorscales := append([]string{markers.ColorscaleNone}, colormap.Names()...)
	colorscale := sc.Measurements.Colorscale
	loadScalars := func() {
		if err := r.LoadScalarPoints(measurements, markers.ScalarOptions{Colorscale: colorscale}); err != nil {
			log.Printf("Failed to load measurements: %v", err)
		}
	}
	loadScalars()

	unbind := markers.Bind(r, view, styles)
	defer unbind()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		view.SetContainerSize(width, height)
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		if yoff > 0 {
			view.Zoom(zoomStep)
		} else if yoff < 0 {
			view.Zoom(1 / zoomStep)
		}
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyLeft:
			view.Pan(-panStep, 0)
		case glfw.KeyRight:
			view.Pan(panStep, 0)
		case glfw.KeyUp:
			view.Pan(0, -panStep)
		case glfw.KeyDown:
			view.Pan(0, panStep)
		case glfw.KeyEqual, glfw.KeyKPAdd:
			view.Zoom(zoomStep)
		case glfw.KeyMinus, glfw.KeyKPSubtract:
			view.Zoom(1 / zoomStep)
		case glfw.KeyQ:
			view.Rotate(-rotateStep)
		case glfw.KeyE:
			view.Rotate(rotateStep)
		case glfw.KeyH:
			view.Home()
		case glfw.KeyA:
			styles.SetShowAll(!styles.ShowAll())
		case glfw.KeyLeftBracket:
			r.SetGlobalScale(r.GlobalScale() / scaleStep)
		case glfw.KeyRightBracket:
			r.SetGlobalScale(r.GlobalScale() * scaleStep)
		case glfw.KeyC:
			colorscale = nextColorscale(colorscales, colorscale)
			log.Printf("Colorscale: %s", colorscale)
			loadScalars()
		default:
			if key >= glfw.Key1 && key <= glfw.Key9 {
				i := int(key - glfw.Key1)
				if i < len(styleKeys) {
					e, _ := styles.Style(styleKeys[i])
					styles.SetVisible(styleKeys[i], !e.Visible)
				}
			}
		}
	})

	for !window.ShouldClose() {
		r.Draw()
		window.SwapBuffers()
		glfw.WaitEvents()
	}
}

func nextColorscale(names []string, current string) string {
	for i, name := range names {
		if name == current {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
