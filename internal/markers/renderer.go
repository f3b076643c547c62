package markers

import (
	"fmt"
	"image"
	"log"
	"math"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/slidemarks/viewer/internal/gpu"
	"github.com/slidemarks/viewer/pkg/colormap"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for shader and draw failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithGlobalScale sets the initial marker scale.
func WithGlobalScale(m float64) Option {
	return func(r *Renderer) { r.SetGlobalScale(m) }
}

// WithOpacity sets the initial marker opacity.
func WithOpacity(a float64) Option {
	return func(r *Renderer) { r.SetOpacity(a) }
}

// WithGradientCacheSize sets how many gradient tables are kept.
func WithGradientCacheSize(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.gradientCacheSize = n
		}
	}
}

// family is the per-family draw state.
type family struct {
	kind   Family
	buffer gpu.Buffer
	count  int
	// useMarkerColor is only meaningful for Discrete; the scalar family
	// follows the colorscale selection.
	useMarkerColor bool
}

type atlasResult struct {
	img image.Image
	err error
}

// Renderer draws both point families into a gpu.Device. It must only be
// used from the goroutine that owns the device.
type Renderer struct {
	dev      gpu.Device
	viewport ViewportProvider
	styles   StyleSource
	logger   *log.Logger

	program    gpu.Program
	lut        gpu.Texture
	colorscale gpu.Texture
	atlas      gpu.Texture
	families   [2]*family

	categories     *CategoryIndex
	scalarMin      float64
	scalarMax      float64
	colorscaleName string

	gradients         *lru.Cache[string, []byte]
	gradientCacheSize int

	scale   float64
	opacity float64
	ready   bool
	closed  bool

	atlasCh chan atlasResult
	done    chan struct{}
}

// New allocates the renderer's GPU resources on dev. A shader that fails
// to compile is logged and leaves the renderer inert rather than failing.
func New(dev gpu.Device, vp ViewportProvider, styles StyleSource, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, fmt.Errorf("markers: %w", gpu.ErrContextUnavailable)
	}
	if vp == nil {
		return nil, ErrNoViewport
	}
	r := &Renderer{
		dev:               dev,
		viewport:          vp,
		styles:            styles,
		logger:            log.New(os.Stderr, "[markers] ", log.LstdFlags),
		categories:        NewCategoryIndex(),
		scalarMin:         0,
		scalarMax:         1,
		colorscaleName:    ColorscaleNone,
		gradientCacheSize: 16,
		scale:             1,
		opacity:           1,
		atlasCh:           make(chan atlasResult, 1),
		done:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	gradients, err := lru.New[string, []byte](r.gradientCacheSize)
	if err != nil {
		return nil, fmt.Errorf("markers: gradient cache: %w", err)
	}
	r.gradients = gradients

	if err := r.allocate(); err != nil {
		r.Close()
		return nil, err
	}

	program, err := dev.NewProgram(gpu.MarkerSources)
	if err != nil {
		r.logger.Printf("renderer disabled: %v", err)
		return r, nil
	}
	r.program = program
	r.ready = true
	r.Resize()
	return r, nil
}

func (r *Renderer) allocate() error {
	for i := range r.families {
		buf, err := r.dev.NewBuffer()
		if err != nil {
			return fmt.Errorf("markers: %s buffer: %w", Family(i), err)
		}
		r.families[i] = &family{kind: Family(i), buffer: buf}
	}

	var err error
	if r.lut, err = r.dev.NewTexture(gpu.TextureSpec{Width: gpu.LUTSize, Height: 1, Filter: gpu.FilterNearest}); err != nil {
		return fmt.Errorf("markers: color lut: %w", err)
	}
	r.lut.Upload(gpu.LUTSize, 1, make([]byte, 4*gpu.LUTSize))

	if r.colorscale, err = r.dev.NewTexture(gpu.TextureSpec{Width: gpu.GradientSize, Height: 1, Filter: gpu.FilterLinear}); err != nil {
		return fmt.Errorf("markers: colorscale: %w", err)
	}
	r.colorscale.Upload(gpu.GradientSize, 1, make([]byte, 4*gpu.GradientSize))

	if r.atlas, err = r.dev.NewTexture(gpu.TextureSpec{Width: 1, Height: 1, Filter: gpu.FilterMipmap}); err != nil {
		return fmt.Errorf("markers: shape atlas: %w", err)
	}
	// Until the atlas arrives every glyph is a filled square.
	r.atlas.Upload(1, 1, []byte{255, 255, 255, 255})
	return nil
}

// Ready reports whether the renderer can draw.
func (r *Renderer) Ready() bool {
	return r.ready && !r.closed
}

// LoadDiscretePoints replaces the discrete family. On error the previous
// points and categories are left in place.
func (r *Renderer) LoadDiscretePoints(points []Point, opts DiscreteOptions) error {
	if r.closed {
		return gpu.ErrReleased
	}
	data, idx, err := packDiscrete(points, r.viewport.BaseImageSize(), opts)
	if err != nil {
		return fmt.Errorf("load discrete points: %w", err)
	}
	f := r.families[Discrete]
	f.buffer.Upload(data)
	f.count = len(points)
	f.useMarkerColor = opts.UseMarkerColor
	r.categories = idx
	r.UpdateStyleTable()
	return nil
}

// LoadScalarPoints replaces the scalar family and its value range.
func (r *Renderer) LoadScalarPoints(points []Point, opts ScalarOptions) error {
	if r.closed {
		return gpu.ErrReleased
	}
	data, lo, hi := packScalar(points, r.viewport.BaseImageSize(), opts)
	f := r.families[Scalar]
	f.buffer.Upload(data)
	f.count = len(points)
	r.scalarMin, r.scalarMax = lo, hi

	name := opts.Colorscale
	if name == "" {
		name = ColorscaleNone
	}
	if name != r.colorscaleName {
		r.colorscaleName = name
		r.colorscale.Upload(gpu.GradientSize, 1, r.gradient(name))
	}
	return nil
}

func (r *Renderer) gradient(name string) []byte {
	if table, ok := r.gradients.Get(name); ok {
		return table
	}
	table := colormap.Table(colormap.Resolve(name), gpu.GradientSize)
	r.gradients.Add(name, table)
	return table
}

// UpdateStyleTable rewrites the color lookup texture from the StyleSource
// for every category of the current discrete load.
func (r *Renderer) UpdateStyleTable() {
	if r.closed {
		return
	}
	r.lut.Upload(gpu.LUTSize, 1, buildLUT(r.categories, r.styles))
}

// Categories returns the category index of the current discrete load.
func (r *Renderer) Categories() *CategoryIndex {
	return r.categories
}

// ScalarRange returns the value range of the current scalar load.
func (r *Renderer) ScalarRange() (lo, hi float64) {
	return r.scalarMin, r.scalarMax
}

// Normalize maps v into the current scalar range.
func (r *Renderer) Normalize(v float64) float64 {
	return (v - r.scalarMin) / (r.scalarMax - r.scalarMin)
}

// Count returns the number of loaded points of a family.
func (r *Renderer) Count(f Family) int {
	if f < Discrete || f > Scalar {
		return 0
	}
	return r.families[f].count
}

// Colorscale returns the current scalar colorscale selection.
func (r *Renderer) Colorscale() string {
	return r.colorscaleName
}

// SetGlobalScale sets the marker scale, clamped to [MinScale, MaxScale].
func (r *Renderer) SetGlobalScale(m float64) {
	if math.IsNaN(m) {
		return
	}
	r.scale = math.Min(MaxScale, math.Max(MinScale, m))
}

// GlobalScale returns the marker scale.
func (r *Renderer) GlobalScale() float64 {
	return r.scale
}

// SetOpacity sets the marker opacity, clamped to [0, 1].
func (r *Renderer) SetOpacity(a float64) {
	if math.IsNaN(a) {
		return
	}
	r.opacity = math.Min(1, math.Max(0, a))
}

// Opacity returns the marker opacity.
func (r *Renderer) Opacity() float64 {
	return r.opacity
}

// SetShapeAtlas uploads a new shape atlas. The image holds a 4x4 grid of
// glyphs; glyph i is the cell at column i%4, row i/4.
func (r *Renderer) SetShapeAtlas(img image.Image) {
	if r.closed || img == nil {
		return
	}
	w, h, pix := gpu.Pixels(img)
	r.atlas.Upload(w, h, pix)
}

// LoadShapeAtlas runs load on its own goroutine. The result is uploaded by
// the next Draw; when several loads finish before it, the last one wins.
// Loads still running at Close are discarded.
func (r *Renderer) LoadShapeAtlas(load func() (image.Image, error)) {
	if r.closed {
		return
	}
	ch, done := r.atlasCh, r.done
	go func() {
		img, err := load()
		res := atlasResult{img: img, err: err}
		for {
			select {
			case <-done:
				return
			case ch <- res:
				return
			default:
			}
			// Drop the stale pending result.
			select {
			case <-ch:
			default:
			}
		}
	}()
}

func (r *Renderer) pollAtlas() {
	select {
	case res := <-r.atlasCh:
		if res.err != nil {
			r.logger.Printf("shape atlas: %v", res.err)
			return
		}
		r.SetShapeAtlas(res.img)
	default:
	}
}

// Resize matches the device size to the viewport container.
func (r *Renderer) Resize() {
	if r.closed {
		return
	}
	w, h := r.viewport.ContainerSize()
	if cw, ch := r.dev.Size(); cw == w && ch == h {
		return
	}
	r.dev.Resize(w, h)
}

// Draw renders both families for the current viewport. It never panics.
func (r *Renderer) Draw() {
	if !r.Ready() {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("draw failed: %v", rec)
		}
	}()
	r.pollAtlas()

	u := viewUniforms(r.viewport.VisibleBounds(), r.viewport.BaseImageSize(), r.viewport.RotationDegrees())
	u.Opacity = float32(r.opacity)
	u.ScalarRange[0], u.ScalarRange[1] = float32(r.scalarMin), float32(r.scalarMax)
	tex := gpu.Textures{ColorLUT: r.lut, Colorscale: r.colorscale, ShapeAtlas: r.atlas}

	r.dev.Clear(0, 0, 0, 0)
	r.dev.SetBlend(gpu.BlendPremultiplied)
	for _, f := range r.families {
		r.drawFamily(f, u, tex)
	}
	r.dev.SetBlend(gpu.BlendAdditive)
	r.dev.SetBlend(gpu.BlendDisabled)
}

// drawFamily issues one point draw with the family's shading parameters.
func (r *Renderer) drawFamily(f *family, u gpu.Uniforms, tex gpu.Textures) {
	if f.count == 0 {
		return
	}
	switch f.kind {
	case Discrete:
		u.MarkerType = gpu.MarkerDiscrete
		u.MarkerScale = float32(r.scale)
		u.UseColorFromMarker = f.useMarkerColor
	case Scalar:
		if r.colorscaleName == ColorscaleNone {
			return
		}
		u.MarkerType = gpu.MarkerScalar
		u.MarkerScale = float32(r.scale * 0.5)
		u.UseColorFromMarker = r.colorscaleName == ColorscaleOwnColumn
	}
	r.dev.DrawPoints(r.program, f.buffer, f.count, &u, tex)
}

// Close releases every GPU resource and the device.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.ready = false
	close(r.done)
	for _, f := range r.families {
		if f != nil {
			f.buffer.Release()
		}
	}
	for _, t := range []gpu.Texture{r.lut, r.colorscale, r.atlas} {
		if t != nil {
			t.Release()
		}
	}
	if r.program != nil {
		r.program.Release()
	}
	r.dev.Release()
}
