// Package soft implements gpu.Device in software. It runs the reference
// marker pipeline into an image and is used for tests and server-side
// previews where no GPU context exists.
package soft

import (
	"fmt"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/slidemarks/viewer/internal/gpu"
)

// Device is a software gpu.Device backed by an *image.RGBA framebuffer
// holding premultiplied colors.
type Device struct {
	fb       *image.RGBA
	blend    gpu.BlendMode
	released bool

	compileErr error
	drawCalls  int
}

// Option configures a Device.
type Option func(*Device)

// WithCompileError makes NewProgram fail, emulating a driver that rejects
// the marker shaders.
func WithCompileError(err error) Option {
	return func(d *Device) {
		d.compileErr = err
	}
}

// New creates a software device with a width×height framebuffer.
func New(width, height int, opts ...Option) *Device {
	d := &Device{}
	d.Resize(width, height)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Image returns the framebuffer.
func (d *Device) Image() *image.RGBA {
	return d.fb
}

// DrawCalls returns the number of DrawPoints calls issued so far.
func (d *Device) DrawCalls() int {
	return d.drawCalls
}

// Blend returns the current blend mode.
func (d *Device) Blend() gpu.BlendMode {
	return d.blend
}

func (d *Device) NewProgram(src gpu.Sources) (gpu.Program, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	if d.compileErr != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrShaderCompile, d.compileErr)
	}
	if src.ES100.Vertex == "" || src.ES100.Fragment == "" {
		return nil, fmt.Errorf("%w: empty shader source", gpu.ErrShaderCompile)
	}
	return &program{}, nil
}

func (d *Device) NewBuffer() (gpu.Buffer, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	return &Buffer{}, nil
}

func (d *Device) NewTexture(spec gpu.TextureSpec) (gpu.Texture, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	t := &Texture{filter: spec.Filter}
	t.Upload(spec.Width, spec.Height, nil)
	return t, nil
}

func (d *Device) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if d.fb != nil && d.fb.Rect.Dx() == width && d.fb.Rect.Dy() == height {
		return
	}
	d.fb = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (d *Device) Size() (int, int) {
	return d.fb.Rect.Dx(), d.fb.Rect.Dy()
}

func (d *Device) Clear(r, g, b, a float32) {
	px := [4]uint8{toByte(r), toByte(g), toByte(b), toByte(a)}
	for i := 0; i < len(d.fb.Pix); i += 4 {
		copy(d.fb.Pix[i:i+4], px[:])
	}
}

func (d *Device) SetBlend(mode gpu.BlendMode) {
	d.blend = mode
}

func (d *Device) DrawPoints(p gpu.Program, b gpu.Buffer, count int, u *gpu.Uniforms, tex gpu.Textures) {
	if d.released || p == nil || u == nil {
		return
	}
	buf, ok := b.(*Buffer)
	if !ok || buf == nil {
		return
	}
	d.drawCalls++

	lut := sampler(tex.ColorLUT)
	scale := sampler(tex.Colorscale)
	atlas := sampler(tex.ShapeAtlas)

	n := count
	if limit := len(buf.data) / gpu.FloatsPerVertex; n > limit {
		n = limit
	}
	for i := 0; i < n; i++ {
		v := buf.data[i*gpu.FloatsPerVertex : (i+1)*gpu.FloatsPerVertex]
		out := gpu.ShadeVertex(mgl32.Vec4{v[0], v[1], v[2], v[3]}, u, lut, scale)
		if out.Culled() {
			continue
		}
		d.rasterizePoint(out, atlas)
	}
}

// rasterizePoint covers every pixel whose center lies inside the point
// sprite square, as GL point rasterization does.
func (d *Device) rasterizePoint(out gpu.VertexOut, atlas gpu.Sampler) {
	x, y := out.Position.X(), out.Position.Y()
	if x < -1 || x > 1 || y < -1 || y > 1 {
		return
	}
	w, h := d.Size()
	size := float64(out.PointSize)
	cx := (float64(x) + 1) / 2 * float64(w)
	cy := (1 - float64(y)) / 2 * float64(h)
	left, top := cx-size/2, cy-size/2

	x0 := int(math.Ceil(left - 0.5))
	x1 := int(math.Floor(left + size - 0.5))
	y0 := int(math.Ceil(top - 0.5))
	y1 := int(math.Floor(top + size - 0.5))
	for py := y0; py <= y1; py++ {
		if py < 0 || py >= h {
			continue
		}
		for px := x0; px <= x1; px++ {
			if px < 0 || px >= w {
				continue
			}
			coord := mgl32.Vec2{
				float32((float64(px) + 0.5 - left) / size),
				float32((float64(py) + 0.5 - top) / size),
			}
			frag, ok := gpu.ShadeFragment(out, coord, atlas)
			if !ok {
				continue
			}
			d.blendPixel(px, py, frag)
		}
	}
}

func (d *Device) blendPixel(x, y int, src mgl32.Vec4) {
	i := d.fb.PixOffset(x, y)
	dst := d.fb.Pix[i : i+4]
	for c := 0; c < 4; c++ {
		s := src[c]
		old := float32(dst[c]) / 255
		var v float32
		switch d.blend {
		case gpu.BlendPremultiplied:
			v = s + old*(1-src[3])
		case gpu.BlendAdditive:
			v = s + old
		default:
			v = s
		}
		dst[c] = toByte(v)
	}
}

func (d *Device) Release() {
	d.released = true
}

func toByte(v float32) uint8 {
	return uint8(math.Round(float64(mgl32.Clamp(v, 0, 1)) * 255))
}

type program struct{}

func (p *program) Release() {}

// Buffer is a vertex buffer held in memory.
type Buffer struct {
	data []float32
}

func (b *Buffer) Upload(data []float32) {
	b.data = append(b.data[:0], data...)
}

func (b *Buffer) Len() int {
	return len(b.data)
}

// Data returns the uploaded floats.
func (b *Buffer) Data() []float32 {
	return b.data
}

func (b *Buffer) Release() {
	b.data = nil
}

func sampler(t gpu.Texture) gpu.Sampler {
	if st, ok := t.(*Texture); ok && st != nil {
		return st
	}
	return nil
}
