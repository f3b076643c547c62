//go:build js && wasm

// Package webgl implements gpu.Device on a WebGL 1 context of a transparent
// overlay canvas stacked over the slide viewer's own drawing surface.
package webgl

import (
	"encoding/binary"
	"fmt"
	"syscall/js"

	"github.com/slidemarks/viewer/internal/gpu"
	"golang.org/x/mobile/exp/f32"
)

// CanvasClass marks the overlay canvas so an existing one is reused.
const CanvasClass = "gl_canvas"

// Device is a WebGL gpu.Device.
type Device struct {
	canvas   js.Value
	gl       js.Value
	c        glConsts
	released bool
}

type glConsts struct {
	arrayBuffer        int
	staticDraw         int
	floatType          int
	points             int
	texture2D          int
	texture0           int
	rgba               int
	unsignedByte       int
	textureMinFilter   int
	textureMagFilter   int
	textureWrapS       int
	textureWrapT       int
	nearest            int
	linear             int
	linearMipmapLinear int
	clampToEdge        int
	colorBufferBit     int
	blend              int
	one                int
	oneMinusSrcAlpha   int
	compileStatus      int
	linkStatus         int
	vertexShader       int
	fragmentShader     int
	unpackAlignment    int
}

// NewOverlay finds or creates the overlay canvas inside container and
// acquires a WebGL context on it.
func NewOverlay(container js.Value) (*Device, error) {
	if container.IsUndefined() || container.IsNull() {
		return nil, fmt.Errorf("%w: no container element", gpu.ErrContextUnavailable)
	}
	doc := js.Global().Get("document")
	var canvas js.Value
	existing := container.Call("getElementsByClassName", CanvasClass)
	if existing.Length() > 0 {
		canvas = existing.Index(0)
	} else {
		canvas = doc.Call("createElement", "canvas")
		canvas.Set("className", CanvasClass)
		canvas.Set("width", 1)
		canvas.Set("height", 1)
		canvas.Get("style").Set("cssText", "position:relative; pointer-events:none")
		container.Call("appendChild", canvas)
	}
	return New(canvas)
}

// New acquires a WebGL context on canvas.
func New(canvas js.Value) (*Device, error) {
	ctx := canvas.Call("getContext", "webgl", map[string]any{
		"antialias":          false,
		"premultipliedAlpha": true,
	})
	if ctx.IsUndefined() || ctx.IsNull() {
		return nil, fmt.Errorf("%w: webgl not supported", gpu.ErrContextUnavailable)
	}
	d := &Device{canvas: canvas, gl: ctx}
	d.c = loadConsts(ctx)
	return d, nil
}

func loadConsts(gl js.Value) glConsts {
	get := func(name string) int { return gl.Get(name).Int() }
	return glConsts{
		arrayBuffer:        get("ARRAY_BUFFER"),
		staticDraw:         get("STATIC_DRAW"),
		floatType:          get("FLOAT"),
		points:             get("POINTS"),
		texture2D:          get("TEXTURE_2D"),
		texture0:           get("TEXTURE0"),
		rgba:               get("RGBA"),
		unsignedByte:       get("UNSIGNED_BYTE"),
		textureMinFilter:   get("TEXTURE_MIN_FILTER"),
		textureMagFilter:   get("TEXTURE_MAG_FILTER"),
		textureWrapS:       get("TEXTURE_WRAP_S"),
		textureWrapT:       get("TEXTURE_WRAP_T"),
		nearest:            get("NEAREST"),
		linear:             get("LINEAR"),
		linearMipmapLinear: get("LINEAR_MIPMAP_LINEAR"),
		clampToEdge:        get("CLAMP_TO_EDGE"),
		colorBufferBit:     get("COLOR_BUFFER_BIT"),
		blend:              get("BLEND"),
		one:                get("ONE"),
		oneMinusSrcAlpha:   get("ONE_MINUS_SRC_ALPHA"),
		compileStatus:      get("COMPILE_STATUS"),
		linkStatus:         get("LINK_STATUS"),
		vertexShader:       get("VERTEX_SHADER"),
		fragmentShader:     get("FRAGMENT_SHADER"),
		unpackAlignment:    get("UNPACK_ALIGNMENT"),
	}
}

// Canvas returns the overlay canvas element.
func (d *Device) Canvas() js.Value {
	return d.canvas
}

func (d *Device) NewProgram(src gpu.Sources) (gpu.Program, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	vs, err := d.compileShader(src.ES100.Vertex, d.c.vertexShader, "vertex")
	if err != nil {
		return nil, err
	}
	fs, err := d.compileShader(src.ES100.Fragment, d.c.fragmentShader, "fragment")
	if err != nil {
		d.gl.Call("deleteShader", vs)
		return nil, err
	}

	id := d.gl.Call("createProgram")
	d.gl.Call("attachShader", id, vs)
	d.gl.Call("attachShader", id, fs)
	d.gl.Call("bindAttribLocation", id, 0, gpu.AttribPosition)
	d.gl.Call("deleteShader", vs)
	d.gl.Call("deleteShader", fs)
	d.gl.Call("linkProgram", id)
	if !d.gl.Call("getProgramParameter", id, d.c.linkStatus).Truthy() {
		info := d.gl.Call("getProgramInfoLog", id).String()
		d.gl.Call("deleteProgram", id)
		return nil, fmt.Errorf("%w: link: %s", gpu.ErrShaderCompile, info)
	}

	p := &program{gl: d.gl, id: id, uniforms: make(map[string]js.Value)}
	for _, name := range []string{
		gpu.UniformImageSize,
		gpu.UniformViewportRect,
		gpu.UniformViewportTransform,
		gpu.UniformMarkerType,
		gpu.UniformMarkerScale,
		gpu.UniformScalarRange,
		gpu.UniformOpacity,
		gpu.UniformUseColorFromMarker,
		gpu.UniformColorLUT,
		gpu.UniformColorscale,
		gpu.UniformShapeAtlas,
	} {
		p.uniforms[name] = d.gl.Call("getUniformLocation", id, name)
	}
	return p, nil
}

func (d *Device) compileShader(source string, kind int, name string) (js.Value, error) {
	shader := d.gl.Call("createShader", kind)
	d.gl.Call("shaderSource", shader, source)
	d.gl.Call("compileShader", shader)
	if !d.gl.Call("getShaderParameter", shader, d.c.compileStatus).Truthy() {
		info := d.gl.Call("getShaderInfoLog", shader).String()
		d.gl.Call("deleteShader", shader)
		return js.Null(), fmt.Errorf("%w: %s: %s", gpu.ErrShaderCompile, name, info)
	}
	return shader, nil
}

func (d *Device) NewBuffer() (gpu.Buffer, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	return &buffer{d: d, id: d.gl.Call("createBuffer")}, nil
}

func (d *Device) NewTexture(spec gpu.TextureSpec) (gpu.Texture, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	t := &texture{d: d, id: d.gl.Call("createTexture"), filter: spec.Filter}
	minFilter, magFilter := d.c.nearest, d.c.nearest
	switch spec.Filter {
	case gpu.FilterLinear:
		minFilter, magFilter = d.c.linear, d.c.linear
	case gpu.FilterMipmap:
		minFilter, magFilter = d.c.linearMipmapLinear, d.c.linear
	}
	d.gl.Call("bindTexture", d.c.texture2D, t.id)
	d.gl.Call("texParameteri", d.c.texture2D, d.c.textureWrapS, d.c.clampToEdge)
	d.gl.Call("texParameteri", d.c.texture2D, d.c.textureWrapT, d.c.clampToEdge)
	d.gl.Call("texParameteri", d.c.texture2D, d.c.textureMinFilter, minFilter)
	d.gl.Call("texParameteri", d.c.texture2D, d.c.textureMagFilter, magFilter)
	d.gl.Call("bindTexture", d.c.texture2D, js.Null())
	if spec.Width > 0 && spec.Height > 0 {
		t.Upload(spec.Width, spec.Height, make([]byte, 4*spec.Width*spec.Height))
	}
	return t, nil
}

// Resize sets the canvas backing store size.
func (d *Device) Resize(width, height int) {
	d.canvas.Set("width", width)
	d.canvas.Set("height", height)
}

func (d *Device) Size() (int, int) {
	return d.canvas.Get("width").Int(), d.canvas.Get("height").Int()
}

func (d *Device) Clear(r, g, b, a float32) {
	d.gl.Call("clearColor", r, g, b, a)
	d.gl.Call("clear", d.c.colorBufferBit)
}

func (d *Device) SetBlend(mode gpu.BlendMode) {
	switch mode {
	case gpu.BlendPremultiplied:
		d.gl.Call("enable", d.c.blend)
		d.gl.Call("blendFunc", d.c.one, d.c.oneMinusSrcAlpha)
	case gpu.BlendAdditive:
		d.gl.Call("enable", d.c.blend)
		d.gl.Call("blendFunc", d.c.one, d.c.one)
	default:
		d.gl.Call("disable", d.c.blend)
	}
}

func (d *Device) DrawPoints(p gpu.Program, b gpu.Buffer, count int, u *gpu.Uniforms, tex gpu.Textures) {
	prog, ok := p.(*program)
	if !ok || prog == nil || u == nil || count <= 0 {
		return
	}
	buf, ok := b.(*buffer)
	if !ok || buf == nil {
		return
	}
	gl := d.gl
	w, h := d.Size()

	gl.Call("useProgram", prog.id)
	gl.Call("viewport", 0, 0, w, h)
	gl.Call("uniform2f", prog.uniforms[gpu.UniformImageSize], u.ImageSize.X(), u.ImageSize.Y())
	gl.Call("uniform4f", prog.uniforms[gpu.UniformViewportRect],
		u.ViewportRect.X(), u.ViewportRect.Y(), u.ViewportRect.Z(), u.ViewportRect.W())
	m := u.ViewportTransform
	gl.Call("uniformMatrix2fv", prog.uniforms[gpu.UniformViewportTransform], false,
		[]any{m[0], m[1], m[2], m[3]})
	gl.Call("uniform1i", prog.uniforms[gpu.UniformMarkerType], int(u.MarkerType))
	gl.Call("uniform1f", prog.uniforms[gpu.UniformMarkerScale], u.MarkerScale)
	gl.Call("uniform2f", prog.uniforms[gpu.UniformScalarRange], u.ScalarRange.X(), u.ScalarRange.Y())
	gl.Call("uniform1f", prog.uniforms[gpu.UniformOpacity], u.Opacity)
	gl.Call("uniform1i", prog.uniforms[gpu.UniformUseColorFromMarker], u.UseColorFromMarker)

	d.bindTexture(prog.uniforms[gpu.UniformColorLUT], gpu.UnitColorLUT, tex.ColorLUT)
	d.bindTexture(prog.uniforms[gpu.UniformColorscale], gpu.UnitColorscale, tex.Colorscale)
	d.bindTexture(prog.uniforms[gpu.UniformShapeAtlas], gpu.UnitShapeAtlas, tex.ShapeAtlas)

	n := count
	if limit := buf.n / gpu.FloatsPerVertex; n > limit {
		n = limit
	}
	gl.Call("bindBuffer", d.c.arrayBuffer, buf.id)
	gl.Call("enableVertexAttribArray", 0)
	gl.Call("vertexAttribPointer", 0, gpu.FloatsPerVertex, d.c.floatType, false, 0, 0)
	gl.Call("drawArrays", d.c.points, 0, n)
	gl.Call("bindBuffer", d.c.arrayBuffer, js.Null())
	gl.Call("useProgram", js.Null())
}

func (d *Device) bindTexture(location js.Value, unit int, t gpu.Texture) {
	d.gl.Call("activeTexture", d.c.texture0+unit)
	if tt, ok := t.(*texture); ok && tt != nil {
		d.gl.Call("bindTexture", d.c.texture2D, tt.id)
	} else {
		d.gl.Call("bindTexture", d.c.texture2D, js.Null())
	}
	d.gl.Call("uniform1i", location, unit)
}

// Release drops the context. The canvas is left in the document so a later
// overlay can reuse it.
func (d *Device) Release() {
	if d.released {
		return
	}
	ext := d.gl.Call("getExtension", "WEBGL_lose_context")
	if ext.Truthy() {
		ext.Call("loseContext")
	}
	d.released = true
}

type program struct {
	gl       js.Value
	id       js.Value
	uniforms map[string]js.Value
}

func (p *program) Release() {
	if p.id.Truthy() {
		p.gl.Call("deleteProgram", p.id)
		p.id = js.Null()
	}
}

type buffer struct {
	d  *Device
	id js.Value
	n  int
}

func (b *buffer) Upload(data []float32) {
	gl := b.d.gl
	gl.Call("bindBuffer", b.d.c.arrayBuffer, b.id)
	gl.Call("bufferData", b.d.c.arrayBuffer, float32Array(data), b.d.c.staticDraw)
	gl.Call("bindBuffer", b.d.c.arrayBuffer, js.Null())
	b.n = len(data)
}

func (b *buffer) Len() int {
	return b.n
}

func (b *buffer) Release() {
	if b.id.Truthy() {
		b.d.gl.Call("deleteBuffer", b.id)
		b.id = js.Null()
	}
	b.n = 0
}

type texture struct {
	d             *Device
	id            js.Value
	width, height int
	filter        gpu.Filter
}

func (t *texture) Upload(width, height int, pix []byte) {
	gl := t.d.gl
	c := t.d.c
	arr := js.Global().Get("Uint8Array").New(len(pix))
	js.CopyBytesToJS(arr, pix)
	gl.Call("bindTexture", c.texture2D, t.id)
	gl.Call("pixelStorei", c.unpackAlignment, 1)
	gl.Call("texImage2D", c.texture2D, 0, c.rgba, width, height, 0, c.rgba, c.unsignedByte, arr)
	if t.filter == gpu.FilterMipmap {
		if gpu.UploadFilter(t.filter, width, height) == gpu.FilterMipmap {
			gl.Call("texParameteri", c.texture2D, c.textureMinFilter, c.linearMipmapLinear)
			gl.Call("generateMipmap", c.texture2D)
		} else {
			gl.Call("texParameteri", c.texture2D, c.textureMinFilter, c.linear)
		}
	}
	gl.Call("bindTexture", c.texture2D, js.Null())
	t.width, t.height = width, height
}

func (t *texture) Size() (int, int) {
	return t.width, t.height
}

func (t *texture) Release() {
	if t.id.Truthy() {
		t.d.gl.Call("deleteTexture", t.id)
		t.id = js.Null()
	}
}

// float32Array copies data into a new JS Float32Array.
func float32Array(data []float32) js.Value {
	arr := js.Global().Get("Float32Array").New(len(data))
	if len(data) == 0 {
		return arr
	}
	view := js.Global().Get("Uint8Array").New(arr.Get("buffer"), arr.Get("byteOffset"), arr.Get("byteLength"))
	js.CopyBytesToJS(view, f32.Bytes(binary.LittleEndian, data...))
	return arr
}
