//go:build !js

// Package glcore implements gpu.Device on desktop OpenGL 3.3 core. The
// caller must make a context current on the calling goroutine (and lock the
// goroutine to its OS thread) before calling New.
package glcore

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/slidemarks/viewer/internal/gpu"
)

// Device is an OpenGL 3.3 core gpu.Device.
type Device struct {
	vao           uint32
	width, height int
	released      bool
}

// New loads the GL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", gpu.ErrContextUnavailable, err)
	}
	d := &Device{}
	gl.GenVertexArrays(1, &d.vao)
	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Disable(gl.DEPTH_TEST)
	return d, nil
}

// Version returns the GL version string of the current context.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (d *Device) NewProgram(src gpu.Sources) (gpu.Program, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	vs, err := compileShader(src.Core330.Vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(src.Core330.Fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.BindAttribLocation(id, 0, gl.Str(gpu.AttribPosition+"\x00"))
	// Flag shaders for deletion together with the program.
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%w: link: %s", gpu.ErrShaderCompile, strings.TrimRight(log, "\x00"))
	}

	p := &program{id: id, uniforms: make(map[string]int32)}
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
		p.uniforms[name] = gl.GetUniformLocation(id, gl.Str(name+"\x00"))
	}
	return p, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		kind := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			kind = "fragment"
		}
		return 0, fmt.Errorf("%w: %s: %s", gpu.ErrShaderCompile, kind, strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func (d *Device) NewBuffer() (gpu.Buffer, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	b := &buffer{}
	gl.GenBuffers(1, &b.id)
	return b, nil
}

func (d *Device) NewTexture(spec gpu.TextureSpec) (gpu.Texture, error) {
	if d.released {
		return nil, gpu.ErrReleased
	}
	t := &texture{filter: spec.Filter}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	switch spec.Filter {
	case gpu.FilterNearest:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	case gpu.FilterLinear:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	case gpu.FilterMipmap:
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if spec.Width > 0 && spec.Height > 0 {
		t.Upload(spec.Width, spec.Height, make([]byte, 4*spec.Width*spec.Height))
	}
	return t, nil
}

func (d *Device) Resize(width, height int) {
	d.width, d.height = width, height
}

func (d *Device) Size() (int, int) {
	return d.width, d.height
}

func (d *Device) Clear(r, g, b, a float32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *Device) SetBlend(mode gpu.BlendMode) {
	switch mode {
	case gpu.BlendPremultiplied:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	case gpu.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE)
	default:
		gl.Disable(gl.BLEND)
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

	gl.UseProgram(prog.id)
	gl.Viewport(0, 0, int32(d.width), int32(d.height))
	gl.Uniform2f(prog.uniforms[gpu.UniformImageSize], u.ImageSize.X(), u.ImageSize.Y())
	gl.Uniform4f(prog.uniforms[gpu.UniformViewportRect], u.ViewportRect.X(), u.ViewportRect.Y(), u.ViewportRect.Z(), u.ViewportRect.W())
	gl.UniformMatrix2fv(prog.uniforms[gpu.UniformViewportTransform], 1, false, &u.ViewportTransform[0])
	gl.Uniform1i(prog.uniforms[gpu.UniformMarkerType], int32(u.MarkerType))
	gl.Uniform1f(prog.uniforms[gpu.UniformMarkerScale], u.MarkerScale)
	gl.Uniform2f(prog.uniforms[gpu.UniformScalarRange], u.ScalarRange.X(), u.ScalarRange.Y())
	gl.Uniform1f(prog.uniforms[gpu.UniformOpacity], u.Opacity)
	useColor := int32(0)
	if u.UseColorFromMarker {
		useColor = 1
	}
	gl.Uniform1i(prog.uniforms[gpu.UniformUseColorFromMarker], useColor)

	bindTexture(prog.uniforms[gpu.UniformColorLUT], gpu.UnitColorLUT, tex.ColorLUT)
	bindTexture(prog.uniforms[gpu.UniformColorscale], gpu.UnitColorscale, tex.Colorscale)
	bindTexture(prog.uniforms[gpu.UniformShapeAtlas], gpu.UnitShapeAtlas, tex.ShapeAtlas)

	n := count
	if limit := buf.n / gpu.FloatsPerVertex; n > limit {
		n = limit
	}
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.id)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, gpu.FloatsPerVertex, gl.FLOAT, false, 0, gl.PtrOffset(0))
	gl.DrawArrays(gl.POINTS, 0, int32(n))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

func bindTexture(location int32, unit int, t gpu.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	if tt, ok := t.(*texture); ok && tt != nil {
		gl.BindTexture(gl.TEXTURE_2D, tt.id)
	} else {
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
	gl.Uniform1i(location, int32(unit))
}

func (d *Device) Release() {
	if d.released {
		return
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
	}
	d.released = true
}

type program struct {
	id       uint32
	uniforms map[string]int32
}

func (p *program) Release() {
	if p.id != 0 {
		gl.DeleteProgram(p.id)
		p.id = 0
	}
}

type buffer struct {
	id uint32
	n  int
}

func (b *buffer) Upload(data []float32) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, b.id)
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, ptr, gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.n = len(data)
}

func (b *buffer) Len() int {
	return b.n
}

func (b *buffer) Release() {
	if b.id != 0 {
		gl.DeleteBuffers(1, &b.id)
		b.id = 0
	}
	b.n = 0
}

type texture struct {
	id            uint32
	width, height int
	filter        gpu.Filter
}

func (t *texture) Upload(width, height int, pix []byte) {
	var ptr unsafe.Pointer
	if len(pix) >= 4*width*height && len(pix) > 0 {
		ptr = gl.Ptr(pix)
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	if t.filter == gpu.FilterMipmap && width > 0 && height > 0 {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	t.width, t.height = width, height
}

func (t *texture) Size() (int, int) {
	return t.width, t.height
}

func (t *texture) Release() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
}
