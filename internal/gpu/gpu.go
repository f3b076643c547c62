// Package gpu wraps the GPU resources of the marker pipeline behind small
// owning handles so that every backend (desktop GL, WebGL, software) can be
// driven by the same renderer and released deterministically.
package gpu

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrContextUnavailable is returned when no rendering context can be
	// acquired. Callers are expected to fall back to a non-GPU path.
	ErrContextUnavailable = errors.New("gpu: rendering context unavailable")

	// ErrShaderCompile is returned when a shader fails to compile or link.
	ErrShaderCompile = errors.New("gpu: shader compile failed")

	// ErrReleased is returned when a released device is used to allocate.
	ErrReleased = errors.New("gpu: device released")
)

// Layout constants shared by the packer, the shaders and the reference
// pipeline.
const (
	FloatsPerVertex = 4
	LUTSize         = 4096
	GradientSize    = 256
	ShapeGridSize   = 4
	MaxShape        = 7
	RoundShape      = 6
	MinPointSize    = 2.0
	UVScale         = 0.7
)

// MarkerType selects the shading rule of a draw call.
type MarkerType int32

const (
	MarkerDiscrete MarkerType = 0
	MarkerScalar   MarkerType = 1
)

// BlendMode selects the framebuffer blend equation.
type BlendMode int

const (
	BlendDisabled BlendMode = iota
	// BlendPremultiplied is ONE, ONE_MINUS_SRC_ALPHA.
	BlendPremultiplied
	// BlendAdditive is ONE, ONE.
	BlendAdditive
)

// Filter selects texture sampling.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
	// FilterMipmap is trilinear minification with generated mipmaps.
	FilterMipmap
)

// UploadFilter returns the filter a texture of the given size can use.
// Mipmapped sampling needs power-of-two sizes under WebGL 1, so other sizes
// fall back to FilterLinear.
func UploadFilter(f Filter, width, height int) Filter {
	if f == FilterMipmap && !(isPowerOfTwo(width) && isPowerOfTwo(height)) {
		return FilterLinear
	}
	return f
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// TextureSpec describes a 2D RGBA8 texture. Wrapping is always clamp to edge.
type TextureSpec struct {
	Width  int
	Height int
	Filter Filter
}

// ProgramSource is the text of one vertex/fragment shader pair.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// Sources holds the same program for every shading language a backend may
// consume.
type Sources struct {
	ES100   ProgramSource
	Core330 ProgramSource
}

// Uniforms is the per-draw state of the marker program.
type Uniforms struct {
	ImageSize          mgl32.Vec2
	ViewportRect       mgl32.Vec4
	ViewportTransform  mgl32.Mat2
	MarkerType         MarkerType
	MarkerScale        float32
	ScalarRange        mgl32.Vec2
	Opacity            float32
	UseColorFromMarker bool
}

// Textures are the sampler bindings of a draw call.
type Textures struct {
	ColorLUT   Texture
	Colorscale Texture
	ShapeAtlas Texture
}

// Device owns a rendering context and allocates resources on it.
// A Device is not safe for concurrent use; all calls must come from the
// goroutine that owns the context.
type Device interface {
	NewProgram(src Sources) (Program, error)
	NewBuffer() (Buffer, error)
	NewTexture(spec TextureSpec) (Texture, error)

	// Resize sets the drawing surface size in device pixels.
	Resize(width, height int)
	Size() (width, height int)

	Clear(r, g, b, a float32)
	SetBlend(mode BlendMode)
	DrawPoints(p Program, b Buffer, count int, u *Uniforms, tex Textures)

	// Release frees the context and everything allocated on it.
	Release()
}

// Program is a linked shader program.
type Program interface {
	Release()
}

// Buffer is a vertex buffer of packed float32 attributes.
type Buffer interface {
	// Upload replaces the whole buffer contents.
	Upload(data []float32)
	// Len returns the number of floats last uploaded.
	Len() int
	Release()
}

// Texture is an RGBA8 2D texture.
type Texture interface {
	// Upload replaces the whole texture. pix holds width*height RGBA texels
	// that are not premultiplied.
	Upload(width, height int, pix []byte)
	Size() (width, height int)
	Release()
}
