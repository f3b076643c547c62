package gpu

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lutSampler returns a fixed texel for every lookup.
type lutSampler mgl32.Vec4

func (s lutSampler) Sample(u, v float32) mgl32.Vec4 { return mgl32.Vec4(s) }

func identityUniforms() *Uniforms {
	return &Uniforms{
		ImageSize:         mgl32.Vec2{1, 1},
		ViewportRect:      mgl32.Vec4{0, 0, 1, 1},
		ViewportTransform: mgl32.Ident2(),
		MarkerType:        MarkerDiscrete,
		MarkerScale:       1,
		ScalarRange:       mgl32.Vec2{0, 1},
		Opacity:           1,
	}
}

func TestPackColorRoundTrip(t *testing.T) {
	for _, c := range []color.RGBA{
		{0, 0, 0, 255},
		{17, 34, 51, 255},
		{255, 255, 255, 255},
		{1, 128, 254, 255},
	} {
		got := UnpackColor(PackColor(c))
		want := mgl32.Vec3{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255}
		assert.True(t, got.ApproxEqual(want), "color %v: got %v want %v", c, got, want)
	}
}

func TestShadeVertexCenter(t *testing.T) {
	u := identityUniforms()
	lut := lutSampler{1, 0, 0, 3.0 / 255}

	out := ShadeVertex(mgl32.Vec4{0.5, 0.5, 0, 0}, u, lut, nil)
	require.False(t, out.Culled())
	assert.InDelta(t, 0, out.Position.X(), 1e-6)
	assert.InDelta(t, 0, out.Position.Y(), 1e-6)
	assert.Equal(t, mgl32.Vec2{2, 0}, out.ShapeOrigin)
}

func TestShadeVertexYFlipAndRotation(t *testing.T) {
	u := identityUniforms()
	lut := lutSampler{1, 1, 1, 1.0 / 255}

	// Top-left of the image lands at the top-left of clip space.
	out := ShadeVertex(mgl32.Vec4{0, 0, 0, 0}, u, lut, nil)
	assert.InDelta(t, -1, out.Position.X(), 1e-6)
	assert.InDelta(t, 1, out.Position.Y(), 1e-6)

	// A quarter turn of the viewer moves the right edge to the bottom.
	u.ViewportTransform = mgl32.Rotate2D(mgl32.DegToRad(-90))
	out = ShadeVertex(mgl32.Vec4{1, 0.5, 0, 0}, u, lut, nil)
	assert.InDelta(t, 0, out.Position.X(), 1e-6)
	assert.InDelta(t, -1, out.Position.Y(), 1e-6)
}

func TestShadeVertexHiddenIsCulled(t *testing.T) {
	u := identityUniforms()
	out := ShadeVertex(mgl32.Vec4{0.5, 0.5, 0, 0}, u, lutSampler{1, 1, 1, 0}, nil)
	assert.True(t, out.Culled())
	assert.Equal(t, float32(0), out.Color.W())
}

func TestShadeVertexColorOverrideKeepsShape(t *testing.T) {
	u := identityUniforms()
	u.UseColorFromMarker = true
	lut := lutSampler{0, 0, 0, 5.0 / 255}

	out := ShadeVertex(mgl32.Vec4{0.5, 0.5, 0, PackColor(color.RGBA{R: 255, A: 255})}, u, lut, nil)
	require.False(t, out.Culled())
	assert.InDelta(t, 1, out.Color.X(), 1e-6)
	assert.InDelta(t, 0, out.Color.Y(), 1e-6)
	assert.Equal(t, mgl32.Vec2{0, 1}, out.ShapeOrigin)
}

func TestShadeVertexScalarUsesRoundShape(t *testing.T) {
	u := identityUniforms()
	u.MarkerType = MarkerScalar
	u.ScalarRange = mgl32.Vec2{10, 30}
	scale := lutSampler{0.2, 0.4, 0.6, 1}

	out := ShadeVertex(mgl32.Vec4{0.5, 0.5, 20, 0}, u, nil, scale)
	require.False(t, out.Culled())
	assert.Equal(t, mgl32.Vec2{2, 1}, out.ShapeOrigin)
	assert.InDelta(t, 0.4, out.Color.Y(), 1e-6)
}

func TestPointSizeFloor(t *testing.T) {
	u := identityUniforms()
	u.MarkerScale = 0.01
	out := ShadeVertex(mgl32.Vec4{0.5, 0.5, 0, 0}, u, lutSampler{1, 1, 1, 1.0 / 255}, nil)
	assert.Equal(t, float32(MinPointSize), out.PointSize)

	u.MarkerScale = 5
	u.ViewportRect = mgl32.Vec4{0, 0, 0.1, 0.1}
	out = ShadeVertex(mgl32.Vec4{0.05, 0.05, 0, 0}, u, lutSampler{1, 1, 1, 1.0 / 255}, nil)
	assert.InDelta(t, 50, out.PointSize, 1e-3)
	assert.Equal(t, PointSize(5, 0.1), out.PointSize)

	assert.Equal(t, float32(MinPointSize), PointSize(1, 0))
	assert.Equal(t, float32(MinPointSize), PointSize(1, -2))
}

func TestMipmapFilterNeedsPowerOfTwo(t *testing.T) {
	assert.Equal(t, FilterMipmap, UploadFilter(FilterMipmap, 256, 256))
	assert.Equal(t, FilterMipmap, UploadFilter(FilterMipmap, 1, 1))
	assert.Equal(t, FilterLinear, UploadFilter(FilterMipmap, 300, 256))
	assert.Equal(t, FilterLinear, UploadFilter(FilterMipmap, 256, 0))
	assert.Equal(t, FilterNearest, UploadFilter(FilterNearest, 4096, 1))
	assert.Equal(t, FilterLinear, UploadFilter(FilterLinear, 3, 5))
}

func TestShadeFragmentDiscardsTransparentShape(t *testing.T) {
	in := VertexOut{Color: mgl32.Vec4{1, 1, 1, 1}}
	_, ok := ShadeFragment(in, mgl32.Vec2{0.5, 0.5}, lutSampler{0, 0, 0, 0})
	assert.False(t, ok)

	frag, ok := ShadeFragment(in, mgl32.Vec2{0.5, 0.5}, lutSampler{1, 1, 1, 0.5})
	require.True(t, ok)
	assert.InDelta(t, 0.5, frag.X(), 1e-6)
	assert.InDelta(t, 0.5, frag.W(), 1e-6)
}

func TestPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(2, 2, 4, 3))
	img.Set(2, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	w, h, pix := Pixels(img)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []byte{10, 20, 30, 255, 0, 0, 0, 0}, pix)

	w, h, pix = Pixels(nil)
	assert.Zero(t, w)
	assert.Zero(t, h)
	assert.Nil(t, pix)
}
