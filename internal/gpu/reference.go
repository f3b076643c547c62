package gpu

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sampler reads a texture at normalized coordinates, returning RGBA in
// [0,1]. It is the software counterpart of a sampler2D.
type Sampler interface {
	Sample(u, v float32) mgl32.Vec4
}

// VertexOut is the output of the marker vertex stage.
type VertexOut struct {
	Position       mgl32.Vec4
	PointSize      float32
	Color          mgl32.Vec4
	ShapeOrigin    mgl32.Vec2
	ShapeColorBias float32
}

// Culled reports whether the vertex was moved outside the clip volume.
func (o VertexOut) Culled() bool {
	return o.Position.W() == 0
}

// PackColor stores a 24-bit RGB color exactly in a float32.
func PackColor(c color.RGBA) float32 {
	return float32(uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B))
}

// UnpackColor is the inverse of PackColor as evaluated by the shader.
func UnpackColor(v float32) mgl32.Vec3 {
	v = mgl32.Clamp(v, 0, 16777215)
	x := float64(v) + 0.49
	r := math.Mod(math.Floor(x/65536), 256)
	g := math.Mod(math.Floor(x/256), 256)
	b := math.Mod(math.Floor(x), 256)
	return mgl32.Vec3{float32(r) / 255, float32(g) / 255, float32(b) / 255}
}

// PointSize returns the sprite size in pixels for a marker scale and a
// viewport height in image units. Markers never shrink below MinPointSize.
func PointSize(scale, viewportHeight float32) float32 {
	if !(viewportHeight > 0) {
		return MinPointSize
	}
	return float32(math.Max(MinPointSize, float64(scale/viewportHeight)))
}

// ShadeVertex evaluates the marker vertex shader for one packed vertex.
func ShadeVertex(a mgl32.Vec4, u *Uniforms, lut, colorscale Sampler) VertexOut {
	var out VertexOut

	imagePos := mgl32.Vec2{a.X() * u.ImageSize.X(), a.Y() * u.ImageSize.Y()}
	viewportPos := imagePos.Sub(mgl32.Vec2{u.ViewportRect.X(), u.ViewportRect.Y()})
	ndc := mgl32.Vec2{
		viewportPos.X()/u.ViewportRect.Z()*2 - 1,
		viewportPos.Y()/u.ViewportRect.W()*2 - 1,
	}
	ndc[1] = -ndc[1]
	ndc = u.ViewportTransform.Mul2x1(ndc)

	var c mgl32.Vec4
	switch u.MarkerType {
	case MarkerDiscrete:
		if lut != nil {
			c = lut.Sample(a.Z(), 0.5)
		}
	case MarkerScalar:
		normalized := (a.Z() - u.ScalarRange.X()) / (u.ScalarRange.Y() - u.ScalarRange.X())
		if colorscale != nil {
			s := colorscale.Sample(normalized, 0.5)
			c = mgl32.Vec4{s.X(), s.Y(), s.Z(), 0}
		}
		c[3] = float32(RoundShape+1) / 255
	}
	if u.UseColorFromMarker {
		rgb := UnpackColor(a.W())
		c[0], c[1], c[2] = rgb.X(), rgb.Y(), rgb.Z()
	}

	out.Position = mgl32.Vec4{ndc.X(), ndc.Y(), 0, 1}
	out.PointSize = PointSize(u.MarkerScale, u.ViewportRect.W())

	// The selector is an 8-bit channel; round away sampling error.
	selector := math.Round(float64(c.W())*255) - 1
	out.ShapeOrigin = mgl32.Vec2{
		float32(glslMod(selector, ShapeGridSize)),
		float32(math.Floor(selector / ShapeGridSize)),
	}
	out.ShapeColorBias = float32(math.Max(0, float64(1-out.PointSize*0.2)))

	if c.W() > 0 {
		c[3] = u.Opacity
	} else {
		c[3] = 0
	}
	if c.W() == 0 {
		out.Position = mgl32.Vec4{2, 2, 2, 0}
	}
	out.Color = c
	return out
}

// ShadeFragment evaluates the marker fragment shader at a point coordinate
// in [0,1]². It returns a premultiplied color and false when discarded.
func ShadeFragment(in VertexOut, pointCoord mgl32.Vec2, atlas Sampler) (mgl32.Vec4, bool) {
	uv := pointCoord.Sub(mgl32.Vec2{0.5, 0.5}).Mul(UVScale).Add(mgl32.Vec2{0.5, 0.5})
	uv = uv.Add(in.ShapeOrigin).Mul(1.0 / ShapeGridSize)

	var shape mgl32.Vec4
	if atlas != nil {
		shape = atlas.Sample(uv.X(), uv.Y())
	}
	for i := 0; i < 3; i++ {
		shape[i] = mgl32.Clamp(shape[i]+in.ShapeColorBias, 0, 1)
	}

	frag := mgl32.Vec4{
		shape[0] * in.Color[0],
		shape[1] * in.Color[1],
		shape[2] * in.Color[2],
		shape[3] * in.Color[3],
	}
	frag[0] *= frag[3]
	frag[1] *= frag[3]
	frag[2] *= frag[3]
	if frag[3] < 0.01 {
		return mgl32.Vec4{}, false
	}
	return frag, true
}

// glslMod matches GLSL mod(), which floors rather than truncates.
func glslMod(x, y float64) float64 {
	return x - y*math.Floor(x/y)
}
