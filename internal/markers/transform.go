package markers

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/slidemarks/viewer/internal/gpu"
)

// viewUniforms fills the per-frame transform uniforms. Image units follow
// the pyramid viewer convention where the image is one unit wide.
func viewUniforms(bounds Rect, img Size, rotation float64) gpu.Uniforms {
	aspect := 1.0
	if img.Width > 0 && img.Height > 0 {
		aspect = img.Height / img.Width
	}
	w, h := bounds.Width, bounds.Height
	if !(w > 0) {
		w = 1
	}
	if !(h > 0) {
		h = 1
	}
	theta := mgl32.DegToRad(float32(math.Mod(rotation, 360)))
	return gpu.Uniforms{
		ImageSize: mgl32.Vec2{1, float32(aspect)},
		ViewportRect: mgl32.Vec4{
			float32(bounds.X),
			float32(bounds.Y * aspect),
			float32(w),
			float32(h * aspect),
		},
		ViewportTransform: mgl32.Rotate2D(-theta),
	}
}
