package soft

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/slidemarks/viewer/internal/gpu"
)

// Texture is an RGBA8 texture held in memory. It samples with clamp to edge
// wrapping; mipmapped textures are sampled bilinearly from the base level.
type Texture struct {
	width, height int
	pix           []byte
	filter        gpu.Filter
	uploads       int
}

func (t *Texture) Upload(width, height int, pix []byte) {
	t.width, t.height = width, height
	n := 4 * width * height
	if cap(t.pix) < n {
		t.pix = make([]byte, n)
	}
	t.pix = t.pix[:n]
	if pix == nil {
		clear(t.pix)
	} else {
		copy(t.pix, pix)
	}
	if pix != nil {
		t.uploads++
	}
}

func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

// Pix returns the texels last uploaded.
func (t *Texture) Pix() []byte {
	return t.pix
}

// Uploads returns how many times texel data was uploaded.
func (t *Texture) Uploads() int {
	return t.uploads
}

func (t *Texture) Release() {
	t.pix = nil
	t.width, t.height = 0, 0
}

// Sample implements gpu.Sampler.
func (t *Texture) Sample(u, v float32) mgl32.Vec4 {
	if t.width == 0 || t.height == 0 {
		return mgl32.Vec4{}
	}
	if math.IsNaN(float64(u)) {
		u = 0
	}
	if math.IsNaN(float64(v)) {
		v = 0
	}
	if t.filter == gpu.FilterNearest {
		x := clampInt(int(math.Floor(float64(u)*float64(t.width))), t.width)
		y := clampInt(int(math.Floor(float64(v)*float64(t.height))), t.height)
		return t.texel(x, y)
	}

	fx := float64(u)*float64(t.width) - 0.5
	fy := float64(v)*float64(t.height) - 0.5
	x0, y0 := math.Floor(fx), math.Floor(fy)
	ax, ay := float32(fx-x0), float32(fy-y0)
	ix0 := clampInt(int(x0), t.width)
	ix1 := clampInt(int(x0)+1, t.width)
	iy0 := clampInt(int(y0), t.height)
	iy1 := clampInt(int(y0)+1, t.height)

	top := lerp(t.texel(ix0, iy0), t.texel(ix1, iy0), ax)
	bottom := lerp(t.texel(ix0, iy1), t.texel(ix1, iy1), ax)
	return lerp(top, bottom, ay)
}

func (t *Texture) texel(x, y int) mgl32.Vec4 {
	i := 4 * (y*t.width + x)
	p := t.pix[i : i+4]
	return mgl32.Vec4{
		float32(p[0]) / 255,
		float32(p[1]) / 255,
		float32(p[2]) / 255,
		float32(p[3]) / 255,
	}
}

func lerp(a, b mgl32.Vec4, t float32) mgl32.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
