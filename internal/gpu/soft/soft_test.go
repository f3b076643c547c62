package soft

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/slidemarks/viewer/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(t *testing.T, d *Device, w, h int, rgba [4]byte, filter gpu.Filter) gpu.Texture {
	t.Helper()
	tex, err := d.NewTexture(gpu.TextureSpec{Width: w, Height: h, Filter: filter})
	require.NoError(t, err)
	pix := make([]byte, 4*w*h)
	for i := 0; i < len(pix); i += 4 {
		copy(pix[i:i+4], rgba[:])
	}
	tex.Upload(w, h, pix)
	return tex
}

func TestDrawPointsRastersSprite(t *testing.T) {
	d := New(10, 10)
	prog, err := d.NewProgram(gpu.MarkerSources)
	require.NoError(t, err)
	buf, err := d.NewBuffer()
	require.NoError(t, err)
	buf.Upload([]float32{0.5, 0.5, 0, 0})

	tex := gpu.Textures{
		ColorLUT:   solid(t, d, 1, 1, [4]byte{17, 34, 51, 1}, gpu.FilterNearest),
		ShapeAtlas: solid(t, d, 4, 4, [4]byte{255, 255, 255, 255}, gpu.FilterMipmap),
	}
	u := &gpu.Uniforms{
		ImageSize:         mgl32.Vec2{1, 1},
		ViewportRect:      mgl32.Vec4{0, 0, 1, 1},
		ViewportTransform: mgl32.Ident2(),
		MarkerScale:       0.4,
		ScalarRange:       mgl32.Vec2{0, 1},
		Opacity:           1,
	}

	d.Clear(0, 0, 0, 0)
	d.SetBlend(gpu.BlendPremultiplied)
	d.DrawPoints(prog, buf, 1, u, tex)

	assert.Equal(t, 1, d.DrawCalls())
	img := d.Image()
	c := img.RGBAAt(5, 5)
	assert.Equal(t, [4]uint8{17, 34, 51, 255}, [4]uint8{c.R, c.G, c.B, c.A})
	// A 2px sprite centered at (5,5) does not reach (2,2).
	assert.Equal(t, uint8(0), img.RGBAAt(2, 2).A)
}

func TestDrawPointsSkipsCulled(t *testing.T) {
	d := New(4, 4)
	prog, _ := d.NewProgram(gpu.MarkerSources)
	buf, _ := d.NewBuffer()
	buf.Upload([]float32{0.5, 0.5, 0, 0})

	tex := gpu.Textures{
		ColorLUT:   solid(t, d, 1, 1, [4]byte{255, 0, 0, 0}, gpu.FilterNearest),
		ShapeAtlas: solid(t, d, 4, 4, [4]byte{255, 255, 255, 255}, gpu.FilterMipmap),
	}
	u := &gpu.Uniforms{
		ImageSize:         mgl32.Vec2{1, 1},
		ViewportRect:      mgl32.Vec4{0, 0, 1, 1},
		ViewportTransform: mgl32.Ident2(),
		MarkerScale:       1,
		Opacity:           1,
	}
	d.SetBlend(gpu.BlendPremultiplied)
	d.DrawPoints(prog, buf, 1, u, tex)

	for i := 0; i < len(d.Image().Pix); i++ {
		require.Zero(t, d.Image().Pix[i])
	}
}

func TestCompileError(t *testing.T) {
	d := New(1, 1, WithCompileError(errors.New("syntax error")))
	_, err := d.NewProgram(gpu.MarkerSources)
	assert.ErrorIs(t, err, gpu.ErrShaderCompile)
}

func TestReleasedDevice(t *testing.T) {
	d := New(1, 1)
	d.Release()
	_, err := d.NewBuffer()
	assert.ErrorIs(t, err, gpu.ErrReleased)
}

func TestTextureSampling(t *testing.T) {
	tex := &Texture{filter: gpu.FilterLinear}
	tex.Upload(2, 1, []byte{0, 0, 0, 255, 255, 255, 255, 255})

	mid := tex.Sample(0.5, 0.5)
	assert.InDelta(t, 0.5, mid.X(), 1e-6)
	assert.InDelta(t, 0, tex.Sample(0, 0.5).X(), 1e-6)
	assert.InDelta(t, 1, tex.Sample(1, 0.5).X(), 1e-6)

	nearest := &Texture{filter: gpu.FilterNearest}
	nearest.Upload(4096, 1, make([]byte, 4*4096))
	nearest.Pix()[4*4095] = 255
	assert.InDelta(t, 1, nearest.Sample(1, 0.5).X(), 1e-6)
	assert.Equal(t, 1, nearest.Uploads())
}

func TestResizeKeepsFramebufferWhenUnchanged(t *testing.T) {
	d := New(3, 2)
	fb := d.Image()
	d.Resize(3, 2)
	assert.Same(t, fb, d.Image())
	d.Resize(5, 5)
	w, h := d.Size()
	assert.Equal(t, 5, w)
	assert.Equal(t, 5, h)
}
