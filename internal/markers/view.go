package markers

import (
	"math"
	"sync"
)

// View is an in-memory ViewportProvider for hosts without a pyramid
// viewer of their own, such as the desktop viewer and server previews.
type View struct {
	listeners

	mu       sync.RWMutex
	bounds   Rect
	image    Size
	rotation float64
	width    int
	height   int
}

// NewView returns a view showing the whole image in a width x height
// container.
func NewView(img Size, width, height int) *View {
	return &View{
		bounds: Rect{Width: 1, Height: 1},
		image:  img,
		width:  width,
		height: height,
	}
}

func (v *View) VisibleBounds() Rect {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.bounds
}

func (v *View) BaseImageSize() Size {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.image
}

func (v *View) RotationDegrees() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rotation
}

func (v *View) ContainerSize() (int, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width, v.height
}

func (v *View) update(fn func()) {
	v.mu.Lock()
	fn()
	v.mu.Unlock()
	v.notify()
}

// SetBounds sets the visible region in normalized image coordinates.
func (v *View) SetBounds(b Rect) {
	v.update(func() { v.bounds = b })
}

// SetImageSize sets the base image size in pixels.
func (v *View) SetImageSize(s Size) {
	v.update(func() { v.image = s })
}

// SetContainerSize sets the drawing surface size.
func (v *View) SetContainerSize(width, height int) {
	v.update(func() { v.width, v.height = width, height })
}

// Pan moves the visible region by a fraction of its own size.
func (v *View) Pan(dx, dy float64) {
	v.update(func() {
		v.bounds.X += dx * v.bounds.Width
		v.bounds.Y += dy * v.bounds.Height
	})
}

// Zoom scales the visible region by 1/factor around its center.
func (v *View) Zoom(factor float64) {
	if !(factor > 0) {
		return
	}
	v.update(func() {
		cx := v.bounds.X + v.bounds.Width/2
		cy := v.bounds.Y + v.bounds.Height/2
		v.bounds.Width /= factor
		v.bounds.Height /= factor
		v.bounds.X = cx - v.bounds.Width/2
		v.bounds.Y = cy - v.bounds.Height/2
	})
}

// Rotate adds deg to the rotation, keeping it in [0, 360).
func (v *View) Rotate(deg float64) {
	v.update(func() {
		v.rotation = math.Mod(v.rotation+deg, 360)
		if v.rotation < 0 {
			v.rotation += 360
		}
	})
}

// SetRotation sets the rotation in degrees.
func (v *View) SetRotation(deg float64) {
	v.update(func() {
		v.rotation = math.Mod(deg, 360)
		if v.rotation < 0 {
			v.rotation += 360
		}
	})
}

// Home shows the whole image.
func (v *View) Home() {
	v.update(func() {
		v.bounds = Rect{Width: 1, Height: 1}
		v.rotation = 0
	})
}
