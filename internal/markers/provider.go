package markers

import "sync"

// ViewportProvider exposes the state of the slide viewer the markers are
// drawn over.
type ViewportProvider interface {
	// VisibleBounds is the visible region in normalized image coordinates,
	// x divided by the image width and y by the image height.
	VisibleBounds() Rect
	// BaseImageSize is the full-resolution image size in pixels.
	BaseImageSize() Size
	RotationDegrees() float64
	// ContainerSize is the drawing surface size in device pixels.
	ContainerSize() (width, height int)
}

// StyleSource resolves the style of a category by its style key. A missing
// entry draws as transparent.
type StyleSource interface {
	Style(key string) (StyleEntry, bool)
	// ShowAll forces every styled category visible.
	ShowAll() bool
}

// Notifier is implemented by providers that announce changes. The returned
// function removes the listener.
type Notifier interface {
	OnChange(fn func()) (cancel func())
}

// Bind redraws r whenever vp or styles announce a change. Viewport changes
// only redraw; style changes rewrite the lookup texture first. Providers
// that are not Notifiers, including untyped nil, are skipped; a typed nil
// pointer is not.
func Bind(r *Renderer, vp ViewportProvider, styles StyleSource) (unbind func()) {
	var cancels []func()
	if n, ok := vp.(Notifier); ok {
		cancels = append(cancels, n.OnChange(func() {
			r.Resize()
			r.Draw()
		}))
	}
	if n, ok := styles.(Notifier); ok {
		cancels = append(cancels, n.OnChange(func() {
			r.UpdateStyleTable()
			r.Draw()
		}))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// listeners is a small ordered callback registry.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    []listener
}

type listener struct {
	id int
	fn func()
}

func (l *listeners) OnChange(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.fns = append(l.fns, listener{id: id, fn: fn})
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, ln := range l.fns {
			if ln.id == id {
				l.fns = append(l.fns[:i], l.fns[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners) notify() {
	l.mu.Lock()
	fns := make([]func(), len(l.fns))
	for i, ln := range l.fns {
		fns[i] = ln.fn
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
