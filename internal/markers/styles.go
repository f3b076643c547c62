package markers

import (
	"image/color"
	"sync"

	"github.com/slidemarks/viewer/pkg/colormap"
)

// StyleTable is an in-memory StyleSource. Edits made inside Batch are
// announced once.
type StyleTable struct {
	listeners

	mu      sync.RWMutex
	entries map[string]StyleEntry
	showAll bool
	depth   int
	dirty   bool
}

// NewStyleTable returns an empty table.
func NewStyleTable() *StyleTable {
	return &StyleTable{entries: make(map[string]StyleEntry)}
}

func (t *StyleTable) Style(key string) (StyleEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[key]
	return e, ok
}

func (t *StyleTable) ShowAll() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.showAll
}

// Len returns the number of styled keys.
func (t *StyleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *StyleTable) edit(fn func() bool) {
	t.mu.Lock()
	changed := fn()
	if changed {
		t.dirty = true
	}
	fire := t.dirty && t.depth == 0
	if fire {
		t.dirty = false
	}
	t.mu.Unlock()
	if fire {
		t.notify()
	}
}

// Set stores the style of key.
func (t *StyleTable) Set(key string, e StyleEntry) {
	t.edit(func() bool {
		if old, ok := t.entries[key]; ok && old == e {
			return false
		}
		t.entries[key] = e
		return true
	})
}

// SetVisible toggles the visibility of key. It reports false when key has
// no entry.
func (t *StyleTable) SetVisible(key string, visible bool) bool {
	found := false
	t.edit(func() bool {
		e, ok := t.entries[key]
		if !ok {
			return false
		}
		found = true
		if e.Visible == visible {
			return false
		}
		e.Visible = visible
		t.entries[key] = e
		return true
	})
	return found
}

// SetShowAll sets the global visibility override.
func (t *StyleTable) SetShowAll(all bool) {
	t.edit(func() bool {
		if t.showAll == all {
			return false
		}
		t.showAll = all
		return true
	})
}

// Batch runs fn and announces its edits once.
func (t *StyleTable) Batch(fn func()) {
	t.mu.Lock()
	t.depth++
	t.mu.Unlock()
	defer t.edit(func() bool {
		t.depth--
		return false
	})
	fn()
}

// EnsureDefaults styles every key that has no entry yet, cycling through
// palette colors and the eight shapes. Existing entries are kept.
func (t *StyleTable) EnsureDefaults(keys []string, palette colormap.Colormap) {
	if palette == nil {
		palette = colormap.Categorical
	}
	t.Batch(func() {
		for i, key := range keys {
			if _, ok := t.Style(key); ok {
				continue
			}
			c := color.RGBAModel.Convert(palette.AtIndex(i)).(color.RGBA)
			t.Set(key, StyleEntry{Color: c, Shape: i % 8, Visible: true})
		}
	})
}
