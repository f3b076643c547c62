package markers

import "fmt"

// CategoryIndex assigns lookup-texture indices to category keys in
// first-seen order. It is rebuilt on every discrete load.
type CategoryIndex struct {
	index     map[string]int
	keys      []string
	styleKeys []string
}

// NewCategoryIndex returns an empty index.
func NewCategoryIndex() *CategoryIndex {
	return &CategoryIndex{index: make(map[string]int)}
}

// Assign returns the index of key, assigning the next free one on first
// sight. styleKey is the key used to query the StyleSource for this
// category and is recorded only on first sight.
func (c *CategoryIndex) Assign(key, styleKey string) (int, error) {
	if i, ok := c.index[key]; ok {
		return i, nil
	}
	if len(c.keys) >= MaxCategories {
		return 0, fmt.Errorf("category %q: %w", key, ErrTooManyCategories)
	}
	i := len(c.keys)
	c.index[key] = i
	c.keys = append(c.keys, key)
	c.styleKeys = append(c.styleKeys, styleKey)
	return i, nil
}

// Lookup returns the index of key if it has been assigned.
func (c *CategoryIndex) Lookup(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}

// Len returns the number of assigned categories.
func (c *CategoryIndex) Len() int {
	return len(c.keys)
}

// Key returns the category key at index i.
func (c *CategoryIndex) Key(i int) string {
	return c.keys[i]
}

// StyleKey returns the style key of the category at index i.
func (c *CategoryIndex) StyleKey(i int) string {
	return c.styleKeys[i]
}

// Keys returns the category keys in index order.
func (c *CategoryIndex) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}
