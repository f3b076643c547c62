// Package cache provides caching for rendered assets and query results.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Config contains cache configuration.
type Config struct {
	AssetCacheSizeMB int
	AssetTTL         time.Duration
	QueryCacheSize   int
}

// Manager manages asset and query caches.
type Manager struct {
	assetCache *bigcache.BigCache
	queryCache *lru.Cache[string, []byte]
}

// NewManager creates a new cache manager.
func NewManager(cfg Config) (*Manager, error) {
	// Configure asset cache
	assetCacheConfig := bigcache.Config{
		Shards:             16,
		LifeWindow:         cfg.AssetTTL,
		CleanWindow:        cfg.AssetTTL / 2,
		MaxEntriesInWindow: 1024,
		MaxEntrySize:       256 * 1024, // previews are larger than icons
		HardMaxCacheSize:   cfg.AssetCacheSizeMB,
		Verbose:            false,
	}

	assetCache, err := bigcache.New(context.Background(), assetCacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset cache: %w", err)
	}

	// Create query cache
	queryCache, err := lru.New[string, []byte](cfg.QueryCacheSize)
	if err != nil {
		assetCache.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	return &Manager{
		assetCache: assetCache,
		queryCache: queryCache,
	}, nil
}

// GetAsset retrieves an encoded asset from cache.
func (m *Manager) GetAsset(key string) ([]byte, bool) {
	data, err := m.assetCache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetAsset stores an encoded asset in cache.
func (m *Manager) SetAsset(key string, data []byte) error {
	return m.assetCache.Set(key, data)
}

// GetQuery retrieves a query result from cache.
func (m *Manager) GetQuery(key string) ([]byte, bool) {
	return m.queryCache.Get(key)
}

// SetQuery stores a query result in cache.
func (m *Manager) SetQuery(key string, data []byte) {
	m.queryCache.Add(key, data)
}

// AtlasKey generates a cache key for the shape atlas.
func AtlasKey(size int) string {
	return fmt.Sprintf("atlas:%d", size)
}

// ColorbarKey generates a cache key for a colorbar legend.
func ColorbarKey(colorscale, title string, lo, hi float64) string {
	return fmt.Sprintf("colorbar:%s:%s:%g:%g", colorscale, title, lo, hi)
}

// GradientKey generates a cache key for a colorscale lookup strip.
func GradientKey(colorscale string) string {
	return fmt.Sprintf("gradient:%s", colorscale)
}

// CategoriesKey generates a cache key for a slide's category listing.
func CategoriesKey(slide, styleKey string) string {
	return fmt.Sprintf("categories:%s:%s", slide, styleKey)
}

// PreviewKey generates a cache key for a marker preview. A nil category
// filter means no filter; an empty one is a distinct, explicit filter.
func PreviewKey(slide, view string, scale float64, categories []string) string {
	base := fmt.Sprintf("preview:%s:%s:ps=%.3f", slide, view, scale)
	if categories == nil {
		return base
	}
	if len(categories) == 0 {
		return base + ":none"
	}

	sorted := append([]string(nil), categories...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(strings.Join(sorted, "\x00")))
	return base + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Stats returns cache statistics.
func (m *Manager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"asset_cache_len": m.assetCache.Len(),
		"asset_cache_cap": m.assetCache.Capacity(),
		"query_cache_len": m.queryCache.Len(),
	}
}

// Close closes the cache manager.
func (m *Manager) Close() error {
	return m.assetCache.Close()
}
