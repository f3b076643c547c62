package cache

import (
	"testing"
	"time"
)

func TestPreviewKey(t *testing.T) {
	base := "preview:s1:0,0,1,1,0@256x256:ps=1.000"
	view := "0,0,1,1,0@256x256"

	t.Run("nilFilters", func(t *testing.T) {
		got := PreviewKey("s1", view, 1.0, nil)
		if got != base {
			t.Fatalf("expected %q, got %q", base, got)
		}
	})

	t.Run("emptyFilters", func(t *testing.T) {
		got := PreviewKey("s1", view, 1.0, []string{})
		want := base + ":none"
		if got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	})

	t.Run("sortedFilters", func(t *testing.T) {
		key1 := PreviewKey("s1", view, 1.0, []string{"CCGA", "AAGT"})
		key2 := PreviewKey("s1", view, 1.0, []string{"AAGT", "CCGA"})
		if key1 != key2 {
			t.Fatalf("expected stable key, got %q vs %q", key1, key2)
		}
		if key1 == base || key1 == base+":none" {
			t.Fatalf("expected filtered key to differ from base, got %q", key1)
		}
	})
}

func TestManagerRoundTrip(t *testing.T) {
	m, err := NewManager(Config{AssetCacheSizeMB: 8, AssetTTL: time.Minute, QueryCacheSize: 4})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if _, ok := m.GetAsset(AtlasKey(256)); ok {
		t.Fatal("expected empty asset cache")
	}
	if err := m.SetAsset(AtlasKey(256), []byte("png")); err != nil {
		t.Fatalf("SetAsset: %v", err)
	}
	if got, ok := m.GetAsset(AtlasKey(256)); !ok || string(got) != "png" {
		t.Fatalf("unexpected asset %q (ok=%v)", got, ok)
	}

	m.SetQuery(CategoriesKey("s1", "letters"), []byte("[]"))
	if got, ok := m.GetQuery(CategoriesKey("s1", "letters")); !ok || string(got) != "[]" {
		t.Fatalf("unexpected query %q (ok=%v)", got, ok)
	}
	if stats := m.Stats(); stats["query_cache_len"] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
