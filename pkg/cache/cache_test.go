package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	// BuildKey should include options in hash
	bk1 := k.BuildKey("doc123", BuildKeyOpts{})
	bk2 := k.BuildKey("doc123", BuildKeyOpts{ExhaustiveRelink: true})
	if bk1 == bk2 {
		t.Error("Different BuildKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(bk1, "build:") || len(bk1) != len("build:")+64 {
		t.Errorf("BuildKey unexpected: %s", bk1)
	}
	if bk1 != k.BuildKey("doc123", BuildKeyOpts{}) {
		t.Error("BuildKey should be deterministic")
	}

	// RenderKey
	rk1 := k.RenderKey(bk1, RenderKeyOpts{Format: "svg"})
	rk2 := k.RenderKey(bk1, RenderKeyOpts{Format: "dot"})
	if rk1 == rk2 {
		t.Error("Different RenderKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "v0.4.0:")

	key := scoped.BuildKey("doc", BuildKeyOpts{})
	if key != "v0.4.0:"+inner.BuildKey("doc", BuildKeyOpts{}) {
		t.Errorf("ScopedKeyer BuildKey unexpected: %s", key)
	}
	rkey := scoped.RenderKey("b", RenderKeyOpts{Format: "svg"})
	if !strings.HasPrefix(rkey, "v0.4.0:render:") {
		t.Errorf("ScopedKeyer RenderKey should be prefixed: %s", rkey)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.BuildKey("doc", BuildKeyOpts{})
	if key != "prefix:"+NewDefaultKeyer().BuildKey("doc", BuildKeyOpts{}) {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "build:k1", []byte("v1"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := c.Set(ctx, "build:k1", []byte("v1 again"), time.Hour); err != nil {
		t.Fatalf("Set (overwrite) error: %v", err)
	}
	data, hit, err := c.Get(ctx, "build:k1")
	if err != nil || !hit || string(data) != "v1 again" {
		t.Errorf("Get(build:k1) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "empty", nil, 0); err != nil {
		t.Fatalf("Set(empty) error: %v", err)
	}
	if data, hit, _ := c.Get(ctx, "empty"); !hit || len(data) != 0 {
		t.Errorf("Get(empty) = %q, %v; an empty value is still a hit", data, hit)
	}

	if err := c.Delete(ctx, "build:k1"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if err := c.Delete(ctx, "build:k1"); err != nil {
		t.Errorf("Delete of a missing key error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "build:k1"); hit {
		t.Error("deleted entry should be a miss")
	}
}

func TestFileCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for key, ttl := range map[string]time.Duration{"build:a": time.Minute, "build:b": time.Hour, "render:c": 0} {
		if err := c.Set(ctx, key, []byte(key), ttl); err != nil {
			t.Fatalf("Set(%s) error: %v", key, err)
		}
	}

	now = now.Add(10 * time.Minute)
	if _, hit, _ := c.Get(ctx, "build:a"); hit {
		t.Error("entry past its ttl should be a miss")
	}
	if _, hit, _ := c.Get(ctx, "build:b"); !hit {
		t.Error("entry within its ttl should be a hit")
	}

	now = now.Add(2 * time.Hour)
	n, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d entries, want 1", n)
	}
	if _, hit, _ := c.Get(ctx, "render:c"); !hit {
		t.Error("entries without ttl must survive Prune")
	}
}

func TestFileCache_TruncatedEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("build:x")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "build:x"); hit || err != nil {
		t.Errorf("Get(truncated) = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("truncated entry should be removed")
	}
}

func TestFileCache_ClearAndUsage(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	keyer := NewScopedKeyer(nil, "v1:")
	keys := []string{
		keyer.BuildKey("doc1", BuildKeyOpts{}),
		keyer.BuildKey("doc2", BuildKeyOpts{}),
		keyer.RenderKey("b", RenderKeyOpts{Format: "svg"}),
		"plain",
	}
	for _, k := range keys {
		if err := c.Set(ctx, k, []byte("payload for "+k), 0); err != nil {
			t.Fatalf("Set(%s) error: %v", k, err)
		}
	}

	usage, err := c.Usage()
	if err != nil {
		t.Fatalf("Usage error: %v", err)
	}
	got := make(map[string]int)
	for _, u := range usage {
		got[u.Kind] = u.Entries
		if u.Bytes <= 0 {
			t.Errorf("Usage(%s).Bytes = %d", u.Kind, u.Bytes)
		}
	}
	want := map[string]int{KindBuild: 2, KindRender: 1, kindOther: 1}
	for kind, n := range want {
		if got[kind] != n {
			t.Errorf("Usage entries for %s = %d, want %d", kind, got[kind], n)
		}
	}
	if usage[0].Kind != KindBuild {
		t.Errorf("Usage should be sorted by kind, got %s first", usage[0].Kind)
	}

	n, err := c.Clear(KindRender)
	if err != nil || n != 1 {
		t.Fatalf("Clear(render) = %d, %v, want 1", n, err)
	}
	n, err = c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear() = %d, %v, want 3", n, err)
	}
	if usage, _ := c.Usage(); len(usage) != 0 {
		t.Errorf("Usage after Clear = %+v, want empty", usage)
	}
	if n, err := c.Clear(KindBuild); err != nil || n != 0 {
		t.Errorf("Clear on an empty cache = %d, %v", n, err)
	}
}

func TestKeyKind(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"build:abc", KindBuild},
		{"v0.4.0:render:abc", KindRender},
		{"plain", kindOther},
		{"../evil:abc", kindOther},
		{":abc", kindOther},
	}
	for _, tt := range tests {
		if got := keyKind(tt.key); got != tt.want {
			t.Errorf("keyKind(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
