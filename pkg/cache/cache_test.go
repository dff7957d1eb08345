package cache

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/pivot/pkg/observability"
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

func TestFileCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	key := "solve:abc"
	value := []byte(`{"status":"optimal"}`)

	if err := c.Set(ctx, key, value, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after Set")
	}
	if string(data) != string(value) {
		t.Errorf("Get = %q, want %q", data, value)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("Get after Delete should miss")
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "key"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	model := "max 3 5\n1 0 <= 4\n0 2 <= 12\n3 2 <= 18\n"

	// Same inputs, same key
	k1 := k.SolveKey(model, KeyOpts{Engine: "simplex", MaxIterations: 1000, Tolerance: 1e-6})
	k2 := k.SolveKey(model, KeyOpts{Engine: "simplex", MaxIterations: 1000, Tolerance: 1e-6})
	if k1 != k2 {
		t.Error("SolveKey should be deterministic")
	}

	// Options change the key
	k3 := k.SolveKey(model, KeyOpts{Engine: "bnb", MaxIterations: 1000, Tolerance: 1e-6})
	if k1 == k3 {
		t.Error("Different engines should produce different keys")
	}
	k4 := k.SolveKey(model, KeyOpts{Engine: "simplex", MaxIterations: 500, Tolerance: 1e-6})
	if k1 == k4 {
		t.Error("Different caps should produce different keys")
	}

	// Model text changes the key
	k5 := k.SolveKey(model+"# comment\n", KeyOpts{Engine: "simplex", MaxIterations: 1000, Tolerance: 1e-6})
	if k1 == k5 {
		t.Error("Different model text should produce different keys")
	}

	// RenderKey distinguishes formats
	r1 := k.RenderKey(k1, "svg")
	r2 := k.RenderKey(k1, "dot")
	if r1 == r2 {
		t.Error("Different formats should produce different render keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "user:123:")

	key := scoped.SolveKey("max 1\n1 <= 4\n", KeyOpts{Engine: "simplex"})
	if len(key) < 9 || key[:9] != "user:123:" {
		t.Errorf("ScopedKeyer SolveKey should be prefixed: %s", key)
	}
	if key[9:] != inner.SolveKey("max 1\n1 <= 4\n", KeyOpts{Engine: "simplex"}) {
		t.Error("ScopedKeyer should delegate to the inner keyer")
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	want := "prefix:" + NewDefaultKeyer().SolveKey("m", KeyOpts{})
	if got := scoped.SolveKey("m", KeyOpts{}); got != want {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(ErrNotFound) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return ErrNotFound
	})
	if err != ErrNotFound {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestFileCacheFiresHooks(t *testing.T) {
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, _, err := c.Get(ctx, "solve:abc"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "solve:abc", []byte("x"), 0); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(ctx, "solve:abc"); err != nil {
		t.Fatal(err)
	}

	if hooks.misses != 1 || hooks.sets != 1 || hooks.hits != 1 {
		t.Errorf("hooks fired misses=%d sets=%d hits=%d, want 1 each",
			hooks.misses, hooks.sets, hooks.hits)
	}
}

func TestKeyType(t *testing.T) {
	if got := keyType("solve:deadbeef"); got != "solve" {
		t.Errorf("keyType = %q, want solve", got)
	}
	if got := keyType("noprefix"); got != "unknown" {
		t.Errorf("keyType = %q, want unknown", got)
	}
}
