package cache_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/sandrolain/gorei/pkg/cache"
	"github.com/sandrolain/gorei/pkg/parser"
	"github.com/sandrolain/gorei/pkg/types"
)

func mustParse(t *testing.T, src string) *types.Program {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	return prog
}

func TestCacheNew(t *testing.T) {
	c := cache.New(10)
	if got := c.Len(); got != 0 {
		t.Fatalf("expected empty cache, got %d", got)
	}
	if got := c.Capacity(); got != 10 {
		t.Fatalf("expected capacity 10, got %d", got)
	}
	if got := cache.New(0).Capacity(); got != 256 {
		t.Fatalf("expected default capacity 256, got %d", got)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := cache.New(4)
	prog := mustParse(t, "1 + 2")
	c.Set("1 + 2", prog)
	got, ok := c.Get("1 + 2")
	if !ok || got != prog {
		t.Fatal("expected the same program pointer back")
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected cache miss")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := cache.New(3)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, mustParse(t, k))
	}
	// touch "a" so "b" becomes the oldest
	c.Get("a")
	c.Set("d", mustParse(t, "d"))

	if got := c.Len(); got != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", got)
	}
	if _, ok := c.Get("b"); ok {
		t.Fatal(`expected "b" to be evicted`)
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("expected %q to survive", k)
		}
	}
}

func TestCacheSetUpdate(t *testing.T) {
	c := cache.New(4)
	first, second := mustParse(t, "1"), mustParse(t, "2")
	c.Set("k", first)
	c.Set("k", second)
	if got, _ := c.Get("k"); got != second {
		t.Fatal("expected the updated program")
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", c.Len())
	}
}

func TestCacheInvalidateClear(t *testing.T) {
	c := cache.New(4)
	c.Set("k", mustParse(t, "1"))
	c.Set("j", mustParse(t, "2"))
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after Invalidate")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected 0 after Clear, got %d", c.Len())
	}
}

func TestCacheGetOrParse(t *testing.T) {
	c := cache.New(4)
	calls := 0
	parse := func() (*types.Program, error) {
		calls++
		return parser.Parse("𝕄{5; 1, 2}")
	}

	p1, err := c.GetOrParse("𝕄{5; 1, 2}", parse)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.GetOrParse("𝕄{5; 1, 2}", parse)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 || p1 != p2 {
		t.Fatalf("expected one parse and a shared program, got %d calls", calls)
	}
}

func TestCacheGetOrParseSkipsErrors(t *testing.T) {
	c := cache.New(4)
	fail := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrParse("bad", func() (*types.Program, error) { return nil, fail }); !errors.Is(err, fail) {
			t.Fatalf("expected parse error, got %v", err)
		}
	}
	if c.Len() != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestCacheKey(t *testing.T) {
	if cache.Key("a") == cache.Key("b") {
		t.Error("distinct sources should have distinct keys")
	}
	if cache.Key("𝕄{1}") != cache.Key("𝕄{1}") {
		t.Error("keys must be stable")
	}
}

func TestCacheConcurrent(t *testing.T) {
	c := cache.New(8)
	srcs := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, src := range srcs {
				if _, err := c.GetOrParse(src, func() (*types.Program, error) { return parser.Parse(src) }); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("capacity exceeded: %d", c.Len())
	}
}
