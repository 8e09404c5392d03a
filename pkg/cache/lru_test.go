package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/eventkit/pkg/cache"
)

func TestLRUCache(t *testing.T) {
	t.Parallel()

	t.Run("evicts least recently used", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, int](2)
		var evicted []string
		c.SetEvictCallback(func(k string, _ int) { evicted = append(evicted, k) })

		c.Put("a", 1)
		c.Put("b", 2)
		_, _ = c.Get("a")
		c.Put("c", 3)

		_, ok := c.Get("b")
		assert.False(t, ok)
		assert.Equal(t, []string{"b"}, evicted)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("put returns previous value", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, int](2)
		_, existed := c.Put("a", 1)
		assert.False(t, existed)
		old, existed := c.Put("a", 2)
		assert.True(t, existed)
		assert.Equal(t, 1, old)
	})

	t.Run("remove and clear call the callback", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, int](3)
		var evicted int
		c.SetEvictCallback(func(string, int) { evicted++ })

		c.Put("a", 1)
		c.Put("b", 2)
		c.Put("c", 3)
		v, ok := c.Remove("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)

		c.Clear()
		assert.Equal(t, 0, c.Len())
		assert.Equal(t, 3, evicted)
	})

	t.Run("get or create runs once per key", func(t *testing.T) {
		t.Parallel()
		c := cache.NewLRUCache[string, *int](4)
		var mu sync.Mutex
		created := 0

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.GetOrCreate("k", func() *int {
					mu.Lock()
					created++
					mu.Unlock()
					return new(int)
				})
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, created)
	})

	t.Run("panics on invalid capacity", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
	})
}
