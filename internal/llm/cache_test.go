package llm_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nobodyrpg/nobody/internal/llm"
)

func cachedResponse(text string) *llm.Response {
	return &llm.Response{Text: text, Model: "gpt-test", FinishReason: "stop"}
}

func TestCache_RoundTrip(t *testing.T) {
	cache := llm.NewResponseCache(16, time.Minute)
	resp := cachedResponse("cached")

	cache.Insert("k1", resp)
	got, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, *resp, *got)
}

func TestCache_RoundTripArbitraryKeys(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"
	rng := rand.New(rand.NewSource(42))
	cache := llm.NewResponseCache(256, time.Minute)

	for i := 0; i < 100; i++ {
		keyLen := 1 + rng.Intn(24)
		key := make([]byte, keyLen)
		for j := range key {
			key[j] = alphabet[rng.Intn(len(alphabet))]
		}
		resp := cachedResponse(fmt.Sprintf("text-%d", rng.Intn(100000)))

		cache.Insert(string(key), resp)
		got, ok := cache.Get(string(key))
		require.True(t, ok, "key %q", key)
		assert.Equal(t, *resp, *got)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := llm.NewResponseCache(10, 10*time.Millisecond)
	cache.Insert("k1", cachedResponse("cached"))

	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestCache_LRUEviction(t *testing.T) {
	cache := llm.NewResponseCache(2, time.Minute)

	cache.Insert("a", cachedResponse("a"))
	cache.Insert("b", cachedResponse("b"))

	// Reading "a" refreshes it, making "b" the LRU entry.
	_, ok := cache.Get("a")
	require.True(t, ok)

	cache.Insert("c", cachedResponse("c"))

	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("b")
	assert.False(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestCache_SizeBoundHoldsAfterInserts(t *testing.T) {
	cache := llm.NewResponseCache(4, time.Minute)
	for i := 0; i < 50; i++ {
		cache.Insert(fmt.Sprintf("k%d", i), cachedResponse("x"))
		assert.LessOrEqual(t, cache.Len(), 4)
	}
}

func TestCache_OverwriteSameKeyDoesNotEvict(t *testing.T) {
	cache := llm.NewResponseCache(2, time.Minute)
	cache.Insert("a", cachedResponse("a1"))
	cache.Insert("b", cachedResponse("b"))

	// Overwriting an existing key must not trigger LRU eviction.
	cache.Insert("a", cachedResponse("a2"))

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Text)
	_, ok = cache.Get("b")
	assert.True(t, ok)
}

func TestCache_GetReturnsCopy(t *testing.T) {
	cache := llm.NewResponseCache(2, time.Minute)
	cache.Insert("a", cachedResponse("original"))

	got, ok := cache.Get("a")
	require.True(t, ok)
	got.Text = "mutated"

	again, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "original", again.Text)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := llm.NewResponseCache(32, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%40)
				if j%3 == 0 {
					cache.Insert(key, cachedResponse(fmt.Sprintf("w%d-%d", worker, j)))
				} else {
					_, _ = cache.Get(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 32)
}

func TestCache_CapacityFloorIsOne(t *testing.T) {
	cache := llm.NewResponseCache(0, time.Minute)
	cache.Insert("a", cachedResponse("a"))
	cache.Insert("b", cachedResponse("b"))

	_, aOK := cache.Get("a")
	_, bOK := cache.Get("b")
	assert.False(t, aOK)
	assert.True(t, bOK)
	assert.Equal(t, 1, cache.Len())
}
