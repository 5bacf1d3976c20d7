package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	c := New[string]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v", time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	c := New[int]()
	c.Set("k", 42, -time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)
	// Expired entries are evicted on read.
	assert.Equal(t, 0, c.Len())
}

func TestCacheDelete(t *testing.T) {
	c := New[int]()
	c.Set("k", 1, time.Minute)
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestLoadSingleFlight(t *testing.T) {
	c := New[int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Load("k", func() (int, error) {
				calls.Add(1)
				time.Sleep(50 * time.Millisecond)
				return 7, nil
			})
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestLoadDoesNotStore(t *testing.T) {
	c := New[int]()
	_, err := c.Load("k", func() (int, error) { return 1, nil })
	require.NoError(t, err)

	_, ok := c.Get("k")
	assert.False(t, ok)
}
