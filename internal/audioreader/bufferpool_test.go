package audioreader

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPoolValidatesSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"valid_size", 1024, false},
		{"zero_size", 0, true},
		{"negative_size", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := newBufferPool(tt.size)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, pool.size)
		})
	}
}

func TestBufferPoolGetPutReuses(t *testing.T) {
	const bufferSize = 256
	pool, err := newBufferPool(bufferSize)
	require.NoError(t, err)

	buf := pool.Get()
	assert.Len(t, buf, bufferSize)

	stats := pool.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.GreaterOrEqual(t, stats.Misses, uint64(1))

	pool.Put(buf)
	buf2 := pool.Get()
	assert.Len(t, buf2, bufferSize)

	stats = pool.Stats()
	assert.Greater(t, stats.Hits+stats.Misses, uint64(1))
}

func TestBufferPoolDiscardsWrongSizedBuffers(t *testing.T) {
	const bufferSize = 256
	pool, err := newBufferPool(bufferSize)
	require.NoError(t, err)

	pool.Put(nil)
	assert.Equal(t, uint64(1), pool.Stats().Discarded)

	pool.Put(make([]byte, bufferSize+1))
	assert.Equal(t, uint64(2), pool.Stats().Discarded)

	pool.Put(make([]byte, bufferSize))
	reused := pool.Get()
	assert.Len(t, reused, bufferSize)
	assert.GreaterOrEqual(t, pool.Stats().Hits, uint64(1))
}

func TestBufferPoolConcurrentGetPutIsSafe(t *testing.T) {
	const (
		bufferSize  = 512
		concurrency = 32
	)
	pool, err := newBufferPool(bufferSize)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buf := pool.Get()
				buf[0] = byte(j)
				pool.Put(buf)
			}
		}()
	}
	wg.Wait()

	stats := pool.Stats()
	assert.Equal(t, uint64(0), stats.Discarded)
}
