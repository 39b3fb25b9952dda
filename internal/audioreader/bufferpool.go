package audioreader

import (
	"sync"
	"sync/atomic"

	"github.com/sonicvg/svcore/internal/apperrors"
)

// bufferPool is a thread-safe pool of fixed-size byte slices, used to
// avoid reallocating the drain-chunk buffer on every accumulate-stage
// flush. Grounded on the teacher's internal/myaudio.BufferPool: a
// sync.Pool wrapped with size validation so a caller that mistakenly
// returns a wrongly-sized buffer gets silently discarded rather than
// corrupting a later Get.
type bufferPool struct {
	pool sync.Pool
	size int

	gets      atomic.Uint64
	news      atomic.Uint64
	discarded atomic.Uint64
}

func newBufferPool(size int) (*bufferPool, error) {
	if size <= 0 {
		return nil, apperrors.Newf("audioreader: invalid buffer pool size %d", size).
			Component("audioreader").Category(apperrors.CategoryValidation).Build()
	}
	bp := &bufferPool{size: size}
	bp.pool.New = func() any {
		bp.news.Add(1)
		return make([]byte, size)
	}
	return bp, nil
}

func (bp *bufferPool) Get() []byte {
	bp.gets.Add(1)
	buf := bp.pool.Get().([]byte)
	if len(buf) == bp.size {
		return buf
	}
	bp.discarded.Add(1)
	bp.news.Add(1)
	return make([]byte, bp.size)
}

func (bp *bufferPool) Put(buf []byte) {
	if buf == nil || len(buf) != bp.size {
		bp.discarded.Add(1)
		return
	}
	//nolint:staticcheck // sync.Pool is designed to hold slices
	bp.pool.Put(buf)
}

// bufferPoolStats mirrors the teacher's BufferPoolStats shape for
// monitoring pool efficiency.
type bufferPoolStats struct {
	Hits      uint64
	Misses    uint64
	Discarded uint64
}

func (bp *bufferPool) Stats() bufferPoolStats {
	gets := bp.gets.Load()
	news := bp.news.Load()
	hits := uint64(0)
	if gets > news {
		hits = gets - news
	}
	return bufferPoolStats{Hits: hits, Misses: news, Discarded: bp.discarded.Load()}
}
