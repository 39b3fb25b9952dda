package serialmutex

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerialisedAccessIsMutuallyExclusive(t *testing.T) {
	const id = "test:exclusive"
	const workers = 8

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			StartSerialised(id)
			defer EndSerialised(id)

			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&maxActive)
				if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
					break
				}
			}
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive, "at most one holder of a given id runs at a time")
}

func TestDifferentIDsDoNotContend(t *testing.T) {
	done := make(chan struct{})
	StartSerialised("test:a")
	go func() {
		StartSerialised("test:b")
		EndSerialised("test:b")
		close(done)
	}()
	<-done
	EndSerialised("test:a")
}

func TestRegistryEntryIsGarbageCollectedAfterRelease(t *testing.T) {
	const id = "test:gc"
	StartSerialised(id)
	EndSerialised(id)

	registryMu.Lock()
	_, present := registry[id]
	registryMu.Unlock()
	assert.False(t, present, "the registry entry for an unheld id is removed")
}
