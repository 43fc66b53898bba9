package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLocker_SerializesSameKey(t *testing.T) {
	locks := NewKeyLocker()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u:b")
			defer unlock()

			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Zero(t, locks.Len())
}

func TestKeyLocker_IndependentKeys(t *testing.T) {
	locks := NewKeyLocker()

	unlockA := locks.Lock(pairKey("u1", "a"))
	unlockB := locks.Lock(pairKey("u1", "b")) // must not block
	assert.Equal(t, 2, locks.Len())

	unlockA()
	unlockA() // second call is a no-op
	unlockB()
	assert.Zero(t, locks.Len())
}
