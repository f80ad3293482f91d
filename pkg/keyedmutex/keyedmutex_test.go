package keyedmutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLock_SerializesSameKey(t *testing.T) {
	km := New()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			unlock := km.Lock("resource-1")
			defer unlock()

			// Без сериализации инкремент был бы гонкой
			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestLock_IndependentKeysDoNotBlock(t *testing.T) {
	km := New()

	unlockA := km.Lock("resource-a")

	done := make(chan struct{})
	go func() {
		unlockB := km.Lock("resource-b")
		unlockB()
		close(done)
	}()

	// Захват другого ключа не должен ждать освобождения resource-a
	<-done
	unlockA()
}

func TestLock_EntriesReleased(t *testing.T) {
	km := New()

	unlock := km.Lock("resource-1")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}
