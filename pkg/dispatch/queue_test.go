package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestQueueRunsInOrder(t *testing.T) {
	q := NewQueue(nil)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		q.Submit(func() { got = append(got, i) })
	}
	q.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestQueueRunsOneAtATime(t *testing.T) {
	q := NewQueue(nil)

	var mu sync.Mutex
	running, maxRunning := 0, 0
	for i := 0; i < 20; i++ {
		q.Submit(func() {
			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	q.Close()

	assert.Equal(t, 1, maxRunning)
}

func TestQueueSubmitFromCallback(t *testing.T) {
	q := NewQueue(nil)

	done := make(chan struct{})
	q.Submit(func() {
		// must not deadlock
		q.Submit(func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("nested submit never ran")
	}
	q.Close()
}

func TestQueueRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	q := NewQueue(zap.New(core))

	ran := false
	q.Submit(func() { panic("boom") })
	q.Submit(func() { ran = true })
	q.Close()

	assert.True(t, ran, "a panicking callback must not stop the queue")
	assert.Equal(t, 1, logs.FilterMessage("panic in completion callback").Len())
}

func TestSubmitAfterCloseRunsInline(t *testing.T) {
	q := NewQueue(nil)
	q.Close()

	ran := false
	q.Submit(func() { ran = true })
	assert.True(t, ran)

	// closing twice is harmless
	q.Close()
}
