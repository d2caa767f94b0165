package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPool_FanOut(t *testing.T) {
	var processed atomic.Int64
	p := NewPool(4, 16, func(_ int, job int) {
		processed.Add(int64(job))
	})

	done := make(chan struct{})
	go func() {
		p.Run()
		close(done)
	}()

	for i := 1; i <= 10; i++ {
		p.Submit(i)
	}

	assert.Eventually(t, func() bool {
		return processed.Load() == 55
	}, time.Second, 10*time.Millisecond)

	p.Shutdown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not stop after Shutdown")
	}
}

func TestPool_Backlog(t *testing.T) {
	p := NewPool(1, 8, func(_ int, _ string) {})

	p.Submit("a")
	p.Submit("b")

	assert.Equal(t, 2, p.Backlog())
}

func TestPool_Shutdown(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		p := NewPool(2, 4, func(_ int, _ int) {})
		p.Shutdown()
		assert.NotPanics(t, p.Shutdown)
	})

	t.Run("run returns when already shut down", func(t *testing.T) {
		p := NewPool(0, 0, func(_ int, _ int) {})
		assert.Equal(t, 1, p.workers)

		p.Shutdown()

		done := make(chan struct{})
		go func() {
			p.Run()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("pool did not observe shutdown")
		}
	})
}
