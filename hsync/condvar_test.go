package hsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LNSD/switchbrew/arbiter"
)

func TestCondVarWakeOneReleasesSingleWaiter(t *testing.T) {
	var m Mutex
	var cv CondVar

	released := make(chan int, 2)
	start := func() {
		m.Lock()
		cv.Wait(&m)
		m.Unlock()
		released <- 1
	}
	go start()
	go start()

	time.Sleep(30 * time.Millisecond)

	m.Lock()
	woken := cv.WakeOne()
	m.Unlock()
	assert.EqualValues(t, 1, woken)

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("WakeOne did not release a waiter")
	}

	select {
	case <-released:
		t.Fatal("WakeOne released more than one waiter")
	case <-time.After(50 * time.Millisecond):
	}

	m.Lock()
	cv.WakeAll()
	m.Unlock()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("WakeAll did not release the remaining waiter")
	}
}

// TestCondVarWakeAllReleasesAllWaiters mirrors spec.md scenario with 32
// concurrent waiters released by a single Broadcast-equivalent call.
func TestCondVarWakeAllReleasesAllWaiters(t *testing.T) {
	var m Mutex
	var cv CondVar
	const n = 32

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.Lock()
			cv.Wait(&m)
			m.Unlock()
		}()
	}

	time.Sleep(30 * time.Millisecond)

	m.Lock()
	woken := cv.WakeAll()
	m.Unlock()
	assert.EqualValues(t, n, woken)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were released")
	}
}

func TestCondVarWaitTimeoutExpires(t *testing.T) {
	var m Mutex
	var cv CondVar

	m.Lock()
	start := time.Now()
	rc := cv.WaitTimeout(&m, 30*time.Millisecond)
	elapsed := time.Since(start)
	m.Unlock()

	assert.Equal(t, arbiter.TimedOut, rc)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}

func TestCondVarWakeWithNoWaitersIsNoop(t *testing.T) {
	var cv CondVar
	woken := cv.WakeOne()
	assert.EqualValues(t, 0, woken)
}
