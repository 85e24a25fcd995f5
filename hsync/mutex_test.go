package hsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LNSD/switchbrew/arbiter"
	"github.com/LNSD/switchbrew/hosthread"
	"github.com/LNSD/switchbrew/nxtest"
)

func TestMutexLockUnlockSingleThread(t *testing.T) {
	var m Mutex
	m.Lock()
	assert.True(t, m.IsLockedByCurrentThread())
	m.Unlock()
	assert.False(t, m.IsLockedByCurrentThread())
}

func TestMutexTryLockFailsWhenHeld(t *testing.T) {
	var m Mutex
	m.Lock()
	defer m.Unlock()

	done := make(chan bool)
	go func() {
		done <- m.TryLock()
	}()
	assert.False(t, <-done)
}

// TestMutexContentionSetsWaitMask mirrors spec.md scenario 2: a second
// thread blocked on an already-held Mutex must observe WAIT_MASK set
// on the word while it waits, and must be handed ownership, not merely
// unblocked to race for it, when the holder unlocks.
func TestMutexContentionSetsWaitMask(t *testing.T) {
	var m Mutex
	hosthread.Register()
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		hosthread.Register()
		m.Lock()
		close(acquired)
	}()

	// Wait for the second goroutine to park and set WAIT_MASK.
	ok := nxtest.EventuallyTrue(time.Second, time.Millisecond, func() bool {
		return m.tag&arbiter.MutexWaitMask != 0
	})
	assert.True(t, ok, "WAIT_MASK was never observed set")

	m.Unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second thread never acquired the mutex")
	}
}

// TestMutexStaggeredContendersHandOffInArrivalOrder mirrors spec.md
// scenario 2 and original_source's test_0005_mutex_multiple_threads_
// different_priority.c: three threads contend for one mutex with
// staggered arrival times while a shared tag records who currently
// holds it, and ownership must transition strictly through each
// contender in turn rather than letting a later arrival cut in.
//
// The original test assigns each thread a kernel priority and expects
// priority-driven ordering (A, then the higher-priority C, then B);
// the Go port has no user-settable thread priority (SPEC_FULL.md), so
// this emulation's arbiter is plain FIFO and the expected order is
// simply arrival order: A, then B, then C.
func TestMutexStaggeredContendersHandOffInArrivalOrder(t *testing.T) {
	var m Mutex
	var sharedTag uint32

	tagA := hosthread.Register().Tag()
	var tagB, tagC hosthread.Tag

	m.Lock()
	sharedTag = uint32(tagA)

	acquiredB := make(chan struct{})
	go func() {
		tagB = hosthread.Register().Tag()
		m.Lock()
		sharedTag = uint32(tagB)
		close(acquiredB)
		time.Sleep(30 * time.Millisecond)
		m.Unlock()
	}()

	// Wait for B to register as a waiter before starting C, so the
	// arrival order (and therefore the FIFO hand-off order) is
	// deterministic.
	ok := nxtest.EventuallyTrue(time.Second, time.Millisecond, func() bool {
		return m.tag&arbiter.MutexWaitMask != 0
	})
	assert.True(t, ok, "B never registered as a waiter")

	doneC := make(chan struct{})
	acquiredC := make(chan struct{})
	go func() {
		tagC = hosthread.Register().Tag()
		m.Lock()
		sharedTag = uint32(tagC)
		close(acquiredC)
		m.Unlock()
		close(doneC)
	}()

	time.Sleep(30 * time.Millisecond) // let C queue up behind B

	// Thread A still holds the mutex; B and C are both waiting.
	assert.EqualValues(t, tagA, m.tag&arbiter.MutexOwnerMask)
	assert.NotZero(t, m.tag&arbiter.MutexWaitMask)
	assert.EqualValues(t, tagA, sharedTag)

	m.Unlock() // hands off to B, the first to have registered

	select {
	case <-acquiredB:
	case <-time.After(time.Second):
		t.Fatal("B never acquired the mutex")
	}
	assert.EqualValues(t, tagB, sharedTag)

	select {
	case <-acquiredC:
		t.Fatal("C acquired the mutex before B released it")
	case <-time.After(20 * time.Millisecond):
	}

	select {
	case <-acquiredC:
	case <-time.After(time.Second):
		t.Fatal("C never acquired the mutex")
	}
	assert.EqualValues(t, tagC, sharedTag)

	select {
	case <-doneC:
	case <-time.After(time.Second):
		t.Fatal("C never unlocked the mutex")
	}
	assert.Zero(t, m.tag)
}

func TestMutexManyContenders(t *testing.T) {
	var m Mutex
	var counter int
	const n = 50

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.Lock()
			counter++
			m.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
}
