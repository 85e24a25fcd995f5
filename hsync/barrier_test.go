package hsync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestBarrierReleasesAllAtOnce mirrors spec.md scenario 6: no
// participant returns from Wait before the last one arrives.
func TestBarrierReleasesAllAtOnce(t *testing.T) {
	const n = 8
	var b Barrier
	b.Init(n)

	var arrived int32
	var mu sync.Mutex
	done := make(chan struct{}, n)

	for i := 0; i < n-1; i++ {
		go func() {
			b.Wait()
			mu.Lock()
			arrived++
			mu.Unlock()
			done <- struct{}{}
		}()
	}

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	assert.EqualValues(t, 0, arrived) // none of the n-1 have returned yet
	mu.Unlock()

	b.Wait() // the final participant

	for i := 0; i < n-1; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("not all participants were released")
		}
	}
}

// TestBarrierIsReusableAcrossRounds exercises the two-round reuse
// semantics spec.md calls out explicitly.
func TestBarrierIsReusableAcrossRounds(t *testing.T) {
	const n = 4
	var b Barrier
	b.Init(n)

	runRound := func() {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				b.Wait()
			}()
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("round did not complete")
		}
	}

	runRound()
	runRound()
}
