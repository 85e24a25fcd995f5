package hsync

// Barrier synchronizes a fixed-size group of threads at a rendezvous
// point (spec.md §4.6, component F), built the same way Semaphore is:
// atop this package's own Mutex and CondVar rather than the arbiter
// directly.
//
// A generation counter (rather than just the live count) is what makes
// the barrier reusable across rounds (spec.md's two-round scenario):
// without it, a thread that calls Wait again for round 2 before every
// round-1 waiter has actually returned from Wait could increment the
// count and trigger an early, wrong release.
type Barrier struct {
	mu         Mutex
	cv         CondVar
	total      uint32
	count      uint32
	generation uint32
}

// Init sets the number of threads that must call Wait before any of
// them are released, and resets the barrier to round zero.
func (b *Barrier) Init(total uint32) {
	b.mu.Lock()
	b.total = total
	b.count = 0
	b.generation = 0
	b.mu.Unlock()
}

// Wait blocks until total threads (across all Barrier instances
// sharing this one) have called Wait, then releases all of them at
// once and makes the barrier ready for its next round.
func (b *Barrier) Wait() {
	b.mu.Lock()
	gen := b.generation
	b.count++

	if b.count == b.total {
		b.count = 0
		b.generation++
		b.mu.Unlock()
		b.cv.WakeAll()
		return
	}

	for gen == b.generation {
		b.cv.Wait(&b.mu)
	}
	b.mu.Unlock()
}
