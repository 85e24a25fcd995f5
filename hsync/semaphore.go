package hsync

// Semaphore is a counting semaphore built on the same Mutex/CondVar
// primitives as the rest of this package (spec.md §4.5, component E),
// rather than directly on the arbiter: spec.md describes it as a
// composition, not a primitive the kernel arbitrates on its own
// address.
type Semaphore struct {
	mu    Mutex
	cv    CondVar
	count uint32
}

// Init sets the semaphore's initial count. Must be called before any
// Wait/Signal if the desired initial count is non-zero; the zero value
// already represents count == 0.
func (s *Semaphore) Init(count uint32) {
	s.mu.Lock()
	s.count = count
	s.mu.Unlock()
}

// Wait blocks until the count is non-zero, then decrements it.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cv.Wait(&s.mu)
	}
	s.count--
	s.mu.Unlock()
}

// TryWait decrements the count and returns true without blocking if
// it was non-zero, or returns false leaving the count unchanged.
func (s *Semaphore) TryWait() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return false
	}
	s.count--
	return true
}

// Signal increments the count and wakes a single waiter, if any.
func (s *Semaphore) Signal() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cv.WakeOne()
}

// Count returns the current count. Intended for tests and diagnostics;
// the real kernel has no equivalent observer (spec.md §7 Non-goals).
func (s *Semaphore) Count() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
