package hsync

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/LNSD/switchbrew/arbiter"
)

// CondVar is a condition variable (spec.md §4.4, component D). Its
// word doubles as both the kernel wait address and a count of threads
// currently registered as waiters, the same overloading spec.md's
// GLOSSARY describes for the real kernel's condition-variable word.
type CondVar struct {
	seq uint32
}

// Init resets c to the no-waiters state. Unnecessary for a zero-valued
// CondVar.
func (c *CondVar) Init() {
	atomic.StoreUint32(&c.seq, 0)
}

// Wait atomically unlocks m and blocks the caller until woken, then
// reacquires m before returning. m must be held by the caller.
func (c *CondVar) Wait(m *Mutex) {
	c.WaitTimeout(m, 0)
}

// WaitTimeout behaves like Wait but gives up after timeout, still
// reacquiring m before returning. timeout <= 0 blocks indefinitely.
// Returns arbiter.TimedOut if the deadline expired without a wake,
// arbiter.Success otherwise.
//
// The wait registers itself (via the atomic increment below) before
// releasing m, and the value it waits on is a snapshot taken at that
// moment: if a Wake call's decrement has already retired this waiter's
// slot by the time WaitForAddress actually runs, the word will no
// longer match the snapshot and WaitForAddress returns immediately
// instead of parking. This is the mechanism that closes the transient
// window spec.md §4.4 calls out (see DESIGN.md).
func (c *CondVar) WaitTimeout(m *Mutex, timeout time.Duration) arbiter.Result {
	cur := atomic.AddUint32(&c.seq, 1)
	m.Unlock()
	rc := Gate.WaitForAddress(&c.seq, cur, timeout)
	m.Lock()
	return rc
}

// Wake releases up to n waiters currently registered on c, decrementing
// c's internal count by the number actually released, and returns that
// count.
func (c *CondVar) Wake(n uint32) uint32 {
	released, _ := Gate.SignalToAddress(&c.seq, arbiter.SignalModify, n)
	return released
}

// WakeOne releases a single waiter, if any, mirroring
// pthread_cond_signal.
func (c *CondVar) WakeOne() uint32 {
	return c.Wake(1)
}

// WakeAll releases every waiter currently registered on c, mirroring
// pthread_cond_broadcast.
func (c *CondVar) WakeAll() uint32 {
	return c.Wake(math.MaxUint32)
}
