// Package hsync implements the blocking synchronization primitives
// described in spec.md §2 components C–G: Mutex, CondVar, Semaphore,
// Barrier, and RwLock. It is the direct descendant of the teacher
// package (dijkstracula-go-ilock's ilock.go): one cohesive package of
// CAS-encoded lock words, generalized from that package's four-state
// intention-lock packing to the owner/WAIT_MASK mutex encoding and
// reader/writer fairness rules spec.md §3/§4 require.
//
// Every primitive here is POD: its zero value is its initial state
// (spec.md §3), so they are safe to use as package-level globals
// without an explicit Init call. Init exists for parity with the
// spec's external interface (§6) and for primitives (Semaphore,
// Barrier) whose zero value isn't the desired starting count.
//
// All blocking goes through Gate, a package-level arbiter.Gate any
// caller may override (tests substitute one to control timing); this
// mirrors the real system in which there's exactly one kernel, not one
// per primitive instance.
package hsync

import (
	"sync/atomic"

	"github.com/LNSD/switchbrew/arbiter"
	"github.com/LNSD/switchbrew/hosthread"
)

// Gate is the kernel-gate implementation every primitive in this
// package arbitrates through. Production code leaves this at its
// default in-process emulation; tests may swap it to exercise timeout
// or contention behavior deterministically.
var Gate arbiter.Gate = arbiter.NewEmulatedGate()

// Mutex is a blocking exclusive lock encoded as a single 32-bit word
// (spec.md §3): bits 0-29 hold the owning thread's tag (or 0 if
// unlocked), bit 30 is WAIT_MASK (at least one thread is blocked in
// the arbiter on this mutex), bit 31 is reserved for kernel use.
type Mutex struct {
	tag uint32
}

// Init resets m to the unlocked state. Unnecessary for a zero-valued
// Mutex; provided for parity with spec.md §6 and for reusing a Mutex
// after it's known no thread can still be contending on it.
func (m *Mutex) Init() {
	atomic.StoreUint32(&m.tag, 0)
}

// Lock acquires m, blocking until it is available. The fast path is a
// single CAS from unlocked straight to owned by the caller; the slow
// path speculatively sets WAIT_MASK before handing off to the arbiter,
// per spec.md §4.3.
func (m *Mutex) Lock() {
	self := uint32(hosthread.Current())
	if atomic.CompareAndSwapUint32(&m.tag, 0, self) {
		return
	}

	for {
		cur := atomic.LoadUint32(&m.tag)
		if cur == 0 {
			if atomic.CompareAndSwapUint32(&m.tag, 0, self) {
				return
			}
			continue
		}
		if atomic.CompareAndSwapUint32(&m.tag, cur, cur|arbiter.MutexWaitMask) {
			Gate.ArbitrateLock(cur&arbiter.MutexOwnerMask, &m.tag, self)
			// ArbitrateLock only returns once ownership has been
			// handed to self; no need to recheck.
			return
		}
	}
}

// TryLock attempts to acquire m without blocking, reporting whether it
// succeeded.
func (m *Mutex) TryLock() bool {
	return atomic.CompareAndSwapUint32(&m.tag, 0, uint32(hosthread.Current()))
}

// Unlock releases m. It is a caller error to call Unlock without
// holding m (spec.md §7, undefined behavior, not detected).
func (m *Mutex) Unlock() {
	self := uint32(hosthread.Current())
	if atomic.CompareAndSwapUint32(&m.tag, self, 0) {
		return
	}
	Gate.ArbitrateUnlock(&m.tag)
}

// IsLockedByCurrentThread reports whether the calling goroutine holds
// m.
func (m *Mutex) IsLockedByCurrentThread() bool {
	return atomic.LoadUint32(&m.tag)&arbiter.MutexOwnerMask == uint32(hosthread.Current())
}
