// Package arbiter abstracts the small set of kernel syscalls the
// hsync primitives are layered on top of: address-keyed wait/wake
// ("arbitration") and a monotonic sleep. It corresponds to component A
// in spec.md §2/§4.1.
//
// The core never talks to a real kernel; every call in this package is
// the single linearization point where a goroutine may block (spec.md
// §4.1, §5).
package arbiter

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/LNSD/switchbrew/nxcpu"
)

// Result is the host kernel's 32-bit result code convention (spec.md
// §6/§7): zero is success, non-zero is an opaque module/description
// pair the core does not decode except for TimedOut below.
type Result uint32

// Success is the only zero value a Gate call returns.
const Success Result = 0

// TimedOut is the one non-zero result the core decodes itself (spec.md
// §7); every other non-zero Result propagates verbatim to the caller.
const TimedOut Result = 0xEA01

// SignalMode mirrors the kernel ABI's signal_to_address mode values
// bit-for-bit (spec.md §6).
type SignalMode uint32

const (
	// SignalOnly wakes waiters without touching the waited-on word.
	SignalOnly SignalMode = 0
	// SignalModify additionally decrements the waited-on word by the
	// number of waiters actually released.
	SignalModify SignalMode = 1
)

// Mutex word bit layout (spec.md §3), owned here because ArbitrateLock
// and ArbitrateUnlock must agree with hsync.Mutex on it: the kernel
// side of arbitration is responsible for setting WaitMask on handoff.
const (
	// MutexOwnerMask selects the owning thread tag (bits 0-29).
	MutexOwnerMask uint32 = 1<<30 - 1
	// MutexWaitMask is bit 30: set iff a thread is blocked in the
	// arbiter on this mutex word.
	MutexWaitMask uint32 = 1 << 30
)

// Gate is the kernel-gate interface described in spec.md §4.1. Every
// hsync primitive is parameterized by one of these; production code
// uses the package-level default (see hsync.Gate), tests may substitute a
// Gate that injects specific timing or failure behavior.
type Gate interface {
	// ArbitrateLock blocks the caller until word's owner bits can be
	// atomically transferred to requesterTag. The caller must already
	// have set the WaitMask bit on word via its own CAS before
	// calling (spec.md §4.1's "the caller is responsible for having
	// already set WAIT_MASK").
	ArbitrateLock(ownerTag uint32, word *uint32, requesterTag uint32) Result

	// ArbitrateUnlock clears word and wakes the highest-priority
	// waiter (FIFO, in this emulation), transferring ownership with
	// WaitMask set iff other waiters remain. Called only when the
	// caller observed WaitMask set on word.
	ArbitrateUnlock(word *uint32) Result

	// WaitForAddress blocks the caller for up to timeout if *word ==
	// expected, returning TimedOut on deadline expiry. If *word !=
	// expected it returns Success immediately without blocking.
	// timeout <= 0 means block indefinitely.
	WaitForAddress(word *uint32, expected uint32, timeout time.Duration) Result

	// SignalToAddress wakes up to count goroutines blocked in
	// WaitForAddress on word. With SignalModify, word is atomically
	// decremented by the number of goroutines actually released.
	// Returns the number released.
	SignalToAddress(word *uint32, mode SignalMode, count uint32) (released uint32, rc Result)

	// SleepThread blocks the calling goroutine for d. Used by test
	// harnesses and by callers staging timed scenarios, never by the
	// primitives themselves (spec.md §6).
	SleepThread(d time.Duration)

	// SystemTick returns the current value of the monotonic system
	// counter-timer (spec.md §4.1).
	SystemTick() uint64
}

// parkedWaiter is one goroutine blocked on a particular address.
type parkedWaiter struct {
	tag uint32 // requester tag; only meaningful for ArbitrateLock waiters.
	ch  chan struct{}
}

// addrQueue is the per-address wait queue spec.md's design notes call
// "the kernel's per-address wait queue map" — the only process-wide
// state this package owns.
type addrQueue struct {
	mu      sync.Mutex
	waiters []*parkedWaiter
}

// EmulatedGate is an in-process Gate: it has no real kernel underneath
// it and instead keeps one addrQueue per distinct word address,
// structured after the bucketed wait-queue/futex emulation pattern
// (see DESIGN.md).
type EmulatedGate struct {
	queues sync.Map // uintptr(unsafe.Pointer(word)) -> *addrQueue
}

// NewEmulatedGate returns a ready-to-use in-process Gate.
func NewEmulatedGate() *EmulatedGate {
	return &EmulatedGate{}
}

func (g *EmulatedGate) queueFor(word *uint32) *addrQueue {
	key := uintptr(unsafe.Pointer(word))
	if v, ok := g.queues.Load(key); ok {
		return v.(*addrQueue)
	}
	v, _ := g.queues.LoadOrStore(key, &addrQueue{})
	return v.(*addrQueue)
}

// ArbitrateLock re-checks word against ownerTag|MutexWaitMask under
// q.mu before registering a waiter, the same "check under the queue
// lock, then enqueue" discipline WaitForAddress below already follows.
// Without that check, a caller that CAS'd MutexWaitMask on word but
// hasn't reached this call yet can race with the holder's Unlock: if
// ArbitrateUnlock (below) runs first and finds no registered waiters,
// it clears word to 0 and there is nobody left to ever close this
// caller's channel. When the recheck finds word has already moved on,
// this recreates Mutex.Lock's own CAS retry (spec.md §4.3) instead of
// parking forever, which is what guarantees ArbitrateLock never
// returns without ownership transferred to requesterTag (spec.md §4.3,
// §8 invariant 1's liveness half).
func (g *EmulatedGate) ArbitrateLock(ownerTag uint32, word *uint32, requesterTag uint32) Result {
	q := g.queueFor(word)

	for {
		q.mu.Lock()
		if atomic.LoadUint32(word) == ownerTag|MutexWaitMask {
			w := &parkedWaiter{tag: requesterTag, ch: make(chan struct{})}
			q.waiters = append(q.waiters, w)
			q.mu.Unlock()

			<-w.ch
			return Success
		}
		q.mu.Unlock()

		cur := atomic.LoadUint32(word)
		if cur&MutexOwnerMask == requesterTag {
			// Already handed to us by a concurrent ArbitrateUnlock
			// between the mismatch above and this read.
			return Success
		}
		if cur == 0 {
			if atomic.CompareAndSwapUint32(word, 0, requesterTag) {
				return Success
			}
			continue
		}
		if atomic.CompareAndSwapUint32(word, cur, cur|MutexWaitMask) {
			ownerTag = cur & MutexOwnerMask
		}
	}
}

func (g *EmulatedGate) ArbitrateUnlock(word *uint32) Result {
	q := g.queueFor(word)

	q.mu.Lock()
	if len(q.waiters) == 0 {
		q.mu.Unlock()
		atomic.StoreUint32(word, 0)
		return Success
	}
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	next := w.tag
	if len(q.waiters) > 0 {
		next |= MutexWaitMask
	}
	atomic.StoreUint32(word, next)
	q.mu.Unlock()

	close(w.ch)
	return Success
}

func (g *EmulatedGate) WaitForAddress(word *uint32, expected uint32, timeout time.Duration) Result {
	q := g.queueFor(word)

	q.mu.Lock()
	if atomic.LoadUint32(word) != expected {
		q.mu.Unlock()
		return Success
	}
	w := &parkedWaiter{ch: make(chan struct{})}
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	if timeout <= 0 {
		<-w.ch
		return Success
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.ch:
		return Success
	case <-timer.C:
		q.mu.Lock()
		for i, cand := range q.waiters {
			if cand == w {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				q.mu.Unlock()
				return TimedOut
			}
		}
		q.mu.Unlock()
		// Woken concurrently with the timer firing; the wake wins.
		<-w.ch
		return Success
	}
}

// SignalToAddress's releasedCount reflects the number of logical
// waiters retired, which in SignalModify mode is derived from word's
// current value rather than from how many goroutines have physically
// reached WaitForAddress yet. This matters for the transient window
// spec.md §4.4 calls out: a waiter that incremented cv.seq and
// released its mutex but hasn't yet called WaitForAddress is still
// "released" here in the sense that word's value is decremented on
// its behalf; when it does call WaitForAddress moments later it will
// observe the already-changed value and return immediately instead of
// parking, which is how the ordering guarantee in spec.md §4.4 holds
// without a real lost-wakeup window.
func (g *EmulatedGate) SignalToAddress(word *uint32, mode SignalMode, count uint32) (uint32, Result) {
	q := g.queueFor(word)

	q.mu.Lock()
	var decrement uint32
	released := count
	if mode == SignalModify {
		if cur := atomic.LoadUint32(word); released > cur {
			released = cur
		}
		decrement = released
	}
	parkedToWake := released
	if parkedToWake > uint32(len(q.waiters)) {
		parkedToWake = uint32(len(q.waiters))
	}
	woken := append([]*parkedWaiter(nil), q.waiters[:parkedToWake]...)
	q.waiters = q.waiters[parkedToWake:]
	if decrement > 0 {
		atomic.AddUint32(word, uint32(0)-decrement)
	}
	q.mu.Unlock()

	for _, w := range woken {
		close(w.ch)
	}
	return released, Success
}

func (g *EmulatedGate) SleepThread(d time.Duration) {
	time.Sleep(d)
}

func (g *EmulatedGate) SystemTick() uint64 {
	return nxcpu.SystemTick()
}

var _ Gate = (*EmulatedGate)(nil)
