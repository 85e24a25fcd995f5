package hsync

import "github.com/LNSD/switchbrew/hosthread"

// RwLock is a readers-writer lock (spec.md §4.7, component G) with one
// deliberate departure from a plain stdlib-style RWMutex: a thread
// already holding the write lock may also take the read lock on the
// same RwLock without deadlocking (spec.md calls this write-holder
// read promotion, grounded on tests/source/sync/rwlock.c's reentrant
// read-while-writing case).
//
// spec.md §9 notes that the source's single write_count (covering both
// the base write lock and nested promotions) may be split into two
// counters in a language-neutral port as long as the observable
// contract holds. This port takes that option: writeCount tracks only
// the writer's own reentrant Lock depth, and promoted tracks its
// nested RLock depth separately. That split is what lets a "write
// first" unlock order release exclusivity immediately while the
// thread's outstanding promoted reads fold into the ordinary readers
// count (and behave exactly like reads taken by any other thread from
// that point on) — see Unlock.
//
// Pending writers block new readers from starting (writerWaiters > 0
// is part of the reader-blocking condition below), which is the
// fairness rule spec.md requires: without it a steady stream of
// readers can starve a writer indefinitely.
type RwLock struct {
	mu            Mutex
	cvR           CondVar // readers park here waiting for the writer to clear
	cvW           CondVar // writers park here waiting for readers/writer to clear
	readers       uint32
	writerWaiters uint32
	writerTag     uint32 // 0 if no thread holds the write lock
	writeCount    uint32 // writer's own reentrant Lock depth
	promoted      uint32 // writer's own outstanding RLock depth
}

// RLock acquires a shared (read) lock, blocking while a different
// thread holds or is waiting to acquire the write lock. If the calling
// thread already holds the write lock, RLock instead promotes: it
// never blocks and just records the recursive hold in the separate
// promoted counter (spec.md §4.7).
func (l *RwLock) RLock() {
	self := uint32(hosthread.Current())

	l.mu.Lock()
	if l.writerTag == self {
		l.promoted++
		l.mu.Unlock()
		return
	}
	for l.writerTag != 0 || l.writerWaiters > 0 {
		l.cvR.Wait(&l.mu)
	}
	l.readers++
	l.mu.Unlock()
}

// TryRLock attempts RLock without blocking.
func (l *RwLock) TryRLock() bool {
	self := uint32(hosthread.Current())

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writerTag == self {
		l.promoted++
		return true
	}
	if l.writerTag != 0 || l.writerWaiters > 0 {
		return false
	}
	l.readers++
	return true
}

// RUnlock releases a shared lock acquired via RLock or TryRLock. A
// write-holder's own promoted read releases through the separate
// promoted counter instead of readers; once the writer has fully
// unlocked (see Unlock), any of its remaining promoted reads have
// already been folded into readers and release through the ordinary
// path below, so any interleaving of the writer's own Lock/RLock/
// Unlock/RUnlock calls is valid as long as the counts balance overall
// (spec.md §4.7, "mixed unlock order").
func (l *RwLock) RUnlock() {
	self := uint32(hosthread.Current())

	l.mu.Lock()
	if l.writerTag == self {
		l.promoted--
		l.mu.Unlock()
		return
	}
	l.readers--
	last := l.readers == 0
	l.mu.Unlock()

	if last {
		l.cvW.WakeOne()
	}
}

// Lock acquires the exclusive (write) lock, blocking until no reader
// and no other writer holds it. Reentrant: a thread already holding
// the write lock just bumps writeCount and returns (spec.md §4.7).
func (l *RwLock) Lock() {
	self := uint32(hosthread.Current())

	l.mu.Lock()
	if l.writerTag == self {
		l.writeCount++
		l.mu.Unlock()
		return
	}
	l.writerWaiters++
	for l.readers > 0 || l.writerTag != 0 {
		l.cvW.Wait(&l.mu)
	}
	l.writerWaiters--
	l.writerTag = self
	l.writeCount = 1
	l.mu.Unlock()
}

// TryLock attempts Lock without blocking.
func (l *RwLock) TryLock() bool {
	self := uint32(hosthread.Current())

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writerTag == self {
		l.writeCount++
		return true
	}
	if l.readers > 0 || l.writerTag != 0 {
		return false
	}
	l.writerTag = self
	l.writeCount = 1
	return true
}

// Unlock releases one level of the exclusive lock. Only once writeCount
// reaches zero does the write lock actually clear; at that instant any
// outstanding promoted reads fold into the ordinary readers count (they
// keep blocking new writers exactly as a plain reader would, but no
// longer report this thread as the write-holder) and waiters are woken:
// a single waiting writer preferentially, or every waiting reader
// otherwise (spec.md §4.7's fairness rule).
func (l *RwLock) Unlock() {
	l.mu.Lock()
	l.writeCount--
	if l.writeCount != 0 {
		l.mu.Unlock()
		return
	}
	l.writerTag = 0
	l.readers += l.promoted
	l.promoted = 0
	wakeWriter := l.writerWaiters > 0
	l.mu.Unlock()

	if wakeWriter {
		l.cvW.WakeOne()
	} else {
		l.cvR.WakeAll()
	}
}

// IsWriteLockedByCurrentThread reports whether the calling thread
// holds the write lock. Promoted reads still outstanding after the
// thread's last Unlock count as ordinary reads, so they make this
// report false.
func (l *RwLock) IsWriteLockedByCurrentThread() bool {
	self := uint32(hosthread.Current())
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writerTag == self
}
