// Package hosthread implements component B from spec.md §2/§4.2: a
// stable, non-zero 32-bit identity for the calling goroutine, fitting
// in the low 30 bits the way spec.md §3 requires for encoding a Mutex
// owner.
//
// Go gives a goroutine no native thread-local storage and no portable,
// stable OS-thread handle (a goroutine may migrate across OS threads
// between blocking calls), so this package treats "thread" the way
// spec.md's own test suite does: a logical unit of work that claims an
// identity once and keeps it for its lifetime. Current derives that
// identity lazily from the calling goroutine; Register lets a
// long-lived worker claim one up front, mirroring how
// original_source's test harness assigns each spawned Thread an
// explicit numeric tag.
package hosthread

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Tag is the 32-bit thread handle used both as a Mutex owner id and as
// a CondVar waiter identifier (spec.md GLOSSARY). Zero is reserved
// (InvalidHandle).
type Tag uint32

// InvalidHandle is the sentinel meaning "no owner" (spec.md §4.2).
const InvalidHandle Tag = 0

// maxTag keeps every issued Tag within the low 30 bits, leaving bit 30
// (WAIT_MASK) and bit 31 (kernel-reserved) untouched, per spec.md §3.
const maxTag = 1<<30 - 1

var (
	nextTag uint32 = 1 // 0 is InvalidHandle
	byGoid  sync.Map   // goroutine id (uint64) -> Tag
)

// Current returns the calling goroutine's tag, assigning and memoizing
// a fresh one the first time this goroutine is observed.
func Current() Tag {
	id := goid()
	if v, ok := byGoid.Load(id); ok {
		return v.(Tag)
	}
	tag := Tag(atomic.AddUint32(&nextTag, 1) & maxTag)
	if tag == InvalidHandle {
		tag = 1
	}
	actual, _ := byGoid.LoadOrStore(id, tag)
	return actual.(Tag)
}

// Handle is an explicitly-claimed thread identity, for callers (such
// as a worker pool) that want to pin a tag to a goroutine before it
// does any lock-contending work, rather than relying on the lazy
// memoization in Current.
type Handle struct {
	tag Tag
}

// Register returns a Handle wrapping the calling goroutine's tag,
// assigning one first if this goroutine has none yet (a goroutine that
// already called Current keeps the tag it was given). Calling Current
// from the same goroutine afterwards returns the same tag.
func Register() Handle {
	return Handle{tag: Current()}
}

// Tag returns the handle's thread tag.
func (h Handle) Tag() Tag {
	return h.tag
}

// goid extracts a stable-for-this-goroutine identifier by parsing the
// header line of runtime.Stack, the conventional Go idiom for
// goroutine-local identity in the absence of real TLS (see DESIGN.md
// for why no third-party package in the retrieval pack covers this
// concern more safely than the standard library does here).
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if i := bytes.Index(b, []byte(prefix)); i >= 0 {
		b = b[i+len(prefix):]
	}
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		// Should be unreachable given runtime.Stack's documented
		// format; fall back to a value that is at least distinct
		// per call so callers never silently collide.
		return atomic.AddUint64(&goidFallback, 1) | 1<<63
	}
	return id
}

var goidFallback uint64
