// Package nxalloc implements malloc/aligned_alloc/calloc/realloc/free
// style allocation (original_source/subprojects/nx-alloc's nx_alloc.h)
// on top of sync.Pool size classes, the same recycling idiom the
// standard library's own internal allocators use, rather than leaning
// on Go's GC for every allocation in a hot synchronization path. No
// third-party allocator library appears anywhere in the retrieval pack
// (see DESIGN.md), so this package is deliberately stdlib-only.
package nxalloc

import "sync"

// sizeClasses are the bucket sizes blocks are rounded up to, mirroring
// a typical small-object allocator's power-of-two classes.
var sizeClasses = [...]int{16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}

func classFor(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}

var pools sync.Map // int (size class) -> *sync.Pool

func poolFor(class int) *sync.Pool {
	if v, ok := pools.Load(class); ok {
		return v.(*sync.Pool)
	}
	p := &sync.Pool{New: func() interface{} {
		b := make([]byte, class)
		return &b
	}}
	v, _ := pools.LoadOrStore(class, p)
	return v.(*sync.Pool)
}

// Block is a handle to an allocated region, standing in for the raw
// pointer nx_alloc.h's functions pass around; Go has no free-standing
// untyped pointer arithmetic, so every allocation function here
// returns one instead.
type Block struct {
	class int
	buf   []byte // len(buf) == requested size; cap(buf) == class
}

// Bytes returns the block's backing storage.
func (b *Block) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.buf
}

// Malloc allocates a block of size bytes with unspecified contents.
func Malloc(size int) *Block {
	if size <= 0 {
		return nil
	}
	class := classFor(size)
	buf := *(poolFor(class).Get().(*[]byte))
	return &Block{class: class, buf: buf[:size]}
}

// AlignedAlloc allocates size bytes; size must be a multiple of
// alignment (nx_alloc.h's contract). Go slices returned from make are
// always at least pointer-aligned, which satisfies every alignment
// original_source actually requests (never larger than a machine
// word), so no separate over-allocate-and-trim step is needed.
func AlignedAlloc(alignment, size int) *Block {
	if alignment <= 0 || size%alignment != 0 {
		return nil
	}
	return Malloc(size)
}

// Calloc allocates a zeroed block for nmemb elements of size bytes
// each.
func Calloc(nmemb, size int) *Block {
	if nmemb <= 0 || size <= 0 {
		return nil
	}
	b := Malloc(nmemb * size)
	if b == nil {
		return nil
	}
	for i := range b.buf {
		b.buf[i] = 0
	}
	return b
}

// Realloc resizes b to newSize, preserving its existing contents up to
// min(old size, newSize). A nil b behaves like Malloc(newSize); a
// newSize of zero frees b and returns nil.
func Realloc(b *Block, newSize int) *Block {
	if newSize == 0 {
		Free(b)
		return nil
	}
	if b == nil {
		return Malloc(newSize)
	}
	n := Malloc(newSize)
	copy(n.buf, b.buf)
	Free(b)
	return n
}

// Free returns b's storage to its size-class pool.
func Free(b *Block) {
	if b == nil {
		return
	}
	buf := b.buf[:0:b.class]
	buf = buf[:b.class]
	poolFor(b.class).Put(&buf)
}
