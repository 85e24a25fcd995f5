package nxmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TransferMemory is a user-owned memory object (nx_tmem.h): unlike
// SharedMemory its backing pages are allocated by this process, so
// Create both allocates and maps in one step, and permission changes
// (SetPermission) are a real mprotect on that same backing
// allocation rather than a remap.
type TransferMemory struct {
	size int
	perm Permission
	data []byte
}

// CreateTransferMemory allocates size bytes of page-backed memory
// protected with perm.
func CreateTransferMemory(size int, perm Permission) (*TransferMemory, error) {
	data, err := unix.Mmap(-1, 0, size, perm.toProt(), unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("nxmem: create transfer memory: %w", err)
	}
	return &TransferMemory{size: size, perm: perm, data: data}, nil
}

// Addr returns the backing byte slice.
func (t *TransferMemory) Addr() []byte {
	return t.data
}

// Size returns the object's size in bytes.
func (t *TransferMemory) Size() int {
	return t.size
}

// SetPermission changes the protection of the backing pages,
// corresponding to nx_tmem.h's wait_for_permission (this emulation has
// no remote party to wait on, so it applies the change immediately).
func (t *TransferMemory) SetPermission(perm Permission) error {
	if err := unix.Mprotect(t.data, perm.toProt()); err != nil {
		return fmt.Errorf("nxmem: set transfer memory permission: %w", err)
	}
	t.perm = perm
	return nil
}

// Close releases the backing pages.
func (t *TransferMemory) Close() error {
	if t.data == nil {
		return nil
	}
	if err := unix.Munmap(t.data); err != nil {
		return fmt.Errorf("nxmem: close transfer memory: %w", err)
	}
	t.data = nil
	return nil
}
