// Package nxmem implements the shared and transfer memory objects
// described by original_source/subprojects/nx-sys-mem's nx_shmem.h and
// nx_tmem.h. Both are "memory objects with a real mapped address
// backing them", so this package wires golang.org/x/sys/unix.Mmap, the
// one dependency in the retrieval pack (via vanadium-go.lib) that
// gives Go code a raw anonymous memory mapping rather than a plain
// byte slice.
package nxmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Permission mirrors nx_shmem.h's Permission bitmask.
type Permission uint32

const (
	PermNone Permission = 0
	PermR    Permission = 1 << 0
	PermW    Permission = 1 << 1
	PermX    Permission = 1 << 2
	PermRW   Permission = PermR | PermW
	PermRX   Permission = PermR | PermX
)

func (p Permission) toProt() int {
	var prot int
	if p&PermR != 0 {
		prot |= unix.PROT_READ
	}
	if p&PermW != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&PermX != 0 {
		prot |= unix.PROT_EXEC
	}
	if prot == 0 {
		prot = unix.PROT_NONE
	}
	return prot
}

// SharedMemory is a process-mappable memory object (nx_shmem.h's
// SharedMemory). Create maps it immediately. Each Map creates a fresh,
// zero-filled anonymous mapping and Unmap releases it, so the object's
// contents do not survive an Unmap/Map cycle.
type SharedMemory struct {
	size int
	perm Permission
	data []byte // nil when unmapped
}

// Create allocates a shared memory object of the given size with the
// given local permissions.
func Create(size int, localPerm Permission) (*SharedMemory, error) {
	s := &SharedMemory{size: size, perm: localPerm}
	if err := s.Map(); err != nil {
		return nil, err
	}
	return s, nil
}

// Map maps the shared memory object into this process if it is not
// already mapped.
func (s *SharedMemory) Map() error {
	if s.data != nil {
		return nil
	}
	data, err := unix.Mmap(-1, 0, s.size, s.perm.toProt(), unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("nxmem: map shared memory: %w", err)
	}
	s.data = data
	return nil
}

// Unmap unmaps the shared memory object from this process, releasing
// its pages; a later Map starts from zero-filled pages.
func (s *SharedMemory) Unmap() error {
	if s.data == nil {
		return nil
	}
	if err := unix.Munmap(s.data); err != nil {
		return fmt.Errorf("nxmem: unmap shared memory: %w", err)
	}
	s.data = nil
	return nil
}

// Addr returns the mapped byte slice, or nil if currently unmapped.
func (s *SharedMemory) Addr() []byte {
	return s.data
}

// Size returns the object's size in bytes.
func (s *SharedMemory) Size() int {
	return s.size
}

// Close unmaps the object. Unlike the real kernel object this has no
// separate handle to release; unmapping is the only resource held.
func (s *SharedMemory) Close() error {
	return s.Unmap()
}
