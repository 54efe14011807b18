// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds sensitive data in memory that is locked against
// swapping, excluded from core dumps, and zeroed on close. The backing
// memory is allocated via mmap outside the Go heap, so the garbage
// collector never copies or relocates it.
//
// A Buffer must not be copied after creation. Use Close to release the
// memory when the secret is no longer needed. After Close, any access
// to the buffer's contents returns the empty string.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	length int
	closed bool
}

// NewFromBytes creates a secret buffer from existing data. The source
// bytes are copied into the protected region and then zeroed in place,
// so the caller's original slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("secret: cannot create buffer from empty data")
	}

	data, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	// Lock against swap. Failure here is fatal: an unlocked secret
	// region defeats the purpose of the buffer.
	if err := unix.Mlock(data); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: mlock failed: %w", err)
	}

	// Exclude from core dumps. MADV_DONTDUMP may be unsupported on
	// old kernels; the secret is still protected against swap, so
	// treat failure as non-fatal.
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)

	copy(data, source)
	Zero(source)

	return &Buffer{
		data:   data,
		length: len(data),
	}, nil
}

// String returns the buffer contents as a heap string. This creates a
// short-lived copy — use only at API boundaries that require a string
// (Authorization headers, JSON serialization). Returns the empty
// string after Close.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ""
	}
	return string(b.data[:b.length])
}

// Len returns the length of the secret in bytes, or zero after Close.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0
	}
	return b.length
}

// Close zeroes the buffer, unlocks it, and unmaps the memory.
// Idempotent — safe to call multiple times.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.data)
	if err := unix.Munlock(b.data); err != nil {
		unix.Munmap(b.data)
		return fmt.Errorf("secret: munlock failed: %w", err)
	}
	if err := unix.Munmap(b.data); err != nil {
		return fmt.Errorf("secret: munmap failed: %w", err)
	}
	b.data = nil
	return nil
}

// Zero overwrites a byte slice with zeros. Use on transient copies of
// secret material before releasing them to the garbage collector.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
