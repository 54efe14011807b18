// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides a memory-safe buffer for sensitive data —
// in roompack's case, the Matrix access token.
//
// Buffer allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into physical RAM via mlock (preventing swap), and marks it
// excluded from core dumps via madvise(MADV_DONTDUMP). On Close, the
// memory is zeroed, unlocked, and unmapped.
//
// The token is converted to a heap string only at the HTTP boundary
// (the Authorization header); the mmap buffer is the durable copy.
package secret
