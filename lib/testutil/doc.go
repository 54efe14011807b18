// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for roompack packages.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with time.After fallback) so that individual
// tests do not need direct time.After calls. Both call t.Fatalf on
// failure rather than returning errors, since a test waiting on a
// channel that never delivers is not recoverable.
//
// This package has no roompack-internal dependencies.
package testutil
