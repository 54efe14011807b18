// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, or time.Sleep directly. In production,
// Real() provides the standard library behavior. In tests, Fake()
// provides a deterministic clock that advances only when Advance is
// called.
//
// The rollout coordinator is the main consumer: its inter-room delay
// uses Clock.After so tests can drive a multi-room pass through its
// delays without real waiting:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	coordinator := rollout.New(store, rollout.WithClock(c))
//	// ... start the pass ...
//	c.WaitForTimers(1)           // pass reached the inter-room delay
//	c.Advance(2 * time.Second)   // fire it deterministically
//
// WaitForTimers eliminates the race between timer registration and
// time advancement that plagues tests using time.Sleep for
// synchronization.
package clock
