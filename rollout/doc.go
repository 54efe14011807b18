// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package rollout pushes a validated emote pack across a list of
// target rooms.
//
// A Coordinator runs at most one rollout at a time. Start launches the
// pass in a background goroutine and returns immediately; the pass
// visits targets strictly in order, pacing itself with a configurable
// delay between rooms so a long target list does not trip the
// homeserver's rate limiter. Per-room failures are recorded and the
// pass moves on; Cancel stops the pass cooperatively at the next room
// boundary without rolling back rooms already written.
package rollout
