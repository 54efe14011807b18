// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package ref

// EventType identifies a Matrix state or timeline event type.
// Roompack reads and writes one custom state event type
// (im.ponies.room_emotes) and handles standard timeline types
// (m.room.message). Constants live in the packages that own them.
//
// EventType is a named string type, not a struct wrapper: event types
// are opaque identifiers that need no parsing or validation. The type
// exists purely for compile-time safety — preventing accidental use
// of a state key where an event type is expected (or vice versa).
type EventType string

// String returns the event type string (e.g., "im.ponies.room_emotes").
func (t EventType) String() string { return string(t) }
