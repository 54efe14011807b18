// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package packstore reads and writes emote packs stored as room state.
//
// A pack lives in the im.ponies.room_emotes state event with an empty
// state key. The store treats an absent or malformed event as an empty
// pack on read, so every room always has a well-defined current pack.
// Writes replace the event wholesale.
package packstore
