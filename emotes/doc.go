// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package emotes models a room's emote pack — the content of the
// im.ponies.room_emotes state event — and converts it to and from raw
// event JSON.
//
// A pack is an [EntrySet] (shortcode → mxc:// URL, insertion-ordered)
// plus [PackMeta] (opaque auxiliary attributes such as display_name).
// [Decode] is total: corrupt or absent content decodes to an empty
// pack rather than an error, since both cases mean the same thing to
// callers — there is nothing there yet. [Encode] writes the canonical
// shape; the legacy "images" field name is accepted on read only.
//
// The package performs no I/O and no validation of entry content;
// validation of preset definitions lives in package preset.
package emotes
