// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package preset validates named pack templates before they are
// applied to rooms.
//
// A preset arrives from configuration as a [Definition]: an ordered
// list of raw entries plus opaque pack metadata. [Validate] filters
// the entries against the shortcode and URL rules, producing the
// canonical [emotes.EntrySet] the rollout coordinator works with.
// Bad entries are dropped with per-entry warnings rather than
// aborting the preset; only a missing entries section or an entirely
// invalid preset is fatal.
//
// Validation is pure — no I/O, deterministic output, warning order
// matching definition order.
package preset
