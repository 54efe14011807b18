// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package emotes

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"
)

// Fingerprint returns a short hex digest identifying the pack content
// (entries plus metadata). Two packs with the same shortcode→URL
// bindings and the same metadata have the same fingerprint regardless
// of entry order. Used for log correlation and rollout reports, never
// for the idempotency decision itself.
func Fingerprint(entries *EntrySet, meta PackMeta) string {
	hasher := blake3.New()

	sorted := entries.Entries()
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Shortcode < sorted[j].Shortcode
	})
	for _, entry := range sorted {
		hasher.WriteString(entry.Shortcode)
		hasher.Write([]byte{0})
		hasher.WriteString(entry.URL)
		hasher.Write([]byte{0})
	}

	metaKeys := make([]string, 0, len(meta))
	for key := range meta {
		metaKeys = append(metaKeys, key)
	}
	sort.Strings(metaKeys)
	for _, key := range metaKeys {
		hasher.WriteString(key)
		hasher.Write([]byte{0})
		// json.Marshal gives a stable byte form for the opaque
		// attribute values (strings, numbers, nested maps).
		value, err := json.Marshal(meta[key])
		if err == nil {
			hasher.Write(value)
		}
		hasher.Write([]byte{0})
	}

	digest := hasher.Sum(nil)
	return hex.EncodeToString(digest[:8])
}
