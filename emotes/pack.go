// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package emotes

import "github.com/roompack/roompack/lib/ref"

// EventType is the Matrix state event type that stores a room's emote
// pack. The state key is always empty — one pack per room.
const EventType ref.EventType = "im.ponies.room_emotes"

// MetaDisplayName is the pack metadata key carrying the human-readable
// pack name. The rollout idempotency check keys off this attribute.
const MetaDisplayName = "display_name"

// Entry is one emote: a shortcode bound to an mxc:// content URL.
type Entry struct {
	Shortcode string
	URL       string
}

// EntrySet is an insertion-ordered collection of entries keyed by
// shortcode. Order is irrelevant to equality but preserved so that
// listing output is deterministic and matches what was stored.
//
// The zero value is not usable; call NewEntrySet.
type EntrySet struct {
	order       []string
	byShortcode map[string]Entry
}

// NewEntrySet returns an empty entry set.
func NewEntrySet() *EntrySet {
	return &EntrySet{byShortcode: make(map[string]Entry)}
}

// Put inserts an entry or overwrites the URL of an existing shortcode.
// An overwrite keeps the shortcode's original position.
func (s *EntrySet) Put(shortcode, url string) {
	if _, exists := s.byShortcode[shortcode]; !exists {
		s.order = append(s.order, shortcode)
	}
	s.byShortcode[shortcode] = Entry{Shortcode: shortcode, URL: url}
}

// Get returns the entry for a shortcode.
func (s *EntrySet) Get(shortcode string) (Entry, bool) {
	entry, ok := s.byShortcode[shortcode]
	return entry, ok
}

// Remove deletes a shortcode. Returns false if it was not present.
func (s *EntrySet) Remove(shortcode string) bool {
	if _, exists := s.byShortcode[shortcode]; !exists {
		return false
	}
	delete(s.byShortcode, shortcode)
	for i, code := range s.order {
		if code == shortcode {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (s *EntrySet) Len() int { return len(s.byShortcode) }

// Entries returns the entries in insertion order. The returned slice
// is a copy.
func (s *EntrySet) Entries() []Entry {
	entries := make([]Entry, 0, len(s.order))
	for _, shortcode := range s.order {
		entries = append(entries, s.byShortcode[shortcode])
	}
	return entries
}

// Equal reports whether two entry sets contain the same shortcodes
// bound to the same URLs. Order does not participate in equality.
func (s *EntrySet) Equal(other *EntrySet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for shortcode, entry := range s.byShortcode {
		otherEntry, ok := other.byShortcode[shortcode]
		if !ok || otherEntry.URL != entry.URL {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the entry set, preserving order.
func (s *EntrySet) Clone() *EntrySet {
	clone := NewEntrySet()
	for _, shortcode := range s.order {
		clone.Put(shortcode, s.byShortcode[shortcode].URL)
	}
	return clone
}

// PackMeta is the opaque auxiliary attribute map that travels
// alongside an entry set (display name, icons, whatever clients
// store). Roompack never validates it beyond presence of the display
// name; unknown attributes round-trip untouched.
type PackMeta map[string]any

// DisplayName returns the display_name attribute, or the empty string
// when absent or not a string.
func (m PackMeta) DisplayName() string {
	name, _ := m[MetaDisplayName].(string)
	return name
}
