// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package emotes

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// fieldEntries is the canonical name of the entries collection in the
// state event content. fieldEntriesLegacy is the alternate field name
// some clients write; it is accepted on read and normalized, never
// written. fieldPack carries the pack metadata.
const (
	fieldEntries       = "emoticons"
	fieldEntriesLegacy = "images"
	fieldPack          = "pack"
)

// Decode converts raw state event content into an entry set and pack
// metadata. Decoding never fails: absent, malformed, or
// type-mismatched content decodes to an empty entry set and empty
// metadata, so "no existing pack" and "corrupt pack" look identical
// to callers — both are a green field.
//
// Entries under the legacy field name are normalized to the canonical
// shape; the legacy name never leaks past this function. Individual
// entries whose value is not an object with a string "url" are
// dropped.
func Decode(raw json.RawMessage) (*EntrySet, PackMeta) {
	entries := NewEntrySet()
	meta := PackMeta{}

	if len(raw) == 0 {
		return entries, meta
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return entries, meta
	}

	entriesRaw, ok := top[fieldEntries]
	if !ok {
		entriesRaw = top[fieldEntriesLegacy]
	}
	if entriesRaw != nil {
		decodeEntries(entriesRaw, entries)
	}

	if packRaw, ok := top[fieldPack]; ok {
		var packMeta map[string]any
		if err := json.Unmarshal(packRaw, &packMeta); err == nil && packMeta != nil {
			meta = packMeta
		}
	}

	return entries, meta
}

// decodeEntries parses the entries object token by token so the stored
// key order survives into the entry set. encoding/json map decoding
// would lose it.
func decodeEntries(raw json.RawMessage, entries *EntrySet) {
	decoder := json.NewDecoder(bytes.NewReader(raw))

	token, err := decoder.Token()
	if err != nil {
		return
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return
	}

	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return
		}
		shortcode, ok := keyToken.(string)
		if !ok {
			return
		}

		// Consume the value whatever its shape: a corrupt entry must
		// not take the rest of the pack down with it.
		var rawValue json.RawMessage
		if err := decoder.Decode(&rawValue); err != nil {
			return
		}
		var value struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(rawValue, &value); err != nil {
			continue
		}
		if value.URL == "" {
			continue
		}
		entries.Put(shortcode, value.URL)
	}
}

// Encode converts an entry set and pack metadata into state event
// content. Entries are written in insertion order under the canonical
// field name. The pack metadata field is omitted entirely when the
// metadata is empty, to avoid writing a vacuous attribute.
//
// Round-trip law: Decode(Encode(E, M)) yields E and M for any E, M.
func Encode(entries *EntrySet, meta PackMeta) (json.RawMessage, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')

	buffer.WriteString(`"` + fieldEntries + `":{`)
	for i, entry := range entries.Entries() {
		if i > 0 {
			buffer.WriteByte(',')
		}
		key, err := json.Marshal(entry.Shortcode)
		if err != nil {
			return nil, fmt.Errorf("emotes: encoding shortcode %q: %w", entry.Shortcode, err)
		}
		url, err := json.Marshal(entry.URL)
		if err != nil {
			return nil, fmt.Errorf("emotes: encoding url for %q: %w", entry.Shortcode, err)
		}
		buffer.Write(key)
		buffer.WriteString(`:{"url":`)
		buffer.Write(url)
		buffer.WriteByte('}')
	}
	buffer.WriteByte('}')

	if len(meta) > 0 {
		packJSON, err := json.Marshal(map[string]any(meta))
		if err != nil {
			return nil, fmt.Errorf("emotes: encoding pack metadata: %w", err)
		}
		buffer.WriteString(`,"` + fieldPack + `":`)
		buffer.Write(packJSON)
	}

	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}
