// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package preset

import (
	"fmt"
	"regexp"

	"github.com/roompack/roompack/emotes"
)

// maxShortcodeBytes is the upper bound on a shortcode's UTF-8 length.
const maxShortcodeBytes = 100

// mediaScheme is the required prefix for emote content URLs: entries
// must reference the Matrix media repository, nothing else.
const mediaScheme = "mxc://"

var shortcodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateShortcode checks a shortcode against the naming rules:
// characters restricted to A-Z, a-z, 0-9, '_', '-', and at most 100
// bytes of UTF-8. Returns an error naming the violated rule.
func ValidateShortcode(shortcode string) error {
	if shortcode == "" {
		return fmt.Errorf("shortcode is empty")
	}
	if len(shortcode) > maxShortcodeBytes {
		return fmt.Errorf("shortcode exceeds %d bytes", maxShortcodeBytes)
	}
	if !shortcodePattern.MatchString(shortcode) {
		return fmt.Errorf("shortcode contains characters outside [A-Za-z0-9_-]")
	}
	return nil
}

// RawEntry is one unvalidated entry from a preset definition. The
// value is whatever the configuration format decoded: typically a
// mapping with a "url" key, but presets are user-written and the value
// may be anything.
type RawEntry struct {
	Shortcode string
	Value     any
}

// Definition is a named preset as it appears in configuration, before
// validation. Entries preserve the definition file's order so that
// validation warnings and listing output are deterministic.
type Definition struct {
	Name string

	// Meta is the pack metadata carried through unmodified. Nil means
	// no metadata was configured.
	Meta emotes.PackMeta

	// Entries is the raw entries section. HasEntries distinguishes an
	// absent section from an empty one — both are fatal, but the
	// messages differ.
	Entries    []RawEntry
	HasEntries bool
}

// Validate checks a preset definition and produces the canonical entry
// set to roll out. Individual bad entries are dropped with a warning
// (one per dropped entry, in definition order); validation only fails
// outright when the definition has no entries section or when no entry
// survives filtering.
//
// Validation is deterministic: identical input yields identical
// entries, metadata, and warnings.
func Validate(definition Definition) (*emotes.EntrySet, emotes.PackMeta, []string, error) {
	if !definition.HasEntries {
		return nil, nil, nil, fmt.Errorf("preset %q has no emotes section", definition.Name)
	}

	entries := emotes.NewEntrySet()
	var warnings []string

	for _, raw := range definition.Entries {
		if err := ValidateShortcode(raw.Shortcode); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %q: %v", raw.Shortcode, err))
			continue
		}
		url, err := entryURL(raw.Value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %q: %v", raw.Shortcode, err))
			continue
		}
		entries.Put(raw.Shortcode, url)
	}

	if entries.Len() == 0 {
		return nil, nil, warnings, fmt.Errorf("preset %q has no valid emojis", definition.Name)
	}

	meta := definition.Meta
	if meta == nil {
		meta = emotes.PackMeta{}
	}
	return entries, meta, warnings, nil
}

// ValidateMediaURL checks that an emote URL references the Matrix
// media repository. Reachability is not checked.
func ValidateMediaURL(url string) error {
	if url == "" {
		return fmt.Errorf("url is empty")
	}
	if len(url) < len(mediaScheme) || url[:len(mediaScheme)] != mediaScheme {
		return fmt.Errorf("url %q does not start with %s", url, mediaScheme)
	}
	return nil
}

// entryURL extracts and checks the url from a raw entry value. The
// value must be a mapping with a string "url" beginning with the mxc
// scheme.
func entryURL(value any) (string, error) {
	record, ok := value.(map[string]any)
	if !ok {
		return "", fmt.Errorf("entry is not a mapping with a url")
	}
	url, ok := record["url"].(string)
	if !ok || url == "" {
		return "", fmt.Errorf("entry has no url")
	}
	if err := ValidateMediaURL(url); err != nil {
		return "", err
	}
	return url, nil
}
