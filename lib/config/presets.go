// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/preset"
)

// PresetLibrary assembles the preset library from inline packs and
// preset files. A name defined both inline and in a file (or in two
// files) is an error rather than a silent override.
func (c *Config) PresetLibrary() (*preset.Library, error) {
	definitions := make(map[string]preset.Definition)

	for name, pack := range c.Packs {
		definition, err := pack.definition(name)
		if err != nil {
			return nil, err
		}
		definitions[name] = definition
	}

	for _, path := range c.PresetFiles {
		fromFile, err := LoadPresetFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading preset file %s: %w", path, err)
		}
		for name, definition := range fromFile {
			if _, exists := definitions[name]; exists {
				return nil, fmt.Errorf("preset %q defined more than once (duplicate in %s)", name, path)
			}
			definitions[name] = definition
		}
	}

	return preset.NewLibrary(definitions), nil
}

// definition converts an inline pack into a preset definition,
// preserving the order emotes appear in the YAML file.
func (p PackConfig) definition(name string) (preset.Definition, error) {
	definition := preset.Definition{Name: name}

	meta := emotes.PackMeta{}
	for key, value := range p.Attributes {
		meta[key] = value
	}
	if p.DisplayName != "" {
		meta[emotes.MetaDisplayName] = p.DisplayName
	}
	if len(meta) > 0 {
		definition.Meta = meta
	}

	if p.Emotes.Kind == 0 {
		return definition, nil // no emotes section at all
	}
	if p.Emotes.Kind != yaml.MappingNode {
		return preset.Definition{}, fmt.Errorf("packs.%s.emotes must be a mapping", name)
	}
	definition.HasEntries = true
	for i := 0; i+1 < len(p.Emotes.Content); i += 2 {
		keyNode := p.Emotes.Content[i]
		valueNode := p.Emotes.Content[i+1]
		var value any
		if err := valueNode.Decode(&value); err != nil {
			return preset.Definition{}, fmt.Errorf("packs.%s.emotes[%s]: %w", name, keyNode.Value, err)
		}
		definition.Entries = append(definition.Entries, preset.RawEntry{
			Shortcode: keyNode.Value,
			Value:     value,
		})
	}
	return definition, nil
}

// LoadPresetFile reads a preset library file. The format is JSON with
// comments and trailing commas permitted: a top-level object mapping
// preset names to objects with optional "display_name", optional
// "attributes", and an "emotes" object. Emote order in the file is
// preserved.
func LoadPresetFile(path string) (map[string]preset.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	if err := expectDelim(decoder, '{'); err != nil {
		return nil, fmt.Errorf("preset file must be a JSON object: %w", err)
	}

	definitions := make(map[string]preset.Definition)
	for decoder.More() {
		nameToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		name := nameToken.(string)

		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		definition, err := decodePresetJSON(name, raw)
		if err != nil {
			return nil, err
		}
		if _, exists := definitions[name]; exists {
			return nil, fmt.Errorf("preset %q defined more than once", name)
		}
		definitions[name] = definition
	}
	return definitions, nil
}

func decodePresetJSON(name string, raw json.RawMessage) (preset.Definition, error) {
	definition := preset.Definition{Name: name}
	meta := emotes.PackMeta{}
	displayName := ""

	decoder := json.NewDecoder(bytes.NewReader(raw))
	if err := expectDelim(decoder, '{'); err != nil {
		return preset.Definition{}, fmt.Errorf("preset %q must be an object: %w", name, err)
	}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return preset.Definition{}, err
		}
		switch key := keyToken.(string); key {
		case "display_name":
			if err := decoder.Decode(&displayName); err != nil {
				return preset.Definition{}, fmt.Errorf("preset %q display_name: %w", name, err)
			}
		case "attributes":
			var attributes map[string]any
			if err := decoder.Decode(&attributes); err != nil {
				return preset.Definition{}, fmt.Errorf("preset %q attributes: %w", name, err)
			}
			for attrKey, attrValue := range attributes {
				meta[attrKey] = attrValue
			}
		case "emotes":
			definition.HasEntries = true
			entries, err := decodeOrderedEntries(decoder)
			if err != nil {
				return preset.Definition{}, fmt.Errorf("preset %q emotes: %w", name, err)
			}
			definition.Entries = entries
		default:
			var skip any
			if err := decoder.Decode(&skip); err != nil {
				return preset.Definition{}, fmt.Errorf("preset %q %s: %w", name, key, err)
			}
		}
	}

	if displayName != "" {
		meta[emotes.MetaDisplayName] = displayName
	}
	if len(meta) > 0 {
		definition.Meta = meta
	}
	return definition, nil
}

// decodeOrderedEntries reads an emotes object token by token so entry
// order in the file survives. json.Unmarshal into a map would lose it.
func decodeOrderedEntries(decoder *json.Decoder) ([]preset.RawEntry, error) {
	if err := expectDelim(decoder, '{'); err != nil {
		return nil, err
	}
	var entries []preset.RawEntry
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		shortcode := keyToken.(string)
		var value any
		if err := decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("entry %q: %w", shortcode, err)
		}
		entries = append(entries, preset.RawEntry{Shortcode: shortcode, Value: value})
	}
	if _, err := decoder.Token(); err != nil { // closing brace
		return nil, err
	}
	return entries, nil
}

func expectDelim(decoder *json.Decoder, want rune) error {
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != json.Delim(want) {
		return fmt.Errorf("expected %q, found %v", want, token)
	}
	return nil
}
