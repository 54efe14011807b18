// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package preset

import (
	"fmt"
	"sort"
)

// Library is the set of named preset definitions loaded from
// configuration. It is read once at startup and immutable afterwards —
// a rollout always sees the definitions that existed when it started.
type Library struct {
	definitions map[string]Definition
}

// NewLibrary builds a library from definitions keyed by preset name.
func NewLibrary(definitions map[string]Definition) *Library {
	if definitions == nil {
		definitions = map[string]Definition{}
	}
	return &Library{definitions: definitions}
}

// Resolve returns the definition for a preset name. Returns an error
// naming the known presets when the name is not configured.
func (l *Library) Resolve(name string) (Definition, error) {
	definition, ok := l.definitions[name]
	if !ok {
		return Definition{}, fmt.Errorf("unknown preset %q (configured: %v)", name, l.Names())
	}
	return definition, nil
}

// Names returns the configured preset names, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.definitions))
	for name := range l.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
