// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for roompack.
//
// Configuration is loaded from a single YAML file specified by:
//   - ROOMPACK_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Presets may be defined inline under packs: or in separate JSONC
// files listed under preset_files:. Entry order within a preset is
// preserved from the source file.
package config
