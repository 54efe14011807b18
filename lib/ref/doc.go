// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package ref provides strongly typed, immutable identity references
// for the Matrix entities roompack works with: rooms, room aliases,
// users, and event types.
//
// External identifiers arrive as strings from configuration, chat
// commands, and Matrix API responses. They are parsed into ref types
// at the boundary; once constructed, a ref is immutable and known to
// be structurally valid. The zero value of each type is not valid —
// use IsZero to check.
//
// RoomID, RoomAlias, and UserID implement encoding.TextMarshaler and
// TextUnmarshaler so they serialize as plain strings in JSON, YAML,
// and CBOR.
package ref
