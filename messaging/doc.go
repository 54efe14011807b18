// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the slice of the Matrix client-server API
// that roompack needs: room state events (the emote packs themselves),
// alias resolution, message sending (command replies), joined-room
// enumeration, and incremental /sync with long-polling (the command
// loop's event source).
//
// [Client] is an unauthenticated client holding the homeserver URL and
// HTTP transport. [Client.Login] and [Client.SessionFromToken] produce
// an authenticated [DirectSession]; [Session] is the interface
// consumed by the rest of the codebase so tests can substitute fakes.
//
// The access token lives in mmap-backed secret.Buffer memory (locked
// against swap, excluded from core dumps); callers must Close the
// session to release it.
//
// All API errors are returned as [*MatrixError] with the standard
// Matrix error code (M_FORBIDDEN, M_NOT_FOUND, ...) and HTTP status
// code. [IsMatrixError] tests for a specific code; [IsNotFound] covers
// the common "state event does not exist" case. Request URLs are built
// by string concatenation rather than url.URL to avoid double-encoding
// of path segments that contain URL-encoded characters (such as room
// aliases).
package messaging
