// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR request/response types spoken over the
// roompackd control socket. roompackctl is the client; the daemon is
// the server. Both sides import the types from here rather than
// maintaining duplicates.
package ipc
