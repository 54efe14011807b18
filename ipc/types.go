// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

// Actions accepted on the control socket.
const (
	// ActionStatus reports the coordinator state and the last
	// finished rollout, if any.
	ActionStatus = "status"

	// ActionValidatePreset validates a preset without touching any
	// room.
	ActionValidatePreset = "validate-preset"

	// ActionStartRollout validates a preset and starts a rollout
	// across the configured targets.
	ActionStartRollout = "start-rollout"

	// ActionCancelRollout asks the running rollout to stop at the
	// next room boundary.
	ActionCancelRollout = "cancel-rollout"

	// ActionJoinRoom makes the daemon's account join a room, so that
	// packs can be managed in it.
	ActionJoinRoom = "join-room"
)

// Request is a CBOR-encoded request from roompackctl to the daemon,
// sent over the daemon's Unix control socket.
type Request struct {
	// Action is the request type: "status", "validate-preset",
	// "start-rollout", or "cancel-rollout".
	Action string `cbor:"action"`

	// Preset names the preset to validate or roll out.
	Preset string `cbor:"preset,omitempty"`

	// Room is the alias or room ID to join (for "join-room").
	Room string `cbor:"room,omitempty"`
}

// Response is a CBOR-encoded response from the daemon to roompackctl.
type Response struct {
	// OK indicates whether the request succeeded.
	OK bool `cbor:"ok"`

	// Error contains the error message if OK is false.
	Error string `cbor:"error,omitempty"`

	// Warnings carries per-entry validation warnings for
	// "validate-preset" and "start-rollout". A preset can be valid
	// overall while individual entries were dropped.
	Warnings []string `cbor:"warnings,omitempty"`

	// EntryCount is the number of entries that survived validation
	// (for "validate-preset").
	EntryCount int `cbor:"entry_count,omitempty"`

	// Fingerprint is the content fingerprint of the validated pack
	// (for "validate-preset" and "start-rollout").
	Fingerprint string `cbor:"fingerprint,omitempty"`

	// RoomID is the resolved room that was joined (for "join-room").
	RoomID string `cbor:"room_id,omitempty"`

	// Running indicates whether a rollout is in flight (for
	// "status").
	Running bool `cbor:"running,omitempty"`

	// Progress describes the in-flight rollout when Running is true.
	Progress *Progress `cbor:"progress,omitempty"`

	// LastReport is the most recently finished rollout, if any (for
	// "status").
	LastReport *Report `cbor:"last_report,omitempty"`
}

// Progress is a point-in-time view of a running rollout.
type Progress struct {
	Preset  string `cbor:"preset"`
	Total   int    `cbor:"total"`
	Visited int    `cbor:"visited"`
	Applied int    `cbor:"applied"`
	Skipped int    `cbor:"skipped"`
	Failed  int    `cbor:"failed"`
}

// Report summarizes a finished rollout.
type Report struct {
	Preset      string   `cbor:"preset"`
	Fingerprint string   `cbor:"fingerprint"`
	Applied     int      `cbor:"applied"`
	Skipped     int      `cbor:"skipped"`
	Errors      []string `cbor:"errors,omitempty"`
	Cancelled   bool     `cbor:"cancelled"`
}
