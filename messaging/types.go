// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"encoding/json"

	"github.com/roompack/roompack/lib/ref"
)

// LoginRequest is the body of POST /_matrix/client/v3/login.
type LoginRequest struct {
	Type                     string `json:"type"`
	User                     string `json:"user"`
	Password                 string `json:"password"`
	InitialDeviceDisplayName string `json:"initial_device_display_name,omitempty"`
}

// AuthResponse is returned by Login.
type AuthResponse struct {
	UserID      ref.UserID `json:"user_id"`
	AccessToken string     `json:"access_token"`
	DeviceID    string     `json:"device_id"`
}

// WhoAmIResponse is returned by GET /_matrix/client/v3/account/whoami.
type WhoAmIResponse struct {
	UserID   ref.UserID `json:"user_id"`
	DeviceID string     `json:"device_id"`
}

// SendEventResponse is returned by event and state event sends.
type SendEventResponse struct {
	EventID string `json:"event_id"`
}

// ResolveAliasResponse is returned by the room directory lookup.
type ResolveAliasResponse struct {
	RoomID ref.RoomID `json:"room_id"`
}

// JoinedRoomsResponse is returned by GET /_matrix/client/v3/joined_rooms.
type JoinedRoomsResponse struct {
	JoinedRooms []ref.RoomID `json:"joined_rooms"`
}

// MessageContent is the content body of an m.room.message event.
// Roompack only sends plain text command replies.
type MessageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// NewTextMessage creates a plain text message.
func NewTextMessage(body string) MessageContent {
	return MessageContent{
		MsgType: "m.text",
		Body:    body,
	}
}

// Event is a Matrix event as delivered by /sync or room state queries.
type Event struct {
	Type     string          `json:"type"`
	StateKey *string         `json:"state_key,omitempty"`
	Sender   string          `json:"sender"`
	EventID  string          `json:"event_id"`
	Content  json.RawMessage `json:"content"`
}

// SyncOptions configures an incremental sync.
type SyncOptions struct {
	// Since is the batch token from the previous sync. Empty for an
	// initial sync.
	Since string
	// Timeout is the server-side long-poll hold in milliseconds.
	// Only sent when SetTimeout is true, so that an explicit zero
	// (return immediately) is distinguishable from "server default".
	Timeout    int
	SetTimeout bool
	// Filter is an inline JSON filter definition.
	Filter string
}

// SyncResponse is the subset of the /sync response roompack consumes.
type SyncResponse struct {
	NextBatch string    `json:"next_batch"`
	Rooms     SyncRooms `json:"rooms"`
}

// SyncRooms holds the per-room event batches from a sync response.
type SyncRooms struct {
	Join map[ref.RoomID]SyncJoinedRoom `json:"join"`
}

// SyncJoinedRoom holds the events for one joined room.
type SyncJoinedRoom struct {
	State    SyncEventList `json:"state"`
	Timeline SyncEventList `json:"timeline"`
}

// SyncEventList wraps a list of events.
type SyncEventList struct {
	Events []Event `json:"events"`
}
