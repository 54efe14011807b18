// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"

	"github.com/roompack/roompack/lib/ref"
)

// Session is the interface for the Matrix operations roompack
// performs. *DirectSession is the production implementation; tests
// substitute in-memory fakes.
type Session interface {
	// UserID returns the fully-qualified Matrix user ID the session
	// acts as (e.g., "@roompack:example.org").
	UserID() ref.UserID

	// Close releases any resources held by the session. Idempotent.
	Close() error

	// WhoAmI validates the session and returns the user ID.
	WhoAmI(ctx context.Context) (ref.UserID, error)

	// ResolveAlias resolves a room alias to a room ID.
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)

	// GetStateEvent fetches a specific state event's content from a
	// room. Returns the raw JSON content for the caller to decode.
	// If the event does not exist, returns a *MatrixError with code
	// M_NOT_FOUND.
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)

	// SendStateEvent sends a state event to a room, replacing any
	// existing event of the same type and state key. Returns the
	// event ID.
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (string, error)

	// SendMessage sends an m.room.message to a room. Returns the
	// event ID.
	SendMessage(ctx context.Context, roomID ref.RoomID, content MessageContent) (string, error)

	// JoinRoom joins a room by room ID. To join by alias, resolve
	// with ResolveAlias first.
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)

	// JoinedRooms returns the list of room IDs the user has joined.
	JoinedRooms(ctx context.Context) ([]ref.RoomID, error)

	// Sync performs an incremental sync with the homeserver.
	Sync(ctx context.Context, options SyncOptions) (*SyncResponse, error)
}

// Compile-time check: *DirectSession implements Session.
var _ Session = (*DirectSession)(nil)
