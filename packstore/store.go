// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package packstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/messaging"
	"github.com/roompack/roompack/preset"
)

// ErrEmoteNotFound reports a removal of a shortcode that is not in the
// room's pack. The pack is left untouched in that case.
var ErrEmoteNotFound = errors.New("emote not found")

// StateSession is the slice of a Matrix session the store needs:
// alias resolution, room membership, and state event access.
type StateSession interface {
	ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error)
	JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error)
	GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error)
	SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (string, error)
}

// Store performs pack operations against rooms through a Matrix
// session. It carries no per-room state; the room is an argument to
// every operation.
type Store struct {
	session StateSession
	logger  *slog.Logger
}

// New creates a store over the given session. A nil logger uses the
// default slog logger.
func New(session StateSession, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{session: session, logger: logger}
}

// Resolve turns a rollout target into a room ID. Targets beginning
// with '#' are aliases resolved through the homeserver; targets
// beginning with '!' are taken as literal room IDs. Anything else is
// rejected without a network round trip.
func (s *Store) Resolve(ctx context.Context, target string) (ref.RoomID, error) {
	if target == "" {
		return ref.RoomID{}, fmt.Errorf("empty room target")
	}
	switch target[0] {
	case '#':
		alias, err := ref.ParseRoomAlias(target)
		if err != nil {
			return ref.RoomID{}, err
		}
		roomID, err := s.session.ResolveAlias(ctx, alias)
		if err != nil {
			return ref.RoomID{}, fmt.Errorf("resolving alias %s: %w", alias, err)
		}
		return roomID, nil
	case '!':
		return ref.ParseRoomID(target)
	default:
		return ref.RoomID{}, fmt.Errorf("room target %q is neither an alias nor a room ID", target)
	}
}

// Join resolves a target and joins the room so that packs can be
// managed in it. Joining a room the account is already in is a no-op
// on the homeserver side.
func (s *Store) Join(ctx context.Context, target string) (ref.RoomID, error) {
	roomID, err := s.Resolve(ctx, target)
	if err != nil {
		return ref.RoomID{}, err
	}
	joined, err := s.session.JoinRoom(ctx, roomID)
	if err != nil {
		return ref.RoomID{}, fmt.Errorf("joining %s: %w", roomID, err)
	}
	s.logger.Info("joined room", "target", target, "room", joined)
	return joined, nil
}

// ReadPack returns the room's current pack. An absent event yields an
// empty pack; a present event is decoded leniently, so malformed
// content also yields an empty pack rather than an error. Only a
// failed fetch (auth, network, server error) is reported.
func (s *Store) ReadPack(ctx context.Context, roomID ref.RoomID) (*emotes.EntrySet, emotes.PackMeta, error) {
	raw, err := s.session.GetStateEvent(ctx, roomID, emotes.EventType, "")
	if err != nil {
		if messaging.IsNotFound(err) {
			return emotes.NewEntrySet(), emotes.PackMeta{}, nil
		}
		return nil, nil, fmt.Errorf("reading pack in %s: %w", roomID, err)
	}
	entries, meta := emotes.Decode(raw)
	return entries, meta, nil
}

// WritePack replaces the room's pack event with the given entries and
// metadata.
func (s *Store) WritePack(ctx context.Context, roomID ref.RoomID, entries *emotes.EntrySet, meta emotes.PackMeta) error {
	content, err := emotes.Encode(entries, meta)
	if err != nil {
		return err
	}
	if _, err := s.session.SendStateEvent(ctx, roomID, emotes.EventType, "", content); err != nil {
		return fmt.Errorf("writing pack in %s: %w", roomID, err)
	}
	s.logger.Info("wrote emote pack",
		"room", roomID,
		"entries", entries.Len(),
		"fingerprint", emotes.Fingerprint(entries, meta))
	return nil
}

// AddEmote inserts or replaces a single entry in the room's pack. An
// existing entry under the same shortcode is overwritten without
// complaint. Pack metadata is preserved as-is.
func (s *Store) AddEmote(ctx context.Context, roomID ref.RoomID, shortcode, url string) error {
	if err := preset.ValidateShortcode(shortcode); err != nil {
		return err
	}
	if err := preset.ValidateMediaURL(url); err != nil {
		return err
	}
	entries, meta, err := s.ReadPack(ctx, roomID)
	if err != nil {
		return err
	}
	entries.Put(shortcode, url)
	return s.WritePack(ctx, roomID, entries, meta)
}

// RemoveEmote deletes a single entry from the room's pack. If the
// shortcode is absent the pack is not rewritten and ErrEmoteNotFound
// is returned.
func (s *Store) RemoveEmote(ctx context.Context, roomID ref.RoomID, shortcode string) error {
	entries, meta, err := s.ReadPack(ctx, roomID)
	if err != nil {
		return err
	}
	if !entries.Remove(shortcode) {
		return fmt.Errorf("%w: %s", ErrEmoteNotFound, shortcode)
	}
	return s.WritePack(ctx, roomID, entries, meta)
}

// ListEmotes returns the room's entries in stored order.
func (s *Store) ListEmotes(ctx context.Context, roomID ref.RoomID) ([]emotes.Entry, error) {
	entries, _, err := s.ReadPack(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return entries.Entries(), nil
}
