// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package packstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/messaging"
)

// fakeSession is an in-memory StateSession. State events are keyed by
// room ID; only the emote pack event type is stored since that is all
// the store touches.
type fakeSession struct {
	aliases map[string]ref.RoomID
	state   map[string]json.RawMessage
	writes  int
	joined  []string

	getErr  error
	sendErr error
	joinErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		aliases: make(map[string]ref.RoomID),
		state:   make(map[string]json.RawMessage),
	}
}

func (f *fakeSession) ResolveAlias(ctx context.Context, alias ref.RoomAlias) (ref.RoomID, error) {
	roomID, ok := f.aliases[alias.String()]
	if !ok {
		return ref.RoomID{}, &messaging.MatrixError{
			Code:       messaging.ErrCodeNotFound,
			Message:    "Room alias not found",
			StatusCode: http.StatusNotFound,
		}
	}
	return roomID, nil
}

func (f *fakeSession) JoinRoom(ctx context.Context, roomID ref.RoomID) (ref.RoomID, error) {
	if f.joinErr != nil {
		return ref.RoomID{}, f.joinErr
	}
	f.joined = append(f.joined, roomID.String())
	return roomID, nil
}

func (f *fakeSession) GetStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string) (json.RawMessage, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	content, ok := f.state[roomID.String()]
	if !ok {
		return nil, &messaging.MatrixError{
			Code:       messaging.ErrCodeNotFound,
			Message:    "Event not found",
			StatusCode: http.StatusNotFound,
		}
	}
	return content, nil
}

func (f *fakeSession) SendStateEvent(ctx context.Context, roomID ref.RoomID, eventType ref.EventType, stateKey string, content any) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return "", err
	}
	f.state[roomID.String()] = raw
	f.writes++
	return fmt.Sprintf("$event%d", f.writes), nil
}

func testRoom(t *testing.T) ref.RoomID {
	t.Helper()
	return ref.MustParseRoomID("!room:example.org")
}

func TestResolveAlias(t *testing.T) {
	session := newFakeSession()
	session.aliases["#lounge:example.org"] = ref.MustParseRoomID("!abc:example.org")
	store := New(session, nil)

	roomID, err := store.Resolve(context.Background(), "#lounge:example.org")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roomID.String() != "!abc:example.org" {
		t.Errorf("resolved to %s, want !abc:example.org", roomID)
	}
}

func TestResolveLiteralRoomID(t *testing.T) {
	store := New(newFakeSession(), nil)

	roomID, err := store.Resolve(context.Background(), "!direct:example.org")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if roomID.String() != "!direct:example.org" {
		t.Errorf("resolved to %s, want !direct:example.org", roomID)
	}
}

func TestResolveRejectsBareName(t *testing.T) {
	store := New(newFakeSession(), nil)

	for _, target := range []string{"", "lounge", "@user:example.org"} {
		if _, err := store.Resolve(context.Background(), target); err == nil {
			t.Errorf("Resolve(%q) succeeded, want error", target)
		}
	}
}

func TestResolveUnknownAlias(t *testing.T) {
	store := New(newFakeSession(), nil)

	_, err := store.Resolve(context.Background(), "#gone:example.org")
	if err == nil {
		t.Fatal("Resolve of unknown alias succeeded")
	}
	if !messaging.IsNotFound(err) {
		t.Errorf("error %v does not wrap M_NOT_FOUND", err)
	}
}

func TestJoinByAlias(t *testing.T) {
	session := newFakeSession()
	session.aliases["#lounge:example.org"] = ref.MustParseRoomID("!abc:example.org")
	store := New(session, nil)

	roomID, err := store.Join(context.Background(), "#lounge:example.org")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if roomID.String() != "!abc:example.org" {
		t.Errorf("joined %s, want !abc:example.org", roomID)
	}
	if len(session.joined) != 1 || session.joined[0] != "!abc:example.org" {
		t.Errorf("joined = %v", session.joined)
	}
}

func TestJoinFailureDoesNotSwallowError(t *testing.T) {
	session := newFakeSession()
	session.joinErr = &messaging.MatrixError{
		Code:       messaging.ErrCodeForbidden,
		Message:    "not invited",
		StatusCode: http.StatusForbidden,
	}
	store := New(session, nil)

	if _, err := store.Join(context.Background(), "!private:example.org"); err == nil {
		t.Fatal("Join of forbidden room succeeded")
	}
}

func TestReadPackAbsentEventIsEmpty(t *testing.T) {
	store := New(newFakeSession(), nil)

	entries, meta, err := store.ReadPack(context.Background(), testRoom(t))
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if entries.Len() != 0 {
		t.Errorf("entries.Len() = %d, want 0", entries.Len())
	}
	if len(meta) != 0 {
		t.Errorf("meta = %v, want empty", meta)
	}
}

func TestReadPackMalformedEventIsEmpty(t *testing.T) {
	session := newFakeSession()
	session.state[testRoom(t).String()] = json.RawMessage(`{"emoticons": "not a mapping"}`)
	store := New(session, nil)

	entries, _, err := store.ReadPack(context.Background(), testRoom(t))
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if entries.Len() != 0 {
		t.Errorf("entries.Len() = %d, want 0", entries.Len())
	}
}

func TestReadPackFetchFailure(t *testing.T) {
	session := newFakeSession()
	session.getErr = &messaging.MatrixError{
		Code:       messaging.ErrCodeForbidden,
		Message:    "not in room",
		StatusCode: http.StatusForbidden,
	}
	store := New(session, nil)

	if _, _, err := store.ReadPack(context.Background(), testRoom(t)); err == nil {
		t.Fatal("ReadPack with failing fetch succeeded")
	}
}

func TestAddEmoteToEmptyRoom(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	if err := store.AddEmote(context.Background(), room, "happy", "mxc://example.org/abc"); err != nil {
		t.Fatalf("AddEmote: %v", err)
	}

	listed, err := store.ListEmotes(context.Background(), room)
	if err != nil {
		t.Fatalf("ListEmotes: %v", err)
	}
	if len(listed) != 1 || listed[0].Shortcode != "happy" || listed[0].URL != "mxc://example.org/abc" {
		t.Errorf("listed = %v, want single happy entry", listed)
	}
}

func TestAddEmoteOverwritesSilently(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	if err := store.AddEmote(context.Background(), room, "happy", "mxc://example.org/old"); err != nil {
		t.Fatalf("AddEmote: %v", err)
	}
	if err := store.AddEmote(context.Background(), room, "happy", "mxc://example.org/new"); err != nil {
		t.Fatalf("AddEmote overwrite: %v", err)
	}

	listed, err := store.ListEmotes(context.Background(), room)
	if err != nil {
		t.Fatalf("ListEmotes: %v", err)
	}
	if len(listed) != 1 || listed[0].URL != "mxc://example.org/new" {
		t.Errorf("listed = %v, want single entry with new URL", listed)
	}
}

func TestAddEmoteRejectsBadInput(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	if err := store.AddEmote(context.Background(), room, "no spaces", "mxc://example.org/abc"); err == nil {
		t.Error("AddEmote with invalid shortcode succeeded")
	}
	if err := store.AddEmote(context.Background(), room, "happy", "https://example.org/abc"); err == nil {
		t.Error("AddEmote with non-mxc URL succeeded")
	}
	if session.writes != 0 {
		t.Errorf("invalid adds performed %d writes, want 0", session.writes)
	}
}

func TestAddEmotePreservesMetadataAndOtherEntries(t *testing.T) {
	session := newFakeSession()
	room := testRoom(t)
	session.state[room.String()] = json.RawMessage(
		`{"emoticons":{"old":{"url":"mxc://example.org/old"}},"pack":{"display_name":"Team"}}`)
	store := New(session, nil)

	if err := store.AddEmote(context.Background(), room, "happy", "mxc://example.org/abc"); err != nil {
		t.Fatalf("AddEmote: %v", err)
	}

	entries, meta, err := store.ReadPack(context.Background(), room)
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if entries.Len() != 2 {
		t.Errorf("entries.Len() = %d, want 2", entries.Len())
	}
	if meta.DisplayName() != "Team" {
		t.Errorf("display name = %q, want Team", meta.DisplayName())
	}
}

func TestRemoveEmote(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	if err := store.AddEmote(context.Background(), room, "happy", "mxc://example.org/abc"); err != nil {
		t.Fatalf("AddEmote: %v", err)
	}
	if err := store.RemoveEmote(context.Background(), room, "happy"); err != nil {
		t.Fatalf("RemoveEmote: %v", err)
	}

	listed, err := store.ListEmotes(context.Background(), room)
	if err != nil {
		t.Fatalf("ListEmotes: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("listed = %v, want empty", listed)
	}
}

func TestRemoveAbsentEmoteDoesNotWrite(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	err := store.RemoveEmote(context.Background(), room, "ghost")
	if !errors.Is(err, ErrEmoteNotFound) {
		t.Fatalf("RemoveEmote error = %v, want ErrEmoteNotFound", err)
	}
	if session.writes != 0 {
		t.Errorf("removal of absent emote performed %d writes, want 0", session.writes)
	}
}

func TestListEmotesPreservesOrder(t *testing.T) {
	session := newFakeSession()
	room := testRoom(t)
	session.state[room.String()] = json.RawMessage(
		`{"emoticons":{"zebra":{"url":"mxc://e/1"},"apple":{"url":"mxc://e/2"},"mango":{"url":"mxc://e/3"}}}`)
	store := New(session, nil)

	listed, err := store.ListEmotes(context.Background(), room)
	if err != nil {
		t.Fatalf("ListEmotes: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	if len(listed) != len(want) {
		t.Fatalf("len(listed) = %d, want %d", len(listed), len(want))
	}
	for i, entry := range listed {
		if entry.Shortcode != want[i] {
			t.Errorf("listed[%d] = %s, want %s", i, entry.Shortcode, want[i])
		}
	}
}

func TestWritePackRoundTrip(t *testing.T) {
	session := newFakeSession()
	store := New(session, nil)
	room := testRoom(t)

	entries := emotes.NewEntrySet()
	entries.Put("wave", "mxc://example.org/wave")
	entries.Put("bow", "mxc://example.org/bow")
	meta := emotes.PackMeta{emotes.MetaDisplayName: "Greetings"}

	if err := store.WritePack(context.Background(), room, entries, meta); err != nil {
		t.Fatalf("WritePack: %v", err)
	}

	gotEntries, gotMeta, err := store.ReadPack(context.Background(), room)
	if err != nil {
		t.Fatalf("ReadPack: %v", err)
	}
	if !gotEntries.Equal(entries) {
		t.Errorf("read entries differ from written entries")
	}
	if gotMeta.DisplayName() != "Greetings" {
		t.Errorf("display name = %q, want Greetings", gotMeta.DisplayName())
	}
}
