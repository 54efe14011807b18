// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/ipc"
	"github.com/roompack/roompack/lib/codec"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/lib/testutil"
	"github.com/roompack/roompack/preset"
	"github.com/roompack/roompack/rollout"
)

// memoryStore accepts every target and records writes and joins.
type memoryStore struct {
	mu     sync.Mutex
	writes []string
	joins  []string
}

func (m *memoryStore) Resolve(ctx context.Context, target string) (ref.RoomID, error) {
	return ref.ParseRoomID(target)
}

func (m *memoryStore) Join(ctx context.Context, target string) (ref.RoomID, error) {
	roomID, err := m.Resolve(ctx, target)
	if err != nil {
		return ref.RoomID{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, roomID.String())
	return roomID, nil
}

func (m *memoryStore) ReadPack(ctx context.Context, roomID ref.RoomID) (*emotes.EntrySet, emotes.PackMeta, error) {
	return emotes.NewEntrySet(), emotes.PackMeta{}, nil
}

func (m *memoryStore) WritePack(ctx context.Context, roomID ref.RoomID, entries *emotes.EntrySet, meta emotes.PackMeta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, roomID.String())
	return nil
}

func testLibrary() *preset.Library {
	return preset.NewLibrary(map[string]preset.Definition{
		"team": {
			Name: "team",
			Meta: emotes.PackMeta{emotes.MetaDisplayName: "Team Pack"},
			Entries: []preset.RawEntry{
				{Shortcode: "happy", Value: map[string]any{"url": "mxc://example.org/happy"}},
				{Shortcode: "bad name", Value: map[string]any{"url": "mxc://example.org/bad"}},
			},
			HasEntries: true,
		},
	})
}

func newControlServer(store *memoryStore) *controlServer {
	return &controlServer{
		coordinator: rollout.New(store),
		library:     testLibrary(),
		rooms:       store,
		targets:     []string{"!a:example.org", "!b:example.org"},
		logger:      slog.Default(),
	}
}

// roundTrip runs one request/response cycle through handleConnection
// over an in-memory pipe.
func roundTrip(t *testing.T, server *controlServer, request ipc.Request) ipc.Response {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		server.handleConnection(context.Background(), serverConn)
	}()

	if err := codec.NewEncoder(clientConn).Encode(request); err != nil {
		t.Fatalf("encoding request: %v", err)
	}
	var response ipc.Response
	if err := codec.NewDecoder(clientConn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	testutil.RequireClosed(t, done, 5*time.Second, "waiting for handler")
	return response
}

func TestControlStatusIdle(t *testing.T) {
	server := newControlServer(&memoryStore{})

	response := roundTrip(t, server, ipc.Request{Action: ipc.ActionStatus})
	if !response.OK {
		t.Fatalf("status failed: %s", response.Error)
	}
	if response.Running {
		t.Error("idle daemon reports running rollout")
	}
	if response.LastReport != nil {
		t.Error("idle daemon reports a last rollout")
	}
}

func TestControlValidatePreset(t *testing.T) {
	server := newControlServer(&memoryStore{})

	response := roundTrip(t, server, ipc.Request{
		Action: ipc.ActionValidatePreset,
		Preset: "team",
	})
	if !response.OK {
		t.Fatalf("validate failed: %s", response.Error)
	}
	if response.EntryCount != 1 {
		t.Errorf("entry count = %d, want 1 (bad entry dropped)", response.EntryCount)
	}
	if len(response.Warnings) != 1 || !strings.Contains(response.Warnings[0], "bad name") {
		t.Errorf("warnings = %v, want one mentioning the dropped entry", response.Warnings)
	}
	if response.Fingerprint == "" {
		t.Error("no fingerprint")
	}
}

func TestControlValidateUnknownPreset(t *testing.T) {
	server := newControlServer(&memoryStore{})

	response := roundTrip(t, server, ipc.Request{
		Action: ipc.ActionValidatePreset,
		Preset: "nonexistent",
	})
	if response.OK {
		t.Fatal("unknown preset validated")
	}
	if !strings.Contains(response.Error, "unknown preset") {
		t.Errorf("error = %q", response.Error)
	}
}

func TestControlStartAndCancelRollout(t *testing.T) {
	store := &memoryStore{}
	server := newControlServer(store)

	response := roundTrip(t, server, ipc.Request{
		Action: ipc.ActionStartRollout,
		Preset: "team",
	})
	if !response.OK {
		t.Fatalf("start failed: %s", response.Error)
	}

	// With no inter-target delay the pass finishes quickly; poll
	// status until it reports the result.
	deadline := time.After(5 * time.Second)
	for {
		status := roundTrip(t, server, ipc.Request{Action: ipc.ActionStatus})
		if !status.Running && status.LastReport != nil {
			if status.LastReport.Applied != 2 {
				t.Errorf("applied = %d, want 2", status.LastReport.Applied)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("rollout never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel := roundTrip(t, server, ipc.Request{Action: ipc.ActionCancelRollout})
	if cancel.OK {
		t.Error("cancel succeeded with no rollout running")
	}
}

func TestControlJoinRoom(t *testing.T) {
	store := &memoryStore{}
	server := newControlServer(store)

	response := roundTrip(t, server, ipc.Request{
		Action: ipc.ActionJoinRoom,
		Room:   "!new:example.org",
	})
	if !response.OK {
		t.Fatalf("join failed: %s", response.Error)
	}
	if response.RoomID != "!new:example.org" {
		t.Errorf("room ID = %q", response.RoomID)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.joins) != 1 || store.joins[0] != "!new:example.org" {
		t.Errorf("joins = %v", store.joins)
	}
}

func TestControlJoinRoomRequiresTarget(t *testing.T) {
	server := newControlServer(&memoryStore{})

	response := roundTrip(t, server, ipc.Request{Action: ipc.ActionJoinRoom})
	if response.OK {
		t.Fatal("join without a room succeeded")
	}
}

func TestControlUnknownAction(t *testing.T) {
	server := newControlServer(&memoryStore{})

	response := roundTrip(t, server, ipc.Request{Action: "reboot"})
	if response.OK {
		t.Fatal("unknown action succeeded")
	}
	if !strings.Contains(response.Error, "unknown action") {
		t.Errorf("error = %q", response.Error)
	}
}
