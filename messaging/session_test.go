// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/lib/secret"
)

// newTestSession creates a Client and DirectSession pointing at a test server.
func newTestSession(t *testing.T, handler http.Handler) *DirectSession {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	session, err := client.SessionFromToken(ref.MustParseUserID("@test:local"), "test-token")
	if err != nil {
		t.Fatalf("SessionFromToken failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func assertAuth(t *testing.T, request *http.Request, token string) {
	t.Helper()
	if got := request.Header.Get("Authorization"); got != "Bearer "+token {
		t.Errorf("Authorization = %q, want bearer %q", got, token)
	}
}

func writeJSON(writer http.ResponseWriter, v any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(v)
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", request.Method)
		}
		if request.URL.Path != "/_matrix/client/v3/login" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}

		var body LoginRequest
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Type != "m.login.password" {
			t.Errorf("login type = %q", body.Type)
		}
		if body.User != "@bot:local" || body.Password != "hunter2" {
			t.Errorf("credentials = %q / %q", body.User, body.Password)
		}

		writeJSON(writer, AuthResponse{
			UserID:      ref.MustParseUserID("@bot:local"),
			AccessToken: "issued-token",
			DeviceID:    "DEV9",
		})
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{HomeserverURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	password, err := secret.NewFromBytes([]byte("hunter2"))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	defer password.Close()

	session, err := client.Login(context.Background(), "@bot:local", password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	defer session.Close()

	if session.UserID().String() != "@bot:local" {
		t.Errorf("user ID = %s", session.UserID())
	}
	if session.DeviceID() != "DEV9" {
		t.Errorf("device ID = %q", session.DeviceID())
	}
}

func TestJoinRoom(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", request.Method)
		}
		if request.URL.EscapedPath() != "/_matrix/client/v3/join/%21room:local" {
			t.Errorf("unexpected path: %s", request.URL.EscapedPath())
		}
		writeJSON(writer, map[string]string{"room_id": "!room:local"})
	}))

	roomID, err := session.JoinRoom(context.Background(), ref.MustParseRoomID("!room:local"))
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if roomID.String() != "!room:local" {
		t.Errorf("room ID = %s", roomID)
	}
}

func TestWhoAmI(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.URL.Path != "/_matrix/client/v3/account/whoami" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		writeJSON(writer, WhoAmIResponse{UserID: ref.MustParseUserID("@test:local"), DeviceID: "DEV1"})
	}))

	userID, err := session.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI failed: %v", err)
	}
	if userID.String() != "@test:local" {
		t.Errorf("unexpected user ID: %s", userID)
	}
}

func TestGetStateEvent(t *testing.T) {
	t.Run("existing event", func(t *testing.T) {
		session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assertAuth(t, request, "test-token")
			wantPath := "/_matrix/client/v3/rooms/" + "%21room:local" + "/state/im.ponies.room_emotes/"
			if request.URL.EscapedPath() != wantPath {
				t.Errorf("path = %s, want %s", request.URL.EscapedPath(), wantPath)
			}
			writer.Write([]byte(`{"emoticons": {"happy": {"url": "mxc://s/1"}}}`))
		}))

		content, err := session.GetStateEvent(context.Background(),
			ref.MustParseRoomID("!room:local"), "im.ponies.room_emotes", "")
		if err != nil {
			t.Fatalf("GetStateEvent failed: %v", err)
		}
		if !strings.Contains(string(content), "happy") {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("missing event returns M_NOT_FOUND", func(t *testing.T) {
		session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusNotFound)
			writeJSON(writer, map[string]string{"errcode": "M_NOT_FOUND", "error": "Event not found."})
		}))

		_, err := session.GetStateEvent(context.Background(),
			ref.MustParseRoomID("!room:local"), "im.ponies.room_emotes", "")
		if !IsNotFound(err) {
			t.Errorf("want M_NOT_FOUND, got %v", err)
		}
	})
}

func TestSendStateEvent(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assertAuth(t, request, "test-token")
		if request.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", request.Method)
		}

		var body map[string]any
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if _, ok := body["emoticons"]; !ok {
			t.Errorf("request body missing emoticons: %v", body)
		}

		writeJSON(writer, SendEventResponse{EventID: "$event1"})
	}))

	eventID, err := session.SendStateEvent(context.Background(),
		ref.MustParseRoomID("!room:local"), "im.ponies.room_emotes", "",
		json.RawMessage(`{"emoticons": {}}`))
	if err != nil {
		t.Fatalf("SendStateEvent failed: %v", err)
	}
	if eventID != "$event1" {
		t.Errorf("event ID = %q", eventID)
	}
}

func TestResolveAlias(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !strings.HasPrefix(request.URL.EscapedPath(), "/_matrix/client/v3/directory/room/%23lounge") {
			t.Errorf("alias not escaped in path: %s", request.URL.EscapedPath())
		}
		writeJSON(writer, ResolveAliasResponse{RoomID: ref.MustParseRoomID("!resolved:local")})
	}))

	roomID, err := session.ResolveAlias(context.Background(), ref.MustParseRoomAlias("#lounge:local"))
	if err != nil {
		t.Fatalf("ResolveAlias failed: %v", err)
	}
	if roomID.String() != "!resolved:local" {
		t.Errorf("room ID = %s", roomID)
	}
}

func TestSendMessageUsesTransactionID(t *testing.T) {
	var paths []string
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		paths = append(paths, request.URL.Path)
		writeJSON(writer, SendEventResponse{EventID: "$msg"})
	}))

	roomID := ref.MustParseRoomID("!room:local")
	for i := 0; i < 2; i++ {
		if _, err := session.SendMessage(context.Background(), roomID, NewTextMessage("hello")); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	if len(paths) != 2 || paths[0] == paths[1] {
		t.Errorf("transaction IDs must differ between sends: %v", paths)
	}
	if !strings.Contains(paths[0], "/send/m.room.message/roompack-") {
		t.Errorf("unexpected send path: %s", paths[0])
	}
}

func TestSyncPassesQueryParameters(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		if query.Get("since") != "batch-1" {
			t.Errorf("since = %q", query.Get("since"))
		}
		if query.Get("timeout") != "30000" {
			t.Errorf("timeout = %q", query.Get("timeout"))
		}
		writeJSON(writer, SyncResponse{NextBatch: "batch-2"})
	}))

	response, err := session.Sync(context.Background(), SyncOptions{
		Since:      "batch-1",
		Timeout:    30000,
		SetTimeout: true,
	})
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if response.NextBatch != "batch-2" {
		t.Errorf("next batch = %q", response.NextBatch)
	}
}

func TestJoinedRooms(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeJSON(writer, JoinedRoomsResponse{JoinedRooms: []ref.RoomID{
			ref.MustParseRoomID("!a:local"),
			ref.MustParseRoomID("!b:local"),
		}})
	}))

	rooms, err := session.JoinedRooms(context.Background())
	if err != nil {
		t.Fatalf("JoinedRooms failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("rooms = %v", rooms)
	}
}

func TestNonJSONErrorFailsLoud(t *testing.T) {
	session := newTestSession(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadGateway)
		writer.Write([]byte("upstream exploded"))
	}))

	_, err := session.WhoAmI(context.Background())
	if err == nil || !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("want raw body in error, got %v", err)
	}
}
