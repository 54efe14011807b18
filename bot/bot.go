// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/messaging"
	"github.com/roompack/roompack/preset"
	"github.com/roompack/roompack/rollout"
)

// maxSyncRetries is the number of consecutive /sync failures allowed
// before Run gives up. Each retry uses a 1-second server-side timeout
// so the HTTP round-trip itself provides backoff.
const maxSyncRetries = 5

// longPollTimeout is the server-side long-poll hold time in
// milliseconds for normal /sync calls. 30 seconds matches the Matrix
// client-server spec recommendation.
const longPollTimeout = 30000

// retryTimeout is the server-side timeout in milliseconds used after a
// /sync error. Short so the retry completes quickly.
const retryTimeout = 1000

// PackStore is the per-room emote access the bot needs.
// *packstore.Store satisfies it.
type PackStore interface {
	AddEmote(ctx context.Context, roomID ref.RoomID, shortcode, url string) error
	RemoveEmote(ctx context.Context, roomID ref.RoomID, shortcode string) error
	ListEmotes(ctx context.Context, roomID ref.RoomID) ([]emotes.Entry, error)
}

// Options configures a Bot.
type Options struct {
	// Prefix introduces commands, e.g. "!".
	Prefix string

	// AllowedUsers restricts who may issue commands. Empty allows
	// every user in a shared room.
	AllowedUsers []ref.UserID

	// Targets and Delay parameterize rollouts started from chat.
	Targets []string
	Delay   time.Duration

	// Logger for sync-loop and command logging. Nil uses the default.
	Logger *slog.Logger
}

// Bot is the in-room command interface.
type Bot struct {
	session     messaging.Session
	store       PackStore
	coordinator *rollout.Coordinator
	library     *preset.Library

	prefix  string
	allowed map[string]bool // empty means everyone
	targets []string
	delay   time.Duration
	logger  *slog.Logger
}

// New creates a bot. It does not contact the homeserver until Run.
func New(session messaging.Session, store PackStore, coordinator *rollout.Coordinator, library *preset.Library, options Options) *Bot {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefix := options.Prefix
	if prefix == "" {
		prefix = "!"
	}
	allowed := make(map[string]bool, len(options.AllowedUsers))
	for _, user := range options.AllowedUsers {
		allowed[user.String()] = true
	}
	return &Bot{
		session:     session,
		store:       store,
		coordinator: coordinator,
		library:     library,
		prefix:      prefix,
		allowed:     allowed,
		targets:     options.Targets,
		delay:       options.Delay,
		logger:      logger,
	}
}

// commandFilter is the inline /sync filter for the command loop:
// message timeline events only, no state, no presence, no account
// data. The bot listens in every joined room.
func commandFilter() string {
	top := map[string]any{
		"room": map[string]any{
			"timeline": map[string]any{"types": []string{"m.room.message"}},
			"state":    map[string]any{"types": []string{}},
		},
		"presence":     map[string]any{"types": []string{}},
		"account_data": map[string]any{"types": []string{}},
	}
	data, _ := json.Marshal(top)
	return string(data)
}

// Run processes commands until the context is cancelled. The first
// sync (timeout=0) only establishes the stream position: messages sent
// before the bot started are never interpreted as commands.
func (b *Bot) Run(ctx context.Context) error {
	filter := commandFilter()

	initial, err := b.session.Sync(ctx, messaging.SyncOptions{
		SetTimeout: true,
		Timeout:    0,
		Filter:     filter,
	})
	if err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}
	nextBatch := initial.NextBatch

	b.logger.Info("command loop started", "user", b.session.UserID(), "prefix", b.prefix)

	var syncRetries int
	for {
		if ctx.Err() != nil {
			return nil
		}

		syncTimeout := longPollTimeout
		if syncRetries > 0 {
			syncTimeout = retryTimeout
		}
		response, err := b.session.Sync(ctx, messaging.SyncOptions{
			Since:      nextBatch,
			SetTimeout: true,
			Timeout:    syncTimeout,
			Filter:     filter,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			syncRetries++
			// TCP-level errors often indicate a poisoned connection
			// in Go's HTTP pool. Drop idle connections so the next
			// attempt opens a fresh socket.
			if closer, ok := b.session.(interface{ CloseIdleConnections() }); ok {
				closer.CloseIdleConnections()
			}
			if syncRetries > maxSyncRetries {
				return fmt.Errorf("sync failed %d consecutive times: %w", syncRetries, err)
			}
			b.logger.Debug("sync error, retrying",
				"attempt", syncRetries,
				"max_attempts", maxSyncRetries,
				"error", err)
			continue
		}
		syncRetries = 0
		nextBatch = response.NextBatch

		for roomID, joined := range response.Rooms.Join {
			for _, event := range joined.Timeline.Events {
				b.handleEvent(ctx, roomID, event)
			}
		}
	}
}

// handleEvent filters one timeline event down to a command invocation.
func (b *Bot) handleEvent(ctx context.Context, roomID ref.RoomID, event messaging.Event) {
	if event.Type != "m.room.message" {
		return
	}
	if event.Sender == b.session.UserID().String() {
		return
	}
	var content messaging.MessageContent
	if err := json.Unmarshal(event.Content, &content); err != nil {
		return
	}
	if content.MsgType != "m.text" {
		return
	}
	b.handleCommand(ctx, roomID, event.Sender, content.Body)
}

// reply posts a plain text message, logging rather than failing when
// the send itself errors — there is nobody else to tell.
func (b *Bot) reply(ctx context.Context, roomID ref.RoomID, text string) {
	if _, err := b.session.SendMessage(ctx, roomID, messaging.NewTextMessage(text)); err != nil {
		b.logger.Warn("sending reply failed", "room", roomID, "error", err)
	}
}
