// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/packstore"
	"github.com/roompack/roompack/preset"
	"github.com/roompack/roompack/rollout"
)

// handleCommand parses and dispatches one message body. Messages that
// do not start with the command prefix, and unknown commands, are
// ignored silently — the bot shares rooms with normal conversation.
func (b *Bot) handleCommand(ctx context.Context, roomID ref.RoomID, sender, body string) {
	if !strings.HasPrefix(body, b.prefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(body, b.prefix))
	if len(fields) == 0 {
		return
	}
	command, args := fields[0], fields[1:]

	switch command {
	case "addemoji", "removeemoji", "listemojis", "rollout", "cancelrollout", "rolloutstatus":
	default:
		return
	}

	if len(b.allowed) > 0 && !b.allowed[sender] {
		b.logger.Warn("command from unauthorized user", "sender", sender, "command", command)
		b.reply(ctx, roomID, "You are not allowed to manage emojis")
		return
	}

	b.logger.Info("command received", "room", roomID, "sender", sender, "command", command)

	switch command {
	case "addemoji":
		b.addEmoji(ctx, roomID, args)
	case "removeemoji":
		b.removeEmoji(ctx, roomID, args)
	case "listemojis":
		b.listEmojis(ctx, roomID)
	case "rollout":
		b.startRollout(ctx, roomID, args)
	case "cancelrollout":
		b.cancelRollout(ctx, roomID)
	case "rolloutstatus":
		b.rolloutStatus(ctx, roomID)
	}
}

func (b *Bot) addEmoji(ctx context.Context, roomID ref.RoomID, args []string) {
	if len(args) != 2 {
		b.reply(ctx, roomID, "Usage: "+b.prefix+"addemoji <name> <mxc_url>")
		return
	}
	name, url := args[0], args[1]
	if !strings.HasPrefix(url, "mxc://") {
		b.reply(ctx, roomID, "Invalid MXC URL. Must start with mxc://")
		return
	}
	if err := b.store.AddEmote(ctx, roomID, name, url); err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Error adding emoji: %v", err))
		return
	}
	b.reply(ctx, roomID, fmt.Sprintf("Added emoji :%s:", name))
}

func (b *Bot) removeEmoji(ctx context.Context, roomID ref.RoomID, args []string) {
	if len(args) != 1 {
		b.reply(ctx, roomID, "Usage: "+b.prefix+"removeemoji <name>")
		return
	}
	name := args[0]
	if err := b.store.RemoveEmote(ctx, roomID, name); err != nil {
		if errors.Is(err, packstore.ErrEmoteNotFound) {
			b.reply(ctx, roomID, fmt.Sprintf("Emoji :%s: not found", name))
			return
		}
		b.reply(ctx, roomID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, roomID, fmt.Sprintf("Removed emoji :%s:", name))
}

func (b *Bot) listEmojis(ctx context.Context, roomID ref.RoomID) {
	entries, err := b.store.ListEmotes(ctx, roomID)
	if err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Error: %v", err))
		return
	}
	if len(entries) == 0 {
		b.reply(ctx, roomID, "No custom emojis in this room")
		return
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Custom emojis:")
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf(":%s: - %s", entry.Shortcode, entry.URL))
	}
	b.reply(ctx, roomID, strings.Join(lines, "\n"))
}

func (b *Bot) startRollout(ctx context.Context, roomID ref.RoomID, args []string) {
	if len(args) != 1 {
		b.reply(ctx, roomID, "Usage: "+b.prefix+"rollout <preset>")
		return
	}
	definition, err := b.library.Resolve(args[0])
	if err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Error: %v", err))
		return
	}
	entries, meta, warnings, err := preset.Validate(definition)
	if err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Preset %q is invalid: %v", definition.Name, err))
		return
	}
	if len(b.targets) == 0 {
		b.reply(ctx, roomID, "No rollout targets configured")
		return
	}

	// Acknowledge before starting the pass: with no inter-target
	// delay the completion summary would otherwise race ahead of the
	// acknowledgment.
	lines := make([]string, 0, len(warnings)+1)
	for _, warning := range warnings {
		lines = append(lines, "Warning: "+warning)
	}
	lines = append(lines, fmt.Sprintf("Rolling out preset %q (%d emojis) to %d rooms",
		definition.Name, entries.Len(), len(b.targets)))
	b.reply(ctx, roomID, strings.Join(lines, "\n"))

	// The completion summary goes back to the room that asked.
	// Rollouts outlive the originating sync iteration, so the
	// callback must not use the command's context.
	err = b.coordinator.Start(ctx, rollout.Params{
		Preset:  definition.Name,
		Entries: entries,
		Meta:    meta,
		Targets: b.targets,
		Delay:   b.delay,
		OnComplete: func(report rollout.Report) {
			b.reply(context.WithoutCancel(ctx), roomID, formatReport(report))
		},
	})
	if err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Rollout not started: %v", err))
	}
}

func (b *Bot) cancelRollout(ctx context.Context, roomID ref.RoomID) {
	if err := b.coordinator.Cancel(); err != nil {
		b.reply(ctx, roomID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(ctx, roomID, "Rollout cancelled; stopping after the current room")
}

func (b *Bot) rolloutStatus(ctx context.Context, roomID ref.RoomID) {
	status := b.coordinator.Status()
	if status.Running {
		b.reply(ctx, roomID, fmt.Sprintf(
			"Rollout of %q in progress: %d/%d rooms visited (%d applied, %d skipped, %d failed)",
			status.Preset, status.Visited, status.Total,
			status.Applied, status.Skipped, status.Failed))
		return
	}
	report := b.coordinator.LastReport()
	if report == nil {
		b.reply(ctx, roomID, "No rollout has run yet")
		return
	}
	b.reply(ctx, roomID, "Last rollout: "+formatReport(*report))
}

func formatReport(report rollout.Report) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Rollout of %q finished: %d applied, %d skipped, %d failed",
		report.Preset, report.Applied, report.Skipped, len(report.Errors))
	if report.Cancelled {
		builder.WriteString(" (cancelled)")
	}
	for _, targetError := range report.Errors {
		builder.WriteString("\n  " + targetError.Error())
	}
	return builder.String()
}
