// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// Package bot implements the in-room command interface: a /sync loop
// that watches joined rooms for command messages and answers them with
// plain text replies.
//
// Single-emote commands (!addemoji, !removeemoji, !listemojis) operate
// on the room the command was sent in. Rollout commands (!rollout,
// !cancelrollout, !rolloutstatus) drive the shared coordinator and can
// be issued from any room the bot is in; the completion summary is
// posted back to the room that started the rollout.
package bot
