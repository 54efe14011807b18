// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// roompackctl is the admin CLI for a running roompackd. It speaks CBOR
// over the daemon's control socket:
//
//	roompackctl status
//	roompackctl validate <preset>
//	roompackctl rollout <preset>
//	roompackctl cancel
//	roompackctl join <room>
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/roompack/roompack/ipc"
	"github.com/roompack/roompack/lib/codec"
)

const version = "0.3.0"

const defaultSocket = "/run/roompack/control.sock"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var socketPath string

	flagSet := pflag.NewFlagSet("roompackctl", pflag.ContinueOnError)
	flagSet.StringVar(&socketPath, "socket", defaultSocket, "path to the roompackd control socket")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("roompackctl %s\n", version)
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) == 0 {
		printHelp(flagSet)
		return fmt.Errorf("a command is required")
	}

	var request ipc.Request
	switch command := args[0]; command {
	case "status":
		if len(args) != 1 {
			return fmt.Errorf("status takes no arguments")
		}
		request = ipc.Request{Action: ipc.ActionStatus}
	case "validate":
		if len(args) != 2 {
			return fmt.Errorf("usage: roompackctl validate <preset>")
		}
		request = ipc.Request{Action: ipc.ActionValidatePreset, Preset: args[1]}
	case "rollout":
		if len(args) != 2 {
			return fmt.Errorf("usage: roompackctl rollout <preset>")
		}
		request = ipc.Request{Action: ipc.ActionStartRollout, Preset: args[1]}
	case "cancel":
		if len(args) != 1 {
			return fmt.Errorf("cancel takes no arguments")
		}
		request = ipc.Request{Action: ipc.ActionCancelRollout}
	case "join":
		if len(args) != 2 {
			return fmt.Errorf("usage: roompackctl join <room alias or ID>")
		}
		request = ipc.Request{Action: ipc.ActionJoinRoom, Room: args[1]}
	default:
		return fmt.Errorf("unknown command %q (expected status, validate, rollout, cancel, or join)", command)
	}

	response, err := roundTrip(socketPath, request)
	if err != nil {
		return err
	}

	for _, warning := range response.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	if !response.OK {
		return fmt.Errorf("%s", response.Error)
	}

	switch request.Action {
	case ipc.ActionStatus:
		printStatus(response)
	case ipc.ActionValidatePreset:
		fmt.Printf("preset %q is valid: %d emotes, fingerprint %s\n",
			request.Preset, response.EntryCount, response.Fingerprint)
	case ipc.ActionStartRollout:
		fmt.Printf("rollout of %q started: %d emotes, fingerprint %s\n",
			request.Preset, response.EntryCount, response.Fingerprint)
	case ipc.ActionCancelRollout:
		fmt.Println("rollout cancelled; the daemon stops after the current room")
	case ipc.ActionJoinRoom:
		fmt.Printf("joined %s\n", response.RoomID)
	}
	return nil
}

// roundTrip performs one request/response cycle against the daemon.
func roundTrip(socketPath string, request ipc.Request) (*ipc.Response, error) {
	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connecting to roompackd at %s: %w (is the daemon running?)", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(30 * time.Second))

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	var response ipc.Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &response, nil
}

func printStatus(response *ipc.Response) {
	if response.Running && response.Progress != nil {
		progress := response.Progress
		fmt.Printf("rollout of %q in progress: %d/%d rooms visited (%d applied, %d skipped, %d failed)\n",
			progress.Preset, progress.Visited, progress.Total,
			progress.Applied, progress.Skipped, progress.Failed)
	} else {
		fmt.Println("no rollout running")
	}
	if report := response.LastReport; report != nil {
		fmt.Printf("last rollout: %q: %d applied, %d skipped, %d failed",
			report.Preset, report.Applied, report.Skipped, len(report.Errors))
		if report.Cancelled {
			fmt.Print(" (cancelled)")
		}
		fmt.Println()
		for _, line := range report.Errors {
			fmt.Printf("  %s\n", line)
		}
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Print(`roompackctl — admin CLI for roompackd

Usage:
  roompackctl [flags] <command>

Commands:
  status             show the coordinator state and the last rollout
  validate <preset>  validate a preset without touching any room
  rollout <preset>   roll a preset out across the configured targets
  cancel             stop the running rollout at the next room
  join <room>        make the daemon's account join a room

Flags:
`)
	fmt.Print(flagSet.FlagUsages())
}
