// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/ipc"
	"github.com/roompack/roompack/lib/codec"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/preset"
	"github.com/roompack/roompack/rollout"
)

// roomJoiner is the membership operation the join-room action needs.
// *packstore.Store satisfies it.
type roomJoiner interface {
	Join(ctx context.Context, target string) (ref.RoomID, error)
}

// controlServer answers CBOR requests on the admin socket. Each
// connection is one request/response cycle. All state it touches is
// either immutable after startup (library, targets, delay) or already
// synchronized (the coordinator), so the handlers take no lock of
// their own.
type controlServer struct {
	coordinator *rollout.Coordinator
	library     *preset.Library
	rooms       roomJoiner
	targets     []string
	delay       time.Duration
	logger      *slog.Logger
}

// serve accepts connections until the listener closes.
func (s *controlServer) serve(ctx context.Context, listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection processes a single request/response cycle.
func (s *controlServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(30 * time.Second))

	decoder := codec.NewDecoder(conn)
	encoder := codec.NewEncoder(conn)

	var request ipc.Request
	if err := decoder.Decode(&request); err != nil {
		s.logger.Error("decoding control request", "error", err)
		if err := encoder.Encode(ipc.Response{OK: false, Error: "invalid request"}); err != nil {
			s.logger.Error("encoding control error response", "error", err)
		}
		return
	}

	s.logger.Info("control request",
		"action", request.Action,
		"preset", request.Preset,
		"room", request.Room)

	var response ipc.Response
	switch request.Action {
	case ipc.ActionStatus:
		response = s.handleStatus()
	case ipc.ActionValidatePreset:
		response = s.handleValidatePreset(&request)
	case ipc.ActionStartRollout:
		response = s.handleStartRollout(ctx, &request)
	case ipc.ActionCancelRollout:
		response = s.handleCancelRollout()
	case ipc.ActionJoinRoom:
		response = s.handleJoinRoom(ctx, &request)
	default:
		response = ipc.Response{OK: false, Error: "unknown action: " + request.Action}
	}

	if err := encoder.Encode(response); err != nil {
		s.logger.Error("encoding control response", "error", err)
	}
}

func (s *controlServer) handleStatus() ipc.Response {
	response := ipc.Response{OK: true}

	status := s.coordinator.Status()
	if status.Running {
		response.Running = true
		response.Progress = &ipc.Progress{
			Preset:  status.Preset,
			Total:   status.Total,
			Visited: status.Visited,
			Applied: status.Applied,
			Skipped: status.Skipped,
			Failed:  status.Failed,
		}
	}
	if report := s.coordinator.LastReport(); report != nil {
		response.LastReport = reportToIPC(report)
	}
	return response
}

func (s *controlServer) handleValidatePreset(request *ipc.Request) ipc.Response {
	entries, meta, warnings, err := s.resolveAndValidate(request.Preset)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error(), Warnings: warnings}
	}
	return ipc.Response{
		OK:          true,
		Warnings:    warnings,
		EntryCount:  entries.Len(),
		Fingerprint: emotes.Fingerprint(entries, meta),
	}
}

func (s *controlServer) handleStartRollout(ctx context.Context, request *ipc.Request) ipc.Response {
	entries, meta, warnings, err := s.resolveAndValidate(request.Preset)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error(), Warnings: warnings}
	}

	// ctx is the daemon's context, not a per-connection one: the
	// rollout survives this connection closing but stops on daemon
	// shutdown.
	err = s.coordinator.Start(ctx, rollout.Params{
		Preset:  request.Preset,
		Entries: entries,
		Meta:    meta,
		Targets: s.targets,
		Delay:   s.delay,
	})
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error(), Warnings: warnings}
	}
	return ipc.Response{
		OK:          true,
		Warnings:    warnings,
		EntryCount:  entries.Len(),
		Fingerprint: emotes.Fingerprint(entries, meta),
	}
}

func (s *controlServer) handleCancelRollout() ipc.Response {
	if err := s.coordinator.Cancel(); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	return ipc.Response{OK: true}
}

func (s *controlServer) handleJoinRoom(ctx context.Context, request *ipc.Request) ipc.Response {
	if request.Room == "" {
		return ipc.Response{OK: false, Error: "a room alias or ID is required"}
	}
	roomID, err := s.rooms.Join(ctx, request.Room)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	return ipc.Response{OK: true, RoomID: roomID.String()}
}

func (s *controlServer) resolveAndValidate(name string) (*emotes.EntrySet, emotes.PackMeta, []string, error) {
	definition, err := s.library.Resolve(name)
	if err != nil {
		return nil, nil, nil, err
	}
	return preset.Validate(definition)
}

func reportToIPC(report *rollout.Report) *ipc.Report {
	converted := &ipc.Report{
		Preset:      report.Preset,
		Fingerprint: report.Fingerprint,
		Applied:     report.Applied,
		Skipped:     report.Skipped,
		Cancelled:   report.Cancelled,
	}
	for _, targetError := range report.Errors {
		converted.Errors = append(converted.Errors, targetError.Error())
	}
	return converted
}
