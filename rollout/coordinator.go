// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

package rollout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roompack/roompack/emotes"
	"github.com/roompack/roompack/lib/clock"
	"github.com/roompack/roompack/lib/ref"
)

var (
	// ErrRolloutRunning rejects Start while a pass is in flight.
	ErrRolloutRunning = errors.New("a rollout is already running")

	// ErrNoRollout rejects Cancel when no pass is in flight.
	ErrNoRollout = errors.New("no rollout is running")

	// ErrNoTargets rejects Start with an empty target list.
	ErrNoTargets = errors.New("no rollout targets configured")

	// ErrNoEntries rejects Start with an empty pack. Presets are
	// validated before they reach the coordinator, so this guards
	// against wiping every target room by accident.
	ErrNoEntries = errors.New("pack has no entries")
)

// Store is the per-room access the coordinator needs. *packstore.Store
// satisfies it.
type Store interface {
	Resolve(ctx context.Context, target string) (ref.RoomID, error)
	ReadPack(ctx context.Context, roomID ref.RoomID) (*emotes.EntrySet, emotes.PackMeta, error)
	WritePack(ctx context.Context, roomID ref.RoomID, entries *emotes.EntrySet, meta emotes.PackMeta) error
}

// Params describes one rollout pass.
type Params struct {
	// Preset is the name of the preset being rolled out, for
	// reporting only.
	Preset string

	// Entries and Meta are the validated pack to write. The
	// coordinator treats them as immutable after Start returns.
	Entries *emotes.EntrySet
	Meta    emotes.PackMeta

	// Targets are room aliases or room IDs, visited in order.
	Targets []string

	// Delay is the pause between consecutive targets. Zero means no
	// pacing.
	Delay time.Duration

	// OnComplete, if set, is called from the rollout goroutine after
	// the coordinator has returned to idle, with the final report.
	OnComplete func(Report)
}

// TargetError records one failed target in a pass.
type TargetError struct {
	Target string
	Err    error
}

func (e TargetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}

func (e TargetError) Unwrap() error { return e.Err }

// Report summarizes a finished pass.
type Report struct {
	Preset      string
	Fingerprint string
	Applied     int
	Skipped     int
	Errors      []TargetError
	Cancelled   bool
	Started     time.Time
	Finished    time.Time
}

// Progress is a point-in-time view of the coordinator, for status
// queries while a pass runs.
type Progress struct {
	Running bool
	Preset  string
	Total   int
	Visited int
	Applied int
	Skipped int
	Failed  int
}

// Coordinator serializes rollout passes. The zero value is not usable;
// construct with New.
type Coordinator struct {
	store  Store
	clock  clock.Clock
	logger *slog.Logger

	mu         sync.Mutex
	running    bool
	cancelled  bool
	progress   Progress
	lastReport *Report
}

// Option adjusts a Coordinator at construction time.
type Option func(*Coordinator)

// WithClock substitutes the clock used for inter-target pacing. Tests
// pass a fake to drive delays deterministically.
func WithClock(c clock.Clock) Option {
	return func(coordinator *Coordinator) { coordinator.clock = c }
}

// WithLogger sets the logger for pass progress.
func WithLogger(logger *slog.Logger) Option {
	return func(coordinator *Coordinator) { coordinator.logger = logger }
}

// New creates an idle coordinator over the given store.
func New(store Store, options ...Option) *Coordinator {
	coordinator := &Coordinator{
		store:  store,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(coordinator)
	}
	return coordinator
}

// Start launches a rollout pass in a background goroutine. It returns
// ErrRolloutRunning if a pass is already in flight; only one pass runs
// at a time, regardless of who asked for it. The context governs the
// whole pass: cancelling it stops the pass at the next room boundary,
// exactly like Cancel.
func (c *Coordinator) Start(ctx context.Context, params Params) error {
	if len(params.Targets) == 0 {
		return ErrNoTargets
	}
	if params.Entries == nil || params.Entries.Len() == 0 {
		return ErrNoEntries
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRolloutRunning
	}
	c.running = true
	c.cancelled = false
	c.progress = Progress{
		Running: true,
		Preset:  params.Preset,
		Total:   len(params.Targets),
	}
	c.mu.Unlock()

	go c.run(ctx, params)
	return nil
}

// Cancel asks the running pass to stop. The flag is checked at the top
// of each per-target step, so the target being processed finishes (or
// fails) normally and no further targets are visited. Rooms already
// written stay written. Returns ErrNoRollout when idle.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return ErrNoRollout
	}
	c.cancelled = true
	return nil
}

// Status returns a snapshot of the running pass, or Running=false with
// zeroed counters when idle.
func (c *Coordinator) Status() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// LastReport returns the report of the most recently finished pass, or
// nil if no pass has finished yet. The returned report is a copy.
func (c *Coordinator) LastReport() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastReport == nil {
		return nil
	}
	report := *c.lastReport
	report.Errors = append([]TargetError(nil), c.lastReport.Errors...)
	return &report
}

func (c *Coordinator) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

func (c *Coordinator) run(ctx context.Context, params Params) {
	report := Report{
		Preset:      params.Preset,
		Fingerprint: emotes.Fingerprint(params.Entries, params.Meta),
		Started:     c.clock.Now(),
	}

	c.logger.Info("rollout started",
		"preset", params.Preset,
		"targets", len(params.Targets),
		"delay", params.Delay,
		"fingerprint", report.Fingerprint)

	for i, target := range params.Targets {
		if c.stopRequested(ctx) {
			report.Cancelled = true
			break
		}

		result := c.apply(ctx, &params, target)
		c.mu.Lock()
		c.progress.Visited++
		switch {
		case result.err != nil:
			report.Errors = append(report.Errors, TargetError{Target: target, Err: result.err})
			c.progress.Failed++
		case result.skipped:
			report.Skipped++
			c.progress.Skipped++
		default:
			report.Applied++
			c.progress.Applied++
		}
		c.mu.Unlock()

		if i == len(params.Targets)-1 {
			break
		}
		if params.Delay > 0 {
			select {
			case <-c.clock.After(params.Delay):
			case <-ctx.Done():
			}
		}
	}

	report.Finished = c.clock.Now()

	c.logger.Info("rollout finished",
		"preset", report.Preset,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", len(report.Errors),
		"cancelled", report.Cancelled)

	c.mu.Lock()
	c.running = false
	c.cancelled = false
	c.progress = Progress{}
	c.lastReport = &report
	c.mu.Unlock()

	if params.OnComplete != nil {
		params.OnComplete(report)
	}
}

type outcome struct {
	skipped bool
	err     error
}

// apply performs the per-target step: resolve, read, compare, write.
// A target already carrying the preset verbatim is skipped, but only
// when the preset names the pack: an unnamed preset cannot claim a
// room's pack as its own, so it always writes.
func (c *Coordinator) apply(ctx context.Context, params *Params, target string) outcome {
	roomID, err := c.store.Resolve(ctx, target)
	if err != nil {
		c.logger.Warn("rollout target failed", "target", target, "stage", "resolve", "error", err)
		return outcome{err: fmt.Errorf("failed to resolve: %w", err)}
	}

	current, currentMeta, err := c.store.ReadPack(ctx, roomID)
	if err != nil {
		c.logger.Warn("rollout target failed", "target", target, "stage", "read", "error", err)
		return outcome{err: fmt.Errorf("failed to read pack: %w", err)}
	}

	displayName := params.Meta.DisplayName()
	if displayName != "" &&
		currentMeta.DisplayName() == displayName &&
		current.Equal(params.Entries) {
		c.logger.Info("rollout target up to date", "target", target, "room", roomID)
		return outcome{skipped: true}
	}

	if err := c.store.WritePack(ctx, roomID, params.Entries, params.Meta); err != nil {
		c.logger.Warn("rollout target failed", "target", target, "stage", "write", "error", err)
		return outcome{err: fmt.Errorf("failed to write pack: %w", err)}
	}
	c.logger.Info("rollout target applied", "target", target, "room", roomID)
	return outcome{}
}
