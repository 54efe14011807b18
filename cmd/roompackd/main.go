// Copyright 2026 The Roompack Authors
// SPDX-License-Identifier: Apache-2.0

// roompackd is the emote pack daemon: it validates the configured
// presets, connects to the homeserver, answers in-room commands, and
// serves the local control socket for roompackctl.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/roompack/roompack/bot"
	"github.com/roompack/roompack/lib/config"
	"github.com/roompack/roompack/lib/ref"
	"github.com/roompack/roompack/lib/secret"
	"github.com/roompack/roompack/messaging"
	"github.com/roompack/roompack/packstore"
	"github.com/roompack/roompack/preset"
	"github.com/roompack/roompack/rollout"
)

const version = "0.3.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to roompack.yaml (default: $ROOMPACK_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("roompackd %s\n", version)
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Assemble and validate the preset library up front. A typo in a
	// preset file should kill the daemon at startup, not the first
	// rollout attempt at 3am.
	library, err := cfg.PresetLibrary()
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	for _, name := range library.Names() {
		definition, err := library.Resolve(name)
		if err != nil {
			return err
		}
		_, _, warnings, err := preset.Validate(definition)
		if err != nil {
			return fmt.Errorf("preset %q: %w", name, err)
		}
		for _, warning := range warnings {
			logger.Warn("preset has invalid entries", "preset", name, "warning", warning)
		}
	}
	logger.Info("presets loaded", "presets", library.Names())

	userID, err := ref.ParseUserID(cfg.Matrix.UserID)
	if err != nil {
		return err
	}
	allowedUsers, err := cfg.Bot.AllowedUserIDs()
	if err != nil {
		return err
	}
	delay, err := cfg.Rollout.DelayDuration()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := messaging.NewClient(messaging.ClientConfig{
		HomeserverURL: cfg.Matrix.HomeserverURL,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	var session *messaging.DirectSession
	if cfg.Matrix.PasswordFile != "" {
		password, err := secret.ReadFromPath(cfg.Matrix.PasswordFile)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		session, err = client.Login(ctx, userID.String(), password)
		password.Close()
		if err != nil {
			return err
		}
		logger.Info("password login complete", "device_id", session.DeviceID())
	} else {
		token, err := secret.ReadFromPath(cfg.Matrix.AccessTokenFile)
		if err != nil {
			return fmt.Errorf("reading access token: %w", err)
		}
		session, err = client.SessionFromToken(userID, token.String())
		token.Close()
		if err != nil {
			return err
		}
	}
	defer session.Close()

	// Verify the credentials before entering the loops.
	whoami, err := session.WhoAmI(ctx)
	if err != nil {
		return fmt.Errorf("validating session: %w", err)
	}
	if whoami != userID {
		return fmt.Errorf("credentials belong to %s, config says %s", whoami, userID)
	}
	logger.Info("matrix session validated", "user_id", whoami)

	store := packstore.New(session, logger)
	coordinator := rollout.New(store, rollout.WithLogger(logger))

	commandBot := bot.New(session, store, coordinator, library, bot.Options{
		Prefix:       cfg.Bot.CommandPrefix,
		AllowedUsers: allowedUsers,
		Targets:      cfg.Rollout.Targets,
		Delay:        delay,
		Logger:       logger,
	})

	if cfg.Control.SocketPath != "" {
		listener, err := listenSocket(cfg.Control.SocketPath)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.Control.SocketPath, err)
		}
		defer listener.Close()
		logger.Info("control socket listening", "socket", cfg.Control.SocketPath)

		control := &controlServer{
			coordinator: coordinator,
			library:     library,
			rooms:       store,
			targets:     cfg.Rollout.Targets,
			delay:       delay,
			logger:      logger,
		}
		go control.serve(ctx, listener)
	}

	botErr := make(chan error, 1)
	go func() { botErr <- commandBot.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-botErr:
		if err != nil {
			return fmt.Errorf("command loop: %w", err)
		}
		return nil
	}
}

// listenSocket creates a unix socket listener, removing any stale
// socket file from a previous run.
func listenSocket(socketPath string) (net.Listener, error) {
	socketDir := filepath.Dir(socketPath)
	if err := os.MkdirAll(socketDir, 0755); err != nil {
		return nil, fmt.Errorf("creating socket directory %s: %w", socketDir, err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", socketPath, err)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, err
	}
	// The socket is an admin surface: owner-only.
	if err := os.Chmod(socketPath, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	return listener, nil
}
