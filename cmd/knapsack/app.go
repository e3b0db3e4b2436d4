// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/AleutianAI/knapsack/cmd/knapsack/config"
	"github.com/AleutianAI/knapsack/pkg/logging"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/AleutianAI/knapsack/services/knapsack/telemetry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
)

// app carries what every command shares: configuration, logger,
// telemetry and the output streams.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// persistent flags
	configPath  string
	logLevel    string
	archivePath string

	cfg      config.Config
	log      *logging.Logger
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	shutdown func(context.Context) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, logger: slog.Default()}
}

// setup loads configuration and starts logging and telemetry. It runs
// before every command.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, path, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		level, err := logging.ParseLevel(a.logLevel)
		if err != nil {
			return err
		}
		cfg.Logging.Level = level
	}
	if a.archivePath != "" {
		cfg.Archive.Path = a.archivePath
	}
	if cfg.Logging.Writer == nil {
		cfg.Logging.Writer = a.stderr
	}

	lg, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.log = lg
	a.logger = lg.Slog()
	slog.SetDefault(a.logger)
	if path != "" {
		a.logger.Debug("Loaded configuration", slog.String("path", path))
	}

	shutdown, err := telemetry.Init(cmd.Context(), cfg.Telemetry)
	if err != nil {
		return err
	}
	a.shutdown = shutdown

	metrics, err := telemetry.NewMetrics(otel.Meter(cfg.Telemetry.ServiceName))
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}
	a.metrics = metrics
	a.cfg = cfg
	return nil
}

// openArchive opens the configured archive. The caller closes it.
func (a *app) openArchive() (*archive.Store, error) {
	cfg := a.cfg.Archive.Config
	cfg.Logger = a.logger
	store, err := archive.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", cfg.Path, err)
	}
	return store, nil
}

// close flushes telemetry and the log file.
func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdown(ctx); err != nil {
			a.logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
		cancel()
		a.shutdown = nil
	}
	if a.log != nil {
		_ = a.log.Close()
		a.log = nil
	}
}
