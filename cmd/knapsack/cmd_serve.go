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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/knapsack/pkg/logging"
	"github.com/AleutianAI/knapsack/services/knapsack/api"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

type serveFlags struct {
	port      int
	inMemory  bool
	noArchive bool
}

func newServeCmd(a *app) *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solve and benchmark HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = flags.port
			}
			if flags.inMemory {
				a.cfg.Archive.InMemory = true
			}
			return a.runServe(cmd, flags)
		},
	}
	cmd.Flags().IntVar(&flags.port, "port", 0, "Listen port (default from configuration)")
	cmd.Flags().BoolVar(&flags.inMemory, "in-memory", false, "Keep the archive in memory")
	cmd.Flags().BoolVar(&flags.noArchive, "no-archive", false, "Disable baselines and run history")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, flags serveFlags) error {
	if a.cfg.Logging.Level != logging.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	svcCfg := api.DefaultServiceConfig()
	svcCfg.Limits = a.cfg.Limits
	svcCfg.Bench = a.cfg.Benchmark
	svcCfg.MaxItems = a.cfg.Server.MaxItems
	opts := []api.ServiceOption{api.WithMetrics(a.metrics), api.WithLogger(a.logger)}

	if !flags.noArchive {
		store, err := a.openArchive()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, api.WithArchive(store))
	}

	var limiter *rate.Limiter
	if a.cfg.Server.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.cfg.Server.RateLimit), a.cfg.Server.Burst)
	}

	svc := api.NewService(svcCfg, opts...)
	router := api.NewRouter(api.NewHandlers(svc, limiter), a.metrics, a.cfg.Telemetry.ServiceName)
	srv := api.NewServer(fmt.Sprintf(":%d", a.cfg.Server.Port), router, a.logger)
	srv.SetShutdownTimeout(a.cfg.Server.ShutdownTimeout)

	a.logger.Info("Starting knapsack server",
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("archive", svc.HasArchive()),
		slog.Float64("benchmark_rate_limit", a.cfg.Server.RateLimit),
	)
	return srv.Run(cmd.Context())
}
