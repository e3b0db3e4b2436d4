// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the knapsack CLI configuration file.
package config

import (
	"time"

	"github.com/AleutianAI/knapsack/pkg/logging"
	"github.com/AleutianAI/knapsack/services/knapsack"
	"github.com/AleutianAI/knapsack/services/knapsack/archive"
	"github.com/AleutianAI/knapsack/services/knapsack/bench"
	"github.com/AleutianAI/knapsack/services/knapsack/telemetry"
)

// EnvPath names the environment variable consulted when no --config flag
// is given.
const EnvPath = "KNAPSACK_CONFIG"

const (
	// DefaultPath is where `knapsack config init` writes a new file.
	DefaultPath = "~/.knapsack/knapsack.yaml"

	// DefaultArchivePath holds benchmark history and baselines.
	DefaultArchivePath = "~/.knapsack/archive"
)

// Config is the top-level configuration file.
type Config struct {
	Logging   logging.Config   `yaml:"logging"`
	Benchmark bench.Config     `yaml:"benchmark"`
	Limits    knapsack.Limits  `yaml:"limits"`
	Archive   ArchiveConfig    `yaml:"archive"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Server    ServerConfig     `yaml:"server"`
	Suite     SuiteConfig      `yaml:"suite"`
}

// ArchiveConfig locates the baseline archive.
type ArchiveConfig struct {
	archive.Config `yaml:",inline"`
}

// ServerConfig configures `knapsack serve`.
type ServerConfig struct {
	// Port is the listen port.
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// RateLimit is the sustained benchmark requests per second. Zero
	// disables throttling.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// Burst is the number of benchmark requests allowed at once.
	Burst int `yaml:"burst" validate:"gte=1"`

	// MaxItems rejects larger request instances. Zero means unlimited.
	MaxItems int `yaml:"max_items" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// SuiteConfig configures `knapsack suite`.
type SuiteConfig struct {
	// Parallelism is the number of files solved at once. Zero means one
	// per CPU.
	Parallelism int `yaml:"parallelism" validate:"gte=0"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Logging: logging.Config{
			Level:   logging.LevelInfo,
			Service: "knapsack",
		},
		Benchmark: bench.DefaultConfig(),
		Limits:    knapsack.DefaultLimits(),
		Archive: ArchiveConfig{
			Config: archive.DefaultConfig(expandHome(DefaultArchivePath)),
		},
		Telemetry: telemetry.DefaultConfig(),
		Server: ServerConfig{
			Port:            8090,
			RateLimit:       1,
			Burst:           2,
			MaxItems:        100_000,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
