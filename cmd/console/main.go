// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/app"
	"github.com/relabs-tech/gesture_sampler/internal/config"
	"github.com/relabs-tech/gesture_sampler/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "optional configuration file; defaults are used when empty")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "gesture-console-mock")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	lg.Info("starting gesture sampler (mock console)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, cfg, os.Stdout, lg); err != nil {
		lg.Fatal("fatal", zap.Error(err))
	}
}
