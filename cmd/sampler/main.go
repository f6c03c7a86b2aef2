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
	configPath := flag.String("config", "./sampler_config.txt", "path to configuration file")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "gesture-sampler")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	lg.Info("starting gesture sampler (accelerometer → window)", zap.String("config", *configPath))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunSampler(ctx, cfg, lg); err != nil {
		lg.Fatal("fatal", zap.Error(err))
	}
	lg.Info("gesture sampler stopped")
}
