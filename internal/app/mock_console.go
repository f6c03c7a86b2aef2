// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/config"
	"github.com/relabs-tech/gesture_sampler/internal/sensors"
)

// consoleSink prints one line per window.
type consoleSink struct {
	out io.Writer
}

func (c consoleSink) Consume(_ context.Context, w Window) error {
	_, err := fmt.Fprintln(c.out, FormatWindow(w))
	return err
}

// RunMockConsole runs the sampler on the synthetic gesture source and prints
// windows to out. No hardware or broker is needed.
func RunMockConsole(ctx context.Context, cfg *config.Config, out io.Writer, log *zap.Logger) error {
	src := sensors.NewMockSource(cfg.MockSampleHz)

	smp, rateHz, err := NewSampler(cfg, src, log)
	if err != nil {
		return err
	}

	acq, err := NewAcquirer(src, smp, AcquirerOptions{
		WindowLength:     cfg.WindowLength,
		WindowStride:     cfg.WindowStride,
		PollInterval:     time.Duration(cfg.PollInterval) * time.Millisecond,
		MaxFetchFailures: cfg.MaxFetchFailures,
		RateHz:           rateHz,
	}, log, consoleSink{out: out})
	if err != nil {
		return err
	}
	return acq.Run(ctx)
}
