// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/config"
	"github.com/relabs-tech/gesture_sampler/internal/rate"
	"github.com/relabs-tech/gesture_sampler/internal/sampler"
	"github.com/relabs-tech/gesture_sampler/internal/sensors"
)

// RunSampler wires source, sampler and sinks from cfg and runs until ctx
// is done or acquisition fails.
func RunSampler(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	src, err := sensors.NewSource(cfg, log)
	if err != nil {
		return fmt.Errorf("accelerometer source: %w", err)
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	smp, rateHz, err := NewSampler(cfg, src, log)
	if err != nil {
		return err
	}

	hub := NewHub(log)
	sinks := []WindowSink{LogSink{Log: log}, hub}

	if cfg.MQTTBroker != "" {
		client, err := ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDSampler)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		log.Info("connected to MQTT", zap.String("broker", cfg.MQTTBroker), zap.String("topic", cfg.TopicWindow))
		sinks = append(sinks, NewMQTTSink(client, cfg.TopicWindow))
	}

	acq, err := NewAcquirer(src, smp, AcquirerOptions{
		WindowLength:     cfg.WindowLength,
		WindowStride:     cfg.WindowStride,
		PollInterval:     time.Duration(cfg.PollInterval) * time.Millisecond,
		MaxFetchFailures: cfg.MaxFetchFailures,
		RateHz:           rateHz,
	}, log, sinks...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return acq.Run(gctx) })

	if cfg.WebServerPort != 0 {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
			Handler: NewWebHandler(hub, acq, log),
		}
		g.Go(func() error {
			log.Info("web server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// NewSampler derives the decimation factor from the source rate and
// cfg.TargetHz and builds the sampler. It also returns the rate of the
// kept samples.
func NewSampler(cfg *config.Config, src accel.Source, log *zap.Logger) (*sampler.Sampler, float64, error) {
	rr, ok := src.(accel.RateReporter)
	if !ok {
		return nil, 0, fmt.Errorf("source %T does not report its sampling rate", src)
	}
	actualHz := rr.SampleRateHz()

	factor, err := rate.DecimationFactor(cfg.TargetHz, actualHz)
	switch {
	case rate.IsWarning(err):
		log.Warn("running at reduced fidelity", zap.Error(err))
	case err != nil:
		return nil, 0, err
	}

	smp, err := sampler.New(sampler.Options{
		Capacity:       cfg.RingCapacity,
		PrimeThreshold: cfg.PrimeThreshold,
		Factor:         factor,
		AxisMap:        cfg.AxisMap,
	})
	if err != nil {
		return nil, 0, err
	}

	if triples := cfg.WindowLength / 3; cfg.PrimeThreshold < triples {
		log.Warn("prime threshold is below the window size; early windows start with zero-valued triples",
			zap.Int("prime_threshold", cfg.PrimeThreshold),
			zap.Int("window_triples", triples),
		)
	}

	effective := rate.Effective(actualHz, factor)
	log.Info("sampler configured",
		zap.Float64("hardware_hz", actualHz),
		zap.Float64("target_hz", cfg.TargetHz),
		zap.Int("factor", factor),
		zap.Float64("effective_hz", effective),
		zap.Stringer("axis_map", cfg.AxisMap),
		zap.Int("capacity", cfg.RingCapacity),
		zap.Int("prime_threshold", cfg.PrimeThreshold),
	)
	return smp, effective, nil
}
