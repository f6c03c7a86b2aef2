// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/sampler"
)

// sinkTimeout bounds how long a single sink may take per window.
const sinkTimeout = 2 * time.Second

// AcquirerOptions configures the polling loop.
type AcquirerOptions struct {
	WindowLength     int           // floats per window
	WindowStride     int           // accepted triples between windows
	PollInterval     time.Duration // time between Fetch calls
	MaxFetchFailures int           // consecutive failures before Run returns
	RateHz           float64       // achieved rate of kept samples, informational
}

// Acquirer is the single polling loop that owns a Sampler: it pulls raw
// triples from a source, feeds them in, and hands windows to sinks.
type Acquirer struct {
	src   accel.Source
	smp   *sampler.Sampler
	sinks []WindowSink
	opts  AcquirerOptions
	log   *zap.Logger

	failures    int
	sinceWindow int
	seq         uint64

	mu     sync.RWMutex
	stats  sampler.Stats
	latest *Window
}

// NewAcquirer checks that the sampler can serve opts.WindowLength.
func NewAcquirer(src accel.Source, smp *sampler.Sampler, opts AcquirerOptions, log *zap.Logger, sinks ...WindowSink) (*Acquirer, error) {
	if opts.WindowLength <= 0 || opts.WindowLength%3 != 0 || opts.WindowLength/3 > smp.Capacity() {
		return nil, fmt.Errorf("%w: window length %d with ring capacity %d",
			sampler.ErrInvalidLength, opts.WindowLength, smp.Capacity())
	}
	if opts.WindowStride < 1 {
		opts.WindowStride = 1
	}
	if opts.MaxFetchFailures < 1 {
		opts.MaxFetchFailures = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	return &Acquirer{
		src:   src,
		smp:   smp,
		sinks: sinks,
		opts:  opts,
		log:   log,
		stats: smp.Stats(),
	}, nil
}

// Run polls until ctx is done or the source keeps failing.
// A cancelled context is a clean stop and returns nil.
func (a *Acquirer) Run(ctx context.Context) error {
	a.log.Info("acquisition started",
		zap.Int("factor", a.smp.Factor()),
		zap.Int("capacity", a.smp.Capacity()),
		zap.Int("window_length", a.opts.WindowLength),
		zap.Int("window_stride", a.opts.WindowStride),
		zap.Duration("poll_interval", a.opts.PollInterval),
	)

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("acquisition stopped", zap.Any("stats", a.Stats()))
			return nil
		case <-ticker.C:
			if err := a.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// Poll performs one fetch and processes everything it returned.
// Isolated fetch failures are logged; it returns an error once
// MaxFetchFailures happen in a row.
func (a *Acquirer) Poll(ctx context.Context) error {
	triples, err := a.src.Fetch(ctx)
	if err != nil {
		a.failures++
		if a.failures >= a.opts.MaxFetchFailures {
			return fmt.Errorf("fetch failed %d times in a row: %w", a.failures, err)
		}
		a.log.Warn("fetch failed", zap.Int("consecutive", a.failures), zap.Error(err))
		return nil
	}
	a.failures = 0

	for _, t := range triples {
		if !a.smp.AcceptRaw(t) {
			continue
		}
		a.sinceWindow++
		if a.sinceWindow < a.opts.WindowStride {
			continue
		}
		if err := a.emit(ctx); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.stats = a.smp.Stats()
	a.mu.Unlock()
	return nil
}

func (a *Acquirer) emit(ctx context.Context) error {
	samples, err := a.smp.Window(a.opts.WindowLength)
	if errors.Is(err, sampler.ErrNotReady) {
		// retried on the next accepted sample
		a.log.Debug("window not ready", zap.Uint64("accepted", a.smp.Stats().Accepted))
		return nil
	}
	if err != nil {
		return err
	}
	a.sinceWindow = 0
	a.seq++

	w := Window{
		ID:      uuid.NewString(),
		Seq:     a.seq,
		Time:    time.Now().UTC(),
		Factor:  a.smp.Factor(),
		RateHz:  a.opts.RateHz,
		Samples: samples,
	}

	a.mu.Lock()
	a.latest = &w
	a.mu.Unlock()

	for _, sink := range a.sinks {
		sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := sink.Consume(sctx, w); err != nil {
			a.log.Warn("sink rejected window", zap.Uint64("seq", w.Seq), zap.Error(err))
		}
		cancel()
	}
	return nil
}

// Stats returns the sampler counters as of the last Poll.
// Safe to call from other goroutines.
func (a *Acquirer) Stats() sampler.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// Latest returns the most recent window, if any.
// Safe to call from other goroutines.
func (a *Acquirer) Latest() (Window, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return Window{}, false
	}
	return *a.latest, true
}
