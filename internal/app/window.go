// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Window is one materialized classifier input as published to consumers.
type Window struct {
	ID      string    `json:"id"`
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Factor  int       `json:"factor"`
	RateHz  float64   `json:"rate_hz"` // rate of the kept samples
	Samples []float32 `json:"samples"` // x,y,z,x,y,z... oldest first
}

// Triples returns how many readings the window holds.
func (w Window) Triples() int { return len(w.Samples) / 3 }

// Newest returns the most recent reading.
func (w Window) Newest() (x, y, z float32) {
	n := len(w.Samples)
	if n < 3 {
		return 0, 0, 0
	}
	return w.Samples[n-3], w.Samples[n-2], w.Samples[n-1]
}

// PeakMagnitude returns the largest |a| in the window.
func (w Window) PeakMagnitude() float64 {
	var peak float64
	for i := 0; i+2 < len(w.Samples); i += 3 {
		x, y, z := float64(w.Samples[i]), float64(w.Samples[i+1]), float64(w.Samples[i+2])
		if m := math.Sqrt(x*x + y*y + z*z); m > peak {
			peak = m
		}
	}
	return peak
}

// WindowSink hands windows to a classification consumer.
// Sinks must not modify w.Samples.
type WindowSink interface {
	Consume(ctx context.Context, w Window) error
}

// LogSink logs a one-line summary per window at debug level.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Consume(_ context.Context, w Window) error {
	x, y, z := w.Newest()
	s.Log.Debug("window",
		zap.Uint64("seq", w.Seq),
		zap.Int("triples", w.Triples()),
		zap.Float64("peak", w.PeakMagnitude()),
		zap.Float32("x", x),
		zap.Float32("y", y),
		zap.Float32("z", z),
	)
	return nil
}
