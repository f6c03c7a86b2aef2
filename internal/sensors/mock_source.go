// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"math"
	"time"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
)

// maxMockBurst caps how many samples one Fetch replays after a stall.
const maxMockBurst = 64

type mockSource struct {
	hz     float64
	period time.Duration
	now    func() time.Time
	start  time.Time
	n      int // samples emitted so far
}

// NewMockSource creates a source that emits a smooth wand-like gesture at
// a fixed rate: gravity on z plus slow circles on x and y.
func NewMockSource(hz float64) accel.Source {
	return newMockSource(hz, time.Now)
}

func newMockSource(hz float64, now func() time.Time) *mockSource {
	return &mockSource{
		hz:     hz,
		period: time.Duration(float64(time.Second) / hz),
		now:    now,
	}
}

func (m *mockSource) SampleRateHz() float64 { return m.hz }

// Fetch returns every sample whose timestamp has passed since the last call.
func (m *mockSource) Fetch(ctx context.Context) ([]accel.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := m.now()
	if m.start.IsZero() {
		m.start = now
	}

	due := int(now.Sub(m.start)/m.period) + 1
	if due-m.n > maxMockBurst {
		m.n = due - maxMockBurst
	}

	var out []accel.Triple
	for ; m.n < due; m.n++ {
		out = append(out, MockTriple(m.n, m.hz))
	}
	return out, nil
}

// MockTriple returns sample n of the synthetic gesture at rate hz.
func MockTriple(n int, hz float64) accel.Triple {
	t := float64(n) / hz
	return accel.Triple{
		X: float32(3 * math.Sin(2*math.Pi*0.8*t)),
		Y: float32(3 * math.Cos(2*math.Pi*0.8*t)),
		Z: float32(standardGravity + 0.5*math.Sin(2*math.Pi*0.3*t)),
	}
}
