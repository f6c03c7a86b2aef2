// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accel

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Triple represents a single 3-axis accelerometer reading in m/s².
type Triple struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// ErrNoSource is returned when a configured source kind is unknown.
var ErrNoSource = errors.New("accel: unknown source")

// Source is anything that can provide raw accelerometer readings.
//
// Fetch returns zero or more triples in arrival order. An empty slice with a
// nil error means no data was available this call; it is not a failure.
type Source interface {
	Fetch(ctx context.Context) ([]Triple, error)
}

// RateReporter is implemented by sources that know their achieved
// hardware sampling frequency.
type RateReporter interface {
	SampleRateHz() float64
}

// AxisMap is a fixed permutation from sensor channel order to model order:
// model axis i reads sensor channel AxisMap[i].
type AxisMap [3]int

var (
	// AxisMapIdentity keeps the sensor channel order.
	AxisMapIdentity = AxisMap{0, 1, 2}
	// AxisMapZYX is the board wiring the gesture model was trained on:
	// model x = sensor z, model y = sensor y, model z = sensor x.
	AxisMapZYX = AxisMap{2, 1, 0}
)

// Validate checks that m is a permutation of {0, 1, 2}.
func (m AxisMap) Validate() error {
	var seen [3]bool
	for i, ch := range m {
		if ch < 0 || ch > 2 {
			return fmt.Errorf("axis map: model axis %d reads channel %d, want 0-2", i, ch)
		}
		if seen[ch] {
			return fmt.Errorf("axis map: channel %d used twice", ch)
		}
		seen[ch] = true
	}
	return nil
}

// Apply remaps t from sensor order to model order.
func (m AxisMap) Apply(t Triple) Triple {
	ch := [3]float32{t.X, t.Y, t.Z}
	return Triple{X: ch[m[0]], Y: ch[m[1]], Z: ch[m[2]]}
}

func (m AxisMap) String() string {
	const names = "xyz"
	return string([]byte{names[m[0]], names[m[1]], names[m[2]]})
}

// ParseAxisMap parses a three-letter channel order such as "xyz" or "zyx".
// Letter i names the sensor channel that feeds model axis i.
func ParseAxisMap(s string) (AxisMap, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 3 {
		return AxisMap{}, fmt.Errorf("axis map %q: want three letters from x, y, z", s)
	}
	var m AxisMap
	for i := 0; i < 3; i++ {
		switch s[i] {
		case 'x':
			m[i] = 0
		case 'y':
			m[i] = 1
		case 'z':
			m[i] = 2
		default:
			return AxisMap{}, fmt.Errorf("axis map %q: invalid letter %q", s, s[i])
		}
	}
	if err := m.Validate(); err != nil {
		return AxisMap{}, fmt.Errorf("axis map %q: %w", s, err)
	}
	return m, nil
}
