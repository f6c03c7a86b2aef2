// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rate converts a hardware sampling frequency into the integer
// decimation factor needed to reach an application rate.
package rate

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTargetAboveHardware is a non-fatal warning: the requested rate is
	// higher than the sensor delivers, so every sample is kept.
	ErrTargetAboveHardware = errors.New("requested rate exceeds hardware rate")

	// ErrInvalidFrequency is returned for non-positive or non-finite rates.
	ErrInvalidFrequency = errors.New("invalid sampling frequency")
)

// DecimationFactor returns how many raw samples are consumed per kept sample.
//
// The ratio actualHz/targetHz is rounded half away from zero (math.Round)
// and clamped to at least 1. When targetHz exceeds actualHz the factor is 1
// and ErrTargetAboveHardware is returned alongside it; the factor is still
// valid. Any other error leaves the factor at 0.
func DecimationFactor(targetHz, actualHz float64) (int, error) {
	if !valid(targetHz) || !valid(actualHz) {
		return 0, fmt.Errorf("%w: target=%v Hz actual=%v Hz", ErrInvalidFrequency, targetHz, actualHz)
	}

	switch {
	case targetHz > actualHz:
		return 1, fmt.Errorf("%w: target=%.2f Hz actual=%.2f Hz", ErrTargetAboveHardware, targetHz, actualHz)
	case targetHz == actualHz:
		return 1, nil
	}

	factor := int(math.Round(actualHz / targetHz))
	if factor < 1 {
		factor = 1
	}
	return factor, nil
}

// IsWarning reports whether err from DecimationFactor is recoverable.
func IsWarning(err error) bool {
	return errors.Is(err, ErrTargetAboveHardware)
}

// Effective returns the application rate actually achieved with factor.
func Effective(actualHz float64, factor int) float64 {
	if factor < 1 {
		return 0
	}
	return actualHz / float64(factor)
}

func valid(hz float64) bool {
	return hz > 0 && !math.IsInf(hz, 0) && !math.IsNaN(hz)
}
