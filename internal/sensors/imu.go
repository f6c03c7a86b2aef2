// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/config"
)

// NewSource builds the accelerometer source selected by cfg.Source.
// Every source it returns also implements accel.RateReporter.
func NewSource(cfg *config.Config, log *zap.Logger) (accel.Source, error) {
	switch cfg.Source {
	case config.SourceMPU9250:
		src, err := NewIMUSource(IMUOptions{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			OutputHz:   cfg.IMUOutputHz,
		}, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceSerial:
		src, err := NewSerialSource(SerialOptions{
			PortName: cfg.SerialPort,
			BaudRate: cfg.SerialBaudRate,
			SampleHz: cfg.SerialSampleHz,
		}, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceMock:
		log.Info("using mock accelerometer source", zap.Float64("sample_hz", cfg.MockSampleHz))
		return NewMockSource(cfg.MockSampleHz), nil
	default:
		return nil, fmt.Errorf("%w: %q", accel.ErrNoSource, cfg.Source)
	}
}
