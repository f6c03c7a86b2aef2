// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
)

const standardGravity = 9.80665 // m/s²

// accelLSBPerG is the accelerometer sensitivity per IMU_ACCEL_RANGE code.
var accelLSBPerG = [4]float64{16384, 8192, 4096, 2048}

// accelReader is the part of *mpu9250.MPU9250 the source needs.
type accelReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
}

// IMUOptions configures an MPU9250 accelerometer source.
type IMUOptions struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte    // 0=±2g, 1=±4g, 2=±8g, 3=±16g
	OutputHz   float64 // rate the registers are read at
}

// IMUSource reads the MPU9250 accelerometer registers over SPI.
//
// The data registers only hold the latest conversion, so Fetch returns at
// most one triple per output period and nothing if called early.
type IMUSource struct {
	dev    accelReader
	scale  float64 // m/s² per LSB
	period time.Duration
	hz     float64
	now    func() time.Time
	next   time.Time
	log    *zap.Logger
}

// NewIMUSource initializes the MPU9250 and sets its accelerometer range.
func NewIMUSource(opts IMUOptions, log *zap.Logger) (*IMUSource, error) {
	if opts.AccelRange > 3 {
		return nil, fmt.Errorf("IMU: accel range %d out of 0-3", opts.AccelRange)
	}
	if opts.OutputHz <= 0 {
		return nil, fmt.Errorf("IMU: output rate must be > 0 Hz, got %v", opts.OutputHz)
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	log.Info("IMU accelerometer configured",
		zap.String("spi", opts.SPIDevice),
		zap.String("cs", opts.CSPin),
		zap.Int("range_g", []int{2, 4, 8, 16}[opts.AccelRange]),
		zap.Float64("output_hz", opts.OutputHz),
	)

	return newIMUSource(dev, opts, time.Now, log), nil
}

func newIMUSource(dev accelReader, opts IMUOptions, now func() time.Time, log *zap.Logger) *IMUSource {
	return &IMUSource{
		dev:    dev,
		scale:  standardGravity / accelLSBPerG[opts.AccelRange],
		period: time.Duration(float64(time.Second) / opts.OutputHz),
		hz:     opts.OutputHz,
		now:    now,
		log:    log,
	}
}

// SampleRateHz returns the configured register read rate.
func (s *IMUSource) SampleRateHz() float64 { return s.hz }

// Fetch reads one triple once the next output period has started.
func (s *IMUSource) Fetch(ctx context.Context) ([]accel.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	if !s.next.IsZero() && now.Before(s.next) {
		return nil, nil
	}
	if s.next.IsZero() {
		s.next = now
	}
	// skip periods missed by a slow poller instead of replaying them
	for !s.next.After(now) {
		s.next = s.next.Add(s.period)
	}

	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return nil, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return nil, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return nil, fmt.Errorf("IMU accel Z: %w", err)
	}

	return []accel.Triple{{
		X: float32(float64(ax) * s.scale),
		Y: float32(float64(ay) * s.scale),
		Z: float32(float64(az) * s.scale),
	}}, nil
}
