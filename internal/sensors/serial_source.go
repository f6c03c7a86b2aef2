// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
)

// serialBacklog bounds how many parsed triples wait for the next Fetch.
const serialBacklog = 1024

// SerialOptions configures a serial accelerometer bridge.
type SerialOptions struct {
	PortName string
	BaudRate int
	SampleHz float64 // nominal rate the bridge streams at
}

// SerialSource reads "x,y,z" text lines from a microcontroller forwarding
// accelerometer samples over a USB-ACM or UART port. Whitespace works as a
// separator too. Lines that do not parse are skipped.
type SerialSource struct {
	port io.ReadCloser
	hz   float64
	log  *zap.Logger

	samples chan accel.Triple

	mu      sync.Mutex
	readErr error
	skipped int
}

// NewSerialSource opens the port and starts reading lines in the background.
func NewSerialSource(opts SerialOptions, log *zap.Logger) (*SerialSource, error) {
	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", opts.PortName, err)
	}
	log.Info("serial port opened",
		zap.String("port", opts.PortName),
		zap.Int("baud", opts.BaudRate),
		zap.Float64("sample_hz", opts.SampleHz),
	)

	return newSerialSource(port, opts.SampleHz, log), nil
}

func newSerialSource(port io.ReadCloser, hz float64, log *zap.Logger) *SerialSource {
	s := &SerialSource{
		port:    port,
		hz:      hz,
		log:     log,
		samples: make(chan accel.Triple, serialBacklog),
	}
	go s.readLoop()
	return s
}

func (s *SerialSource) readLoop() {
	defer close(s.samples)

	reader := bufio.NewReader(s.port)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if t, perr := ParseTripleLine(line); perr != nil {
				s.mu.Lock()
				s.skipped++
				s.mu.Unlock()
				s.log.Debug("serial: skipping line", zap.String("line", line), zap.Error(perr))
			} else {
				select {
				case s.samples <- t:
				default:
					s.log.Warn("serial: backlog full, dropping sample")
				}
			}
		}
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
	}
}

// SampleRateHz returns the configured nominal rate of the bridge.
func (s *SerialSource) SampleRateHz() float64 { return s.hz }

// Fetch drains the triples parsed since the last call without blocking.
// Once the port fails and the backlog is empty it returns the read error.
func (s *SerialSource) Fetch(ctx context.Context) ([]accel.Triple, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []accel.Triple
	for {
		select {
		case t, ok := <-s.samples:
			if !ok {
				if len(out) > 0 {
					return out, nil
				}
				s.mu.Lock()
				err := s.readErr
				s.mu.Unlock()
				return nil, fmt.Errorf("serial read: %w", err)
			}
			out = append(out, t)
		default:
			return out, nil
		}
	}
}

// Skipped returns how many unparsable lines were discarded.
func (s *SerialSource) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Close closes the port, which also stops the reader.
func (s *SerialSource) Close() error {
	s.log.Info("serial port closed", zap.Int("skipped_lines", s.Skipped()))
	return s.port.Close()
}

// ParseTripleLine parses "x,y,z" or "x y z" into a triple.
func ParseTripleLine(line string) (accel.Triple, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t'
	})
	if len(fields) != 3 {
		return accel.Triple{}, fmt.Errorf("want 3 fields, got %d", len(fields))
	}
	var v [3]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return accel.Triple{}, fmt.Errorf("field %d: %w", i, err)
		}
		v[i] = float32(x)
	}
	return accel.Triple{X: v[0], Y: v[1], Z: v[2]}, nil
}
