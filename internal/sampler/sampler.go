// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sampler downsamples raw accelerometer readings into a ring and
// materializes the newest readings as flat, oldest-first windows for a
// gesture classifier.
//
// A Sampler has exactly one owner: AcceptRaw and Window must be called from
// the same polling loop, never concurrently.
package sampler

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/ring"
)

const (
	// DefaultCapacity is the number of accepted triples retained.
	DefaultCapacity = 300
	// DefaultPrimeThreshold is the number of accepted triples needed
	// before windows are served.
	DefaultPrimeThreshold = 100
)

var (
	// ErrNotReady means not enough history has been accepted yet.
	// Retry after more samples; nothing is lost.
	ErrNotReady = errors.New("sampler: not primed")

	// ErrInvalidLength means a window length is not a positive multiple of
	// three or needs more triples than the ring holds.
	ErrInvalidLength = errors.New("sampler: invalid window length")
)

// Options configures a Sampler.
type Options struct {
	Capacity       int           // ring capacity in triples
	PrimeThreshold int           // accepted triples before windows are served
	Factor         int           // decimation factor, from rate.DecimationFactor
	AxisMap        accel.AxisMap // sensor channel order -> model order
}

// DefaultOptions returns capacity 300, threshold 100, no decimation and
// identity channel order.
func DefaultOptions() Options {
	return Options{
		Capacity:       DefaultCapacity,
		PrimeThreshold: DefaultPrimeThreshold,
		Factor:         1,
		AxisMap:        accel.AxisMapIdentity,
	}
}

// Stats is a point-in-time view of the sampler counters.
type Stats struct {
	Raw      uint64 `json:"raw"`
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
	Filled   int    `json:"filled"` // slots holding written triples
	Cursor   int    `json:"cursor"`
	Capacity int    `json:"capacity"`
	Factor   int    `json:"factor"`
	Primed   bool   `json:"primed"`
}

// Sampler is a decimating ring of accelerometer triples.
type Sampler struct {
	ring      *ring.Ring[accel.Triple]
	factor    int
	skip      int // raw samples since the last accepted one, in [0, factor)
	threshold uint64
	axes      accel.AxisMap
	primed    bool
	raw       uint64
}

// New validates opts and returns an empty, unprimed sampler.
func New(opts Options) (*Sampler, error) {
	if opts.Factor < 1 {
		return nil, fmt.Errorf("sampler: decimation factor must be >= 1, got %d", opts.Factor)
	}
	if opts.PrimeThreshold < 1 {
		return nil, fmt.Errorf("sampler: prime threshold must be >= 1, got %d", opts.PrimeThreshold)
	}
	if err := opts.AxisMap.Validate(); err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	r, err := ring.New[accel.Triple](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	return &Sampler{
		ring:      r,
		factor:    opts.Factor,
		threshold: uint64(opts.PrimeThreshold),
		axes:      opts.AxisMap,
	}, nil
}

// AcceptRaw feeds one raw reading. Only every Factor-th call, counted by
// calls and not by time, stores the reading and returns true.
func (s *Sampler) AcceptRaw(t accel.Triple) bool {
	s.raw++
	s.skip++
	if s.skip != s.factor {
		return false
	}
	s.skip = 0

	s.ring.Put(s.axes.Apply(t))
	if !s.primed && s.ring.Written() >= s.threshold {
		s.primed = true
	}
	return true
}

// Window returns the newest length/3 triples flattened as x,y,z,x,y,z...
// oldest first. It returns ErrNotReady before priming and ErrInvalidLength
// for lengths it cannot serve; in both cases the slice is nil.
func (s *Sampler) Window(length int) ([]float32, error) {
	if err := s.check(length); err != nil {
		return nil, err
	}
	out := make([]float32, length)
	s.fill(out)
	return out, nil
}

// WindowInto is Window writing into dst, using len(dst) as the length.
// dst is left untouched on error.
func (s *Sampler) WindowInto(dst []float32) error {
	if err := s.check(len(dst)); err != nil {
		return err
	}
	s.fill(dst)
	return nil
}

func (s *Sampler) check(length int) error {
	if length <= 0 || length%3 != 0 {
		return fmt.Errorf("%w: %d is not a positive multiple of 3", ErrInvalidLength, length)
	}
	if n := length / 3; n > s.ring.Cap() {
		return fmt.Errorf("%w: %d triples requested, ring holds %d", ErrInvalidLength, n, s.ring.Cap())
	}
	if !s.primed {
		return ErrNotReady
	}
	return nil
}

func (s *Sampler) fill(dst []float32) {
	for i, t := range s.ring.Last(len(dst) / 3) {
		dst[3*i] = t.X
		dst[3*i+1] = t.Y
		dst[3*i+2] = t.Z
	}
}

// Primed reports whether windows can be served. Once true it stays true.
func (s *Sampler) Primed() bool { return s.primed }

// Factor returns the decimation factor.
func (s *Sampler) Factor() int { return s.factor }

// Capacity returns the ring capacity in triples.
func (s *Sampler) Capacity() int { return s.ring.Cap() }

// Stats returns the counters and ring position.
func (s *Sampler) Stats() Stats {
	accepted := s.ring.Written()
	return Stats{
		Raw:      s.raw,
		Accepted: accepted,
		Dropped:  s.raw - accepted,
		Filled:   s.ring.Len(),
		Cursor:   s.ring.Cursor(),
		Capacity: s.ring.Cap(),
		Factor:   s.factor,
		Primed:   s.primed,
	}
}
