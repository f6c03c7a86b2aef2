// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ring provides fixed-capacity circular storage with a single
// write cursor. It is not safe for concurrent use.
package ring

import "fmt"

// Ring overwrites its oldest slot once capacity is exceeded.
type Ring[T any] struct {
	slots   []T
	cursor  int    // next slot to write, always in [0, len(slots))
	written uint64 // total number of Put calls
}

// New allocates a ring holding capacity values.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("ring capacity must be >= 1, got %d", capacity)
	}
	return &Ring[T]{slots: make([]T, capacity)}, nil
}

// Put stores v at the cursor and advances it.
func (r *Ring[T]) Put(v T) {
	r.slots[r.cursor] = v
	r.cursor++
	if r.cursor == len(r.slots) {
		r.cursor = 0
	}
	r.written++
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }

// Cursor returns the slot the next Put will write.
func (r *Ring[T]) Cursor() int { return r.cursor }

// Written returns the number of values stored since creation.
func (r *Ring[T]) Written() uint64 { return r.written }

// Len returns how many slots hold written values.
func (r *Ring[T]) Len() int {
	if r.written >= uint64(len(r.slots)) {
		return len(r.slots)
	}
	return int(r.written)
}

// Index maps an offset relative to the cursor onto a slot.
// Offset -1 is the newest value, -Cap() the oldest retained one.
func (r *Ring[T]) Index(offset int) int {
	n := len(r.slots)
	i := (r.cursor + offset) % n
	if i < 0 {
		i += n
	}
	return i
}

// Last copies the n newest values, oldest first.
// n is clamped to Cap(); unwritten slots read as the zero value.
func (r *Ring[T]) Last(n int) []T {
	if n > len(r.slots) {
		n = len(r.slots)
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.slots[r.Index(i-n)]
	}
	return out
}
