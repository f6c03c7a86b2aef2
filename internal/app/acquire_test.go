package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
	"github.com/relabs-tech/gesture_sampler/internal/sampler"
)

type fetchResult struct {
	triples []accel.Triple
	err     error
}

// scriptedSource returns its results in order, then no data forever.
type scriptedSource struct {
	mu      sync.Mutex
	results []fetchResult
}

func (s *scriptedSource) Fetch(context.Context) ([]accel.Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.results) == 0 {
		return nil, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.triples, r.err
}

type recordingSink struct {
	mu      sync.Mutex
	windows []Window
	err     error
}

func (r *recordingSink) Consume(_ context.Context, w Window) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
	return r.err
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

func ramp(from, to int) []accel.Triple {
	var out []accel.Triple
	for n := from; n <= to; n++ {
		out = append(out, accel.Triple{X: float32(n), Y: -float32(n), Z: 1})
	}
	return out
}

func newTestAcquirer(t *testing.T, src accel.Source, factor int, opts AcquirerOptions, sinks ...WindowSink) (*Acquirer, *sampler.Sampler) {
	t.Helper()
	smp, err := sampler.New(sampler.Options{
		Capacity:       20,
		PrimeThreshold: 5,
		Factor:         factor,
		AxisMap:        accel.AxisMapIdentity,
	})
	require.NoError(t, err)
	a, err := NewAcquirer(src, smp, opts, zap.NewNop(), sinks...)
	require.NoError(t, err)
	return a, smp
}

func TestNewAcquirerRejectsBadWindow(t *testing.T) {
	smp, err := sampler.New(sampler.DefaultOptions())
	require.NoError(t, err)

	for _, length := range []int{0, 10, 3*sampler.DefaultCapacity + 3} {
		_, err := NewAcquirer(&scriptedSource{}, smp, AcquirerOptions{WindowLength: length}, zap.NewNop())
		require.ErrorIs(t, err, sampler.ErrInvalidLength)
	}
}

func TestPollEmitsWindowsAfterPriming(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{
		{triples: ramp(1, 8)},  // 4 accepted at factor 2, not primed
		{triples: nil},         // no data this call
		{triples: ramp(9, 20)}, // accepted 10..20 even
	}}
	sink := &recordingSink{}
	a, _ := newTestAcquirer(t, src, 2, AcquirerOptions{WindowLength: 9, WindowStride: 2}, sink)
	ctx := context.Background()

	require.NoError(t, a.Poll(ctx))
	assert.Zero(t, sink.count())
	assert.False(t, a.Stats().Primed)
	_, ok := a.Latest()
	assert.False(t, ok)

	require.NoError(t, a.Poll(ctx))
	require.NoError(t, a.Poll(ctx))

	// primed at the 5th accepted (raw 10); windows at 10, 14, 18 then 20 is
	// only one past the stride
	require.Equal(t, 3, sink.count())
	assert.Equal(t, []float32{6, -6, 1, 8, -8, 1, 10, -10, 1}, sink.windows[0].Samples)
	assert.Equal(t, []float32{14, -14, 1, 16, -16, 1, 18, -18, 1}, sink.windows[2].Samples)
	for i, w := range sink.windows {
		assert.Equal(t, uint64(i+1), w.Seq)
		assert.Equal(t, 2, w.Factor)
		assert.NotEmpty(t, w.ID)
	}

	st := a.Stats()
	assert.Equal(t, uint64(20), st.Raw)
	assert.Equal(t, uint64(10), st.Accepted)
	assert.True(t, st.Primed)

	latest, ok := a.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(3), latest.Seq)
}

func TestPollSurfacesRepeatedFetchFailures(t *testing.T) {
	boom := errors.New("fetch failed")
	src := &scriptedSource{results: []fetchResult{
		{err: boom},
		{triples: ramp(1, 1)},
		{err: boom},
		{err: boom},
		{err: boom},
	}}
	a, _ := newTestAcquirer(t, src, 1, AcquirerOptions{WindowLength: 3, MaxFetchFailures: 3})
	ctx := context.Background()

	require.NoError(t, a.Poll(ctx)) // 1 failure
	require.NoError(t, a.Poll(ctx)) // success resets
	require.NoError(t, a.Poll(ctx))
	require.NoError(t, a.Poll(ctx))
	err := a.Poll(ctx)
	require.ErrorIs(t, err, boom)
}

func TestSinkErrorsDoNotStopAcquisition(t *testing.T) {
	failing := &recordingSink{err: errors.New("broker down")}
	ok := &recordingSink{}
	src := &scriptedSource{results: []fetchResult{{triples: ramp(1, 6)}}}
	a, _ := newTestAcquirer(t, src, 1, AcquirerOptions{WindowLength: 3, WindowStride: 1}, failing, ok)

	require.NoError(t, a.Poll(context.Background()))
	assert.Equal(t, 2, failing.count())
	assert.Equal(t, 2, ok.count())
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &scriptedSource{results: []fetchResult{{triples: ramp(1, 30)}}}
	sink := &recordingSink{}
	a, _ := newTestAcquirer(t, src, 1, AcquirerOptions{
		WindowLength: 15,
		WindowStride: 5,
		PollInterval: time.Millisecond,
	}, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() == 6 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsFetchFailure(t *testing.T) {
	boom := errors.New("i2c bus gone")
	src := &scriptedSource{results: []fetchResult{{err: boom}, {err: boom}}}
	a, _ := newTestAcquirer(t, src, 1, AcquirerOptions{
		WindowLength:     3,
		PollInterval:     time.Millisecond,
		MaxFetchFailures: 2,
	})

	err := a.Run(context.Background())
	require.ErrorIs(t, err, boom)
}
