package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/gesture_sampler/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunMockConsolePrintsWindows(t *testing.T) {
	cfg := config.Default()
	cfg.MockSampleHz = 2000
	cfg.TargetHz = 1000
	cfg.RingCapacity = 40
	cfg.PrimeThreshold = 10
	cfg.WindowLength = 30
	cfg.WindowStride = 5
	cfg.PollInterval = 1

	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunMockConsole(ctx, cfg, out, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "[WIN") >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	first := strings.SplitN(out.String(), "\n", 2)[0]
	assert.Contains(t, first, "[WIN      1] n= 10 f=2")
}
