package sensors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"periph.io/x/devices/v3/mpu9250"
)

// The upstream driver must stay usable behind the reader seam.
var _ accelReader = (*mpu9250.MPU9250)(nil)

type fakeAccel struct {
	x, y, z int16
	err     error
	reads   int
}

func (f *fakeAccel) GetAccelerationX() (int16, error) {
	f.reads++
	return f.x, f.err
}
func (f *fakeAccel) GetAccelerationY() (int16, error) { return f.y, nil }
func (f *fakeAccel) GetAccelerationZ() (int16, error) { return f.z, nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestIMUSourceScalesToMetersPerSecond(t *testing.T) {
	dev := &fakeAccel{x: 16384, y: -8192, z: 0}
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := newIMUSource(dev, IMUOptions{AccelRange: 0, OutputHz: 100}, clk.now, zap.NewNop())

	got, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 9.80665, got[0].X, 1e-4)
	assert.InDelta(t, -4.903325, got[0].Y, 1e-4)
	assert.Zero(t, got[0].Z)
	assert.Equal(t, 100.0, src.SampleRateHz())
}

func TestIMUSourcePacesOnOutputPeriod(t *testing.T) {
	dev := &fakeAccel{x: 1}
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := newIMUSource(dev, IMUOptions{AccelRange: 2, OutputHz: 50}, clk.now, zap.NewNop())
	ctx := context.Background()

	got, err := src.Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	clk.advance(10 * time.Millisecond)
	got, err = src.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "no data before the next period")

	clk.advance(10 * time.Millisecond)
	got, err = src.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// a long stall yields one fresh reading, not a replay
	clk.advance(time.Second)
	got, err = src.Fetch(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	got, err = src.Fetch(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Equal(t, 3, dev.reads)
}

func TestIMUSourceFetchFailure(t *testing.T) {
	dev := &fakeAccel{err: errors.New("spi timeout")}
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := newIMUSource(dev, IMUOptions{OutputHz: 50}, clk.now, zap.NewNop())

	_, err := src.Fetch(context.Background())
	require.ErrorContains(t, err, "spi timeout")
}
