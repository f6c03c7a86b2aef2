package orientation

import (
	"math"

	"github.com/relabs-tech/gesture_sampler/internal/accel"
)

// Pose is a tilt estimate in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// FromAccel computes roll and pitch from a single accelerometer reading,
// assuming the device is near rest so gravity dominates.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromAccel(t accel.Triple) Pose {
	ax, ay, az := float64(t.X), float64(t.Y), float64(t.Z)

	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}
