package orientation

import (
	"fmt"
	"math"
)

// Pose is the glove orientation in degrees. It is recomputed every cycle and
// never persisted.
type Pose struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// String renders the pose the way the glove firmware prints it on its
// diagnostic console.
func (p Pose) String() string {
	return fmt.Sprintf("Pitch: %.2f Roll: %.2f", p.Pitch, p.Roll)
}

// ComputePoseFromAccel computes pitch and roll from accelerometer data only.
// Units do not matter, only the ratios between axes.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Pitch: pitchRad * 180.0 / math.Pi,
		Roll:  rollRad * 180.0 / math.Pi,
	}
}
