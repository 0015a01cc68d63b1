package imu

import "github.com/relabs-tech/gesture_arm/internal/orientation"

// IMURaw represents a single raw 6-axis sample in sensor counts.
type IMURaw struct {
	Source string `json:"source"` // "mpu9250" or "mock"

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`
}

// Tilt derives pitch and roll from the accelerometer axes. The gyroscope is
// not used.
func (r IMURaw) Tilt() orientation.Pose {
	return orientation.ComputePoseFromAccel(float64(r.Ax), float64(r.Ay), float64(r.Az))
}

// RawSource is anything that can provide raw samples over time.
type RawSource interface {
	NextRaw() (IMURaw, error)
}
