// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"time"

	"github.com/relabs-tech/gesture_arm/internal/imu"
)

// mockGravity is 1 g at the ±2g accelerometer range, in counts.
const mockGravity = 16384

type mockSource struct {
	start time.Time
	now   func() time.Time
}

// NewMockSource creates a raw source that sweeps the glove through pitch and
// roll of about ±50°, slowly enough to cross every command threshold.
func NewMockSource() imu.RawSource {
	return &mockSource{start: time.Now(), now: time.Now}
}

func (m *mockSource) NextRaw() (imu.IMURaw, error) {
	elapsed := m.now().Sub(m.start).Seconds()

	pitch := 50 * math.Sin(elapsed*0.5) * math.Pi / 180
	roll := 50 * math.Cos(elapsed*0.35) * math.Pi / 180

	// Gravity vector for the given tilt, inverse of ComputePoseFromAccel.
	ax := -math.Sin(pitch)
	ay := math.Cos(pitch) * math.Sin(roll)
	az := math.Cos(pitch) * math.Cos(roll)

	return imu.IMURaw{
		Source: "mock",
		Ax:     int16(ax * mockGravity),
		Ay:     int16(ay * mockGravity),
		Az:     int16(az * mockGravity),
		Gx:     int16(50 * math.Cos(elapsed*0.5)),
		Gy:     int16(-50 * math.Sin(elapsed*0.35)),
	}, nil
}
