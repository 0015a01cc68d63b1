package sensors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

func TestMockSourceMatchesTiltFormula(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	src := &mockSource{start: start, now: func() time.Time { return now }}

	// elapsed = π seconds: pitch = 50·sin(π/2) = 50°, roll = 50·cos(0.35π).
	now = start.Add(time.Duration(3.14159265 * float64(time.Second)))
	raw, err := src.NextRaw()
	require.NoError(t, err)
	require.Equal(t, "mock", raw.Source)

	pose := orientation.ComputePoseFromAccel(float64(raw.Ax), float64(raw.Ay), float64(raw.Az))
	require.InDelta(t, 50, pose.Pitch, 0.1)
	require.InDelta(t, 22.7, pose.Roll, 0.2)
}

func TestMockSourceStartsLevelInPitch(t *testing.T) {
	start := time.Now()
	src := &mockSource{start: start, now: func() time.Time { return start }}

	raw, err := src.NextRaw()
	require.NoError(t, err)

	pose := orientation.ComputePoseFromAccel(float64(raw.Ax), float64(raw.Ay), float64(raw.Az))
	require.InDelta(t, 0, pose.Pitch, 0.1)
	require.InDelta(t, 50, pose.Roll, 0.1)
}
