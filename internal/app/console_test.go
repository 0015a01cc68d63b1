package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/imu"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

func TestPrintDecision(t *testing.T) {
	var out bytes.Buffer
	printDecision(&out, bridge.Decision{Pitch: 31, Roll: 0, Command: "L", Sent: true})
	printDecision(&out, bridge.Decision{Pitch: 0, Roll: -31, Command: "D"})
	printDecision(&out, bridge.Decision{Command: "XY"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "[CMD ] PITCH=  31.00  ROLL=   0.00  -> L (left) sent", lines[0])
	require.True(t, strings.HasSuffix(lines[1], "-> D (down) FAILED"))
	require.Contains(t, lines[2], "(?)")
}

func TestPrintPose(t *testing.T) {
	var out bytes.Buffer
	printPose(&out, orientation.Pose{Pitch: -12.346, Roll: 7})
	require.Equal(t, "[POSE] PITCH= -12.35  ROLL=   7.00\n", out.String())
}

type tiltSource struct{}

// NextRaw reports the glove tipped nose-down by 45°.
func (tiltSource) NextRaw() (imu.IMURaw, error) {
	return imu.IMURaw{Source: "test", Ax: -1000, Az: 1000}, nil
}

func TestRunMockConsole(t *testing.T) {
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	require.NoError(t, RunMockConsole(ctx, tiltSource{}, 5*time.Millisecond, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.NotEmpty(t, lines)
	require.Equal(t, "Pitch: 45.00 Roll: 0.00  -> L (left)", lines[0])
}
