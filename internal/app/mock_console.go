// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/relabs-tech/gesture_arm/internal/command"
	"github.com/relabs-tech/gesture_arm/internal/imu"
)

// RunMockConsole drives the command mapping from src without any serial or
// BLE hardware, printing one line per tick until ctx is cancelled.
func RunMockConsole(ctx context.Context, src imu.RawSource, interval time.Duration, w io.Writer) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		raw, err := src.NextRaw()
		if err != nil {
			return err
		}
		pose := raw.Tilt()
		cmd := command.FromPose(pose)

		fmt.Fprintf(w, "%s  -> %s (%s)\n", pose, cmd, cmd.Name())
	}
}
