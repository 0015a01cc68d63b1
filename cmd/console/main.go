// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/relabs-tech/gesture_arm/internal/app"
	"github.com/relabs-tech/gesture_arm/internal/logging"
	"github.com/relabs-tech/gesture_arm/internal/sensors"
)

func main() {
	interval := flag.Duration("interval", 100*time.Millisecond, "time between samples")
	flag.Parse()

	logging.Setup("info")
	log.Info().Msg("starting gesture-arm mock console (mock IMU → commands)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunMockConsole(ctx, sensors.NewMockSource(), *interval, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
