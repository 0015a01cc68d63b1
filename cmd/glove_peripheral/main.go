// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/relabs-tech/gesture_arm/internal/app"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/logging"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	mock := flag.Bool("mock", false, "use a synthetic IMU instead of the MPU9250")
	flag.Parse()

	if err := config.InitGlobal(*configPath); err != nil {
		logging.Setup("info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()
	logging.Setup(cfg.LogLevel)

	log.Info().Bool("mock", *mock).Msg("starting gesture-arm glove peripheral (IMU → BLE)")

	if err := app.RunPeripheral(cfg, *mock); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
