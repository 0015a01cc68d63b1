// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/relabs-tech/gesture_arm/internal/app"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/logging"
	"github.com/relabs-tech/gesture_arm/internal/serialport"
)

func main() {
	configPath := flag.String("config", "./gesture_config.txt", "path to configuration file")
	glove := flag.String("glove", "", "glove serial port (overrides GLOVE_SERIAL_PORT)")
	robot := flag.String("robot", "", "robot serial port (overrides ROBOT_SERIAL_PORT)")
	baud := flag.Int("baud", 0, "baud rate for both ports (overrides SERIAL_BAUD_RATE)")
	rtscts := flag.Bool("rtscts", false, "enable RTS/CTS handshake (overrides SERIAL_RTSCTS)")
	listPorts := flag.Bool("list-ports", false, "list serial ports and exit")
	flag.Parse()

	if *listPorts {
		ports, err := serialport.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if err := config.InitGlobal(*configPath); err != nil {
		logging.Setup("info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := config.Get()

	if flag.CommandLine.Changed("glove") {
		cfg.GloveSerialPort = *glove
	}
	if flag.CommandLine.Changed("robot") {
		cfg.RobotSerialPort = *robot
	}
	if flag.CommandLine.Changed("baud") {
		if *baud <= 0 {
			logging.Setup("info")
			log.Fatal().Int("baud", *baud).Msg("--baud must be > 0")
		}
		cfg.SerialBaudRate = *baud
	}
	if flag.CommandLine.Changed("rtscts") {
		cfg.SerialRTSCTS = *rtscts
	}

	logging.Setup(cfg.LogLevel)
	log.Info().Msg("starting gesture-arm bridge (glove serial → robot serial)")

	if err := app.RunBridge(cfg); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}
