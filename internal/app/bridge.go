// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/gesture_arm/internal/bridge"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/serialport"
)

func endpointOptions(cfg *config.Config, port string) serialport.Options {
	return serialport.Options{
		PortName: port,
		BaudRate: uint(cfg.SerialBaudRate),
		RTSCTS:   cfg.SerialRTSCTS,
		Timeouts: serialport.Timeouts{
			ReadInterval:      config.Millis(cfg.SerialReadIntervalTimeout),
			ReadTotal:         config.Millis(cfg.SerialReadTotalTimeout),
			ReadTotalPerByte:  config.Millis(cfg.SerialReadTotalTimeoutPerByte),
			WriteTotal:        config.Millis(cfg.SerialWriteTotalTimeout),
			WriteTotalPerByte: config.Millis(cfg.SerialWriteTotalTimeoutPerByte),
		},
	}
}

// openEndpoint opens one serial endpoint. Open logs the failure kind and
// an operator hint itself.
// A nil open uses the system serial driver.
func openEndpoint(cfg *config.Config, open serialport.Opener, role, port string) (*serialport.Endpoint, error) {
	logger := log.With().Str("endpoint", role).Logger()
	ep := serialport.NewEndpoint(logger)
	if open != nil {
		ep = serialport.NewEndpointWith(open, logger)
	}
	if err := ep.Open(endpointOptions(cfg, port)); err != nil {
		return nil, fmt.Errorf("open %s port: %w", role, err)
	}
	return ep, nil
}

// RunBridge forwards glove telemetry to the robot until SIGINT/SIGTERM.
// It returns an error only if startup fails.
func RunBridge(cfg *config.Config) error {
	return runBridge(cfg, nil)
}

func runBridge(cfg *config.Config, open serialport.Opener) error {
	if err := cfg.ValidateBridge(); err != nil {
		return err
	}

	glove, err := openEndpoint(cfg, open, "glove", cfg.GloveSerialPort)
	if err != nil {
		return err
	}
	defer glove.Close()

	robot, err := openEndpoint(cfg, open, "robot", cfg.RobotSerialPort)
	if err != nil {
		return err
	}
	defer robot.Close()

	b := bridge.New(glove, robot, bridge.Config{
		PollInterval:    config.Millis(cfg.BridgePollInterval),
		IdleReportEvery: cfg.BridgeIdleReportEvery,
		ReadBufferSize:  cfg.BridgeReadBufferSize,
		StopSettle:      config.Millis(cfg.BridgeStopSettle),
	}, log.With().Str("component", "bridge").Logger())

	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBridge)
		if err != nil {
			// Telemetry mirroring is optional; the robot link is not.
			log.Warn().Err(err).Msg("MQTT unavailable, decisions will not be published")
		} else {
			pub := NewMQTTPublisher(client, cfg.TopicPose, cfg.TopicCommand, log.Logger)
			defer pub.Close()
			b.SetReporter(pub)
			log.Info().Str("broker", cfg.MQTTBroker).Msg("publishing decisions to MQTT")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		return err
	}

	log.Info().Msg("bridge shut down")
	return nil
}
