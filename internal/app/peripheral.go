// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/gesture_arm/internal/ble"
	"github.com/relabs-tech/gesture_arm/internal/config"
	"github.com/relabs-tech/gesture_arm/internal/imu"
	"github.com/relabs-tech/gesture_arm/internal/peripheral"
	"github.com/relabs-tech/gesture_arm/internal/sensors"
)

// halt parks the process after a fatal hardware error until the operator
// interrupts it, then hands the error back for a non-zero exit.
func halt(ctx context.Context, err error) error {
	log.Error().Err(err).Msg("halted, press Ctrl+C to exit")
	<-ctx.Done()
	return err
}

// RunPeripheral samples the glove IMU and serves pitch/roll over BLE until
// SIGINT/SIGTERM.
func RunPeripheral(cfg *config.Config, useMock bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Choose orientation source (mock vs real IMU) ---
	var src imu.RawSource
	if useMock {
		log.Info().Msg("using mock IMU source")
		src = sensors.NewMockSource()
	} else {
		s, err := sensors.NewMPU9250Source(sensors.MPU9250Options{
			SPIDevice:  cfg.IMUSPIDevice,
			CSPin:      cfg.IMUCSPin,
			AccelRange: cfg.IMUAccelRange,
			GyroRange:  cfg.IMUGyroRange,
		}, log.With().Str("component", "imu").Logger())
		if err != nil {
			return halt(ctx, err)
		}
		src = s
	}

	server := ble.NewServer()
	if err := server.Start(cfg.BLELocalName); err != nil {
		return halt(ctx, err)
	}
	defer server.Stop()
	log.Info().Str("name", cfg.BLELocalName).Str("service", ble.ServiceUUID).Msg("advertising, waiting for central")

	p := peripheral.New(src, server, peripheral.Config{
		UpdateInterval: config.Millis(cfg.PeripheralUpdateInterval),
		IdleInterval:   config.Millis(cfg.PeripheralIdleInterval),
	}, log.With().Str("component", "peripheral").Logger())

	if cfg.MQTTBroker != "" {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDPeripheral)
		if err != nil {
			log.Warn().Err(err).Msg("MQTT unavailable, poses will not be published")
		} else {
			pub := NewMQTTPublisher(client, cfg.TopicPose, cfg.TopicCommand, log.Logger)
			defer pub.Close()
			p.SetSink(pub)
		}
	}

	if err := p.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("peripheral shut down")
	return nil
}
