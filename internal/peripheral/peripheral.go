// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package peripheral samples the glove IMU and serves pitch/roll to a
// connected BLE central.
package peripheral

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gesture_arm/internal/ble"
	"github.com/relabs-tech/gesture_arm/internal/imu"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
)

// Service is the wireless side of the peripheral.
type Service interface {
	Central() (address string, connected bool)
	Update(pitch, roll string) error
}

// PoseSink optionally mirrors each published pose (e.g. to MQTT).
type PoseSink interface {
	PublishPose(orientation.Pose)
}

// Config tunes the loop.
type Config struct {
	UpdateInterval time.Duration // while a central is attached
	IdleInterval   time.Duration // while advertising
}

// DefaultConfig returns 50 ms connected / 10 ms waiting.
func DefaultConfig() Config {
	return Config{
		UpdateInterval: 50 * time.Millisecond,
		IdleInterval:   10 * time.Millisecond,
	}
}

// Peripheral couples an IMU source with a wireless service.
type Peripheral struct {
	src    imu.RawSource
	svc    Service
	cfg    Config
	logger zerolog.Logger
	sink   PoseSink
}

// New creates a Peripheral. Non-positive intervals fall back to defaults.
func New(src imu.RawSource, svc Service, cfg Config, logger zerolog.Logger) *Peripheral {
	def := DefaultConfig()
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = def.UpdateInterval
	}
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	return &Peripheral{src: src, svc: svc, cfg: cfg, logger: logger}
}

// SetSink installs s; nil disables mirroring.
func (p *Peripheral) SetSink(s PoseSink) {
	p.sink = s
}

// Run serves centrals until ctx is cancelled.
func (p *Peripheral) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if addr, ok := p.svc.Central(); ok {
			p.serve(ctx, addr)
			continue
		}
		sleep(ctx, p.cfg.IdleInterval)
	}
	return nil
}

func (p *Peripheral) serve(ctx context.Context, addr string) {
	p.logger.Info().Str("central", addr).Msg("connected to central")

	for ctx.Err() == nil {
		if cur, ok := p.svc.Central(); !ok || cur != addr {
			break
		}
		p.Step()
		sleep(ctx, p.cfg.UpdateInterval)
	}

	p.logger.Info().Str("central", addr).Msg("disconnected from central")
}

// Step samples the IMU once and publishes the resulting pose. It reports
// whether the values reached the service.
func (p *Peripheral) Step() bool {
	raw, err := p.src.NextRaw()
	if err != nil {
		p.logger.Warn().Err(err).Msg("IMU read failed")
		return false
	}

	pose := raw.Tilt()

	p.logger.Info().
		Float64("pitch", pose.Pitch).
		Float64("roll", pose.Roll).
		Int16("ax", raw.Ax).
		Int16("ay", raw.Ay).
		Int16("az", raw.Az).
		Msg("pose")

	if err := p.svc.Update(ble.FormatValue(pose.Pitch), ble.FormatValue(pose.Roll)); err != nil {
		p.logger.Warn().Err(err).Msg("characteristic update failed")
		return false
	}

	if p.sink != nil {
		p.sink.PublishPose(pose)
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
