// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package bridge runs the glove → robot polling loop.
package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gesture_arm/internal/command"
	"github.com/relabs-tech/gesture_arm/internal/orientation"
	"github.com/relabs-tech/gesture_arm/internal/telemetry"
)

// Glove is the serial endpoint the glove writes telemetry to.
type Glove interface {
	Buffered() (int, error)
	Read(p []byte) (int, error)
}

// Robot is the serial endpoint the robot controller reads commands from.
type Robot interface {
	WriteString(s string) (int, error)
}

// Decision is one parsed telemetry sample and the command derived from it.
type Decision struct {
	Pitch   float64   `json:"pitch"`
	Roll    float64   `json:"roll"`
	Command string    `json:"command"`
	Sent    bool      `json:"sent"`
	Time    time.Time `json:"time"`
}

// Pose returns the orientation the decision was made from.
func (d Decision) Pose() orientation.Pose {
	return orientation.Pose{Pitch: d.Pitch, Roll: d.Roll}
}

// Reporter receives every decision, e.g. to mirror it to MQTT.
type Reporter interface {
	Report(Decision)
}

// Config tunes the loop.
type Config struct {
	PollInterval    time.Duration
	IdleReportEvery int
	ReadBufferSize  int
	// StopSettle is the pause after the final Stop so the robot can act on
	// it before its port is closed.
	StopSettle time.Duration
}

// DefaultConfig polls at 20 Hz and reports idleness every 5 s.
func DefaultConfig() Config {
	return Config{
		PollInterval:    50 * time.Millisecond,
		IdleReportEvery: 100,
		ReadBufferSize:  255,
		StopSettle:      100 * time.Millisecond,
	}
}

// Bridge forwards glove tilt to the robot as single-letter commands.
type Bridge struct {
	glove    Glove
	robot    Robot
	cfg      Config
	logger   zerolog.Logger
	reporter Reporter
	now      func() time.Time

	buf  []byte
	idle int
}

// New creates a Bridge. Non-positive config values fall back to defaults.
func New(glove Glove, robot Robot, cfg Config, logger zerolog.Logger) *Bridge {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.IdleReportEvery <= 0 {
		cfg.IdleReportEvery = def.IdleReportEvery
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = def.ReadBufferSize
	}
	if cfg.StopSettle < 0 {
		cfg.StopSettle = 0
	}
	return &Bridge{
		glove:  glove,
		robot:  robot,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		buf:    make([]byte, cfg.ReadBufferSize),
	}
}

// SetReporter installs r; nil disables reporting.
func (b *Bridge) SetReporter(r Reporter) {
	b.reporter = r
}

// Run polls until ctx is cancelled, then sends Stop once and waits
// StopSettle. The caller owns and closes both endpoints.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info().Dur("interval", b.cfg.PollInterval).Msg("listening for glove data (Ctrl+C to exit)")

	for ctx.Err() == nil {
		b.Step()

		select {
		case <-ctx.Done():
		case <-time.After(b.cfg.PollInterval):
		}
	}

	b.Stop()
	return nil
}

// Step runs one poll iteration.
func (b *Bridge) Step() {
	avail, err := b.glove.Buffered()
	// Without an input-queue query, fall back to a read bounded by the
	// endpoint's timeouts.
	probe := errors.Is(err, errors.ErrUnsupported)
	if err != nil && !probe {
		b.logger.Warn().Err(err).Msg("glove status query failed")
		avail = 0
	}

	if avail <= 0 && !probe {
		b.idleTick()
		return
	}

	n, err := b.glove.Read(b.buf)
	if err != nil {
		b.logger.Error().Err(err).Msg("glove read error")
		return
	}
	if n == 0 {
		if probe {
			b.idleTick()
		}
		return
	}

	b.handle(string(b.buf[:n]))
}

func (b *Bridge) idleTick() {
	b.idle++
	if b.idle%b.cfg.IdleReportEvery == 0 {
		waited := time.Duration(b.idle) * b.cfg.PollInterval
		b.logger.Info().
			Int("seconds", int(waited/time.Second)).
			Msg("waiting for glove data")
	}
}

func (b *Bridge) handle(data string) {
	pose, err := telemetry.Parse(data)
	if err != nil {
		b.logger.Debug().Err(err).Str("data", data).Msg("skipping glove data")
		return
	}

	cmd := command.FromPose(pose)
	d := Decision{
		Pitch:   pose.Pitch,
		Roll:    pose.Roll,
		Command: cmd.String(),
		Time:    b.now(),
	}

	if _, err := b.robot.WriteString(cmd.String()); err != nil {
		b.logger.Error().Err(err).Str("command", cmd.String()).Msg("failed to send command to robot")
	} else {
		d.Sent = true
		b.logger.Info().
			Float64("pitch", pose.Pitch).
			Float64("roll", pose.Roll).
			Str("command", cmd.String()).
			Msg("command sent")
	}

	b.idle = 0
	if b.reporter != nil {
		b.reporter.Report(d)
	}
}

// Stop sends the Stop command once and waits StopSettle.
func (b *Bridge) Stop() {
	b.logger.Info().Msg("sending stop command")
	if _, err := b.robot.WriteString(command.Stop.String()); err != nil {
		b.logger.Error().Err(err).Msg("failed to send stop command to robot")
	}
	time.Sleep(b.cfg.StopSettle)
}

// Idle returns the number of consecutive polls without a parsed sample.
func (b *Bridge) Idle() int {
	return b.idle
}
