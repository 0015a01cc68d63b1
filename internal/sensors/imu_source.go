// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/gesture_arm/internal/imu"
)

// MPU9250Options selects the glove IMU wiring and ranges.
type MPU9250Options struct {
	SPIDevice  string
	CSPin      string
	AccelRange byte // 0=±2g .. 3=±16g
	GyroRange  byte // 0=±250°/s .. 3=±2000°/s
}

type mpu9250Source struct {
	imu *mpu9250.MPU9250
}

// NewMPU9250Source initializes an MPU9250 over SPI and returns a raw source.
// Self-test and calibration failures are logged, not fatal; any other
// initialization failure is returned.
func NewMPU9250Source(opts MPU9250Options, logger zerolog.Logger) (imu.RawSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(opts.CSPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", opts.CSPin)
	}

	tr, err := mpu9250.NewSpiTransport(opts.SPIDevice, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", opts.SPIDevice, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := dev.SetAccelRange(opts.AccelRange); err != nil {
		return nil, fmt.Errorf("IMU: set accel range: %w", err)
	}
	logger.Info().
		Uint8("range", opts.AccelRange).
		Int("g", []int{2, 4, 8, 16}[opts.AccelRange&3]).
		Msg("IMU accelerometer range set")

	if err := dev.SetGyroRange(opts.GyroRange); err != nil {
		return nil, fmt.Errorf("IMU: set gyro range: %w", err)
	}
	logger.Info().
		Uint8("range", opts.GyroRange).
		Int("dps", []int{250, 500, 1000, 2000}[opts.GyroRange&3]).
		Msg("IMU gyroscope range set")

	if _, err := dev.SelfTest(); err != nil {
		logger.Warn().Err(err).Msg("IMU self-test failed")
	}
	if err := dev.Calibrate(); err != nil {
		logger.Warn().Err(err).Msg("IMU calibration failed")
	} else {
		logger.Info().Msg("IMU calibration complete")
	}

	return &mpu9250Source{imu: dev}, nil
}

// NextRaw reads accelerometer and gyroscope axes.
func (s *mpu9250Source) NextRaw() (imu.IMURaw, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel X: %w", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Y: %w", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU accel Z: %w", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro X: %w", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Y: %w", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, fmt.Errorf("IMU gyro Z: %w", err)
	}

	return imu.IMURaw{
		Source: "mpu9250",
		Ax:     ax,
		Ay:     ay,
		Az:     az,
		Gx:     gx,
		Gy:     gy,
		Gz:     gz,
	}, nil
}
