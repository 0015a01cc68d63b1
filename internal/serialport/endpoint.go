// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package serialport wraps a serial device as an exclusively owned endpoint
// with the glove/robot framing (8-N-1, DTR and RTS asserted) and per-call
// read/write time budgets.
package serialport

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected is returned by I/O on a closed endpoint.
	ErrNotConnected = errors.New("serial port not connected")
	// ErrWriteTimeout is returned when a write does not finish within its budget.
	ErrWriteTimeout = errors.New("serial write timeout")
)

// Kind classifies open failures so operators know what to fix.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	default:
		return "other"
	}
}

// OpenError is returned by Endpoint.Open.
type OpenError struct {
	Port string
	Kind Kind
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %s: %v", e.Port, e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Hint is a one-line suggestion for the operator.
func (e *OpenError) Hint() string {
	switch e.Kind {
	case KindNotFound:
		return "port not found, check the cable and the device name"
	case KindAccessDenied:
		return "access denied, close other programs using this port or fix its permissions"
	default:
		return "unexpected error opening the port"
	}
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAccessDenied
	default:
		return KindOther
	}
}

// Timeouts bound each read and write. A call on n bytes may take up to
// Total + n*TotalPerByte; ReadInterval is the maximum gap between bytes.
type Timeouts struct {
	ReadInterval      time.Duration
	ReadTotal         time.Duration
	ReadTotalPerByte  time.Duration
	WriteTotal        time.Duration
	WriteTotalPerByte time.Duration
}

// DefaultTimeouts returns 50 ms interval and 50 ms + 10 ms/byte totals.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		ReadInterval:      50 * time.Millisecond,
		ReadTotal:         50 * time.Millisecond,
		ReadTotalPerByte:  10 * time.Millisecond,
		WriteTotal:        50 * time.Millisecond,
		WriteTotalPerByte: 10 * time.Millisecond,
	}
}

// ReadBudget is the time allowed to read n bytes; zero means no limit.
func (t Timeouts) ReadBudget(n int) time.Duration {
	return t.ReadTotal + time.Duration(n)*t.ReadTotalPerByte
}

// WriteBudget is the time allowed to write n bytes; zero means no limit.
func (t Timeouts) WriteBudget(n int) time.Duration {
	return t.WriteTotal + time.Duration(n)*t.WriteTotalPerByte
}

// interCharacterMillis converts the read interval to the 100 ms granularity
// of termios VTIME, which the driver requires to be between 100 and 25500.
func (t Timeouts) interCharacterMillis() uint {
	ms := (t.ReadInterval.Milliseconds() + 99) / 100 * 100
	switch {
	case ms < 100:
		return 100
	case ms > 25500:
		return 25500
	}
	return uint(ms)
}

// Options describe how to open an endpoint.
type Options struct {
	PortName string
	BaudRate uint
	// RTSCTS enables hardware handshaking in addition to asserting the lines.
	RTSCTS   bool
	Timeouts Timeouts
}

// Opener opens the underlying device. It is serial.Open outside of tests.
type Opener func(serial.OpenOptions) (io.ReadWriteCloser, error)

// lineControl is the part of a serial device that io.ReadWriteCloser lacks.
type lineControl interface {
	Buffered() (int, error)
	Flush() error
	SetModemLines(dtr, rts bool) error
}

type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// Endpoint is one exclusively owned serial port. It is not safe for
// concurrent use. Callers defer Close right after creating it; Close is
// idempotent, so an explicit Close on an error path is harmless.
type Endpoint struct {
	open   Opener
	logger zerolog.Logger

	name      string
	baud      uint
	timeouts  Timeouts
	port      io.ReadWriteCloser
	ctl       lineControl
	connected bool
}

// NewEndpoint returns a closed endpoint backed by the system serial driver.
func NewEndpoint(logger zerolog.Logger) *Endpoint {
	return NewEndpointWith(serial.Open, logger)
}

// NewEndpointWith returns a closed endpoint that opens devices with open.
func NewEndpointWith(open Opener, logger zerolog.Logger) *Endpoint {
	return &Endpoint{open: open, logger: logger}
}

// Open opens and configures the port. An already open endpoint is closed
// first so repeated opens never leak a handle.
func (e *Endpoint) Open(opts Options) error {
	if e.connected {
		e.Close()
	}

	e.name = opts.PortName
	e.baud = opts.BaudRate
	e.timeouts = opts.Timeouts

	log := e.logger.With().Str("port", opts.PortName).Logger()
	log.Info().Uint("baud", opts.BaudRate).Msg("opening serial port")

	port, err := e.open(serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		RTSCTSFlowControl:     opts.RTSCTS,
		InterCharacterTimeout: opts.Timeouts.interCharacterMillis(),
		MinimumReadSize:       0,
	})
	if err != nil {
		oe := &OpenError{Port: opts.PortName, Kind: classify(err), Err: err}
		log.Error().Err(err).Str("kind", oe.Kind.String()).Msg(oe.Hint())
		return oe
	}

	ctl := controlFor(port)
	if err := ctl.SetModemLines(true, true); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		port.Close()
		return &OpenError{Port: opts.PortName, Kind: KindOther, Err: fmt.Errorf("assert DTR/RTS: %w", err)}
	}

	e.port = port
	e.ctl = ctl
	e.connected = true
	log.Info().Msg("serial port configured and ready")
	return nil
}

// Close releases the port. Closing a closed endpoint does nothing.
func (e *Endpoint) Close() error {
	if !e.connected {
		return nil
	}
	err := e.port.Close()
	e.port = nil
	e.ctl = nil
	e.connected = false
	e.logger.Info().Str("port", e.name).Msg("serial port closed")
	if err != nil {
		return fmt.Errorf("close %s: %w", e.name, err)
	}
	return nil
}

// Read reads up to len(p) bytes. Running out of time is not an error: it
// returns the bytes read so far, possibly none.
func (e *Endpoint) Read(p []byte) (int, error) {
	if !e.connected {
		return 0, ErrNotConnected
	}
	e.setDeadline(e.timeouts.ReadBudget(len(p)), true)

	n, err := e.port.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), isTimeout(err):
		// VTIME expiry surfaces as a zero-byte read, which os.File reports as EOF.
		return n, nil
	default:
		return n, fmt.Errorf("read %s: %w", e.name, err)
	}
}

// Write writes p. A short write caused by the time budget returns
// ErrWriteTimeout.
func (e *Endpoint) Write(p []byte) (int, error) {
	if !e.connected {
		return 0, ErrNotConnected
	}
	e.setDeadline(e.timeouts.WriteBudget(len(p)), false)

	n, err := e.port.Write(p)
	switch {
	case err == nil:
		return n, nil
	case isTimeout(err):
		return n, fmt.Errorf("write %s: %w after %d of %d bytes", e.name, ErrWriteTimeout, n, len(p))
	default:
		return n, fmt.Errorf("write %s: %w", e.name, err)
	}
}

// WriteString writes s.
func (e *Endpoint) WriteString(s string) (int, error) {
	return e.Write([]byte(s))
}

// Buffered returns the number of bytes waiting to be read. Platforms that
// cannot tell return errors.ErrUnsupported.
func (e *Endpoint) Buffered() (int, error) {
	if !e.connected {
		return 0, ErrNotConnected
	}
	return e.ctl.Buffered()
}

// Flush discards unread input and unsent output.
func (e *Endpoint) Flush() error {
	if !e.connected {
		return ErrNotConnected
	}
	return e.ctl.Flush()
}

// Connected reports whether the endpoint is open.
func (e *Endpoint) Connected() bool { return e.connected }

// Name returns the port name of the last Open.
func (e *Endpoint) Name() string { return e.name }

// BaudRate returns the baud rate of the last Open.
func (e *Endpoint) BaudRate() uint { return e.baud }

func (e *Endpoint) setDeadline(budget time.Duration, read bool) {
	d, ok := e.port.(deadliner)
	if !ok {
		return
	}
	var at time.Time
	if budget > 0 {
		at = time.Now().Add(budget)
	}
	// Devices outside the runtime poller reject deadlines; VTIME still applies.
	if read {
		_ = d.SetReadDeadline(at)
	} else {
		_ = d.SetWriteDeadline(at)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// controlFor finds ioctl access for port without calling Fd, which would
// switch the descriptor to blocking mode and disable deadlines.
func controlFor(port io.ReadWriteCloser) lineControl {
	if c, ok := port.(lineControl); ok {
		return c
	}
	if sc, ok := port.(syscall.Conn); ok {
		if rc, err := sc.SyscallConn(); err == nil {
			return controlForConn(rc)
		}
	}
	return unsupportedControl{}
}

type unsupportedControl struct{}

func (unsupportedControl) Buffered() (int, error)        { return 0, errors.ErrUnsupported }
func (unsupportedControl) Flush() error                  { return errors.ErrUnsupported }
func (unsupportedControl) SetModemLines(_, _ bool) error { return errors.ErrUnsupported }
