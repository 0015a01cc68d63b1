//go:build !linux

package ble

import (
	"errors"
	"fmt"
)

// Server is unavailable off Linux; tinygo.org/x/bluetooth only offers the
// peripheral role through BlueZ on hosts.
type Server struct {
	centralTracker
}

func NewServer() *Server { return &Server{} }

func (s *Server) Start(localName string) error {
	return fmt.Errorf("BLE peripheral %q: %w", localName, errors.ErrUnsupported)
}

func (s *Server) Update(pitch, roll string) error { return errors.ErrUnsupported }

func (s *Server) Stop() error { return nil }
