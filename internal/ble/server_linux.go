//go:build linux

package ble

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"tinygo.org/x/bluetooth"
)

// Server is a GATT peripheral with pitch and roll characteristics.
type Server struct {
	centralTracker

	adapter     *bluetooth.Adapter
	pitch, roll *bluetooth.Characteristic
	adv         *bluetooth.Advertisement

	bus     *dbus.Conn
	signals chan *dbus.Signal
	done    chan struct{}
}

// NewServer returns a server on the default adapter. Nothing touches the
// radio until Start.
func NewServer() *Server {
	return &Server{
		adapter: bluetooth.DefaultAdapter,
		pitch:   &bluetooth.Characteristic{},
		roll:    &bluetooth.Characteristic{},
	}
}

// Start enables the adapter, registers the service and begins advertising
// under localName.
func (s *Server) Start(localName string) error {
	serviceUUID, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	pitchUUID, err := bluetooth.ParseUUID(PitchUUID)
	if err != nil {
		return fmt.Errorf("pitch uuid: %w", err)
	}
	rollUUID, err := bluetooth.ParseUUID(RollUUID)
	if err != nil {
		return fmt.Errorf("roll uuid: %w", err)
	}

	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("enable BLE adapter: %w", err)
	}

	// The adapter's connect handler only fires for outgoing connections, so
	// centrals attaching to us are tracked through BlueZ directly.
	if err := s.watchCentrals(); err != nil {
		return err
	}

	flags := bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission
	service := bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: s.pitch,
				UUID:   pitchUUID,
				Value:  []byte(InitialValue),
				Flags:  flags,
			},
			{
				Handle: s.roll,
				UUID:   rollUUID,
				Value:  []byte(InitialValue),
				Flags:  flags,
			},
		},
	}
	if err := s.adapter.AddService(&service); err != nil {
		return fmt.Errorf("add GATT service: %w", err)
	}

	s.adv = s.adapter.DefaultAdvertisement()
	if err := s.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    localName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := s.adv.Start(); err != nil {
		return fmt.Errorf("start advertisement: %w", err)
	}
	return nil
}

// Update writes both values, notifying subscribed centrals.
func (s *Server) Update(pitch, roll string) error {
	if _, err := s.pitch.Write([]byte(pitch)); err != nil {
		return fmt.Errorf("write pitch: %w", err)
	}
	if _, err := s.roll.Write([]byte(roll)); err != nil {
		return fmt.Errorf("write roll: %w", err)
	}
	return nil
}

func (s *Server) watchCentrals() error {
	bus, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	if err := bus.AddMatchSignal(centralMatch()...); err != nil {
		return fmt.Errorf("watch BlueZ devices: %w", err)
	}

	s.bus = bus
	s.signals = make(chan *dbus.Signal, 16)
	s.done = make(chan struct{})
	bus.Signal(s.signals)
	go s.watch(s.signals, s.done)
	return nil
}

// Stop ends advertising and central tracking.
func (s *Server) Stop() error {
	if s.bus != nil {
		s.bus.RemoveSignal(s.signals)
		_ = s.bus.RemoveMatchSignal(centralMatch()...)
		close(s.done)
		s.bus = nil
	}
	if s.adv == nil {
		return nil
	}
	return s.adv.Stop()
}
