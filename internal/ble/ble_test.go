package ble

import (
	"math"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	testCases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{math.Copysign(0, -1), "0.00"},
		{-0.004, "0.00"},
		{12.346, "12.35"},
		{-45.1, "-45.10"},
		{179.999, "180.00"},
		{1e30, "10000000000000000198"},
		{math.Inf(-1), "-Inf"},
	}
	for _, tc := range testCases {
		got := FormatValue(tc.in)
		require.LessOrEqual(t, len(got), MaxValueLen)
		require.Equal(t, tc.want, got)
	}
}

func TestCentralTracker(t *testing.T) {
	var c centralTracker

	_, ok := c.Central()
	require.False(t, ok)

	c.set("AA:BB:CC:DD:EE:01", true)
	addr, ok := c.Central()
	require.True(t, ok)
	require.Equal(t, "AA:BB:CC:DD:EE:01", addr)

	c.set("AA:BB:CC:DD:EE:02", true)
	c.set("AA:BB:CC:DD:EE:01", false)
	addr, ok = c.Central()
	require.True(t, ok, "stale disconnect must not drop the current central")
	require.Equal(t, "AA:BB:CC:DD:EE:02", addr)

	c.set("AA:BB:CC:DD:EE:02", false)
	_, ok = c.Central()
	require.False(t, ok)

	done := make(chan struct{})
	close(done)
	c.watch(make(chan *dbus.Signal), done)
}

func TestServerStartsDisconnected(t *testing.T) {
	_, ok := NewServer().Central()
	require.False(t, ok)
}

func propertiesSignal(path string, iface string, changed map[string]dbus.Variant) *dbus.Signal {
	return &dbus.Signal{
		Path: dbus.ObjectPath(path),
		Name: "org.freedesktop.DBus.Properties.PropertiesChanged",
		Body: []interface{}{iface, changed, []string{}},
	}
}

func TestDecodeConnection(t *testing.T) {
	const dev = "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_01"

	addr, connected, ok := decodeConnection(propertiesSignal(dev, "org.bluez.Device1",
		map[string]dbus.Variant{"Connected": dbus.MakeVariant(true), "RSSI": dbus.MakeVariant(int16(-60))}))
	require.True(t, ok)
	require.True(t, connected)
	require.Equal(t, "AA:BB:CC:DD:EE:01", addr)

	addr, connected, ok = decodeConnection(propertiesSignal(dev, "org.bluez.Device1",
		map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)}))
	require.True(t, ok)
	require.False(t, connected)
	require.Equal(t, "AA:BB:CC:DD:EE:01", addr)

	ignored := []*dbus.Signal{
		nil,
		propertiesSignal(dev, "org.bluez.Device1", map[string]dbus.Variant{"RSSI": dbus.MakeVariant(int16(-50))}),
		propertiesSignal(dev, "org.bluez.GattCharacteristic1", map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}),
		propertiesSignal(dev, "org.bluez.Device1", map[string]dbus.Variant{"Connected": dbus.MakeVariant("yes")}),
		propertiesSignal("/org/bluez/hci0", "org.bluez.Device1", map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}),
		propertiesSignal(dev+"/service0010", "org.bluez.Device1", map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)}),
		{Path: dbus.ObjectPath(dev), Name: "org.bluez.Device1.Disconnected"},
	}
	for i, sig := range ignored {
		_, _, ok := decodeConnection(sig)
		require.False(t, ok, "signal %d", i)
	}
}

func TestWatchTracksCentral(t *testing.T) {
	const dev = "/org/bluez/hci0/dev_11_22_33_44_55_66"
	signals := make(chan *dbus.Signal, 4)
	signals <- propertiesSignal(dev, "org.bluez.Device1", map[string]dbus.Variant{"Connected": dbus.MakeVariant(true)})
	close(signals)

	var c centralTracker
	c.watch(signals, nil)
	addr, ok := c.Central()
	require.True(t, ok)
	require.Equal(t, "11:22:33:44:55:66", addr)

	signals = make(chan *dbus.Signal, 4)
	signals <- propertiesSignal(dev, "org.bluez.Device1", map[string]dbus.Variant{"Connected": dbus.MakeVariant(false)})
	close(signals)
	c.watch(signals, nil)
	_, ok = c.Central()
	require.False(t, ok)

	done := make(chan struct{})
	close(done)
	c.watch(make(chan *dbus.Signal), done)
}
