package ble

import (
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezDevice       = "org.bluez.Device1"
	propertiesIface   = "org.freedesktop.DBus.Properties"
	propertiesChanged = propertiesIface + ".PropertiesChanged"
)

// centralMatch selects Device1 property changes, which is where BlueZ
// reports a remote central attaching to or leaving the local GATT server.
func centralMatch() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchInterface(propertiesIface),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, bluezDevice),
	}
}

// decodeConnection extracts a Connected change from a PropertiesChanged
// signal. ok is false for any other signal.
func decodeConnection(sig *dbus.Signal) (address string, connected, ok bool) {
	if sig == nil || sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return "", false, false
	}
	iface, isString := sig.Body[0].(string)
	if !isString || iface != bluezDevice {
		return "", false, false
	}
	changed, isMap := sig.Body[1].(map[string]dbus.Variant)
	if !isMap {
		return "", false, false
	}
	v, present := changed["Connected"]
	if !present {
		return "", false, false
	}
	connected, isBool := v.Value().(bool)
	if !isBool {
		return "", false, false
	}
	address, ok = addressFromPath(sig.Path)
	return address, connected, ok
}

// addressFromPath turns /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF into
// AA:BB:CC:DD:EE:FF.
func addressFromPath(path dbus.ObjectPath) (string, bool) {
	s := string(path)
	i := strings.LastIndex(s, "/dev_")
	if i < 0 {
		return "", false
	}
	addr := s[i+len("/dev_"):]
	if len(addr) != 17 || strings.Contains(addr, "/") {
		return "", false
	}
	return strings.ReplaceAll(addr, "_", ":"), true
}

// watch applies every Connected change from signals to t until done or
// signals is closed.
func (t *centralTracker) watch(signals <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig, open := <-signals:
			if !open {
				return
			}
			if addr, connected, ok := decodeConnection(sig); ok {
				t.set(addr, connected)
			}
		}
	}
}
