//go:build !linux

package serialport

import "syscall"

// TODO: query the input queue with FIONREAD on darwin and the BSDs.
func controlForConn(syscall.RawConn) lineControl {
	return unsupportedControl{}
}
