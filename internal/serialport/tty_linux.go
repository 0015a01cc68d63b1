//go:build linux

package serialport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func controlForConn(rc syscall.RawConn) lineControl {
	return ttyControl{rc: rc}
}

// ttyControl issues termios ioctls on the open descriptor.
type ttyControl struct {
	rc syscall.RawConn
}

func (t ttyControl) do(fn func(fd int) error) error {
	var opErr error
	if err := t.rc.Control(func(fd uintptr) { opErr = fn(int(fd)) }); err != nil {
		return err
	}
	return opErr
}

func (t ttyControl) Buffered() (int, error) {
	var n int
	err := t.do(func(fd int) error {
		var err error
		n, err = unix.IoctlGetInt(fd, unix.TIOCINQ)
		return err
	})
	return n, err
}

func (t ttyControl) Flush() error {
	return t.do(func(fd int) error {
		return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
	})
}

func (t ttyControl) SetModemLines(dtr, rts bool) error {
	var set, clear int
	if dtr {
		set |= unix.TIOCM_DTR
	} else {
		clear |= unix.TIOCM_DTR
	}
	if rts {
		set |= unix.TIOCM_RTS
	} else {
		clear |= unix.TIOCM_RTS
	}
	return t.do(func(fd int) error {
		if set != 0 {
			if err := unix.IoctlSetPointerInt(fd, unix.TIOCMBIS, set); err != nil {
				return err
			}
		}
		if clear != 0 {
			return unix.IoctlSetPointerInt(fd, unix.TIOCMBIC, clear)
		}
		return nil
	})
}
