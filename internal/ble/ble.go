// Package ble publishes glove orientation as a GATT service.
package ble

import (
	"strconv"
	"sync"
)

// Service and characteristic UUIDs the robot-side central subscribes to.
const (
	ServiceUUID = "19B10000-E8F2-537E-4F6C-D104768A1214"
	PitchUUID   = "19B10001-E8F2-537E-4F6C-D104768A1214"
	RollUUID    = "19B10002-E8F2-537E-4F6C-D104768A1214"
)

// MaxValueLen is the fixed size of each characteristic value.
const MaxValueLen = 20

// InitialValue is served until the first update.
const InitialValue = "0.0"

// FormatValue renders an angle with two decimals, clipped to MaxValueLen.
func FormatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if s == "-0.00" {
		s = "0.00"
	}
	if len(s) > MaxValueLen {
		s = s[:MaxValueLen]
	}
	return s
}

// centralTracker remembers the one central currently attached.
type centralTracker struct {
	mu        sync.Mutex
	address   string
	connected bool
}

func (c *centralTracker) set(address string, connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if connected {
		c.address = address
		c.connected = true
		return
	}
	// Ignore a stale disconnect from a previous central.
	if address == c.address {
		c.connected = false
	}
}

// Central returns the attached central's address, if any.
func (c *centralTracker) Central() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.address, c.connected
}
