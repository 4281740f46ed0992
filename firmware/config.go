// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

import (
	"time"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/uart"
)

// Build time defaults, 147.456 MHz gives an exact 115200 baud divisor (80).
const (
	UART_CLK_HZ = 147456000
	UART_BAUD   = 115200
)

// UART_SEM is the hardware semaphore guarding UART0 in the locked topology.
const UART_SEM = 0

// Config represents the firmware build time configuration.
type Config struct {
	// ClockHz is the UART functional clock
	ClockHz uint32
	// Baud is the serial line rate
	Baud uint32
	// Secondary is the index of the core released by the primary
	Secondary int
	// Topology selects how cores share serial controllers
	Topology uart.Topology
	// AckTimeout, when not zero, makes the primary wait for the secondary
	// liveness marker and report its absence.
	AckTimeout time.Duration
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ClockHz:   UART_CLK_HZ,
		Baud:      UART_BAUD,
		Secondary: mem.SECONDARY_CORE,
		Topology:  uart.Alias,
	}
}
