// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package firmware implements the per-core program of the two-core UART echo
// bring-up. Both cores enter Main from the same entry point and dispatch on
// their core index, neither ever returns.
package firmware

import (
	"fmt"
	"log"
	"sync"

	"github.com/usbarmory/c6657-bringup/boot"
	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
	"github.com/usbarmory/c6657-bringup/sem"
	"github.com/usbarmory/c6657-bringup/uart"
)

// Platform represents what startup code hands over to each core.
type Platform struct {
	// Core is the executing core index (DNUM)
	Core int
	// Bus is the executing core view of the chip
	Bus reg.Bus
	// Entry is the program entry point, used to release the secondary
	Entry uint32
	// Settle implements timing margins
	Settle boot.Settler
	// Lock is the inter-core lock, only used by the Locked topology
	Lock sync.Locker
	// Log, when not nil, traces bring-up steps outside of the serial line
	Log *log.Logger
	// Echoed, when not nil, counts characters handled by the echo loop
	Echoed *uint64
}

// NewPlatform returns the platform of a core executing on the target, where
// registers are reached at their physical address and time is measured in
// loop iterations.
func NewPlatform(core int, entry uint32) *Platform {
	bus := &reg.MMIO{}

	return &Platform{
		Core:  core,
		Bus:   bus,
		Entry: entry,
		Settle: &boot.Spin{
			LoopsPerMicrosecond: boot.DefaultLoopsPerMicrosecond,
		},
		Lock: &sem.Semaphore{
			Bus:   bus,
			Base:  mem.SEM_BASE,
			Index: UART_SEM,
		},
	}
}

func (p *Platform) logf(format string, v ...interface{}) {
	if p.Log != nil {
		p.Log.Printf(format, v...)
	}
}

// Banner returns the line printed by the primary core after configuration.
func Banner(conf Config) string {
	return fmt.Sprintf("\nC6657 UART echo (polled) @ %d.\n", conf.Baud)
}

// Ready returns the line printed by a core entering its echo loop.
func Ready(core int) string {
	if core == mem.PRIMARY_CORE {
		return fmt.Sprintf("[Core%d] Echo ready.\n", core)
	}

	return fmt.Sprintf("\n[Core%d] Echo ready.\n", core)
}

// Main configures the serial port of the executing core and runs its echo
// loop, the primary core releases the secondary one first.
func Main(p *Platform, conf Config) {
	port, err := conf.Topology.Port(p.Core, p.Bus, p.Lock)

	if err != nil {
		panic(fmt.Sprintf("core%d has no serial port, %v", p.Core, err))
	}

	if err = port.Configure(conf.ClockHz, conf.Baud); err != nil {
		panic(fmt.Sprintf("core%d could not configure UART%d, %v", p.Core, port.Index, err))
	}

	if p.Core == mem.PRIMARY_CORE {
		primary(p, conf, port)
	} else {
		secondary(p, port)
	}

	// never returns
	Echo(port, p.Echoed)
}

func primary(p *Platform, conf Config, port *uart.UART) {
	port.Print(Banner(conf))

	c := &boot.Coordinator{
		Bus:    p.Bus,
		Core:   p.Core,
		Settle: p.Settle,
		Log:    p.Log,
	}

	if err := c.Release(conf.Secondary, p.Entry); err != nil {
		p.logf("core%d could not release core%d, %v", p.Core, conf.Secondary, err)
	}

	if conf.AckTimeout != 0 {
		if err := c.WaitAlive(conf.Secondary, conf.AckTimeout); err != nil {
			port.Print(fmt.Sprintf("[Core%d] Core%d not responding.\n", p.Core, conf.Secondary))
		}
	}

	port.Print(Ready(p.Core))
}

func secondary(p *Platform, port *uart.UART) {
	boot.PublishAlive(p.Bus)
	p.logf("core%d alive", p.Core)

	port.Print(Ready(p.Core))
}
