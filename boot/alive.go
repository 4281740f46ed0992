// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"time"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
)

// alivePoll is the interval between two liveness checks.
const alivePoll = 10 * time.Microsecond

// PublishAlive marks the executing core as running by overwriting its own
// boot magic slot, which no longer holds an entry point afterwards.
func PublishAlive(bus reg.Bus) {
	bus.Write(mem.MAGIC_ADDR, mem.BOOT_MAGIC_NUMBER)
}

// Alive returns whether a core has published its liveness marker.
func (c *Coordinator) Alive(core int) bool {
	return c.Bus.Read(mem.BootMagicAddr(core)) == mem.BOOT_MAGIC_NUMBER
}

// WaitAlive polls the boot magic slot of a released core until it holds the
// liveness marker or the timeout expires. The timeout is measured on the
// settler Clock when available, otherwise as the sum of requested delays.
func (c *Coordinator) WaitAlive(core int, timeout time.Duration) (err error) {
	var start time.Time
	var waited time.Duration

	clock, timed := c.Settle.(Clock)

	if timed {
		start = clock.Now()
	}

	for !c.Alive(core) {
		if timed {
			waited = clock.Now().Sub(start)
		}

		if waited >= timeout {
			return ErrNoAck
		}

		c.Settle.Settle(alivePoll)

		if !timed {
			waited += alivePoll
		}
	}

	c.logf("core%d alive", core)

	return
}
