// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/usbarmory/c6657-bringup/mem"
)

type kickState int

const (
	locked kickState = iota
	kick0Written
	unlocked
)

// Locked returns whether the protected BOOTCFG region is locked.
func (c *Chip) Locked() bool {
	c.Lock()
	defer c.Unlock()

	return c.kick != unlocked
}

func (c *Chip) writeKick(addr uint32, val uint32) {
	c.Lock()
	defer c.Unlock()

	switch {
	case addr == mem.KICK0 && val == mem.KICK0_UNLOCK:
		if c.kick == locked {
			c.kick = kick0Written
		}
	case addr == mem.KICK1 && val == mem.KICK1_UNLOCK && c.kick == kick0Written:
		c.kick = unlocked
		c.logf("SIM BOOTCFG unlocked")
	default:
		if c.kick != locked {
			c.logf("SIM BOOTCFG locked")
		}

		c.kick = locked
	}
}

func (c *Chip) kickRegion() *Region {
	return &Region{
		Start: mem.KICK0,
		End:   mem.KICK1 + 4,
		Read: func(_ int, _ uint32) uint32 {
			// KICK registers read as zero
			return 0
		},
		Write: func(_ int, addr uint32, val uint32) {
			c.writeKick(addr, val)
		},
	}
}

func (c *Chip) slotRegion(core int) *Region {
	addr := mem.BootMagicAddr(core)

	return &Region{
		Start: addr,
		End:   addr + 4,
		Write: func(from int, addr uint32, val uint32) {
			if c.Locked() {
				c.logf("SIM core%d boot slot write %#.8x dropped (BOOTCFG locked)", core, val)
				return
			}

			c.Bus.Store(addr, val)
		},
	}
}

func (c *Chip) ipcRegion() *Region {
	return &Region{
		Start: mem.IPCGR(0),
		End:   mem.IPCGR(mem.MAX_CORE),
		Read: func(_ int, _ uint32) uint32 {
			return 0
		},
		Write: func(from int, addr uint32, val uint32) {
			core := int(addr-mem.IPCGR_BASE) / 4

			if c.Locked() {
				c.logf("SIM core%d IPCGR write %#x dropped (BOOTCFG locked)", core, val)
				return
			}

			if val == 0 {
				return
			}

			c.wake(core)
		},
	}
}
