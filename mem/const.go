// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem holds the TMS320C6657 address map shared by the boot-release
// coordinator, the UART transport and the chip simulator.
package mem

// Chip level (BOOTCFG) registers
const (
	CHIP_LEVEL_REG = 0x02620000

	// KICK registers gate writes to the protected BOOTCFG region, the
	// region is unlocked by writing KICK0_UNLOCK to KICK0 and then
	// KICK1_UNLOCK to KICK1.
	KICK0 = CHIP_LEVEL_REG + 0x0038
	KICK1 = CHIP_LEVEL_REG + 0x003c

	KICK0_UNLOCK = 0x83e70b13
	KICK1_UNLOCK = 0x95a4f1e0

	// IPC Generation Registers, one per core
	IPCGR_BASE = CHIP_LEVEL_REG + 0x0240

	// IPCGR bit 0 raises the IPC interrupt towards the target core
	IPCGR_IPCG = 0
)

// Cores
const (
	PRIMARY_CORE   = 0
	SECONDARY_CORE = 1
	MAX_CORE       = 2
)

// Boot magic
const (
	// MAGIC_ADDR is the boot magic slot as addressed by each core through
	// its own L2 local alias.
	MAGIC_ADDR = 0x008ffffc

	// BOOT_MAGIC_NUMBER is published by a released core in its own slot
	// once it is running.
	BOOT_MAGIC_NUMBER = 0xbabeface
)

// Peripherals
const (
	UART0_BASE = 0x02540000
	UART1_BASE = 0x02550000

	SEM_BASE = 0x02640000
)
