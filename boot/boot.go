// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package boot implements the release of a halted secondary core by the
// primary core.
//
// The release signal is one-shot and carries no acknowledgement, Release
// therefore cannot report whether the target core started. A core which never
// starts, because of insufficient settle margins or because the BOOTCFG
// region did not unlock, is only observable through its missing output.
// WaitAlive provides an optional, bounded, liveness check on top of that.
package boot

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
)

// Settle margins around the IPC release signal.
const (
	EntrySettle   = 1 * time.Microsecond
	ReleaseSettle = 1 * time.Millisecond
)

var (
	// ErrNotPrimary is returned when release is attempted from a core other
	// than the primary one.
	ErrNotPrimary = errors.New("release must be performed by the primary core")
	// ErrNoAck is returned when a released core did not publish its
	// liveness marker in time.
	ErrNoAck = errors.New("no liveness acknowledgement")
)

// Coordinator performs the boot-release handshake, it touches chip global
// state and must not be used concurrently from different cores.
type Coordinator struct {
	// Bus is the primary core view of the chip
	Bus reg.Bus
	// Core is the index of the executing core
	Core int
	// Settle implements the delays around the release signal
	Settle Settler
	// Log, when not nil, traces the handshake steps
	Log *log.Logger
}

func (c *Coordinator) logf(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, v...)
	}
}

// Unlock writes the two KICK magic values that open the protected BOOTCFG
// region, the result is not verified.
func (c *Coordinator) Unlock() {
	c.Bus.Write(mem.KICK0, mem.KICK0_UNLOCK)
	c.Bus.Write(mem.KICK1, mem.KICK1_UNLOCK)
}

// Release programs the entry point of a halted core and raises its IPC
// wakeup. The BOOTCFG region is left unlocked.
//
// Only precondition violations are reported, there is no hardware feedback
// on the outcome.
func (c *Coordinator) Release(core int, entry uint32) (err error) {
	if c.Core != mem.PRIMARY_CORE {
		return ErrNotPrimary
	}

	if core != mem.SECONDARY_CORE {
		return fmt.Errorf("unsupported core %d", core)
	}

	c.logf("core%d unlocking BOOTCFG", c.Core)
	c.Unlock()

	c.logf("core%d programming core%d entry:%#.8x slot:%#.8x", c.Core, core, entry, mem.BootMagicAddr(core))
	c.Bus.Write(mem.BootMagicAddr(core), entry)
	c.Settle.Settle(EntrySettle)

	c.logf("core%d raising core%d IPC", c.Core, core)
	c.Bus.Write(mem.IPCGR(core), 1<<mem.IPCGR_IPCG)
	c.Settle.Settle(ReleaseSettle)

	return
}
