// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides access to memory mapped 32-bit registers through an
// injected bus handle.
//
// Every Read and Write is expected to reach the bus, implementations must not
// cache, merge, reorder or elide accesses.
package reg

import (
	"github.com/usbarmory/tamago/bits"
)

// Bus represents a 32-bit register view of memory.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr uint32, val uint32)
}

// Get returns a register field at a specific bit position and with a bitmask
// applied.
func Get(bus Bus, addr uint32, pos int, mask int) uint32 {
	val := bus.Read(addr)
	return bits.Get(&val, pos, mask)
}

// IsSet returns whether an individual register bit is set.
func IsSet(bus Bus, addr uint32, pos int) bool {
	return Get(bus, addr, pos, 1) == 1
}

// Wait polls a register field until it equals val, there is no timeout.
func Wait(bus Bus, addr uint32, pos int, mask int, val uint32) {
	for Get(bus, addr, pos, mask) != val {
	}
}
