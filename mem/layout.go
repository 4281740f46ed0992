// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// Each core sees its own L2 SRAM at the local alias window, the same memory
// is reachable by any core at the global address:
//
//	0x1<core>800000 - 0x1<core>8fffff
const (
	L2_LOCAL_START = 0x00800000
	L2_SIZE        = 0x00100000 // 1MB

	l2GlobalBit   = 28
	l2CoreShift   = 24
	l2GlobalStart = 1 << l2GlobalBit
)

// IsL2Local returns whether addr falls within the L2 local alias window.
func IsL2Local(addr uint32) bool {
	return addr >= L2_LOCAL_START && addr < L2_LOCAL_START+L2_SIZE
}

// L2Global translates a core local L2 alias address to its global address.
func L2Global(core int, local uint32) uint32 {
	return local + l2GlobalStart + uint32(core)<<l2CoreShift
}

