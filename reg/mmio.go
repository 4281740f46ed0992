// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync/atomic"
	"unsafe"
)

// MMIO accesses physical memory directly, it is the Bus used by firmware
// running on the target.
type MMIO struct {
	// Offset is added to every address before access, it is zero on the
	// target.
	Offset uintptr
}

func (m *MMIO) ptr(addr uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(m.Offset + uintptr(addr)))
}

// Read performs a 32-bit load from addr.
func (m *MMIO) Read(addr uint32) uint32 {
	return atomic.LoadUint32(m.ptr(addr))
}

// Write performs a 32-bit store to addr.
func (m *MMIO) Write(addr uint32, val uint32) {
	atomic.StoreUint32(m.ptr(addr), val)
}
