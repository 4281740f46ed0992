// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// BootMagicAddr returns the global address of the boot magic slot of a core,
// the address is read by the core boot ROM on IPC wakeup to find its entry
// point.
func BootMagicAddr(core int) uint32 {
	return L2Global(core, MAGIC_ADDR)
}

// IPCGR returns the IPC Generation Register address of a core.
func IPCGR(core int) uint32 {
	return IPCGR_BASE + uint32(core)*4
}

// ValidCore returns whether core is a supported core index.
func ValidCore(core int) bool {
	return core >= 0 && core < MAX_CORE
}
