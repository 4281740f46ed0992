// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	regs   map[uint32]uint32
	reads  int
	writes int
}

func (b *fakeBus) Read(addr uint32) uint32 {
	b.reads++
	return b.regs[addr]
}

func (b *fakeBus) Write(addr uint32, val uint32) {
	b.writes++
	b.regs[addr] = val
}

func TestFieldAccess(t *testing.T) {
	bus := &fakeBus{regs: map[uint32]uint32{0x10: 0xf0}}

	require.Equal(t, uint32(0xf), Get(bus, 0x10, 4, 0xf))
	require.True(t, IsSet(bus, 0x10, 7))
	require.False(t, IsSet(bus, 0x10, 0))
	require.Equal(t, 3, bus.reads)
	require.Zero(t, bus.writes)
}

type countdownBus struct {
	fakeBus
	left int
}

func (b *countdownBus) Read(addr uint32) uint32 {
	if b.left--; b.left <= 0 {
		return 1
	}

	return 0
}

func TestWaitPolls(t *testing.T) {
	bus := &countdownBus{left: 5}

	Wait(bus, 0, 0, 1, 1)
	require.Equal(t, 0, bus.left)
}

// mmioWords backs TestMMIO, statically allocated so that its address stays
// valid as a plain integer offset.
var mmioWords [4]uint32

func TestMMIO(t *testing.T) {
	m := &MMIO{Offset: uintptr(unsafe.Pointer(&mmioWords))}

	m.Write(8, 0xbabeface)
	require.Equal(t, uint32(0xbabeface), mmioWords[2])

	mmioWords[1] = 0x1234
	require.Equal(t, uint32(0x1234), m.Read(4))
}
