// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim implements a host model of the TMS320C6657 memory map, it
// serves as the register model for tests and as the target of the
// simulator_c6657 executable.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/usbarmory/c6657-bringup/mem"
)

// HostCore identifies accesses performed by the simulator owner rather than
// by a simulated core.
const HostCore = -1

// ErrHalted is raised (as panic value) to unwind a core accessing the bus
// after the simulation has been halted.
var ErrHalted = errors.New("simulation halted")

// Access represents a journaled bus write.
type Access struct {
	// Core is the index of the core performing the write
	Core int
	// Addr is the global address written
	Addr uint32
	// Val is the written value
	Val uint32
}

func (a Access) String() string {
	who := "host"

	if a.Core != HostCore {
		who = fmt.Sprintf("core%d", a.Core)
	}

	return fmt.Sprintf("%-5s %#.8x <- %#.8x", who, a.Addr, a.Val)
}

// Region represents a memory mapped device window, accesses within [Start,
// End) are routed to its handlers instead of plain memory.
type Region struct {
	Start uint32
	End   uint32

	// Read handles a load, a nil value reads plain memory.
	Read func(core int, addr uint32) uint32
	// Write handles a store, a nil value writes plain memory.
	Write func(core int, addr uint32, val uint32)
}

func (r *Region) contains(addr uint32) bool {
	return addr >= r.Start && addr < r.End
}

// Bus represents the chip interconnect, plain memory is sparse and reads as
// zero until written.
type Bus struct {
	sync.Mutex

	// JournalLimit bounds the number of retained journal entries, the
	// oldest are discarded first, zero retains all writes.
	JournalLimit int

	mem     map[uint32]uint32
	regions []*Region
	journal []Access
	halted  atomic.Value
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	b := &Bus{
		mem: make(map[uint32]uint32),
	}

	b.halted.Store(false)

	return b
}

// Map registers a device region.
func (b *Bus) Map(r *Region) {
	b.Lock()
	defer b.Unlock()

	b.regions = append(b.regions, r)
}

func (b *Bus) region(addr uint32) *Region {
	b.Lock()
	defer b.Unlock()

	for _, r := range b.regions {
		if r.contains(addr) {
			return r
		}
	}

	return nil
}

func (b *Bus) check() {
	if b.halted.Load().(bool) {
		panic(ErrHalted)
	}
}

// Load reads plain memory, bypassing any device region.
func (b *Bus) Load(addr uint32) uint32 {
	b.Lock()
	defer b.Unlock()

	return b.mem[addr]
}

// Store writes plain memory, bypassing any device region and the journal.
func (b *Bus) Store(addr uint32, val uint32) {
	b.Lock()
	defer b.Unlock()

	b.mem[addr] = val
}

// ReadAs performs a load on behalf of a core.
func (b *Bus) ReadAs(core int, addr uint32) uint32 {
	b.check()

	if r := b.region(addr); r != nil && r.Read != nil {
		return r.Read(core, addr)
	}

	return b.Load(addr)
}

// WriteAs performs a journaled store on behalf of a core.
func (b *Bus) WriteAs(core int, addr uint32, val uint32) {
	b.check()

	b.Lock()
	b.journal = append(b.journal, Access{Core: core, Addr: addr, Val: val})

	if n := len(b.journal) - b.JournalLimit; b.JournalLimit > 0 && n > 0 {
		b.journal = append(b.journal[:0], b.journal[n:]...)
	}

	b.Unlock()

	if r := b.region(addr); r != nil && r.Write != nil {
		r.Write(core, addr, val)
		return
	}

	b.Store(addr, val)
}

// Read performs a host load.
func (b *Bus) Read(addr uint32) uint32 {
	return b.ReadAs(HostCore, addr)
}

// Write performs a host store.
func (b *Bus) Write(addr uint32, val uint32) {
	b.WriteAs(HostCore, addr, val)
}

// Journal returns a copy of all writes performed so far, in bus order.
func (b *Bus) Journal() []Access {
	b.Lock()
	defer b.Unlock()

	j := make([]Access, len(b.journal))
	copy(j, b.journal)

	return j
}

// ResetJournal discards all journaled writes.
func (b *Bus) ResetJournal() {
	b.Lock()
	defer b.Unlock()

	b.journal = nil
}

// Halt makes any further access panic with ErrHalted.
func (b *Bus) Halt() {
	b.halted.Store(true)
}

// CoreBus is the view of the bus from a single core, L2 local alias
// addresses are translated to the core global L2 window.
type CoreBus struct {
	Bus  *Bus
	Core int
}

func (c *CoreBus) translate(addr uint32) uint32 {
	if mem.IsL2Local(addr) {
		return mem.L2Global(c.Core, addr)
	}

	return addr
}

// Read implements reg.Bus.
func (c *CoreBus) Read(addr uint32) uint32 {
	return c.Bus.ReadAs(c.Core, c.translate(addr))
}

// Write implements reg.Bus.
func (c *CoreBus) Write(addr uint32, val uint32) {
	c.Bus.WriteAs(c.Core, c.translate(addr), val)
}
