// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/sim"
)

type recordSettler struct {
	bus    *sim.Bus
	delays []time.Duration
	marks  []int
}

func (r *recordSettler) Settle(d time.Duration) {
	r.delays = append(r.delays, d)
	r.marks = append(r.marks, len(r.bus.Journal()))
}

func TestReleaseOrdering(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	started := make(chan int, 1)

	chip.Load(0x1000, func(core int, _ *sim.CoreBus) {
		started <- core
	})

	settle := &recordSettler{bus: chip.Bus}

	c := &Coordinator{
		Bus:    chip.CoreBus(mem.PRIMARY_CORE),
		Core:   mem.PRIMARY_CORE,
		Settle: settle,
	}

	require.NoError(t, c.Release(1, 0x1000))

	journal := chip.Bus.Journal()

	require.Equal(t, []sim.Access{
		{Core: 0, Addr: mem.KICK0, Val: 0x83e70b13},
		{Core: 0, Addr: mem.KICK1, Val: 0x95a4f1e0},
		{Core: 0, Addr: 0x118ffffc, Val: 0x1000},
		{Core: 0, Addr: mem.IPCGR(1), Val: 1},
	}, journal)

	for _, a := range journal {
		require.NotEqual(t, mem.BootMagicAddr(0), a.Addr)
	}

	// entry settle between slot and IPCGR, release settle after IPCGR
	require.Equal(t, []time.Duration{EntrySettle, ReleaseSettle}, settle.delays)
	require.Equal(t, []int{3, 4}, settle.marks)

	select {
	case core := <-started:
		require.Equal(t, 1, core)
	case <-time.After(time.Second):
		t.Fatal("core1 not started")
	}

	require.False(t, chip.Locked())
}

func TestReleasePreconditions(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	c := &Coordinator{
		Bus:    chip.CoreBus(1),
		Core:   1,
		Settle: Sleep{},
	}

	require.ErrorIs(t, c.Release(1, 0x1000), ErrNotPrimary)

	c.Core = 0
	c.Bus = chip.CoreBus(0)

	require.Error(t, c.Release(0, 0x1000))
	require.Error(t, c.Release(2, 0x1000))
	require.Empty(t, chip.Bus.Journal())
}

func TestReleaseWithoutUnlock(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	chip.Load(0x1000, func(_ int, _ *sim.CoreBus) {})

	bus := chip.CoreBus(0)

	// skip the KICK sequence, writes must be ignored by the chip
	bus.Write(mem.BootMagicAddr(1), 0x1000)
	bus.Write(mem.IPCGR(1), 1)

	require.True(t, chip.Locked())
	require.Equal(t, uint32(0), chip.Bus.Load(mem.BootMagicAddr(1)))
	require.Equal(t, sim.Halted, chip.Cores()[1].State)
}

func TestWaitAlive(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	chip.Load(0x1000, func(_ int, bus *sim.CoreBus) {
		PublishAlive(bus)
	})

	c := &Coordinator{
		Bus:    chip.CoreBus(0),
		Core:   0,
		Settle: Sleep{},
	}

	require.NoError(t, c.Release(1, 0x1000))
	require.NoError(t, c.WaitAlive(1, time.Second))

	// the slot now holds the marker rather than the entry point
	require.Equal(t, uint32(mem.BOOT_MAGIC_NUMBER), chip.Bus.Load(mem.BootMagicAddr(1)))
	require.False(t, c.Alive(0))
}

func TestWaitAliveTimeout(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	c := &Coordinator{
		Bus:    chip.CoreBus(0),
		Core:   0,
		Settle: Sleep{},
	}

	// nothing loaded at the entry point, core1 stays halted
	require.NoError(t, c.Release(1, 0x2000))
	require.ErrorIs(t, c.WaitAlive(1, time.Millisecond), ErrNoAck)

	require.Equal(t, sim.Halted, chip.Cores()[1].State)
	require.Error(t, chip.Cores()[1].Err)
}

func TestWaitAliveBusyCore(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	chip.Load(0x2000, func(core int, bus *sim.CoreBus) {
		// never publishes its marker, keeps the bus busy
		for {
			bus.Read(mem.MAGIC_ADDR)
		}
	})

	c := &Coordinator{
		Bus:    chip.CoreBus(0),
		Core:   0,
		Settle: Sleep{},
	}

	require.NoError(t, c.Release(1, 0x2000))
	require.Equal(t, sim.Running, chip.Cores()[1].State)

	start := time.Now()
	require.ErrorIs(t, c.WaitAlive(1, 20*time.Millisecond), ErrNoAck)
	elapsed := time.Since(start)

	require.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
}

type countSettler struct {
	calls int
}

func (s *countSettler) Settle(time.Duration) {
	s.calls++
}

func TestWaitAliveUnclocked(t *testing.T) {
	chip := sim.NewChip(nil)
	defer chip.Halt()

	settle := &countSettler{}

	c := &Coordinator{
		Bus:    chip.CoreBus(0),
		Core:   0,
		Settle: settle,
	}

	// without a clock the timeout is the sum of poll intervals
	require.ErrorIs(t, c.WaitAlive(1, 5*alivePoll), ErrNoAck)
	require.Equal(t, 5, settle.calls)
}

func TestSpinSettle(t *testing.T) {
	s := &Spin{LoopsPerMicrosecond: 3}

	s.Settle(2 * time.Microsecond)
	require.Equal(t, uint32(6), s.n)

	s.Settle(time.Nanosecond)
	require.Equal(t, uint32(9), s.n)

	d := &Spin{}
	d.Settle(time.Microsecond)
	require.Equal(t, uint32(DefaultLoopsPerMicrosecond), d.n)
}
