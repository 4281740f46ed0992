// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/c6657-bringup/mem"
)

func unlock(c *Chip) {
	c.Bus.Write(mem.KICK0, mem.KICK0_UNLOCK)
	c.Bus.Write(mem.KICK1, mem.KICK1_UNLOCK)
}

func waitState(t *testing.T, c *Chip, core int, state State) CoreStatus {
	t.Helper()

	var s CoreStatus

	require.Eventually(t, func() bool {
		s = c.Cores()[core]
		return s.State == state
	}, 5*time.Second, time.Millisecond, "core%d not %s", core, state)

	return s
}

func TestBusJournal(t *testing.T) {
	b := NewBus()
	b.JournalLimit = 2

	b.Write(0x10, 1)
	b.WriteAs(0, 0x14, 2)
	b.WriteAs(1, 0x18, 3)

	require.Equal(t, []Access{
		{Core: 0, Addr: 0x14, Val: 2},
		{Core: 1, Addr: 0x18, Val: 3},
	}, b.Journal())

	require.Equal(t, uint32(1), b.Read(0x10))
	require.Zero(t, b.Read(0x1c))

	b.Store(0x1c, 4)
	require.Equal(t, uint32(4), b.Load(0x1c))
	require.Len(t, b.Journal(), 2)

	b.ResetJournal()
	require.Empty(t, b.Journal())
}

func TestAccessString(t *testing.T) {
	require.Equal(t, "host  0x02620038 <- 0x83e70b13", Access{Core: HostCore, Addr: mem.KICK0, Val: mem.KICK0_UNLOCK}.String())
	require.Equal(t, "core1 0x118ffffc <- 0xbabeface", Access{Core: 1, Addr: 0x118ffffc, Val: mem.BOOT_MAGIC_NUMBER}.String())
}

func TestBusHalt(t *testing.T) {
	b := NewBus()
	b.Halt()

	require.PanicsWithValue(t, ErrHalted, func() { b.Read(0) })
	require.PanicsWithValue(t, ErrHalted, func() { b.Write(0, 0) })
}

func TestCoreBusAlias(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	c.CoreBus(1).Write(mem.L2_LOCAL_START, 0xaa)
	c.CoreBus(0).Write(mem.L2_LOCAL_START, 0xbb)

	require.Equal(t, uint32(0xaa), c.Bus.Load(0x11800000))
	require.Equal(t, uint32(0xbb), c.Bus.Load(0x10800000))

	// peripheral addresses are not translated
	c.CoreBus(1).Write(mem.UART0_BASE+mem.UART_SCR, 0x5a)
	require.Equal(t, uint32(0x5a), c.CoreBus(0).Read(mem.UART0_BASE+mem.UART_SCR))
}

func TestKick(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	require.True(t, c.Locked())

	// wrong order
	c.Bus.Write(mem.KICK1, mem.KICK1_UNLOCK)
	c.Bus.Write(mem.KICK0, mem.KICK0_UNLOCK)
	require.True(t, c.Locked())

	// interrupted sequence
	c.Bus.Write(mem.KICK1, 0)
	c.Bus.Write(mem.KICK0, mem.KICK0_UNLOCK)
	c.Bus.Write(mem.KICK1, 0x1234)
	c.Bus.Write(mem.KICK1, mem.KICK1_UNLOCK)
	require.True(t, c.Locked())

	unlock(c)
	require.False(t, c.Locked())
	require.Zero(t, c.Bus.Read(mem.KICK0))

	c.Bus.Write(mem.KICK0, 0)
	require.True(t, c.Locked())
}

func TestSlotLocked(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	slot := mem.BootMagicAddr(1)

	c.Bus.Write(slot, 0x1000)
	require.Zero(t, c.Bus.Read(slot))

	c.Bus.Write(mem.IPCGR(1), 1)
	require.Equal(t, Halted, c.Cores()[1].State)

	unlock(c)

	c.Bus.Write(slot, 0x1000)
	require.Equal(t, uint32(0x1000), c.Bus.Read(slot))
}

func TestWakeNoProgram(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	unlock(c)

	c.Bus.Write(mem.BootMagicAddr(1), 0x5000)
	c.Bus.Write(mem.IPCGR(1), 0)
	require.NoError(t, c.Cores()[1].Err)

	c.Bus.Write(mem.IPCGR(1), 1)

	s := c.Cores()[1]
	require.Equal(t, Halted, s.State)
	require.Equal(t, uint32(0x5000), s.Entry)
	require.EqualError(t, s.Err, "no program at entry 0x00005000")

	require.Error(t, c.PowerOn(0x6000))
}

func TestWake(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	started := make(chan int, 2)

	c.Load(0x1000, func(core int, bus *CoreBus) {
		started <- core

		for {
			bus.Read(mem.MAGIC_ADDR)
		}
	})

	unlock(c)

	c.Bus.Write(mem.BootMagicAddr(1), 0x1000)
	c.Bus.Write(mem.IPCGR(1), 1)
	require.Equal(t, 1, <-started)

	// a running core ignores further IPCs
	c.Bus.Write(mem.IPCGR(1), 1)
	require.Equal(t, Running, c.Cores()[1].State)
	require.Len(t, started, 0)

	c.Halt()

	s := waitState(t, c, 1, Stopped)
	require.NoError(t, s.Err)
	require.Contains(t, s.String(), "core1: stopped")
}

func TestFault(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	c.Load(0x1000, func(core int, bus *CoreBus) {
		panic("illegal instruction")
	})

	require.NoError(t, c.PowerOn(0x1000))

	s := waitState(t, c, 0, Faulted)
	require.EqualError(t, s.Err, "illegal instruction")
}

func TestUARTModel(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	bus := c.CoreBus(0)
	u := c.UART[0]
	base := uint32(mem.UART0_BASE)

	require.Equal(t, uint32(1), bus.Read(base+mem.UART_IIR))

	bus.Write(base+mem.UART_FCR, 1<<mem.FCR_FIFOEN)
	require.Equal(t, uint32(0xc1), bus.Read(base+mem.UART_IIR))

	// disabled controller
	bus.Write(base+mem.UART_MDR, mem.MDR_DISABLE)
	bus.Write(base+mem.UART_THR, 'a')
	require.Empty(t, u.Drain())

	u.Write([]byte("xy"))
	require.Zero(t, bus.Read(base+mem.UART_LSR)&(1<<mem.LSR_DR))

	bus.Write(base+mem.UART_MDR, mem.MDR_16X)
	require.NotZero(t, bus.Read(base+mem.UART_LSR)&(1<<mem.LSR_DR))
	require.NotZero(t, bus.Read(base+mem.UART_LSR)&(1<<mem.LSR_THRE))
	require.Equal(t, uint32('x'), bus.Read(base+mem.UART_RBR))
	require.Equal(t, 1, u.Pending())

	bus.Write(base+mem.UART_FCR, 1<<mem.FCR_RXCLR)
	require.Zero(t, u.Pending())
	require.Zero(t, bus.Read(base+mem.UART_LSR)&(1<<mem.LSR_DR))

	bus.Write(base+mem.UART_THR, 'b')
	require.Equal(t, []byte("b"), u.Drain())

	bus.Write(base+mem.UART_DLL, 0x150)
	bus.Write(base+mem.UART_DLH, 0x01)
	require.Equal(t, uint32(0x0150), u.Config().Divisor)

	bus.Write(base+mem.UART_THR, 'c')

	buf := make([]byte, 4)
	n, err := c.Serial(0).Read(buf)
	require.NoError(t, err)
	require.Equal(t, "c", string(buf[:n]))

	u.Close()

	_, err = u.Read(buf)
	require.Equal(t, io.EOF, err)

	_, err = u.Write([]byte("z"))
	require.Error(t, err)
}

func TestUARTIdle(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	bus := c.CoreBus(0)
	lsr := uint32(mem.UART0_BASE + mem.UART_LSR)

	for i := 0; i < idlePolls; i++ {
		bus.Read(lsr)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.UART[0].Write([]byte{'!'})
	}()

	// lingering reads observe data as soon as it arrives
	require.Eventually(t, func() bool {
		return bus.Read(lsr)&(1<<mem.LSR_DR) != 0
	}, 5*time.Second, time.Millisecond)
}

func TestSemaphores(t *testing.T) {
	c := NewChip(nil)
	defer c.Halt()

	direct := uint32(mem.SEM_BASE + mem.SEM_DIRECT + 4*3)

	require.Equal(t, uint32(1), c.CoreBus(1).Read(direct))
	require.Zero(t, c.CoreBus(0).Read(direct))

	core, taken := c.SEM.Owner(3)
	require.True(t, taken)
	require.Equal(t, 1, core)

	c.CoreBus(1).Write(direct, 1)

	_, taken = c.SEM.Owner(3)
	require.False(t, taken)
	require.Equal(t, uint32(1), c.CoreBus(0).Read(direct))
}
