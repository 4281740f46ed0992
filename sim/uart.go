// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"io"
	"sync"
	"time"

	"github.com/usbarmory/c6657-bringup/mem"
)

// Once more than idlePolls consecutive status reads found the receiver
// empty, each further read lingers up to pollWait for incoming data. This
// keeps polling cores from saturating the host.
const (
	idlePolls = 64
	pollWait  = time.Millisecond
)

// UART models a 16550 compatible controller, transmission is instantaneous.
//
// The host side of the serial line is exposed through Read (bytes sent by the
// chip) and Write (bytes received by the chip).
type UART struct {
	sync.Mutex

	// Index is the controller index
	Index int
	// Base is the register base address
	Base uint32

	ier uint32
	lcr uint32
	mcr uint32
	scr uint32
	fcr uint32
	dll uint32
	dlh uint32
	mdr uint32
	rbr uint32

	idle   int
	rx     []byte
	tx     []byte
	rxCond *sync.Cond
	txCond *sync.Cond
	closed bool
}

// NewUART returns a controller in its reset state.
func NewUART(index int, base uint32) *UART {
	u := &UART{
		Index: index,
		Base:  base,
	}

	u.rxCond = sync.NewCond(&u.Mutex)
	u.txCond = sync.NewCond(&u.Mutex)

	return u
}

// Region returns the bus region of the controller registers.
func (u *UART) Region() *Region {
	return &Region{
		Start: u.Base,
		End:   u.Base + mem.UART_MDR + 4,
		Read: func(_ int, addr uint32) uint32 {
			return u.read(addr - u.Base)
		},
		Write: func(_ int, addr uint32, val uint32) {
			u.write(addr-u.Base, val)
		},
	}
}

func (u *UART) enabled() bool {
	return u.mdr != mem.MDR_DISABLE
}

func (u *UART) lsr() (lsr uint32) {
	lsr = 1<<mem.LSR_THRE | 1<<mem.LSR_TEMT

	if len(u.rx) > 0 && u.enabled() {
		lsr |= 1 << mem.LSR_DR
	}

	return
}

func (u *UART) read(off uint32) uint32 {
	u.Lock()
	defer u.Unlock()

	switch off {
	case mem.UART_RBR:
		if len(u.rx) > 0 && u.enabled() {
			u.rbr = uint32(u.rx[0])
			u.rx = u.rx[1:]
		}

		return u.rbr
	case mem.UART_IER:
		return u.ier
	case mem.UART_IIR:
		// no interrupt pending
		iir := uint32(1)

		if u.fcr&(1<<mem.FCR_FIFOEN) != 0 {
			iir |= 0xc0
		}

		return iir
	case mem.UART_LCR:
		return u.lcr
	case mem.UART_MCR:
		return u.mcr
	case mem.UART_LSR:
		if len(u.rx) > 0 || u.closed {
			u.idle = 0
		} else if u.idle++; u.idle > idlePolls {
			u.waitRx(pollWait)
		}

		return u.lsr()
	case mem.UART_SCR:
		return u.scr
	case mem.UART_DLL:
		return u.dll
	case mem.UART_DLH:
		return u.dlh
	case mem.UART_MDR:
		return u.mdr
	}

	return 0
}

// waitRx waits, with the lock held, until data is received or d elapses.
func (u *UART) waitRx(d time.Duration) {
	t := time.AfterFunc(d, func() {
		u.Lock()
		u.rxCond.Broadcast()
		u.Unlock()
	})
	defer t.Stop()

	u.rxCond.Wait()
}

func (u *UART) write(off uint32, val uint32) {
	u.Lock()
	defer u.Unlock()

	switch off {
	case mem.UART_THR:
		if !u.enabled() {
			return
		}

		u.idle = 0
		u.tx = append(u.tx, byte(val))
		u.txCond.Broadcast()
	case mem.UART_IER:
		u.ier = val & 0xff
	case mem.UART_FCR:
		u.fcr = val & 0xff

		if val&(1<<mem.FCR_RXCLR) != 0 {
			u.rx = nil
		}
	case mem.UART_LCR:
		u.lcr = val & 0xff
	case mem.UART_MCR:
		u.mcr = val & 0xff
	case mem.UART_SCR:
		u.scr = val & 0xff
	case mem.UART_DLL:
		u.dll = val & 0xff
	case mem.UART_DLH:
		u.dlh = val & 0xff
	case mem.UART_MDR:
		u.mdr = val & 0x7
	}
}

// Config represents the programmed controller state.
type Config struct {
	IER     uint32
	LCR     uint32
	MCR     uint32
	FCR     uint32
	MDR     uint32
	Divisor uint32
}

// Config returns the programmed controller state.
func (u *UART) Config() Config {
	u.Lock()
	defer u.Unlock()

	return Config{
		IER:     u.ier,
		LCR:     u.lcr,
		MCR:     u.mcr,
		FCR:     u.fcr,
		MDR:     u.mdr,
		Divisor: u.dlh<<8 | u.dll,
	}
}

// Pending returns the number of received bytes not yet read by the chip.
func (u *UART) Pending() int {
	u.Lock()
	defer u.Unlock()

	return len(u.rx)
}

// Write delivers bytes to the chip receiver.
func (u *UART) Write(buf []byte) (n int, err error) {
	u.Lock()
	defer u.Unlock()

	if u.closed {
		return 0, io.ErrClosedPipe
	}

	u.rx = append(u.rx, buf...)
	u.rxCond.Broadcast()

	return len(buf), nil
}

// Read returns bytes transmitted by the chip, blocking until at least one is
// available or the controller is closed.
func (u *UART) Read(buf []byte) (n int, err error) {
	u.Lock()
	defer u.Unlock()

	for len(u.tx) == 0 && !u.closed {
		u.txCond.Wait()
	}

	if len(u.tx) == 0 {
		return 0, io.EOF
	}

	n = copy(buf, u.tx)
	u.tx = u.tx[n:]

	return
}

// Drain returns, without blocking, all bytes transmitted by the chip so far.
func (u *UART) Drain() (buf []byte) {
	u.Lock()
	defer u.Unlock()

	buf = u.tx
	u.tx = nil

	return
}

// Close terminates the host side of the serial line.
func (u *UART) Close() error {
	u.Lock()
	defer u.Unlock()

	u.closed = true
	u.rxCond.Broadcast()
	u.txCond.Broadcast()

	return nil
}
