// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package uart implements a polled driver for the 16550 compatible UART
// controllers of the TMS320C6657.
//
// The driver never enables controller interrupts, Tx and Rx busy-poll the
// line status register without any timeout: a controller which never reports
// ready blocks the calling core forever.
package uart

import (
	"errors"
	"sync"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
)

// UART represents a serial port instance.
type UART struct {
	// Controller index
	Index int
	// Base register
	Base uint32
	// Bus is the register view of the executing core
	Bus reg.Bus
	// Lock, when not nil, guards every register access sequence against
	// other cores sharing the same controller.
	Lock sync.Locker
}

func (hw *UART) reg(off uint32) uint32 {
	return hw.Base + off
}

func (hw *UART) lock() {
	if hw.Lock != nil {
		hw.Lock.Lock()
	}
}

func (hw *UART) unlock() {
	if hw.Lock != nil {
		hw.Lock.Unlock()
	}
}

// Divisor returns the baud rate divisor for a 16x oversampling controller,
// rounded to the nearest integer with halves rounded up. A zero baud rate has
// no divisor and yields 0.
func Divisor(clockHz uint32, baud uint32) uint32 {
	if baud == 0 {
		return 0
	}

	return uint32((uint64(clockHz) + uint64(baud)*8) / (uint64(baud) * 16))
}

// Configure programs the controller for polled 8N1 operation at the given
// baud rate, the procedure can be repeated at any time.
func (hw *UART) Configure(clockHz uint32, baud uint32) (err error) {
	if baud == 0 {
		return errors.New("invalid baud rate")
	}

	div := Divisor(clockHz, baud)

	if div == 0 || div > 0xffff {
		return errors.New("baud rate not achievable with this clock")
	}

	hw.lock()
	defer hw.unlock()

	bus := hw.Bus

	// disable interrupts
	bus.Write(hw.reg(mem.UART_IER), 0)
	// disable controller during configuration
	bus.Write(hw.reg(mem.UART_MDR), mem.MDR_DISABLE)

	// select divisor latch access
	bus.Write(hw.reg(mem.UART_LCR), 1<<mem.LCR_DLAB)
	bus.Write(hw.reg(mem.UART_DLL), div&0xff)
	bus.Write(hw.reg(mem.UART_DLH), (div>>8)&0xff)

	// 8N1, clear divisor latch access
	bus.Write(hw.reg(mem.UART_LCR), mem.LCR_8N1)

	// enable and clear FIFOs
	bus.Write(hw.reg(mem.UART_FCR), 1<<mem.FCR_FIFOEN|1<<mem.FCR_RXCLR|1<<mem.FCR_TXCLR)

	// no modem control, no flow control
	bus.Write(hw.reg(mem.UART_MCR), 0)

	// 16x oversampling mode
	bus.Write(hw.reg(mem.UART_MDR), mem.MDR_16X)

	// discard stale status and data
	bus.Read(hw.reg(mem.UART_LSR))
	bus.Read(hw.reg(mem.UART_RBR))

	return
}

func (hw *UART) txReady() bool {
	return reg.IsSet(hw.Bus, hw.reg(mem.UART_LSR), mem.LSR_THRE)
}

func (hw *UART) rxReady() bool {
	return reg.IsSet(hw.Bus, hw.reg(mem.UART_LSR), mem.LSR_DR)
}

// tx transmits a single character, the lock must be held.
func (hw *UART) tx(c byte) {
	reg.Wait(hw.Bus, hw.reg(mem.UART_LSR), mem.LSR_THRE, 1, 1)
	hw.Bus.Write(hw.reg(mem.UART_THR), uint32(c))
}

// Tx transmits a single character to the serial port.
func (hw *UART) Tx(c byte) {
	if hw.Lock == nil {
		hw.tx(c)
		return
	}

	for {
		hw.lock()

		if hw.txReady() {
			hw.Bus.Write(hw.reg(mem.UART_THR), uint32(c))
			hw.unlock()
			return
		}

		hw.unlock()
	}
}

// Rx receives a single character from the serial port, blocking until one is
// available.
func (hw *UART) Rx() (c byte) {
	if hw.Lock == nil {
		reg.Wait(hw.Bus, hw.reg(mem.UART_LSR), mem.LSR_DR, 1, 1)
		return byte(hw.Bus.Read(hw.reg(mem.UART_RBR)))
	}

	// the lock is released between polls so that other cores can keep
	// transmitting while this one waits
	for {
		hw.lock()

		if hw.rxReady() {
			c = byte(hw.Bus.Read(hw.reg(mem.UART_RBR)))
			hw.unlock()
			return
		}

		hw.unlock()
	}
}

// Write transmits buf to the serial port, each line feed is preceded by a
// carriage return. The returned count refers to bytes of buf.
func (hw *UART) Write(buf []byte) (n int, _ error) {
	hw.lock()
	defer hw.unlock()

	for _, c := range buf {
		if c == '\n' {
			hw.tx('\r')
		}

		hw.tx(c)
	}

	return len(buf), nil
}

// Print transmits s to the serial port, with the same line feed expansion of
// Write.
func (hw *UART) Print(s string) {
	hw.Write([]byte(s))
}

// Read fills buf with received characters, blocking until all of them are
// available. Received data is not transformed.
func (hw *UART) Read(buf []byte) (n int, _ error) {
	for n = range buf {
		buf[n] = hw.Rx()
	}

	return len(buf), nil
}
