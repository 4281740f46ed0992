// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package mem

// UART register offsets
const (
	UART_RBR = 0x00 // read
	UART_THR = 0x00 // write
	UART_IER = 0x04
	UART_IIR = 0x08 // read
	UART_FCR = 0x08 // write
	UART_LCR = 0x0c
	UART_MCR = 0x10
	UART_LSR = 0x14
	UART_MSR = 0x18
	UART_SCR = 0x1c
	UART_DLL = 0x20
	UART_DLH = 0x24

	UART_PWREMU_MGMT = 0x30
	UART_MDR         = 0x34
)

// UART_LSR bits
const (
	LSR_DR   = 0
	LSR_THRE = 5
	LSR_TEMT = 6
)

// UART_LCR bits
const (
	LCR_WLS  = 0
	LCR_STB  = 2
	LCR_PEN  = 3
	LCR_DLAB = 7

	// 8 data bits, no parity, 1 stop bit
	LCR_8N1 = 0x03
)

// UART_FCR bits
const (
	FCR_FIFOEN = 0
	FCR_RXCLR  = 1
	FCR_TXCLR  = 2
)

// UART_MDR values
const (
	MDR_16X     = 0x00
	MDR_DISABLE = 0x07
)

// Semaphore2 direct registers, reading returns 1 when the semaphore is
// granted and 0 when it is held by someone else, writing 1 frees it.
const (
	SEM_DIRECT = 0x100
	SEM_COUNT  = 32
)
