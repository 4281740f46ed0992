// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"

	"golang.org/x/term"

	"github.com/usbarmory/c6657-bringup/mem"
)

const defaultJournal = 16

func init() {
	Add(Cmd{
		Name: "cores",
		Help: "core states",
		Fn:   coresCmd,
	})

	Add(Cmd{
		Name: "slot",
		Help: "boot magic slots and BOOTCFG lock state",
		Fn:   slotCmd,
	})

	Add(Cmd{
		Name:    "journal",
		Args:    1,
		Pattern: regexp.MustCompile(`^journal ?(\d*)$`),
		Syntax:  "(n)",
		Help:    "last register writes",
		Fn:      journalCmd,
	})

	Add(Cmd{
		Name:    "uart",
		Args:    1,
		Pattern: regexp.MustCompile(`^uart (\d)$`),
		Syntax:  "<index>",
		Help:    "serial controller state",
		Fn:      uartCmd,
	})
}

func coresCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	if Chip == nil {
		return "", errNoChip
	}

	for _, s := range Chip.Cores() {
		fmt.Fprintf(&buf, "%s echoed:%d\n", s, atomic.LoadUint64(&Echoed[s.Index]))
	}

	return buf.String(), nil
}

func slotCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	if Chip == nil {
		return "", errNoChip
	}

	fmt.Fprintf(&buf, "BOOTCFG locked:%v\n", Chip.Locked())

	for core := 0; core < mem.MAX_CORE; core++ {
		addr := mem.BootMagicAddr(core)
		val := Chip.Bus.Load(addr)

		fmt.Fprintf(&buf, "core%d %#.8x: %#.8x", core, addr, val)

		switch val {
		case 0:
		case mem.BOOT_MAGIC_NUMBER:
			fmt.Fprintf(&buf, " (alive)")
		default:
			fmt.Fprintf(&buf, " (entry)")
		}

		fmt.Fprintf(&buf, "\n")
	}

	return buf.String(), nil
}

func journalCmd(_ *term.Terminal, arg []string) (res string, err error) {
	var buf bytes.Buffer

	if Chip == nil {
		return "", errNoChip
	}

	n := defaultJournal

	if len(arg[0]) > 0 {
		if n, err = strconv.Atoi(arg[0]); err != nil {
			return "", fmt.Errorf("invalid count, %v", err)
		}
	}

	journal := Chip.Bus.Journal()

	if n < len(journal) {
		journal = journal[len(journal)-n:]
	}

	for _, a := range journal {
		fmt.Fprintf(&buf, "%s\n", a)
	}

	return buf.String(), nil
}

func uartCmd(_ *term.Terminal, arg []string) (res string, err error) {
	if Chip == nil {
		return "", errNoChip
	}

	i, err := strconv.Atoi(arg[0])

	if err != nil || i >= len(Chip.UART) {
		return "", fmt.Errorf("invalid index")
	}

	u := Chip.UART[i]
	c := u.Config()

	return fmt.Sprintf("UART%d base:%#.8x IER:%#.2x LCR:%#.2x MCR:%#.2x FCR:%#.2x MDR:%#x divisor:%d pending:%d",
		i, u.Base, c.IER, c.LCR, c.MCR, c.FCR, c.MDR, c.Divisor, u.Pending()), nil
}
