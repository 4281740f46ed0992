// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"runtime/pprof"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/usbarmory/c6657-bringup/sim"
)

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn:   helpCmd,
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn:      exitCmd,
	})

	Add(Cmd{
		Name:    "stack",
		Args:    1,
		Pattern: regexp.MustCompile(`^stack (\d)$`),
		Syntax:  "<core>",
		Help:    "stack trace of a running core",
		Fn:      stackCmd,
	})

	Add(Cmd{
		Name: "stackall",
		Help: "stack trace of all goroutines, cores marked",
		Fn:   stackallCmd,
	})

	Add(Cmd{
		Name: "halt",
		Help: "stop all cores and close serial lines",
		Fn:   haltCmd,
	})
}

func helpCmd(term *term.Terminal, _ []string) (string, error) {
	return Help(term), nil
}

func exitCmd(_ *term.Terminal, _ []string) (string, error) {
	return "logout", io.EOF
}

// goroutines returns the goroutine profile records, each one groups
// goroutines sharing the same stack and labels.
func goroutines() []string {
	buf := new(bytes.Buffer)
	pprof.Lookup("goroutine").WriteTo(buf, 1)

	return strings.Split(strings.TrimSpace(buf.String()), "\n\n")
}

func coreLabel(core string) string {
	return fmt.Sprintf("%q:%q", sim.CoreLabel, core)
}

func stackCmd(_ *term.Terminal, arg []string) (res string, err error) {
	var stacks []string

	if Chip == nil {
		return "", errNoChip
	}

	core, _ := strconv.Atoi(arg[0])

	if core >= len(Chip.Cores()) {
		return "", fmt.Errorf("invalid core")
	}

	label := coreLabel(arg[0])

	for _, r := range goroutines() {
		if strings.Contains(r, label) {
			stacks = append(stacks, r)
		}
	}

	if len(stacks) == 0 {
		return "", fmt.Errorf("core%d is not running", core)
	}

	return strings.Join(stacks, "\n\n"), nil
}

func stackallCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	for _, r := range goroutines() {
		for i := 0; Chip != nil && i < len(Chip.Cores()); i++ {
			if strings.Contains(r, coreLabel(strconv.Itoa(i))) {
				fmt.Fprintf(&buf, "[core%d] ", i)
			}
		}

		fmt.Fprintf(&buf, "%s\n\n", r)
	}

	return buf.String(), nil
}

func haltCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	if Chip == nil {
		return "", errNoChip
	}

	Chip.Halt()

	for _, s := range Chip.Cores() {
		fmt.Fprintf(&buf, "%s\n", s)
	}

	return buf.String(), nil
}
