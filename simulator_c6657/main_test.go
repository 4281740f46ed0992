// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/sim"
	"github.com/usbarmory/c6657-bringup/uart"
)

func TestConfig(t *testing.T) {
	conf, pc, err := config()

	require.NoError(t, err)
	require.Equal(t, uint32(mem.L2_LOCAL_START), pc)
	require.Equal(t, uart.Alias, conf.Topology)
	require.Equal(t, uint32(115200), conf.Baud)

	*topology = "bogus"
	defer func() { *topology = uart.Alias.String() }()

	_, _, err = config()
	require.Error(t, err)
}

func TestConfigInvalidELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.out")
	require.NoError(t, os.WriteFile(path, []byte("not an ELF"), 0600))

	*elfPath = path
	defer func() { *elfPath = "" }()

	_, _, err := config()
	require.Error(t, err)
}

func TestProgram(t *testing.T) {
	*topology = uart.Locked.String()
	defer func() { *topology = uart.Alias.String() }()

	conf, pc, err := config()
	require.NoError(t, err)

	var out bytes.Buffer

	chip := sim.NewChip(nil)
	defer chip.Halt()

	chip.Load(pc, program(pc, conf, io.Discard))
	require.NoError(t, chip.PowerOn(pc))

	deadline := time.Now().Add(5 * time.Second)

	for !strings.Contains(out.String(), "[Core0] Echo ready.") || !strings.Contains(out.String(), "[Core1] Echo ready.") {
		require.True(t, time.Now().Before(deadline), "got %q", out.String())

		out.Write(chip.UART[0].Drain())
		time.Sleep(time.Millisecond)
	}

	require.True(t, strings.HasPrefix(out.String(), "\r\nC6657 UART echo (polled) @ 115200.\r\n"))
}
