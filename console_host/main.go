// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build !windows
// +build !windows

package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/mattn/go-tty"
	"github.com/pkg/term"

	"github.com/usbarmory/c6657-bringup/firmware"
	"github.com/usbarmory/c6657-bringup/util"
)

var (
	dev  = flag.String("dev", "/dev/ttyUSB0", "serial device attached to the board UART")
	baud = flag.Int("baud", firmware.UART_BAUD, "serial line rate")
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stderr)
}

// session bridges the serial line to the operator until the escape
// character, serial output is forwarded to out as received.
func session(serial io.ReadWriter, in io.Reader, out io.Writer) (err error) {
	go func() {
		_, _ = io.Copy(out, serial)
	}()

	return util.CopyInput(serial, in)
}

func main() {
	flag.Parse()

	// raw 8N1, the board UART is configured for the same frame format
	port, err := term.Open(*dev, term.Speed(*baud), term.RawMode)

	if err != nil {
		log.Fatalf("could not open %s, %v", *dev, err)
	}

	defer port.Close()

	console, err := tty.Open()

	if err != nil {
		log.Fatalf("could not open terminal, %v", err)
	}

	defer console.Close()

	log.Printf("%s @ %d, ^] quits", *dev, *baud)

	restore, err := console.Raw()

	if err != nil {
		log.Fatalf("could not set raw mode, %v", err)
	}

	err = session(port, console.Input(), console.Output())
	restore()

	if err != nil {
		log.Printf("serial session error, %v", err)
	}

	log.Printf("closing %s", *dev)
}
