// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"

	"golang.org/x/term"

	"github.com/usbarmory/c6657-bringup/boot"
	"github.com/usbarmory/c6657-bringup/firmware"
	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/sem"
	"github.com/usbarmory/c6657-bringup/sim"
	"github.com/usbarmory/c6657-bringup/simulator_c6657/cmd"
	"github.com/usbarmory/c6657-bringup/uart"
	"github.com/usbarmory/c6657-bringup/util"
)

var (
	topology = flag.String("topology", uart.Alias.String(), "serial topology (alias|partition|locked)")
	clock    = flag.Uint("clock", firmware.UART_CLK_HZ, "UART functional clock (Hz)")
	baud     = flag.Uint("baud", firmware.UART_BAUD, "serial line rate")
	entry    = flag.Uint("entry", mem.L2_LOCAL_START, "program entry point")
	elfPath  = flag.String("elf", "", "TI ELF image, overrides -entry with its _c_int00 address")
	ack      = flag.Duration("ack", 0, "secondary acknowledgement timeout (0 disables)")
	sshAddr  = flag.String("ssh", "", "serve monitor and serial lines over SSH on this address")
)

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	cmd.Banner = fmt.Sprintf("%s/%s (%s) • TMS320C6657 simulator", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func config() (conf firmware.Config, pc uint32, err error) {
	conf = firmware.Default()
	conf.ClockHz = uint32(*clock)
	conf.Baud = uint32(*baud)
	conf.AckTimeout = *ack

	if conf.Topology, err = uart.ParseTopology(*topology); err != nil {
		return
	}

	pc = uint32(*entry)

	if len(*elfPath) == 0 {
		return
	}

	buf, err := os.ReadFile(*elfPath)

	if err != nil {
		return conf, 0, fmt.Errorf("could not read ELF, %v", err)
	}

	if pc, err = util.EntryPoint(buf); err != nil {
		return conf, 0, fmt.Errorf("could not resolve entry point, %v", err)
	}

	log.Printf("SIM %s %s at %#.8x", *elfPath, util.EntrySym, pc)

	return
}

// program returns the firmware image executed by both cores.
func program(pc uint32, conf firmware.Config, out io.Writer) sim.Program {
	return func(core int, bus *sim.CoreBus) {
		p := &firmware.Platform{
			Core:   core,
			Bus:    bus,
			Entry:  pc,
			Settle: boot.Sleep{},
			Lock: &sem.Semaphore{
				Bus:   bus,
				Base:  mem.SEM_BASE,
				Index: firmware.UART_SEM,
			},
			Log:    log.New(out, fmt.Sprintf("core%d ", core), log.Ltime),
			Echoed: &cmd.Echoed[core],
		}

		firmware.Main(p, conf)
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

// local bridges UART0 to the controlling terminal and shows UART1 output
// line buffered, it returns once the operator quits.
func local(chip *sim.Chip, t *term.Terminal) (err error) {
	go func() {
		_, _ = io.Copy(os.Stdout, chip.Serial(0))
	}()

	go func() {
		_, _ = io.Copy(util.LogWriter(nil, t, 1), chip.Serial(1))
	}()

	return util.CopyInput(chip.Serial(0), os.Stdin)
}

func serve(chip *sim.Chip, addr string) (err error) {
	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return
	}

	console := &util.Console{
		Banner:  cmd.Banner,
		Help:    "type `help` for available commands",
		Handler: cmd.Handle,
		Serial: map[string]io.ReadWriter{
			"uart0": chip.Serial(0),
			"uart1": chip.Serial(1),
		},
	}

	if err = console.Start(listener); err != nil {
		return
	}

	log.Printf("SIM ssh users: monitor, uart0, uart1 (%s)", listener.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	return listener.Close()
}

func main() {
	flag.Parse()

	conf, pc, err := config()

	if err != nil {
		log.Fatalf("SIM invalid configuration, %v", err)
	}

	var out io.Writer = os.Stdout
	var t *term.Terminal

	if len(*sshAddr) == 0 {
		fd := int(os.Stdin.Fd())

		if !term.IsTerminal(fd) {
			log.Fatalf("SIM stdin is not a terminal, use -ssh")
		}

		state, err := term.MakeRaw(fd)

		if err != nil {
			log.Fatalf("SIM could not set raw mode, %v", err)
		}

		defer term.Restore(fd, state)

		// the terminal translates line endings in raw mode
		t = term.NewTerminal(stdio{os.Stdin, os.Stdout}, "")
		out = t
		log.SetOutput(t)
	}

	chip := sim.NewChip(log.New(out, "", log.Ltime))
	defer chip.Halt()

	cmd.Chip = chip
	chip.Load(pc, program(pc, conf, out))

	log.Printf("SIM topology:%s clock:%d baud:%d divisor:%d entry:%#.8x ^] quits",
		conf.Topology, conf.ClockHz, conf.Baud, uart.Divisor(conf.ClockHz, conf.Baud), pc)

	if err = chip.PowerOn(pc); err != nil {
		log.Printf("SIM could not power on, %v", err)
		return
	}

	if t != nil {
		err = local(chip, t)
	} else {
		err = serve(chip, *sshAddr)
	}

	if err != nil {
		log.Printf("SIM %v", err)
	}

	log.Printf("SIM says goodbye")
}
