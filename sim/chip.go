// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime/pprof"
	"strconv"
	"sync"

	"github.com/usbarmory/c6657-bringup/mem"
)

// CoreLabel is the profiler label key carrying the index of the core a
// program goroutine runs on.
const CoreLabel = "core"

// Program represents code loaded at an entry point, it runs on the core
// which jumps to it with that core view of the bus.
type Program func(core int, bus *CoreBus)

// State represents a core execution state.
type State int

const (
	Halted State = iota
	Running
	Stopped
	Faulted
)

func (s State) String() string {
	switch s {
	case Halted:
		return "halted"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Faulted:
		return "faulted"
	}

	return "unknown"
}

// CoreStatus represents the state of a simulated core.
type CoreStatus struct {
	Index int
	State State
	Entry uint32
	Err   error
}

func (s CoreStatus) String() string {
	res := fmt.Sprintf("core%d: %-7s entry:%#.8x", s.Index, s.State, s.Entry)

	if s.Err != nil {
		res += fmt.Sprintf(" err:%v", s.Err)
	}

	return res
}

// Chip represents a simulated TMS320C6657.
type Chip struct {
	sync.Mutex

	// Bus is the chip interconnect
	Bus *Bus
	// UART holds the serial controllers
	UART [2]*UART
	// SEM is the Semaphore2 module
	SEM *Semaphores
	// Log receives simulator events, nil disables logging
	Log *log.Logger

	kick     kickState
	cores    [mem.MAX_CORE]CoreStatus
	programs map[uint32]Program
	wg       sync.WaitGroup
}

// NewChip returns a chip held in reset, all cores halted and BOOTCFG locked.
func NewChip(logger *log.Logger) *Chip {
	c := &Chip{
		Bus:      NewBus(),
		SEM:      &Semaphores{Base: mem.SEM_BASE},
		Log:      logger,
		programs: make(map[uint32]Program),
	}

	c.UART[0] = NewUART(0, mem.UART0_BASE)
	c.UART[1] = NewUART(1, mem.UART1_BASE)

	for i := range c.cores {
		c.cores[i].Index = i
		c.Bus.Map(c.slotRegion(i))
	}

	c.Bus.Map(c.kickRegion())
	c.Bus.Map(c.ipcRegion())
	c.Bus.Map(c.UART[0].Region())
	c.Bus.Map(c.UART[1].Region())
	c.Bus.Map(c.SEM.Region())

	return c
}

func (c *Chip) logf(format string, v ...interface{}) {
	if c.Log != nil {
		c.Log.Printf(format, v...)
	}
}

// Load places a program at an entry address.
func (c *Chip) Load(entry uint32, p Program) {
	c.Lock()
	defer c.Unlock()

	c.programs[entry] = p
}

// CoreBus returns the bus as seen from a core.
func (c *Chip) CoreBus(core int) *CoreBus {
	return &CoreBus{
		Bus:  c.Bus,
		Core: core,
	}
}

// Serial returns the host side of a serial controller.
func (c *Chip) Serial(index int) io.ReadWriter {
	return c.UART[index]
}

// Cores returns the state of all cores.
func (c *Chip) Cores() []CoreStatus {
	c.Lock()
	defer c.Unlock()

	s := make([]CoreStatus, len(c.cores))
	copy(s, c.cores[:])

	return s
}

// PowerOn releases the primary core from reset at the given entry point.
func (c *Chip) PowerOn(entry uint32) (err error) {
	c.Lock()
	defer c.Unlock()

	return c.start(mem.PRIMARY_CORE, entry)
}

// wake delivers an IPC interrupt to a core, a halted core jumps to the
// address held in its boot magic slot.
func (c *Chip) wake(core int) {
	entry := c.Bus.Load(mem.BootMagicAddr(core))

	c.Lock()
	defer c.Unlock()

	if c.cores[core].State != Halted {
		c.logf("SIM core%d ignored IPC (%s)", core, c.cores[core].State)
		return
	}

	if err := c.start(core, entry); err != nil {
		c.cores[core].Err = err
		c.cores[core].Entry = entry
		c.logf("SIM core%d remains halted, %v", core, err)
	}
}

// start must be called with the chip lock held.
func (c *Chip) start(core int, entry uint32) (err error) {
	p, ok := c.programs[entry]

	if !ok {
		return fmt.Errorf("no program at entry %#.8x", entry)
	}

	c.cores[core] = CoreStatus{
		Index: core,
		State: Running,
		Entry: entry,
	}

	c.logf("SIM core%d starting pc:%#.8x", core, entry)

	c.wg.Add(1)
	go c.run(core, p)

	return
}

func (c *Chip) run(core int, p Program) {
	defer c.wg.Done()

	state := Stopped
	var err error

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); !ok || !errors.Is(e, ErrHalted) {
				state = Faulted
				err = fmt.Errorf("%v", r)
			}
		}

		c.Lock()
		c.cores[core].State = state
		c.cores[core].Err = err
		c.Unlock()

		c.logf("SIM core%d %s err:%v", core, state, err)
	}()

	labels := pprof.Labels(CoreLabel, strconv.Itoa(core))

	pprof.Do(context.Background(), labels, func(context.Context) {
		p(core, c.CoreBus(core))
	})
}

// Halt stops all running cores and closes the serial lines.
func (c *Chip) Halt() {
	c.Bus.Halt()

	for _, u := range c.UART {
		u.Close()
	}

	c.wg.Wait()
}
