// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uart

import (
	"fmt"
	"sync"

	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
)

// Topology selects how cores are granted access to the serial controllers.
type Topology int

const (
	// Alias grants every core the same controller, without any mutual
	// exclusion. Concurrent echo loops race on the same status and data
	// registers and can lose or corrupt bytes.
	Alias Topology = iota
	// Partition grants each core its own controller.
	Partition
	// Locked grants every core the same controller, each access sequence
	// is serialized by a lock shared between cores.
	Locked
)

var topologies = map[string]Topology{
	"alias":     Alias,
	"partition": Partition,
	"locked":    Locked,
}

func (t Topology) String() string {
	for name, v := range topologies {
		if v == t {
			return name
		}
	}

	return fmt.Sprintf("Topology(%d)", int(t))
}

// ParseTopology returns the topology matching name.
func ParseTopology(name string) (t Topology, err error) {
	t, ok := topologies[name]

	if !ok {
		return Alias, fmt.Errorf("invalid topology %q", name)
	}

	return
}

// Base returns the controller register base assigned to a core.
func (t Topology) Base(core int) uint32 {
	if t == Partition && core == mem.SECONDARY_CORE {
		return mem.UART1_BASE
	}

	return mem.UART0_BASE
}

// Port returns the serial port capability granted to a core, lock is only
// used by the Locked topology and must then be shared by all cores.
func (t Topology) Port(core int, bus reg.Bus, lock sync.Locker) (hw *UART, err error) {
	if !mem.ValidCore(core) {
		return nil, fmt.Errorf("invalid core %d", core)
	}

	hw = &UART{
		Base: t.Base(core),
		Bus:  bus,
	}

	if hw.Base == mem.UART1_BASE {
		hw.Index = 1
	}

	switch t {
	case Alias, Partition:
	case Locked:
		if lock == nil {
			return nil, fmt.Errorf("%s topology requires a lock", t)
		}

		hw.Lock = lock
	default:
		return nil, fmt.Errorf("invalid topology %d", int(t))
	}

	return
}
