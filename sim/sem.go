// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"runtime"
	"sync"

	"github.com/usbarmory/c6657-bringup/mem"
)

// Semaphores models the Semaphore2 module direct access registers.
type Semaphores struct {
	sync.Mutex

	// Base is the register base address
	Base uint32

	owner [mem.SEM_COUNT]int
	taken [mem.SEM_COUNT]bool
}

// Region returns the bus region of the direct access registers.
func (s *Semaphores) Region() *Region {
	start := s.Base + mem.SEM_DIRECT

	return &Region{
		Start: start,
		End:   start + mem.SEM_COUNT*4,
		Read: func(core int, addr uint32) uint32 {
			return s.take(core, int(addr-start)/4)
		},
		Write: func(_ int, addr uint32, val uint32) {
			if val&1 == 1 {
				s.free(int(addr-start) / 4)
			}
		},
	}
}

func (s *Semaphores) take(core int, i int) uint32 {
	s.Lock()
	defer s.Unlock()

	if s.taken[i] {
		// let the owner make progress
		runtime.Gosched()
		return 0
	}

	s.taken[i] = true
	s.owner[i] = core

	return 1
}

func (s *Semaphores) free(i int) {
	s.Lock()
	s.taken[i] = false
	s.Unlock()

	// give waiting cores a chance to take it
	runtime.Gosched()
}

// Owner returns the core holding a semaphore.
func (s *Semaphores) Owner(i int) (core int, taken bool) {
	s.Lock()
	defer s.Unlock()

	return s.owner[i], s.taken[i]
}
