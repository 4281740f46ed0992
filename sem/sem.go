// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sem implements a driver for the Semaphore2 module, it provides
// mutual exclusion between cores through direct access semaphores.
package sem

import (
	"github.com/usbarmory/c6657-bringup/mem"
	"github.com/usbarmory/c6657-bringup/reg"
)

// Semaphore represents a hardware semaphore, it implements sync.Locker.
type Semaphore struct {
	// Bus is the register view of the executing core
	Bus reg.Bus
	// Base register
	Base uint32
	// Index is the semaphore number
	Index int
}

func (s *Semaphore) direct() uint32 {
	return s.Base + mem.SEM_DIRECT + uint32(s.Index)*4
}

// TryLock attempts to acquire the semaphore without waiting.
func (s *Semaphore) TryLock() bool {
	return s.Bus.Read(s.direct())&1 == 1
}

// Lock spins until the semaphore is acquired.
func (s *Semaphore) Lock() {
	for !s.TryLock() {
	}
}

// Unlock frees the semaphore.
func (s *Semaphore) Unlock() {
	s.Bus.Write(s.direct(), 1)
}
