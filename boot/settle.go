// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"sync/atomic"
	"time"
)

// Settler waits for at least a given duration.
type Settler interface {
	Settle(d time.Duration)
}

// DefaultLoopsPerMicrosecond is the uncalibrated loop count per microsecond,
// it is a rough instruction count proxy and not a timer.
const DefaultLoopsPerMicrosecond = 200

// Spin waits by counting loop iterations.
type Spin struct {
	// LoopsPerMicrosecond is the iteration count per microsecond, zero
	// selects DefaultLoopsPerMicrosecond.
	LoopsPerMicrosecond uint32

	n uint32
}

// Settle spins for the approximate duration d.
func (s *Spin) Settle(d time.Duration) {
	lpu := s.LoopsPerMicrosecond

	if lpu == 0 {
		lpu = DefaultLoopsPerMicrosecond
	}

	us := uint32((d + time.Microsecond - 1) / time.Microsecond)

	// the counter is atomic so that the loop cannot be optimized away
	for i := uint32(0); i < us*lpu; i++ {
		atomic.AddUint32(&s.n, 1)
	}
}

// Clock is implemented by settlers backed by a reference time source, bounded
// waits then measure elapsed time rather than accumulating requested delays.
type Clock interface {
	Now() time.Time
}

// Sleep waits on the runtime timer.
type Sleep struct{}

// Now returns the current time.
func (Sleep) Now() time.Time {
	return time.Now()
}

// Settle sleeps for d.
func (Sleep) Settle(d time.Duration) {
	time.Sleep(d)
}
