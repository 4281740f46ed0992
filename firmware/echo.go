// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

import (
	"sync/atomic"
)

// Port represents the serial primitives used by the echo loop.
type Port interface {
	Tx(c byte)
	Rx() byte
}

// EchoOnce receives one character and sends it back, a carriage return is
// followed by a line feed.
func EchoOnce(port Port) (c byte) {
	c = port.Rx()
	port.Tx(c)

	if c == '\r' {
		port.Tx('\n')
	}

	return
}

// Echo runs the echo loop forever, the number of received characters is
// accumulated in count when not nil.
func Echo(port Port, count *uint64) {
	for {
		EchoOnce(port)

		if count != nil {
			atomic.AddUint64(count, 1)
		}
	}
}
