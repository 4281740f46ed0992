// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"io"
)

// EscapeChr terminates a serial bridge (Ctrl-]).
const EscapeChr = 0x1d

// CopyInput copies operator input from src to dst until the escape character
// or the end of input is received.
func CopyInput(dst io.Writer, src io.Reader) (err error) {
	buf := make([]byte, 256)

	for {
		n, rerr := src.Read(buf)

		if i := bytes.IndexByte(buf[:n], EscapeChr); i >= 0 {
			_, err = dst.Write(buf[:i])
			return
		}

		if n > 0 {
			if _, err = dst.Write(buf[:n]); err != nil {
				return
			}
		}

		if rerr == io.EOF {
			return nil
		}

		if rerr != nil {
			return rerr
		}
	}
}
