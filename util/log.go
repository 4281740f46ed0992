// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"io"
	"sync"

	"golang.org/x/term"

	"github.com/usbarmory/c6657-bringup/mem"
)

var (
	mux        sync.Mutex
	coreOutput [mem.MAX_CORE]bytes.Buffer
	// hostOutput collects lines not originating from a core
	hostOutput bytes.Buffer
)

const outputLimit = 1024
const flushChr = 0x0a // \n

func buffer(core int, c byte) (buf *bytes.Buffer, flush bool) {
	if core >= 0 && core < mem.MAX_CORE {
		buf = &coreOutput[core]
	} else {
		buf = &hostOutput
	}

	buf.WriteByte(c)

	return buf, c == flushChr || buf.Len() > outputLimit
}

// BufferedLog accumulates serial output of a core, writing it to w one line
// at a time.
// Output from outside the cores, such as the simulator host, shares a
// separate buffer.
func BufferedLog(w io.Writer, core int, c byte) {
	mux.Lock()
	defer mux.Unlock()

	if buf, flush := buffer(core, c); flush {
		w.Write(buf.Bytes())
		buf.Reset()
	}
}

// BufferedTermLog is like BufferedLog, lines are colored according to the
// originating core.
func BufferedTermLog(t *term.Terminal, core int, c byte) {
	mux.Lock()
	defer mux.Unlock()

	var color []byte

	switch {
	case core == mem.PRIMARY_CORE:
		color = t.Escape.Green
	case core > 0 && core < mem.MAX_CORE:
		color = t.Escape.Red
	default:
		color = t.Escape.Yellow
	}

	if buf, flush := buffer(core, c); flush {
		t.Write(color)
		t.Write(buf.Bytes())
		t.Write(t.Escape.Reset)

		buf.Reset()
	}
}

// LogWriter returns an io.Writer feeding BufferedTermLog, or BufferedLog when
// t is nil.
func LogWriter(w io.Writer, t *term.Terminal, core int) io.Writer {
	return &coreWriter{w: w, t: t, core: core}
}

type coreWriter struct {
	w    io.Writer
	t    *term.Terminal
	core int
}

func (cw *coreWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		if cw.t != nil {
			BufferedTermLog(cw.t, cw.core, c)
		} else {
			BufferedLog(cw.w, cw.core, c)
		}
	}

	return len(p), nil
}
