// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/usbarmory/c6657-bringup/mem"
)

type rw struct {
	bytes.Buffer
}

func (*rw) Read(p []byte) (int, error) {
	select {}
}

func TestBufferedLog(t *testing.T) {
	var out bytes.Buffer

	for _, c := range []byte("[Core0] ") {
		BufferedLog(&out, 0, c)
	}

	for _, c := range []byte("[Core1] Echo ready.\n") {
		BufferedLog(&out, 1, c)
	}

	require.Equal(t, "[Core1] Echo ready.\n", out.String())

	for _, c := range []byte("Echo ready.\n") {
		BufferedLog(&out, 0, c)
	}

	require.Equal(t, "[Core1] Echo ready.\n[Core0] Echo ready.\n", out.String())
}

func TestBufferedLogLimit(t *testing.T) {
	var out bytes.Buffer

	w := LogWriter(&out, nil, 1)
	w.Write([]byte(strings.Repeat("x", outputLimit)))
	require.Zero(t, out.Len())

	w.Write([]byte("x"))
	require.Equal(t, outputLimit+1, out.Len())
}

func TestBufferedTermLog(t *testing.T) {
	conn := &rw{}
	tt := term.NewTerminal(conn, "")

	w := LogWriter(nil, tt, 1)
	w.Write([]byte("[Core1] Echo ready.\n"))

	out := conn.String()

	require.True(t, strings.HasPrefix(out, string(tt.Escape.Red)))
	require.Contains(t, out, "[Core1] Echo ready.")
	require.True(t, strings.HasSuffix(out, string(tt.Escape.Reset)))
}

func TestBufferedLogHost(t *testing.T) {
	var out bytes.Buffer

	for _, core := range []int{-1, mem.MAX_CORE, 7} {
		w := LogWriter(&out, nil, core)
		w.Write([]byte("SIM "))
	}

	require.Zero(t, out.Len())

	LogWriter(&out, nil, -1).Write([]byte("up\n"))
	require.Equal(t, "SIM SIM SIM up\n", out.String())

	conn := &rw{}
	tt := term.NewTerminal(conn, "")

	LogWriter(nil, tt, -1).Write([]byte("host\n"))
	require.True(t, strings.HasPrefix(conn.String(), string(tt.Escape.Yellow)))
	require.Contains(t, conn.String(), "host")
}
