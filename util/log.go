// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package util

import (
	"bytes"
	"os"

	"golang.org/x/term"
)

const outputLimit = 1024
const flushChr = 0x0a // \n

var secureOutput bytes.Buffer
var nonSecureOutput bytes.Buffer

// LogChar buffers one byte of console output for the given security state,
// flushing complete lines to standard output or, when a terminal is
// passed, to it with per world coloring (green Secure, red NonSecure).
//
// Both worlds log simultaneously, buffering per security state avoids
// interleaving within a line.
func LogChar(c byte, secure bool, t *term.Terminal) {
	buf := &nonSecureOutput

	if secure {
		buf = &secureOutput
	}

	buf.WriteByte(c)

	if c != flushChr && buf.Len() <= outputLimit {
		return
	}

	if t == nil {
		os.Stdout.Write(buf.Bytes())
	} else {
		color := t.Escape.Red

		if secure {
			color = t.Escape.Green
		}

		t.Write(color)
		t.Write(buf.Bytes())
		t.Write(t.Escape.Reset)
	}

	buf.Reset()
}
