// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"
	"runtime"

	"golang.org/x/term"

	gotee "github.com/usbarmory/GoTEE-sm/trusted_os_usbarmory/internal"
)

func init() {
	Add(Cmd{
		Name: "sm",
		Help: "secure monitor status",
		Fn:   smCmd,
	})

	Add(Cmd{
		Name: "bootargs",
		Help: "boot parameter block state",
		Fn:   bootargsCmd,
	})
}

func smCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Runtime ......: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "ABI version ..: %d\n", gotee.Version)
	fmt.Fprintf(&buf, "Handler ......: %v\n", gotee.Mon.Registered())
	fmt.Fprintf(&buf, "Monitor stack : %#.8x\n", gotee.NS.MonitorStack)

	return buf.String(), nil
}

func bootargsCmd(_ *term.Terminal, _ []string) (res string, err error) {
	refs := gotee.Mon.BootArgsRefs()

	if refs == 0 {
		return "boot parameters released", nil
	}

	return fmt.Sprintf("boot parameters mapped, %d reference(s)", refs), nil
}
