// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"regexp"

	"golang.org/x/term"

	gotee "github.com/usbarmory/GoTEE-sm/trusted_os_usbarmory/internal"
)

func init() {
	Add(Cmd{
		Name: "boot",
		Help: "boot embedded NonSecure TamaGo unikernel",
		Fn:   bootCmd,
	})

	Add(Cmd{
		Name:    "linux",
		Args:    1,
		Pattern: regexp.MustCompile(`^linux (uSD|eMMC)$`),
		Syntax:  "<uSD|eMMC>",
		Help:    "boot NonSecure Linux kernel",
		Fn:      linuxCmd,
	})
}

func bootCmd(_ *term.Terminal, _ []string) (res string, err error) {
	return "", gotee.Boot()
}

func linuxCmd(_ *term.Terminal, arg []string) (res string, err error) {
	return "", gotee.Linux(arg[0])
}
