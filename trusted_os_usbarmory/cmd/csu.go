// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"fmt"

	"golang.org/x/term"

	"github.com/usbarmory/tamago/soc/nxp/csu"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"
)

func init() {
	Add(Cmd{
		Name: "csl",
		Help: "show config security levels (CSL)",
		Fn:   cslCmd,
	})

	Add(Cmd{
		Name: "sa",
		Help: "show security access (SA)",
		Fn:   saCmd,
	})
}

func cslCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	for i := csu.CSL_MIN; i <= csu.CSL_MAX; i++ {
		csl, _, _ := imx6ul.CSU.GetSecurityLevel(i, 0)
		fmt.Fprintf(&buf, "CSL%.2d 0:%#.2x", i, csl)

		csl, _, _ = imx6ul.CSU.GetSecurityLevel(i, 1)
		fmt.Fprintf(&buf, " 1:%#.2x\n", csl)
	}

	return buf.String(), nil
}

func saCmd(_ *term.Terminal, _ []string) (res string, err error) {
	var buf bytes.Buffer

	for i := csu.SA_MIN; i <= csu.SA_MAX; i++ {
		if sa, _, _ := imx6ul.CSU.GetAccess(i); sa {
			fmt.Fprintf(&buf, "SA%.2d: secure\n", i)
		} else {
			fmt.Fprintf(&buf, "SA%.2d: nonsecure\n", i)
		}
	}

	return buf.String(), nil
}
