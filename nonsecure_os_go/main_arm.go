// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"
	"os"
	"runtime"
	"time"
	_ "unsafe"

	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE-sm/mem"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.NonSecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.NonSecureSize

//go:linkname hwinit runtime.hwinit
func hwinit() {
	imx6ul.Init()
}

//go:linkname printk runtime.printk
func printk(c byte) {
	// route kernel output to the Secure World console
	monitorCall(SMC_WRITE, uint32(c), 0, 0)
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)
}

func main() {
	log.Printf("%s/%s (%s) • system/supervisor (NonSecure)", runtime.GOOS, runtime.GOARCH, runtime.Version())

	version := monitorCall(SMC_VERSION, 0, 0, 0)
	log.Printf("supervisor monitor call ABI version %d", version)

	if res := monitorCall(SMC_ECHO, 0x42, 0, 0); res != 0x42 {
		log.Printf("supervisor echo mismatch (%#x)", res)
	}

	// an undefined monitor call observes a stable rejection status
	if res := monitorCall(0xff, 0, 0, 0); res != -8 {
		log.Printf("supervisor unexpected status for undefined call (%d)", res)
	}

	// the Normal World has no exit
	for {
		time.Sleep(10 * time.Second)
		log.Printf("supervisor says hello")
	}
}
