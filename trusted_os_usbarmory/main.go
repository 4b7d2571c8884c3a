// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"
	_ "unsafe"

	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/dma"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	usbnet "github.com/usbarmory/imx-usbnet"

	"github.com/usbarmory/GoTEE-sm/mem"
	"github.com/usbarmory/GoTEE-sm/trusted_os_usbarmory/cmd"
	gotee "github.com/usbarmory/GoTEE-sm/trusted_os_usbarmory/internal"
	"github.com/usbarmory/GoTEE-sm/util"
)

const (
	sshPort = 22
	IP      = "10.0.0.1"
	MAC     = "1a:55:89:a2:69:41"
	hostMAC = "1a:55:89:a2:69:42"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint32 = mem.SecureStart

//go:linkname ramSize runtime.ramSize
var ramSize uint32 = mem.SecureSize

// the NonSecure kernel image is embedded at build time (see Makefile)
//
//go:embed assets/nonsecure_os
var osELF []byte

var banner string

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stdout)

	// Move the DMA region to prevent NonSecure access, iRAM/OCRAM (the
	// default DMA region) is outside TZASC control.
	dma.Init(mem.SecureDMAStart, mem.SecureDMASize)

	if imx6ul.Native {
		imx6ul.SetARMFreq(900)

		debugConsole, _ := usbarmory.DetectDebugAccessory(250 * time.Millisecond)
		<-debugConsole
	}

	banner = fmt.Sprintf("%s/%s (%s) • TEE security monitor (Secure World system/monitor)", runtime.GOOS, runtime.GOARCH, runtime.Version())

	log.Print(banner)
}

func main() {
	mem.Init()

	gotee.OS = osELF

	gotee.Init()

	if !imx6ul.Native {
		// no administrative console under emulation, boot right away
		if err := gotee.Boot(); err != nil {
			log.Fatalf("SM could not boot NonSecure kernel, %v", err)
		}

		// the monitor never exits
		select {}
	}

	iface, err := usbnet.Init(IP, MAC, hostMAC, 1)

	if err != nil {
		log.Fatalf("SM could not initialize USB networking, %v", err)
	}

	iface.EnableICMP()

	listener, err := iface.ListenerTCP4(sshPort)

	if err != nil {
		log.Fatalf("SM could not initialize SSH listener, %v", err)
	}

	console := &util.Console{
		Banner:   banner,
		Help:     "type `help` for the command list",
		Handler:  cmd.Handle,
		Listener: listener,
	}

	gotee.Console = console

	if err = console.Start(); err != nil {
		log.Fatalf("SM could not initialize SSH console, %v", err)
	}

	usbarmory.USB1.Init()
	usbarmory.USB1.DeviceMode()
	usbarmory.USB1.Reset()

	// never returns
	usbarmory.USB1.Start(iface.NIC.Device)
}
