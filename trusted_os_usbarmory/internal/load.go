// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gotee

import (
	"errors"
	"fmt"
	"log"

	"github.com/usbarmory/tamago/arm"
	"github.com/usbarmory/tamago/bits"
	usbarmory "github.com/usbarmory/tamago/board/usbarmory/mk2"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"
	"github.com/usbarmory/tamago/soc/nxp/usdhc"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/armory-boot/config"
	"github.com/usbarmory/armory-boot/disk"
	"github.com/usbarmory/armory-boot/exec"

	"github.com/usbarmory/GoTEE-sm/mem"
)

// bootConfLinux is the path to the armory-boot configuration file for
// loading a Linux kernel as NonSecure OS.
const bootConfLinux = "/boot/armory-boot-nonsecure.conf"

// OS is the Normal World kernel image, assigned by the board main package
// (see Makefile).
var OS []byte

// loadKernel loads a TamaGo unikernel as Normal World OS.
func loadKernel() (ctx *monitor.ExecCtx, err error) {
	image := &exec.ELFImage{
		Region: mem.NonSecureRegion,
		ELF:    OS,
	}

	if err = image.Load(); err != nil {
		return
	}

	if ctx, err = monitor.Load(image.Entry(), image.Region, false); err != nil {
		return nil, fmt.Errorf("SM could not load kernel, %v", err)
	}

	log.Printf("SM loaded kernel addr:%#x entry:%#x size:%d", ctx.Memory.Start(), ctx.R15, len(OS))

	if err = configureTrustZone(imx6ul.Native, false); err != nil {
		return nil, fmt.Errorf("SM could not configure TrustZone, %v", err)
	}

	return
}

// loadLinux loads a Linux kernel as Normal World OS, the kernel
// configuration is read from an armory-boot configuration file on the given
// device ("eMMC" or "uSD").
func loadLinux(device string) (ctx *monitor.ExecCtx, err error) {
	var id int
	var card *usdhc.USDHC

	switch device {
	case "uSD":
		id = 10
		card = usbarmory.SD
	case "eMMC":
		id = 11
		card = usbarmory.MMC
	default:
		return nil, errors.New("invalid device")
	}

	// Set the device USDHC controller as Secure master to grant access
	// to the Trusted OS DMA region.
	if err = imx6ul.CSU.SetAccess(id, true, false); err != nil {
		return
	}

	part, err := disk.Detect(card, "")

	if err != nil {
		return
	}

	conf, err := config.Load(part, bootConfLinux, "", "")

	if err != nil {
		return
	}

	log.Printf("\n%s", conf.JSON)

	image := &exec.LinuxImage{
		Region:               mem.NonSecureRegion,
		Kernel:               conf.Kernel(),
		DeviceTreeBlob:       conf.DeviceTreeBlob(),
		InitialRamDisk:       conf.InitialRamDisk(),
		KernelOffset:         0x00800000,
		DeviceTreeBlobOffset: 0x07000000,
		InitialRamDiskOffset: 0x08000000,
		CmdLine:              conf.CmdLine,
	}

	if err = image.Load(); err != nil {
		return
	}

	if ctx, err = monitor.Load(image.Entry(), image.Region, false); err != nil {
		return nil, fmt.Errorf("SM could not load kernel, %v", err)
	}

	log.Printf("SM loaded kernel addr:%#x size:%d entry:%#x", ctx.Memory.Start(), len(image.Kernel), ctx.R15)

	if err = configureTrustZone(true, true); err != nil {
		return nil, fmt.Errorf("SM could not configure TrustZone, %v", err)
	}

	if err = grantPeripheralAccess(); err != nil {
		return nil, fmt.Errorf("SM could not configure TrustZone peripheral access, %v", err)
	}

	ctx.R0 = 0
	ctx.R2 = uint32(image.DTB())
	ctx.SPSR = arm.SVC_MODE

	// enable FIQ to receive the TrustZone Watchdog IRQ
	bits.Clear(&ctx.SPSR, 6)

	return
}

// Boot hands the embedded TamaGo unikernel to the world switcher as Normal
// World OS.
func Boot() (err error) {
	ctx, err := loadKernel()

	if err != nil {
		return
	}

	return NS.Attach(ctx)
}

// Linux hands a Linux kernel, loaded from the given device, to the world
// switcher as Normal World OS with the TrustZone Watchdog armed.
func Linux(device string) (err error) {
	if !imx6ul.Native {
		return errors.New("unsupported under emulation")
	}

	ctx, err := loadLinux(device)

	if err != nil {
		return
	}

	log.Printf("SM enabling TrustZone Watchdog")
	enableTrustZoneWatchdog()

	return NS.Attach(ctx)
}
