// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package mem describes the memory layout shared between the secure monitor
// and the Normal World OS.
package mem

import (
	"github.com/usbarmory/tamago/dma"
)

const (
	// Secure World OS
	SecureStart = 0x98000000
	SecureSize  = 0x03f00000 // 63MB

	// Secure World DMA (relocated to avoid conflicts with NonSecure world)
	SecureDMAStart = 0x9bf00000
	SecureDMASize  = 0x00100000 // 1MB

	// NonSecure World OS
	NonSecureStart = 0x80000000
	NonSecureSize  = 0x0ff00000 // 255MB

	// Boot parameter block, placed by the boot loader at the top of
	// NonSecure memory and handed back to the Normal World once the
	// Secure World has consumed it. The monitor core reads these as the
	// platform supplied physical base and size words.
	BootArgsStart = 0x8ff00000
	BootArgsSize  = 0x00100000 // 1MB
)

var NonSecureRegion *dma.Region

func Init() {
	NonSecureRegion, _ = dma.NewRegion(NonSecureStart, NonSecureSize, false)
	NonSecureRegion.Reserve(NonSecureSize, 0)
}
