// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

// Monitor call numbers serviced by the trusted OS (see
// trusted_os_usbarmory/internal), their encoding crosses the security
// boundary and must remain stable.
const (
	SMC_WRITE   = 0x01
	SMC_VERSION = 0x02
	SMC_ECHO    = 0x03
)

// defined in api_arm.s
func monitorCall(fn uint32, a1 uint32, a2 uint32, a3 uint32) int32
