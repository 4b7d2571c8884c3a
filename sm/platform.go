// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

// Platform represents the hardware facing primitives consumed by the secure
// monitor core, with one operation per distinct hardware effect. This keeps
// the core target independent and testable against a fake implementation.
type Platform interface {
	// SchedNonSecure transfers execution to the Normal World, returning
	// status to the caller of the previously trapped monitor call. It
	// blocks until a trap hands control back to the Secure World and
	// returns the trapped call arguments, or nil if the Normal World
	// restarted unexpectedly.
	SchedNonSecure(status int32) *CallArgs

	// CPUs returns the number of cores requiring monitor initialization.
	CPUs() int

	// AllocMonitorStack reserves size bytes of Secure World memory, with
	// at least pointer-pair alignment, for monitor mode execution.
	AllocMonitorStack(size int) (addr uint32, err error)

	// SetMonitorStack installs the monitor mode stack pointer for the
	// calling core.
	SetMonitorStack(top uint32)

	// SetMonitorVectorTable installs the monitor exception vector base
	// for the calling core, enabling world switching on it.
	SetMonitorVectorTable()

	// NonSecureAccessControl grants the Normal World use of SMP
	// features, TLB lockdown and the CP10/CP11 coprocessors.
	NonSecureAccessControl()

	// BootArgs returns the physical base and size of the boot parameter
	// block supplied by the boot loader, zero values when absent.
	BootArgs() (base uint32, size uint32)

	// MapBootArgs maps the boot parameter block read-only, at section
	// granularity, into the Secure World address space.
	MapBootArgs(base uint32, size uint32) (addr uint32, err error)

	// UnmapBootArgs removes the boot parameter block mapping.
	UnmapBootArgs(addr uint32, size uint32)
}
