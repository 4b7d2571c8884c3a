// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

import (
	"log"
)

// mapBootArgs maps the boot parameter block supplied by the boot loader,
// taking the initialization reference on success. A mapping failure is
// logged and leaves the boot arguments unconfigured.
func (m *Monitor) mapBootArgs() {
	m.argsMu.Lock()
	defer m.argsMu.Unlock()

	base, size := m.plat.BootArgs()

	if base == 0 || size == 0 {
		return
	}

	addr, err := m.plat.MapBootArgs(base, size)

	if err != nil {
		log.Printf("SM error mapping boot parameter block (%v)", err)
		return
	}

	m.bootArgs = addr
	m.bootSize = size
	m.refcnt = 1
}

// GetBootArgs returns the boot parameter block mapping and takes a
// reference on it, it fails with ErrNotConfigured when no block was
// supplied, its mapping failed or all references have been released.
//
// Each successful call must be matched by exactly one PutBootArgs, the
// mapping must not be used after its release.
func (m *Monitor) GetBootArgs() (addr uint32, size uint32, err error) {
	m.argsMu.Lock()
	defer m.argsMu.Unlock()

	if m.bootArgs == 0 {
		return 0, 0, ErrNotConfigured
	}

	m.refcnt++

	return m.bootArgs, m.bootSize, nil
}

// PutBootArgs releases a boot parameter block reference. When the last
// reference is dropped the block is unmapped, returning it to the Normal
// World, and the world switch goroutine is resumed.
//
// The resume happens within the same critical section as the final
// decrement, a concurrent GetBootArgs can never observe an unmapped but not
// yet resumed state.
func (m *Monitor) PutBootArgs() {
	m.argsMu.Lock()
	defer m.argsMu.Unlock()

	if m.bootArgs == 0 {
		log.Printf("SM warning: caller does not own a reference to boot parameters")
		return
	}

	m.refcnt--

	if m.refcnt == 0 {
		m.plat.UnmapBootArgs(m.bootArgs, m.bootSize)
		m.bootArgs = 0
		m.bootSize = 0

		m.resumeSwitcher()
	}
}

// ReleaseBootArgs reconciles the boot argument state at the end of platform
// initialization: it drops the reference taken on behalf of the boot
// process or, when no boot arguments were supplied, resumes the world
// switch goroutine directly.
//
// A block still mapped afterwards indicates a leaked reference, which is
// logged and holds the Normal World until its owner releases it.
func (m *Monitor) ReleaseBootArgs() {
	if m.mapped() {
		m.PutBootArgs()
	} else {
		m.resumeSwitcher()
	}

	if m.mapped() {
		log.Printf("SM warning: outstanding reference to boot args at the end of initialization")
	}
}

// BootArgsRefs returns the number of outstanding boot parameter block
// references.
func (m *Monitor) BootArgsRefs() int {
	m.argsMu.Lock()
	defer m.argsMu.Unlock()

	if m.bootArgs == 0 {
		return 0
	}

	return m.refcnt
}

func (m *Monitor) mapped() bool {
	m.argsMu.Lock()
	defer m.argsMu.Unlock()

	return m.bootArgs != 0
}
