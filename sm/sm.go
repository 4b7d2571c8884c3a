// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sm implements the core of an ARM TrustZone secure monitor: it
// arbitrates execution between the Secure World (this program) and the
// Normal World (an untrusted OS) sharing the same cores.
//
// The package dispatches trapped monitor calls to a single registered
// trusted service handler, hands the boot loader supplied argument block to
// Secure World consumers under reference counting, and performs per core
// monitor mode initialization.
//
// All hardware access is isolated behind the Platform interface, see the
// trusted_os_usbarmory/internal package for the GoTEE backed implementation.
package sm

import (
	"log"
	"runtime"
	"sync"
)

// MonitorStackSize is the size of the per core monitor mode stack.
const MonitorStackSize = 4096

// Monitor represents a secure monitor instance.
type Monitor struct {
	plat Platform

	// switchMu serializes world switches and protects the trapped call
	// register block until it has been copied out.
	switchMu sync.Mutex

	regMu   sync.Mutex
	handler Handler

	// argsMu guards the boot argument mapping, its reference count and
	// the resume of the switch goroutine on the final release.
	argsMu   sync.Mutex
	bootArgs uint32
	bootSize uint32
	refcnt   int

	resume     chan struct{}
	resumeOnce sync.Once
}

// Init returns a monitor instance for the given platform, mapping the boot
// parameter block if the boot loader supplied one and spawning the world
// switch goroutine.
//
// The goroutine is held suspended until the boot arguments are fully
// released (see PutBootArgs and ReleaseBootArgs), preventing the Normal
// World from running before the Secure World finished consuming the shared
// boot data.
func Init(p Platform) *Monitor {
	m := &Monitor{
		plat:   p,
		resume: make(chan struct{}),
	}

	m.mapBootArgs()

	go m.waitForMonitorCall()

	return m
}

// InitCPU performs monitor mode initialization for a single core: monitor
// stack allocation and installation, Normal World access control and
// monitor vector base installation. It must run once per core before any
// world switch can occur on it.
//
// On stack allocation failure the monitor vector base is deliberately left
// uninstalled, keeping the degraded core out of world switching rather than
// letting it fault on its first monitor trap.
func (m *Monitor) InitCPU(cpu int) {
	addr, err := m.plat.AllocMonitorStack(MonitorStackSize)

	if err != nil {
		log.Printf("SM cpu%d failed to allocate monitor mode stack, world switching disabled (%v)", cpu, err)
		return
	}

	m.plat.SetMonitorStack(addr + MonitorStackSize)

	// let the Normal World enable SMP, lock TLB entries and access
	// CP10/CP11
	m.plat.NonSecureAccessControl()

	m.plat.SetMonitorVectorTable()
}

// Register installs the trusted service handler, it fails with
// ErrAlreadyRegistered when one is present, leaving it in place. There is
// no operation to unregister.
func (m *Monitor) Register(fn Handler) error {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	if m.handler != nil {
		return ErrAlreadyRegistered
	}

	m.handler = fn

	return nil
}

// Registered returns whether a trusted service handler is installed.
func (m *Monitor) Registered() bool {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	return m.handler != nil
}

func (m *Monitor) registered() Handler {
	m.regMu.Lock()
	defer m.regMu.Unlock()

	return m.handler
}

// waitForMonitorCall runs the world switch loop, it never returns.
//
// The protected span is kept minimal: the trapped call arguments are copied
// out while still holding the switch lock, as the underlying register block
// is reused by the next world switch, dispatch happens outside of it.
func (m *Monitor) waitForMonitorCall() {
	var status int32

	<-m.resume

	for {
		m.switchMu.Lock()

		// give pending Secure World work a chance to run before
		// leaving to the Normal World
		runtime.Gosched()

		ns := m.plat.SchedNonSecure(status)

		if ns == nil {
			status = StatusUnexpectedRestart
			m.switchMu.Unlock()
			continue
		}

		args := *ns
		m.switchMu.Unlock()

		if fn := m.registered(); fn != nil {
			status = fn(&args)
		} else {
			log.Printf("SM no trusted service handler registered")
			status = StatusNotSupported
		}
	}
}

// HandleInterrupt services a hardware interrupt received while the Normal
// World is executing: the interrupted call, if any, observes
// StatusInterrupted and any call trapped while draining is rejected with
// StatusInterleavedSMC, as dispatch is only safe from the world switch
// goroutine. It returns once the platform reports no pending calls.
//
// The return value is always false as no rescheduling is required.
func (m *Monitor) HandleInterrupt() (reschedule bool) {
	args := m.plat.SchedNonSecure(StatusInterrupted)

	for args != nil {
		args = m.plat.SchedNonSecure(StatusInterleavedSMC)
	}

	return false
}

func (m *Monitor) resumeSwitcher() {
	m.resumeOnce.Do(func() {
		close(m.resume)
	})
}
