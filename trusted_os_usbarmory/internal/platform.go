// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gotee

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/usbarmory/tamago/arm"
	"github.com/usbarmory/tamago/dma"
	"github.com/usbarmory/tamago/soc/nxp/imx6ul"

	"github.com/usbarmory/GoTEE/monitor"

	"github.com/usbarmory/GoTEE-sm/mem"
	"github.com/usbarmory/GoTEE-sm/sm"
)

// mmuSection is the mapping granularity for the boot parameter block.
const mmuSection = 0x100000

// NormalWorld implements sm.Platform on top of a GoTEE Normal World
// execution context.
//
// GoTEE surfaces trapped exceptions by invoking the context handler (push
// form), while the secure monitor world switch loop pulls trapped calls out
// of SchedNonSecure. The conversion uses an unbuffered call/status channel
// pair: the handler parks the Normal World until the loop (or the next
// drain) feeds the status back.
type NormalWorld struct {
	mu  sync.Mutex
	ctx *monitor.ExecCtx

	ready   chan struct{}
	start   sync.Once
	done    chan struct{}
	calls   chan sm.CallArgs
	status  chan int32
	pending bool

	// MonitorStack is the monitor mode stack top reported for
	// diagnostics, GoTEE switches to the monitor goroutine stack on
	// world switch exceptions.
	MonitorStack uint32
}

func NewNormalWorld() *NormalWorld {
	return &NormalWorld{
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
		calls:  make(chan sm.CallArgs),
		status: make(chan int32),
	}
}

// Attach hands a loaded Normal World execution context to the platform,
// unblocking world switches. It overrides the context handler with the
// monitor call trap.
func (nw *NormalWorld) Attach(ctx *monitor.ExecCtx) error {
	nw.mu.Lock()
	defer nw.mu.Unlock()

	if nw.ctx != nil {
		return errors.New("normal world already attached")
	}

	ctx.Handler = nw.trap
	nw.ctx = ctx

	close(nw.ready)

	return nil
}

func (nw *NormalWorld) run() {
	ctx := nw.ctx
	mode := arm.ModeName(int(ctx.SPSR) & 0x1f)

	log.Printf("SM starting kernel mode:%s sp:%#.8x pc:%#.8x ns:%v", mode, ctx.R13, ctx.R15, ctx.NonSecure())

	err := ctx.Run()

	log.Printf("SM kernel stopped sp:%#.8x lr:%#.8x pc:%#.8x err:%v", ctx.R13, ctx.R14, ctx.R15, err)

	close(nw.done)
}

// trap converts trapped Normal World exceptions for SchedNonSecure
// consumption.
//
// Secure interrupts are serviced without leaving the monitor as, on this
// platform, they are delivered as FIQ exceptions of the execution context
// rather than re-entering the monitor through a dedicated vector (the
// latter case is what sm.HandleInterrupt drains).
func (nw *NormalWorld) trap(ctx *monitor.ExecCtx) (err error) {
	if !ctx.NonSecure() {
		return errors.New("unexpected processor mode")
	}

	switch ctx.ExceptionVector {
	case arm.FIQ:
		switch imx6ul.GIC.GetInterrupt(true) {
		case imx6ul.TZ_WDOG.IRQ:
			imx6ul.TZ_WDOG.Service(watchdogTimeout)
			log.Printf("SM serviced TrustZone Watchdog")
		}
	case arm.SUPERVISOR:
		nw.calls <- sm.CallArgs{
			SMC:  ctx.R0,
			Args: [3]uint32{ctx.R1, ctx.R2, ctx.R3},
		}

		ctx.R0 = uint32(<-nw.status)
	default:
		return fmt.Errorf("unhandled exception %x", ctx.ExceptionVector)
	}

	return
}

// SchedNonSecure implements sm.Platform, it blocks until a Normal World
// context has been attached and, lazily, launches it on first use.
func (nw *NormalWorld) SchedNonSecure(status int32) *sm.CallArgs {
	<-nw.ready

	nw.start.Do(func() {
		go nw.run()
	})

	if nw.pending {
		select {
		case nw.status <- status:
			nw.pending = false
		case <-nw.done:
			nw.pending = false
			return nil
		}
	}

	select {
	case args := <-nw.calls:
		nw.pending = true
		return &args
	case <-nw.done:
		return nil
	}
}

// CPUs implements sm.Platform, the i.MX6UL/ULL/ULZ are single core parts.
func (nw *NormalWorld) CPUs() int {
	return 1
}

// AllocMonitorStack implements sm.Platform, reserving monitor mode stack
// memory from the Secure World DMA region.
func (nw *NormalWorld) AllocMonitorStack(size int) (addr uint32, err error) {
	addr, _ = dma.Default().Reserve(size, 8)

	if addr == 0 {
		return 0, errors.New("monitor stack reservation failed")
	}

	return
}

// SetMonitorStack implements sm.Platform. GoTEE installs its own stacks on
// world switch entry, the reserved stack top is recorded for diagnostics.
func (nw *NormalWorld) SetMonitorStack(top uint32) {
	nw.MonitorStack = top
}

// SetMonitorVectorTable implements sm.Platform. The monitor exception
// vector base (MVBAR) is installed by GoTEE when the execution context is
// created, nothing is left to do here.
func (nw *NormalWorld) SetMonitorVectorTable() {}

// NonSecureAccessControl implements sm.Platform, it lets the Normal World
// enable SMP features, lock TLB entries and access CP10/CP11 (NSACR).
func (nw *NormalWorld) NonSecureAccessControl() {
	imx6ul.ARM.NonSecureAccessControl(1<<18 | 1<<17 | 1<<11 | 1<<10)
}

// BootArgs implements sm.Platform, returning the boot parameter block
// physical base and size words.
func (nw *NormalWorld) BootArgs() (base uint32, size uint32) {
	return mem.BootArgsStart, mem.BootArgsSize
}

// MapBootArgs implements sm.Platform, identity mapping the NonSecure block
// with privileged access at section granularity.
func (nw *NormalWorld) MapBootArgs(base uint32, size uint32) (addr uint32, err error) {
	if base%mmuSection != 0 || size%mmuSection != 0 {
		return 0, sm.ErrInvalidArgs
	}

	imx6ul.ARM.ConfigureMMU(base, base+size, 0, arm.MemoryRegion|arm.TTE_AP_001<<10)

	return base, nil
}

// UnmapBootArgs implements sm.Platform, revoking Secure World access to the
// boot parameter block.
func (nw *NormalWorld) UnmapBootArgs(addr uint32, size uint32) {
	imx6ul.ARM.ConfigureMMU(addr, addr+size, 0, 0)
}
