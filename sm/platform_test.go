// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

import (
	"bytes"
	"log"
	"sync"
	"testing"
	"time"
)

// fakePlatform implements Platform against a scripted sequence of world
// switch results, nil entries represent an unexpected Normal World restart.
//
// With blockOnEmpty set, SchedNonSecure parks its caller once the script is
// exhausted, emulating a Normal World that never traps again.
type fakePlatform struct {
	mu sync.Mutex

	script       []*CallArgs
	shared       CallArgs
	blockOnEmpty bool
	statuses     []int32
	sched        chan int32

	bootBase uint32
	bootSize uint32
	mapErr   error
	maps     int
	unmaps   int

	stackErr error
	numCPU   int
	allocs   []uint32
	stacks   []uint32
	vectors  int
	nsacr    int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		sched:  make(chan int32, 64),
		numCPU: 1,
	}
}

func (p *fakePlatform) SchedNonSecure(status int32) *CallArgs {
	p.mu.Lock()

	p.statuses = append(p.statuses, status)

	var args *CallArgs

	if len(p.script) > 0 {
		next := p.script[0]
		p.script = p.script[1:]

		if next != nil {
			// the register block is shared with the transition
			// mechanism and reused on every switch
			p.shared = *next
			args = &p.shared
		}

		p.mu.Unlock()
		p.sched <- status

		return args
	}

	p.mu.Unlock()
	p.sched <- status

	if p.blockOnEmpty {
		select {}
	}

	return nil
}

func (p *fakePlatform) CPUs() int {
	return p.numCPU
}

func (p *fakePlatform) AllocMonitorStack(size int) (uint32, error) {
	if p.stackErr != nil {
		return 0, p.stackErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	addr := uint32(0x94000000 + len(p.allocs)*size)
	p.allocs = append(p.allocs, addr)

	return addr, nil
}

func (p *fakePlatform) SetMonitorStack(top uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stacks = append(p.stacks, top)
}

func (p *fakePlatform) SetMonitorVectorTable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.vectors++
}

func (p *fakePlatform) NonSecureAccessControl() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nsacr++
}

func (p *fakePlatform) BootArgs() (uint32, uint32) {
	return p.bootBase, p.bootSize
}

func (p *fakePlatform) MapBootArgs(base uint32, size uint32) (uint32, error) {
	if p.mapErr != nil {
		return 0, p.mapErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.maps++

	return base, nil
}

func (p *fakePlatform) UnmapBootArgs(addr uint32, size uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unmaps++
}

// waitSched blocks until n world switches have been issued, returning the
// statuses they carried.
func (p *fakePlatform) waitSched(t *testing.T, n int) []int32 {
	t.Helper()

	var out []int32

	for i := 0; i < n; i++ {
		select {
		case status := <-p.sched:
			out = append(out, status)
		case <-time.After(5 * time.Second):
			t.Fatalf("timeout waiting for world switch %d of %d", i+1, n)
		}
	}

	return out
}

// idleSched asserts that no world switch is issued within the grace period.
func (p *fakePlatform) idleSched(t *testing.T) {
	t.Helper()

	select {
	case status := <-p.sched:
		t.Fatalf("unexpected world switch with status %d", status)
	case <-time.After(100 * time.Millisecond):
	}
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.Write(p)
}

func (l *logBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.String()
}

func captureLog(t *testing.T) *logBuffer {
	t.Helper()

	buf := &logBuffer{}
	out := log.Writer()

	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(out) })

	return buf
}
