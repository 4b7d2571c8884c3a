// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorldSwitchLoopDispatch(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true
	p.script = []*CallArgs{
		{SMC: 1, Args: [3]uint32{0xa, 0xb, 0xc}},
		{SMC: 2},
		{SMC: 3},
	}

	var mu sync.Mutex
	var seen []CallArgs

	m := Init(p)

	err := m.Register(func(args *CallArgs) int32 {
		mu.Lock()
		seen = append(seen, *args)
		mu.Unlock()

		return int32(100 + args.SMC)
	})
	require.NoError(t, err)

	m.ReleaseBootArgs()

	statuses := p.waitSched(t, 4)

	// the first switch carries the initial zero status, each further one
	// feeds back the handler result for the previous call
	require.Equal(t, []int32{0, 101, 102, 103}, statuses)
	require.NotContains(t, statuses, StatusUnexpectedRestart)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []CallArgs{
		{SMC: 1, Args: [3]uint32{0xa, 0xb, 0xc}},
		{SMC: 2},
		{SMC: 3},
	}, seen)
}

func TestWorldSwitchLoopNotSupported(t *testing.T) {
	buf := captureLog(t)

	p := newFakePlatform()
	p.blockOnEmpty = true
	p.script = []*CallArgs{
		{SMC: 42},
	}

	m := Init(p)
	m.ReleaseBootArgs()

	statuses := p.waitSched(t, 2)

	require.Equal(t, []int32{0, StatusNotSupported}, statuses)
	require.Contains(t, buf.String(), "no trusted service handler registered")
}

func TestWorldSwitchLoopUnexpectedRestart(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true
	p.script = []*CallArgs{
		nil,
		{SMC: 7},
	}

	m := Init(p)

	err := m.Register(func(args *CallArgs) int32 {
		return 7000
	})
	require.NoError(t, err)

	m.ReleaseBootArgs()

	statuses := p.waitSched(t, 3)

	// an empty switch result is recoverable, the loop retries without
	// dispatching
	require.Equal(t, []int32{0, StatusUnexpectedRestart, 7000}, statuses)
}

func TestRegisterExclusive(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true
	p.script = []*CallArgs{
		{SMC: 1},
		{SMC: 2},
	}

	var hijacked bool

	m := Init(p)

	require.NoError(t, m.Register(func(args *CallArgs) int32 {
		return 11
	}))
	require.True(t, m.Registered())

	err := m.Register(func(args *CallArgs) int32 {
		hijacked = true
		return 22
	})
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	m.ReleaseBootArgs()

	statuses := p.waitSched(t, 3)

	// the original handler remains active for every dispatch
	require.Equal(t, []int32{0, 11, 11}, statuses)
	require.False(t, hijacked)
}

func TestHandleInterruptDrain(t *testing.T) {
	p := newFakePlatform()
	p.script = []*CallArgs{
		{SMC: 5},
	}

	m := Init(p)

	// one call pending when the interrupt arrives, one more trapped
	// while draining
	reschedule := m.HandleInterrupt()

	require.False(t, reschedule)
	require.Equal(t, []int32{StatusInterrupted, StatusInterleavedSMC}, p.statuses)
}

func TestHandleInterruptNoPending(t *testing.T) {
	p := newFakePlatform()

	m := Init(p)

	require.False(t, m.HandleInterrupt())
	require.Equal(t, []int32{StatusInterrupted}, p.statuses)
}

func TestInitCPU(t *testing.T) {
	p := newFakePlatform()
	p.numCPU = 4

	m := Init(p)

	for cpu := 0; cpu < p.CPUs(); cpu++ {
		m.InitCPU(cpu)
	}

	require.Len(t, p.allocs, 4)
	require.Len(t, p.stacks, 4)

	for i, addr := range p.allocs {
		require.Equal(t, addr+MonitorStackSize, p.stacks[i])
	}

	require.Equal(t, 4, p.vectors)
	require.Equal(t, 4, p.nsacr)
}

func TestInitCPUStackFailure(t *testing.T) {
	buf := captureLog(t)

	p := newFakePlatform()
	p.stackErr = errors.New("out of memory")

	m := Init(p)
	m.InitCPU(0)

	// a core without a monitor stack must not take monitor traps
	require.Empty(t, p.stacks)
	require.Equal(t, 0, p.vectors)
	require.Contains(t, buf.String(), "failed to allocate monitor mode stack")
}
