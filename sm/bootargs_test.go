// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testBootBase = 0x10000000
	testBootSize = 0x00100000
)

func TestBootArgsLifecycle(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true
	p.bootBase = testBootBase
	p.bootSize = testBootSize

	m := Init(p)

	// initialization holds its own reference
	require.Equal(t, 1, m.BootArgsRefs())
	require.Equal(t, 1, p.maps)

	addr, size, err := m.GetBootArgs()
	require.NoError(t, err)
	require.Equal(t, uint32(testBootBase), addr)
	require.Equal(t, uint32(testBootSize), size)

	_, _, err = m.GetBootArgs()
	require.NoError(t, err)
	require.Equal(t, 3, m.BootArgsRefs())

	// the world switch goroutine stays suspended until the last release
	p.idleSched(t)

	m.PutBootArgs()
	m.PutBootArgs()
	require.Equal(t, 0, p.unmaps)

	m.PutBootArgs()
	require.Equal(t, 1, p.unmaps)
	require.Equal(t, 0, m.BootArgsRefs())

	// resumed exactly once
	require.Equal(t, []int32{0}, p.waitSched(t, 1))
	p.idleSched(t)

	_, _, err = m.GetBootArgs()
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestBootArgsNotConfigured(t *testing.T) {
	p := newFakePlatform()

	m := Init(p)

	_, _, err := m.GetBootArgs()
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Equal(t, 0, p.maps)
}

func TestBootArgsMapFailure(t *testing.T) {
	buf := captureLog(t)

	p := newFakePlatform()
	p.bootBase = testBootBase
	p.bootSize = testBootSize
	p.mapErr = errors.New("section overlap")

	m := Init(p)

	_, _, err := m.GetBootArgs()
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Contains(t, buf.String(), "error mapping boot parameter block")
}

func TestBootArgsUnpairedPut(t *testing.T) {
	buf := captureLog(t)

	p := newFakePlatform()
	p.blockOnEmpty = true
	p.bootBase = testBootBase
	p.bootSize = testBootSize

	m := Init(p)
	m.PutBootArgs()

	require.Equal(t, 1, p.unmaps)

	// release beyond exact pairing must warn without unmapping twice or
	// decrementing past zero
	m.PutBootArgs()

	require.Equal(t, 1, p.unmaps)
	require.Equal(t, 0, m.BootArgsRefs())
	require.Contains(t, buf.String(), "does not own a reference")
}

func TestReleaseBootArgsWithoutBlock(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true

	m := Init(p)

	// no boot arguments were supplied, reconciliation resumes the world
	// switch goroutine directly
	p.idleSched(t)
	m.ReleaseBootArgs()

	require.Equal(t, []int32{0}, p.waitSched(t, 1))
}

func TestReleaseBootArgsDropsInitReference(t *testing.T) {
	p := newFakePlatform()
	p.blockOnEmpty = true
	p.bootBase = testBootBase
	p.bootSize = testBootSize

	m := Init(p)
	m.ReleaseBootArgs()

	require.Equal(t, 1, p.unmaps)
	require.Equal(t, []int32{0}, p.waitSched(t, 1))
}

func TestReleaseBootArgsLeakWarning(t *testing.T) {
	buf := captureLog(t)

	p := newFakePlatform()
	p.blockOnEmpty = true
	p.bootBase = testBootBase
	p.bootSize = testBootSize

	m := Init(p)

	_, _, err := m.GetBootArgs()
	require.NoError(t, err)

	m.ReleaseBootArgs()

	// a reference is still outstanding, the Normal World is held until
	// its owner releases it
	require.Contains(t, buf.String(), "outstanding reference to boot args")
	require.Equal(t, 0, p.unmaps)
	p.idleSched(t)

	m.PutBootArgs()

	require.Equal(t, 1, p.unmaps)
	require.Equal(t, []int32{0}, p.waitSched(t, 1))
}
