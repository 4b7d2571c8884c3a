// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sm

import (
	"errors"
)

// Status codes returned to the Normal World across the security boundary,
// their numeric encoding is part of the monitor call ABI and must remain
// stable.
const (
	StatusSuccess           int32 = 0
	StatusInvalidParameters int32 = -2
	StatusInterrupted       int32 = -3
	StatusUnexpectedRestart int32 = -4
	StatusBusy              int32 = -5
	StatusInterleavedSMC    int32 = -6
	StatusInternalFailure   int32 = -7
	StatusNotSupported      int32 = -8
)

// Configuration errors returned to Secure World callers.
var (
	ErrAlreadyRegistered = errors.New("trusted service handler already registered")
	ErrNotConfigured     = errors.New("boot arguments not configured")
	ErrInvalidArgs       = errors.New("invalid arguments")
)

// CallArgs represents the register block of a trapped monitor call, r0
// carries the call number and r1-r3 its parameters.
//
// The instance passed to SchedNonSecure callers aliases memory which the
// world switch mechanism reuses on the next transition, the switch loop
// therefore copies it before dispatch.
type CallArgs struct {
	SMC  uint32
	Args [3]uint32
}

// Handler is the trusted service dispatch routine, it consumes the
// arguments of a trapped monitor call and returns the status fed back to
// the Normal World on the next world switch.
//
// The handler executes on the sole world switch goroutine, blocking
// indefinitely within it stalls all further world switches.
type Handler func(args *CallArgs) int32
