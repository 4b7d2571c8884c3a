// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package gotee

import (
	"log"

	"github.com/usbarmory/GoTEE-sm/sm"
	"github.com/usbarmory/GoTEE-sm/util"
)

// Monitor call numbers serviced by the trusted OS, their encoding crosses
// the security boundary and must remain stable (see nonsecure_os_go).
const (
	SMC_WRITE   = 0x01
	SMC_VERSION = 0x02
	SMC_ECHO    = 0x03
)

// Version is the monitor call ABI version returned by SMC_VERSION.
const Version = 1

// Console is the optional SSH console mirroring Normal World output.
var Console *util.Console

// Mon is the secure monitor instance.
var Mon *sm.Monitor

// NS is the Normal World platform backing Mon.
var NS *NormalWorld

// Init creates the secure monitor over a GoTEE Normal World platform,
// performs per core monitor initialization, registers the trusted service
// handler and reconciles the boot argument state.
func Init() {
	NS = NewNormalWorld()
	Mon = sm.Init(NS)

	for cpu := 0; cpu < NS.CPUs(); cpu++ {
		Mon.InitCPU(cpu)
	}

	if err := Mon.Register(serviceHandler); err != nil {
		// without a trusted service every monitor call would be
		// rejected as not supported
		log.Fatalf("SM could not register trusted service handler, %v", err)
	}

	if addr, size, err := Mon.GetBootArgs(); err != nil {
		log.Printf("SM no boot parameters (%v)", err)
	} else {
		log.Printf("SM boot parameters addr:%#x size:%d", addr, size)
		Mon.PutBootArgs()
	}

	Mon.ReleaseBootArgs()
}

// serviceHandler is the registered trusted service, it consumes trapped
// monitor calls and produces the status returned to the Normal World.
func serviceHandler(args *sm.CallArgs) int32 {
	switch args.SMC {
	case SMC_WRITE:
		// buffer Normal World output to avoid interleaved logs
		if Console != nil {
			util.LogChar(byte(args.Args[0]), false, Console.Term)
		} else {
			util.LogChar(byte(args.Args[0]), false, nil)
		}
	case SMC_VERSION:
		return Version
	case SMC_ECHO:
		return int32(args.Args[0])
	default:
		log.Printf("SM unsupported monitor call %#x", args.SMC)
		return sm.StatusNotSupported
	}

	return sm.StatusSuccess
}
