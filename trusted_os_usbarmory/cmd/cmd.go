// Copyright (c) The GoTEE authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"runtime/debug"
	"runtime/pprof"
	"sort"
	"strings"
	"sync"

	"golang.org/x/term"
)

// CmdFn represents a command handler.
type CmdFn func(term *term.Terminal, arg []string) (res string, err error)

// Cmd represents a console command.
type Cmd struct {
	// Name is the command name.
	Name string
	// Args defines the number of command arguments, meant to be in a
	// comma separated format.
	Args int
	// Pattern defines the arguments format.
	Pattern *regexp.Regexp
	// Syntax defines the Help() command syntax field.
	Syntax string
	// Help defines the Help() command description field.
	Help string
	// Fn defines the command handler.
	Fn CmdFn
}

var cmds = make(map[string]*Cmd)
var mutex sync.Mutex

// Add registers a terminal interface command.
func Add(cmd Cmd) {
	mutex.Lock()
	defer mutex.Unlock()

	cmds[cmd.Name] = &cmd
}

// Help returns the terminal interface command list.
func Help(term *term.Terminal) string {
	var help bytes.Buffer
	var names []string

	mutex.Lock()
	defer mutex.Unlock()

	for name := range cmds {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		cmd := cmds[name]
		fmt.Fprintf(&help, "%-16s %-20s # %s\n", cmd.Name, cmd.Syntax, cmd.Help)
	}

	return string(term.Escape.Cyan) + help.String() + string(term.Escape.Reset)
}

// Handle processes a terminal interface command line.
func Handle(term *term.Terminal, line string) (err error) {
	var match *Cmd
	var arg []string
	var res string

	line = strings.TrimSpace(line)

	if len(line) == 0 {
		return
	}

	mutex.Lock()

	for _, cmd := range cmds {
		if cmd.Pattern == nil {
			if cmd.Name == line {
				match = cmd
				break
			}
		} else if m := cmd.Pattern.FindStringSubmatch(line); len(m) == cmd.Args+1 {
			match = cmd
			arg = m[1:]
			break
		}
	}

	mutex.Unlock()

	if match == nil {
		return errors.New("unknown command, type `help`")
	}

	if res, err = match.Fn(term, arg); err != nil {
		return
	}

	fmt.Fprintln(term, res)

	return
}

func init() {
	Add(Cmd{
		Name: "help",
		Help: "this help",
		Fn: func(term *term.Terminal, _ []string) (string, error) {
			return Help(term), nil
		},
	})

	Add(Cmd{
		Name:    "exit, quit",
		Args:    1,
		Pattern: regexp.MustCompile(`^(exit|quit)$`),
		Help:    "close session",
		Fn: func(_ *term.Terminal, _ []string) (string, error) {
			return "logout", io.EOF
		},
	})

	Add(Cmd{
		Name: "stack",
		Help: "stack trace of current goroutine",
		Fn: func(_ *term.Terminal, _ []string) (string, error) {
			return string(debug.Stack()), nil
		},
	})

	Add(Cmd{
		Name: "stackall",
		Help: "stack trace of all goroutines",
		Fn: func(_ *term.Terminal, _ []string) (string, error) {
			buf := new(bytes.Buffer)
			_ = pprof.Lookup("goroutine").WriteTo(buf, 1)

			return buf.String(), nil
		},
	})
}
