// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The celeste-dump command attaches to a running Celeste process and
// writes the fixed 184-byte autosplitter record to a file, once per tick,
// for LiveSplit's (or a similar tool's) Celeste autosplitter component to
// read.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/procmem"
	"github.com/celeste-speedrun/introspector/internal/procscan"
	"github.com/celeste-speedrun/introspector/internal/sampler"
	"github.com/celeste-speedrun/introspector/internal/snapshot"
)

func main() {
	out := flag.String("o", "autosplitterinfo", "output file the autosplitter record is written to")
	flag.Parse()

	pid, err := findPID(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "celeste-dump: %v\n", err)
		os.Exit(1)
	}

	proc, err := procmem.Attach(pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "celeste-dump: %v\n", err)
		os.Exit(1)
	}
	defer proc.Close()

	adapter, err := celeste.Attach(proc, celeste.DomainListAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "celeste-dump: attaching to pid %d: %v\n", pid, err)
		os.Exit(1)
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "celeste-dump: creating %s: %v\n", *out, err)
		os.Exit(1)
	}
	defer f.Close()

	glog.Infof("attached to pid %d, writing records to %s", pid, *out)

	err = sampler.Run(adapter, func(dump *celeste.Dump) error {
		rec, err := snapshot.Encode(dump)
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		if _, err := f.WriteAt(rec[:], 0); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		return nil
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "celeste-dump: %v\n", err)
		os.Exit(1)
	}
}

// findPID honors an optional leading positional PID argument, falling
// back to locating (or prompting for) Celeste when none is given.
func findPID(args []string) (int, error) {
	if len(args) > 0 {
		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return 0, fmt.Errorf("invalid PID argument %q: %w", args[0], err)
		}
		return pid, nil
	}
	return procscan.FindOrPrompt(os.Stdout, os.Stdin)
}
