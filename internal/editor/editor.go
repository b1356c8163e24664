// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package editor is the interactive splits editor: a chzyer/readline REPL
// over a SplitsFile, grounded on the teacher pack's existing
// github.com/chzyer/readline-driven REPL shape (scm/prompt.go's Repl).
//
// Commands are parsed into a verb enum and dispatched by a switch, not
// by string-index arithmetic over rendered menu text — the fragile
// approach flagged in the design notes as something a clean
// reimplementation should avoid.
package editor

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/celeste-speedrun/introspector/internal/splits"
)

const prompt = "splits> "

// verb is the parsed command kind.
type verb int

const (
	verbUnknown verb = iota
	verbAdd
	verbRemove
	verbMove
	verbList
	verbSave
	verbQuit
)

// command is one fully-parsed editor line.
type command struct {
	verb verb
	args []int
}

// parseCommand splits line into a command, per the enum dispatch the
// design notes call for. Indices are accepted 1-based (as shown by List)
// and converted to 0-based here, once, rather than at each call site.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{verb: verbUnknown}, nil
	}

	switch fields[0] {
	case "add":
		return command{verb: verbAdd}, nil
	case "remove":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: remove <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return command{}, fmt.Errorf("remove: %w", err)
		}
		return command{verb: verbRemove, args: []int{n - 1}}, nil
	case "move":
		if len(fields) != 3 {
			return command{}, fmt.Errorf("usage: move <from> <to>")
		}
		from, err := strconv.Atoi(fields[1])
		if err != nil {
			return command{}, fmt.Errorf("move: %w", err)
		}
		to, err := strconv.Atoi(fields[2])
		if err != nil {
			return command{}, fmt.Errorf("move: %w", err)
		}
		return command{verb: verbMove, args: []int{from - 1, to - 1}}, nil
	case "list":
		return command{verb: verbList}, nil
	case "save":
		return command{verb: verbSave}, nil
	case "quit", "exit":
		return command{verb: verbQuit}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q (try add/remove/move/list/save/quit)", fields[0])
	}
}

// Remove deletes the split at the given 0-based index, bounds-checked
// rather than trusting the caller (covers additional property 10: never
// an out-of-bounds index).
func Remove(todo []splits.Split, index int) ([]splits.Split, error) {
	if index < 0 || index >= len(todo) {
		return nil, fmt.Errorf("editor: index %d out of range [0,%d)", index, len(todo))
	}
	out := make([]splits.Split, 0, len(todo)-1)
	out = append(out, todo[:index]...)
	out = append(out, todo[index+1:]...)
	return out, nil
}

// Move relocates the split at from to position to, both 0-based and
// bounds-checked; a from/to at either end of the list is a valid no-op or
// a valid relocation, never an out-of-bounds index.
func Move(todo []splits.Split, from, to int) ([]splits.Split, error) {
	if from < 0 || from >= len(todo) {
		return nil, fmt.Errorf("editor: from index %d out of range [0,%d)", from, len(todo))
	}
	if to < 0 || to >= len(todo) {
		return nil, fmt.Errorf("editor: to index %d out of range [0,%d)", to, len(todo))
	}
	if from == to {
		return todo, nil
	}
	out := make([]splits.Split, len(todo))
	copy(out, todo)
	s := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]splits.Split{s}, out[to:]...)...)
	return out, nil
}

// Run drives the interactive editor loop against path's splits file,
// reading commands from a readline.Instance and writing prompts/results
// to its stdout. It returns when the user issues quit/exit or closes
// stdin (Ctrl-D).
func Run(path string) error {
	mode := splits.SplitMode{Name: "Any%", Variant: 1}
	todo := []splits.Split{}
	if q, m, err := splits.Load(path); err == nil {
		todo = q.Todo
		mode = m
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("editor: starting readline: %w", err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, err := parseCommand(line)
		if err != nil {
			fmt.Fprintln(l.Stderr(), err)
			continue
		}

		switch cmd.verb {
		case verbUnknown:
			// blank line
		case verbList:
			printList(l.Stdout(), todo)
		case verbRemove:
			todo, err = Remove(todo, cmd.args[0])
			if err != nil {
				fmt.Fprintln(l.Stderr(), err)
			}
		case verbMove:
			todo, err = Move(todo, cmd.args[0], cmd.args[1])
			if err != nil {
				fmt.Fprintln(l.Stderr(), err)
			}
		case verbSave:
			if err := splits.Save(path, mode, todo); err != nil {
				fmt.Fprintln(l.Stderr(), err)
			} else {
				fmt.Fprintln(l.Stdout(), "saved")
			}
		case verbAdd:
			s, err := promptAdd(l)
			if err != nil {
				fmt.Fprintln(l.Stderr(), err)
				continue
			}
			todo = append(todo, s)
			fmt.Fprintf(l.Stdout(), "added: %s\n", s.DisplayLong())
		case verbQuit:
			return nil
		}
	}
}

// promptAdd walks the user through building one new Split via a short
// sequence of sub-prompts on l, the same readline.Instance the rest of the
// loop reads from: chapter, kind, any kind-specific data, then an optional
// display name.
func promptAdd(l *readline.Instance) (splits.Split, error) {
	chapterStr, err := readPrompt(l, "chapter: ")
	if err != nil {
		return splits.Split{}, err
	}
	chapter, err := strconv.Atoi(chapterStr)
	if err != nil {
		return splits.Split{}, fmt.Errorf("add: %w", err)
	}

	kindStr, err := readPrompt(l, "kind (heart/cassette/berries/level/complete): ")
	if err != nil {
		return splits.Split{}, err
	}
	kind, err := parseKind(kindStr)
	if err != nil {
		return splits.Split{}, err
	}

	s := splits.Split{Chapter: int32(chapter), Kind: kind}

	switch kind {
	case splits.KindBerries:
		countStr, err := readPrompt(l, "berry count: ")
		if err != nil {
			return splits.Split{}, err
		}
		count, err := strconv.Atoi(countStr)
		if err != nil {
			return splits.Split{}, fmt.Errorf("add: %w", err)
		}
		s.BerryCount = int32(count)
	case splits.KindLevel:
		name, err := readPrompt(l, "level name: ")
		if err != nil {
			return splits.Split{}, err
		}
		s.LevelName = name
	}

	name, err := readPrompt(l, "name (blank for none): ")
	if err != nil {
		return splits.Split{}, err
	}
	if name != "" {
		s.Name = &name
	}

	return s, nil
}

// parseKind matches the short names shown in promptAdd's kind prompt.
func parseKind(s string) (splits.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "heart":
		return splits.KindHeart, nil
	case "cassette":
		return splits.KindCassette, nil
	case "berries":
		return splits.KindBerries, nil
	case "level":
		return splits.KindLevel, nil
	case "complete", "chaptercomplete":
		return splits.KindChapterComplete, nil
	default:
		return 0, fmt.Errorf("add: unknown kind %q (try heart/cassette/berries/level/complete)", s)
	}
}

// readPrompt swaps l's prompt for label, reads one line, then restores the
// editor's normal prompt.
func readPrompt(l *readline.Instance, label string) (string, error) {
	l.SetPrompt(label)
	defer l.SetPrompt(prompt)
	line, err := l.Readline()
	if err != nil {
		return "", fmt.Errorf("add: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func printList(w io.Writer, todo []splits.Split) {
	for i, s := range todo {
		fmt.Fprintf(w, "%d. %s\n", i+1, s.DisplayLong())
	}
}
