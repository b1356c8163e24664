// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procscan locates a running Celeste process by scanning /proc.
package procscan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// celesteExe is the substring the resolved /proc/<pid>/exe path must
// contain to be considered a match.
const celesteExe = "Celeste.bin.x86_64"

// ErrNotFound is returned when no process in /proc matches.
var ErrNotFound = errors.New("procscan: no Celeste process found")

// Find scans /proc for a process whose executable path contains
// "Celeste.bin.x86_64", returning its PID. Permission errors reading an
// individual process's exe symlink (another user's process) are skipped
// rather than treated as fatal; any other error iterating /proc itself is
// returned.
func Find() (int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return 0, err
	}

	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil {
			continue // not a PID directory
		}

		target, err := os.Readlink("/proc/" + e.Name() + "/exe")
		if err != nil {
			if os.IsPermission(err) || os.IsNotExist(err) {
				continue
			}
			glog.V(2).Infof("procscan: skipping pid %d: %v", pid, err)
			continue
		}

		if isCelesteExe(target) {
			return pid, nil
		}
	}

	return 0, ErrNotFound
}

func isCelesteExe(resolvedExePath string) bool {
	return strings.Contains(resolvedExePath, celesteExe)
}

// FindOrPrompt calls Find, and on ErrNotFound falls back to asking the
// user for a PID on prompt/in, matching both cmd/ binaries' "Unable to
// find Celeste, please enter its PID:" fallback.
func FindOrPrompt(prompt io.Writer, in io.Reader) (int, error) {
	pid, err := Find()
	if err == nil {
		return pid, nil
	}

	fmt.Fprint(prompt, "Unable to find Celeste, please enter its PID: ")
	line, rerr := bufio.NewReader(in).ReadString('\n')
	if rerr != nil {
		return 0, fmt.Errorf("reading PID from stdin: %w", rerr)
	}
	pid, perr := strconv.Atoi(strings.TrimSpace(line))
	if perr != nil {
		return 0, fmt.Errorf("invalid PID %q: %w", strings.TrimSpace(line), perr)
	}
	return pid, nil
}
