package splits_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/splits"
)

// TestPredicateCorrectness covers property 6 for every Kind except Level,
// which TestLevelPredicate covers.
func TestPredicateCorrectness(t *testing.T) {
	cases := []struct {
		name  string
		split splits.Split
		info  celeste.AutosplitterInfo
		want  bool
	}{
		{
			name:  "heart matches",
			split: splits.Split{Chapter: 7, Kind: splits.KindHeart},
			info:  celeste.AutosplitterInfo{Chapter: 7, ChapterHeart: true},
			want:  true,
		},
		{
			name:  "heart wrong chapter",
			split: splits.Split{Chapter: 7, Kind: splits.KindHeart},
			info:  celeste.AutosplitterInfo{Chapter: 6, ChapterHeart: true},
			want:  false,
		},
		{
			name:  "cassette matches",
			split: splits.Split{Chapter: 3, Kind: splits.KindCassette},
			info:  celeste.AutosplitterInfo{Chapter: 3, ChapterCassette: true},
			want:  true,
		},
		{
			name:  "berries exact match on correct chapter",
			split: splits.Split{Chapter: 2, Kind: splits.KindBerries, BerryCount: 5},
			info:  celeste.AutosplitterInfo{Chapter: 2, ChapterStrawberries: 5},
			want:  true,
		},
		{
			// S3: Berries(5) predicate is false on a different chapter even
			// with the same strawberry count.
			name:  "berries wrong chapter is false even with matching count",
			split: splits.Split{Chapter: 3, Kind: splits.KindBerries, BerryCount: 5},
			info:  celeste.AutosplitterInfo{Chapter: 2, ChapterStrawberries: 5},
			want:  false,
		},
		{
			name:  "chapter complete matches",
			split: splits.Split{Chapter: 7, Kind: splits.KindChapterComplete},
			info:  celeste.AutosplitterInfo{Chapter: 7, ChapterComplete: true},
			want:  true,
		},
		{
			name:  "chapter complete false without the flag",
			split: splits.Split{Chapter: 7, Kind: splits.KindChapterComplete},
			info:  celeste.AutosplitterInfo{Chapter: 7, ChapterComplete: false},
			want:  false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dump := celeste.NewDump(c.info, 0, false, 0, "")
			if got := c.split.IsAccomplished(dump); got != c.want {
				t.Errorf("IsAccomplished = %v, want %v", got, c.want)
			}
		})
	}
}

// TestLevelPredicate covers the Level(name) branch, which needs a
// preloaded level name rather than a live string read.
func TestLevelPredicate(t *testing.T) {
	dump := celeste.NewDump(celeste.AutosplitterInfo{Chapter: 2}, 0, false, 0, "3a-00")
	s := splits.Split{Chapter: 2, Kind: splits.KindLevel, LevelName: "3a-00"}
	if !s.IsAccomplished(dump) {
		t.Errorf("IsAccomplished = false, want true for a matching level name")
	}
	s.LevelName = "3a-01"
	if s.IsAccomplished(dump) {
		t.Errorf("IsAccomplished = true, want false for a mismatched level name")
	}
}

// TestQueueAdvancement covers property 7 and scenario S4: the completed
// list ends up as the longest prefix of TODO whose predicates match, in
// order, with each completion timestamp equal to the matching Dump's
// chapter_time_ms.
func TestQueueAdvancement(t *testing.T) {
	q := &splits.Queue{
		Todo: []splits.Split{
			{Chapter: 7, Kind: splits.KindHeart},
			{Chapter: 7, Kind: splits.KindChapterComplete},
			{Chapter: 8, Kind: splits.KindHeart}, // not reached this tick
		},
	}

	dump := celeste.NewDump(celeste.AutosplitterInfo{
		Chapter:          7,
		ChapterHeart:     true,
		ChapterComplete:  true,
		ChapterTimeTicks: 50_000_000, // 5000 ms
	}, 0, false, 0, "")

	n := q.Advance(dump)
	if n != 2 {
		t.Fatalf("Advance returned %d, want 2", n)
	}
	if len(q.Completed) != 2 || len(q.Todo) != 1 {
		t.Fatalf("Completed=%d Todo=%d, want 2 and 1", len(q.Completed), len(q.Todo))
	}
	if q.Completed[0].Split.Kind != splits.KindHeart || q.Completed[1].Split.Kind != splits.KindChapterComplete {
		t.Errorf("completed order = %v, want [Heart, ChapterComplete]", q.Completed)
	}
	for _, c := range q.Completed {
		if c.ChapterTimeMS != 5000 {
			t.Errorf("ChapterTimeMS = %d, want 5000", c.ChapterTimeMS)
		}
	}
	if q.Todo[0].Chapter != 8 {
		t.Errorf("remaining Todo = %+v, want chapter 8 split left", q.Todo)
	}
}

// TestTOMLRoundTrip covers property 9 for the "Cassette" spelling that Save
// writes; TestTOMLAcceptsOriginalCassetteSpelling covers "Casette".
func TestTOMLRoundTrip(t *testing.T) {
	name := "Golden"
	original := []splits.Split{
		{Name: &name, Chapter: 1, Kind: splits.KindHeart},
		{Chapter: 2, Kind: splits.KindBerries, BerryCount: 5},
		{Chapter: 3, Kind: splits.KindLevel, LevelName: "3a-00"},
		{Chapter: 4, Kind: splits.KindChapterComplete},
		{Chapter: 5, Kind: splits.KindCassette},
	}
	mode := splits.SplitMode{Name: "Any%", Variant: 1}

	dir := t.TempDir()
	path := filepath.Join(dir, "splits.toml")
	if err := splits.Save(path, mode, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	q, gotMode, err := splits.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotMode != mode {
		t.Errorf("mode = %+v, want %+v", gotMode, mode)
	}
	if len(q.Todo) != len(original) {
		t.Fatalf("got %d splits, want %d", len(q.Todo), len(original))
	}
	for i, want := range original {
		got := q.Todo[i]
		if got.Chapter != want.Chapter || got.Kind != want.Kind ||
			got.BerryCount != want.BerryCount || got.LevelName != want.LevelName {
			t.Errorf("split %d = %+v, want %+v", i, got, want)
		}
		if (got.Name == nil) != (want.Name == nil) || (got.Name != nil && *got.Name != *want.Name) {
			t.Errorf("split %d name = %v, want %v", i, got.Name, want.Name)
		}
	}
}

// TestTOMLAcceptsOriginalCassetteSpelling covers the backward-compatible
// decode of the source's "Casette" typo.
func TestTOMLAcceptsOriginalCassetteSpelling(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "splits.toml")
	const doc = `
[split_mode]
name = "Any%"
variant = 1

[[splits]]
chapter = 5
kind = "Casette"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	q, _, err := splits.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(q.Todo) != 1 || q.Todo[0].Kind != splits.KindCassette {
		t.Errorf("got %+v, want one KindCassette split", q.Todo)
	}
}
