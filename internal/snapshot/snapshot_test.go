package snapshot_test

import (
	"strings"
	"testing"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/procmem"
	"github.com/celeste-speedrun/introspector/internal/snapshot"
)

// TestRoundTrip covers property 5: encoding a Dump and decoding the record
// yields the original AutosplitterInfo fields bit-exactly, with level_name
// preserved up to 100 bytes and NUL-padded beyond its length.
func TestRoundTrip(t *testing.T) {
	info := celeste.AutosplitterInfo{
		Level:               procmem.Address(0xdeadbeef),
		Chapter:             2,
		Mode:                1,
		TimerActive:         true,
		ChapterStarted:      true,
		ChapterComplete:     false,
		ChapterTimeTicks:    123456789,
		ChapterStrawberries: 5,
		ChapterCassette:     true,
		ChapterHeart:        false,
		FileTimeTicks:       987654321,
		FileStrawberries:    20,
		FileCassettes:       3,
		FileHearts:          2,
	}
	dump := celeste.NewDump(info, 4, true, 7, "3a-00")

	rec, err := snapshot.Encode(dump)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := snapshot.Decode(rec)

	if got.Info != info {
		t.Errorf("Decode(Encode(info)) = %+v, want %+v", got.Info, info)
	}
	if got.ChapterCheckpoints != 4 {
		t.Errorf("ChapterCheckpoints = %d, want 4", got.ChapterCheckpoints)
	}
	if !got.InCutscene {
		t.Errorf("InCutscene = false, want true")
	}
	if got.DeathCount != 7 {
		t.Errorf("DeathCount = %d, want 7", got.DeathCount)
	}
	if got.LevelName != "3a-00" {
		t.Errorf("LevelName = %q, want %q", got.LevelName, "3a-00")
	}
}

// TestRoundTripLongLevelName covers the truncate-to-100-bytes requirement.
func TestRoundTripLongLevelName(t *testing.T) {
	long := strings.Repeat("x", 150)
	dump := celeste.NewDump(celeste.AutosplitterInfo{Chapter: -1}, 0, false, 0, long)

	rec, err := snapshot.Encode(dump)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got := snapshot.Decode(rec)
	if len(got.LevelName) != 100 {
		t.Errorf("LevelName length = %d, want 100", len(got.LevelName))
	}
	if got.LevelName != long[:100] {
		t.Errorf("LevelName = %q, want first 100 bytes of input", got.LevelName)
	}
}

// TestScenarioS1 covers §8's S1 end-to-end scenario: with no save data yet,
// the encoded record is all zero except the chapter field, which holds -1.
func TestScenarioS1(t *testing.T) {
	dump := celeste.NewDump(celeste.AutosplitterInfo{Chapter: -1}, 0, false, 0, "")

	rec, err := snapshot.Encode(dump)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(rec) != snapshot.Size || snapshot.Size != 184 {
		t.Fatalf("Size = %d, want 184", snapshot.Size)
	}

	got := snapshot.Decode(rec)
	if got.Info.Chapter != -1 {
		t.Errorf("Chapter = %d, want -1", got.Info.Chapter)
	}
	if got.InCutscene || got.DeathCount != 0 || got.ChapterCheckpoints != 0 || got.LevelName != "" {
		t.Errorf("got = %+v, want all-zero besides chapter", got)
	}
}
