package term_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/splits"
	"github.com/celeste-speedrun/introspector/internal/term"
)

func TestRenderIncludesCompletedAndCurrentSplit(t *testing.T) {
	var buf bytes.Buffer
	r := term.Renderer{W: &buf}

	q := &splits.Queue{
		Completed: []splits.CompletedSplit{
			{Split: splits.Split{Chapter: 1, Kind: splits.KindHeart}, ChapterTimeMS: 1500},
		},
		Todo: []splits.Split{
			{Chapter: 2, Kind: splits.KindChapterComplete},
		},
	}
	dump := celeste.NewDump(celeste.AutosplitterInfo{Chapter: 2}, 0, false, 0, "")

	r.Render(q, dump, 65*time.Second)
	out := buf.String()

	if !strings.Contains(out, "\x1b[H\x1b[2J\x1b[3J") {
		t.Errorf("output missing clear sequence: %q", out)
	}
	if !strings.Contains(out, "Ch.1: Heart") {
		t.Errorf("output missing completed split: %q", out)
	}
	if !strings.Contains(out, "Ch.2: Complete") {
		t.Errorf("output missing current split: %q", out)
	}
	if !strings.Contains(out, "01:05.000") {
		t.Errorf("output missing file time: %q", out)
	}
}

func TestRenderWithNoTodoOmitsCurrentSplitLine(t *testing.T) {
	var buf bytes.Buffer
	r := term.Renderer{W: &buf}
	q := &splits.Queue{}
	dump := celeste.NewDump(celeste.AutosplitterInfo{Chapter: -1}, 0, false, 0, "")

	r.Render(q, dump, 0)
	if strings.Contains(buf.String(), "---") {
		t.Errorf("rendered a separator with an empty TODO list: %q", buf.String())
	}
}
