package sampler_test

import (
	"testing"
	"time"

	"github.com/celeste-speedrun/introspector/internal/celeste"
	"github.com/celeste-speedrun/introspector/internal/mono"
	"github.com/celeste-speedrun/introspector/internal/mono/monotest"
	"github.com/celeste-speedrun/introspector/internal/sampler"
	"github.com/celeste-speedrun/introspector/internal/splits"
)

// minimalAdapter builds just enough of a Celeste-shaped fixture for
// GetData to succeed on every tick: chapter == -1 and SaveData.Instance
// left null, short-circuiting the checkpoint/cutscene reads.
func minimalAdapter(t *testing.T) *celeste.Adapter {
	t.Helper()
	b := monotest.NewBuilder(0)

	first := b.Domain("Celeste.exe")
	second := b.Domain("celeste.dll")
	domainList := b.DomainList(first, second)
	image := b.SetAssembly(second)
	cache := b.ClassCacheAt(image, 4)

	celesteClass := b.AllocClass("Celeste", mono.KindClassDef, []monotest.Field{
		{Name: "Instance", Offset: 0x10},
		{Name: "AutoSplitterInfo", Offset: 0x40},
	}, 1)
	saveDataClass := b.AllocClass("SaveData", mono.KindClassDef, []monotest.Field{
		{Name: "Instance", Offset: 0x10},
	}, 1)
	engineClass := b.AllocClass("Engine", mono.KindClassDef, []monotest.Field{
		{Name: "scene", Offset: 0x100},
	}, 0)
	levelClass := b.AllocClass("Level", mono.KindClassDef, nil, 0)

	cache.Add(0, celesteClass)
	cache.Add(1, saveDataClass)
	cache.Add(2, engineClass)
	cache.Add(3, levelClass)

	singleton := b.NewInstance(celesteClass, 0x200)
	celesteStatic := b.AttachStatic(celesteClass, 1, 0, 0)
	b.PutAddress(celesteStatic.Add(0x10), singleton)
	b.AttachStatic(saveDataClass, 1, 0, 0) // leaves Instance == 0 (null)

	rt := mono.New(b.Reader())
	asiOff, err := rt.FieldOffset(celesteClass, "AutoSplitterInfo")
	if err != nil {
		t.Fatalf("FieldOffset: %v", err)
	}
	b.PutUint32(singleton.Add(asiOff+0x10+8), 0xFFFFFFFF) // chapter = -1

	a, err := celeste.Attach(b.Reader(), domainList)
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	return a
}

func TestRunCallsSinkEveryTick(t *testing.T) {
	adapter := minimalAdapter(t)
	stop := make(chan struct{})
	count := 0

	done := make(chan error, 1)
	go func() {
		done <- sampler.Run(adapter, func(d *celeste.Dump) error {
			count++
			if count >= 3 {
				close(stop)
			}
			return nil
		}, stop)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stop was closed")
	}
	if count < 3 {
		t.Errorf("sink called %d times, want at least 3", count)
	}
}

func TestRunUIAdvancesQueue(t *testing.T) {
	adapter := minimalAdapter(t)
	// The fixture's Info.Level is null, so LevelName is "" and a Level
	// split on chapter -1 with an empty name matches on the first tick.
	q := &splits.Queue{Todo: []splits.Split{
		{Chapter: -1, Kind: splits.KindLevel, LevelName: ""},
		{Chapter: -1, Kind: splits.KindChapterComplete},
	}}
	stop := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- sampler.RunUI(adapter, q, func(d *celeste.Dump) {
			close(stop)
		}, stop)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunUI: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunUI did not return after stop was closed")
	}
	if len(q.Completed) != 1 || len(q.Todo) != 1 {
		t.Errorf("Completed=%d Todo=%d, want 1 and 1", len(q.Completed), len(q.Todo))
	}
}
