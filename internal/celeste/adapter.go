package celeste

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/celeste-speedrun/introspector/internal/mono"
	"github.com/celeste-speedrun/introspector/internal/procmem"
)

// Byte offsets of the AutosplitterInfo fields within the fixed 72-byte
// struct read from (and, via ../snapshot, written back out as) one block.
// u64 fields are naturally 8-byte aligned; the trailing 12 bytes beyond
// the last logical field are reserved padding preserved for layout
// stability (72, not the tightly packed 53).
const (
	offLevel               = 0
	offChapter             = 8
	offMode                = 12
	offTimerActive         = 16
	offChapterStarted      = 17
	offChapterComplete     = 18
	offChapterTimeTicks    = 24
	offChapterStrawberries = 32
	offChapterCassette     = 36
	offChapterHeart        = 37
	offFileTimeTicks       = 40
	offFileStrawberries    = 48
	offFileCassettes       = 52
	offFileHearts          = 56

	// SizeOfAutosplitterInfo is the wire/in-memory size of the
	// AutosplitterInfo block, exported for use by ../snapshot.
	SizeOfAutosplitterInfo = 72
)

// numAreas is the number of chapters in Celeste's Areas save-data list;
// anything else means the in-memory layout assumption no longer holds and
// checkpoint counting for this tick is skipped (never fatal).
const numAreas = 11

// RootDomainAddr and DomainListAddr are fixed anchors into one specific
// Celeste build's address space: the process has no ASLR, so these
// virtual addresses are stable across runs of that build but must be
// re-derived (e.g. with a disassembler) if the binary is ever updated.
// RootDomainAddr is unused by GetData; it's retained for diagnostics, per
// the same anchor the rest of the walk is built from.
const (
	RootDomainAddr = procmem.Address(0xA17650)
	DomainListAddr = procmem.Address(0xA17698)
)

// Handles are the addresses resolved once at attach time and reused every
// tick, per the data model's "Celeste handles" lifecycle.
type Handles struct {
	CelesteClass  procmem.Address
	SaveDataClass procmem.Address
	EngineClass   procmem.Address
	LevelClass    procmem.Address
	Singleton     procmem.Address // Celeste.Instance
	InfoAddr      procmem.Address // singleton + AutoSplitterInfo field offset + 0x10
}

// Adapter composes a Dump each tick from Celeste- and Mono-specific
// knowledge layered on top of a generic mono.Runtime.
type Adapter struct {
	rt *mono.Runtime
	h  Handles

	// SkipTickOnSaveDataRealloc mirrors the disabled behavior discussed
	// in the design notes' open questions: when true, a tick whose
	// SaveData.Instance differs from the previous tick's is skipped
	// (the previous Dump's SaveData-derived fields are reused) rather
	// than risking a read mid-reallocation. Off by default.
	SkipTickOnSaveDataRealloc bool

	lastSaveData    procmem.Address
	haveLastSample  bool
	lastCheckpoints uint32
	lastDeathCount  uint32
}

// Attach resolves the Celeste/SaveData/Engine/Level classes, the Celeste
// singleton, and the AutoSplitterInfo struct address, per §4.D. Any
// failure here is fatal: the target's binary layout is effectively part
// of the contract.
func Attach(r procmem.Reader, domainListAddr procmem.Address) (*Adapter, error) {
	rt := mono.New(r)

	classCache, err := rt.Attach(domainListAddr)
	if err != nil {
		return nil, err
	}

	var h Handles
	for name, dst := range map[string]*procmem.Address{
		"Celeste":  &h.CelesteClass,
		"SaveData": &h.SaveDataClass,
		"Engine":   &h.EngineClass,
		"Level":    &h.LevelClass,
	} {
		class, err := rt.LookupClass(classCache, name)
		if err != nil {
			return nil, fmt.Errorf("resolving class %s: %w", name, err)
		}
		*dst = class
	}

	singleton, err := rt.StaticAddress(h.CelesteClass, "Instance")
	if err != nil {
		return nil, fmt.Errorf("resolving Celeste.Instance: %w", err)
	}
	h.Singleton = singleton

	asiOff, err := rt.FieldOffset(h.CelesteClass, "AutoSplitterInfo")
	if err != nil {
		return nil, fmt.Errorf("resolving AutoSplitterInfo field: %w", err)
	}
	// +0x10 accounts for the managed-object header on a boxed, embedded
	// value-type field (§3, "Boxed struct" in the glossary).
	h.InfoAddr = singleton.Add(asiOff + 0x10)

	glog.V(1).Infof("attached: singleton=%s autosplitter_info=%s", singleton, h.InfoAddr)
	return &Adapter{rt: rt, h: h}, nil
}

// Handles returns the addresses resolved at attach time.
func (a *Adapter) Handles() Handles {
	return a.h
}

// GetData samples one tick's worth of state, per §4.D.
func (a *Adapter) GetData() (*Dump, error) {
	info, err := a.readAutosplitterInfo(a.h.InfoAddr)
	if err != nil {
		return nil, fmt.Errorf("reading AutosplitterInfo: %w", err)
	}

	dump := &Dump{Info: info}
	dump.resolveLevel = func() (string, error) {
		return a.rt.ReadManagedString(info.Level)
	}

	if err := a.readSaveData(dump); err != nil {
		return nil, err
	}

	if err := a.readCutscene(dump); err != nil {
		return nil, err
	}

	return dump, nil
}

func (a *Adapter) readAutosplitterInfo(addr procmem.Address) (AutosplitterInfo, error) {
	r := a.rt
	var info AutosplitterInfo

	level, err := r.ReadAddress(addr.Add(offLevel))
	if err != nil {
		return info, fmt.Errorf("reading level: %w", err)
	}
	chapter, err := r.ReadUint32(addr.Add(offChapter))
	if err != nil {
		return info, fmt.Errorf("reading chapter: %w", err)
	}
	mode, err := r.ReadUint32(addr.Add(offMode))
	if err != nil {
		return info, fmt.Errorf("reading mode: %w", err)
	}
	timerActive, err := r.ReadUint8(addr.Add(offTimerActive))
	if err != nil {
		return info, fmt.Errorf("reading timer_active: %w", err)
	}
	chapterStarted, err := r.ReadUint8(addr.Add(offChapterStarted))
	if err != nil {
		return info, fmt.Errorf("reading chapter_started: %w", err)
	}
	chapterComplete, err := r.ReadUint8(addr.Add(offChapterComplete))
	if err != nil {
		return info, fmt.Errorf("reading chapter_complete: %w", err)
	}
	chapterTime, err := r.ReadUint64(addr.Add(offChapterTimeTicks))
	if err != nil {
		return info, fmt.Errorf("reading chapter_time: %w", err)
	}
	chapterStrawberries, err := r.ReadUint32(addr.Add(offChapterStrawberries))
	if err != nil {
		return info, fmt.Errorf("reading chapter_strawberries: %w", err)
	}
	chapterCassette, err := r.ReadUint8(addr.Add(offChapterCassette))
	if err != nil {
		return info, fmt.Errorf("reading chapter_cassette: %w", err)
	}
	chapterHeart, err := r.ReadUint8(addr.Add(offChapterHeart))
	if err != nil {
		return info, fmt.Errorf("reading chapter_heart: %w", err)
	}
	fileTime, err := r.ReadUint64(addr.Add(offFileTimeTicks))
	if err != nil {
		return info, fmt.Errorf("reading file_time: %w", err)
	}
	fileStrawberries, err := r.ReadUint32(addr.Add(offFileStrawberries))
	if err != nil {
		return info, fmt.Errorf("reading file_strawberries: %w", err)
	}
	fileCassettes, err := r.ReadUint32(addr.Add(offFileCassettes))
	if err != nil {
		return info, fmt.Errorf("reading file_cassettes: %w", err)
	}
	fileHearts, err := r.ReadUint32(addr.Add(offFileHearts))
	if err != nil {
		return info, fmt.Errorf("reading file_hearts: %w", err)
	}

	return AutosplitterInfo{
		Level:               level,
		Chapter:             int32(chapter),
		Mode:                int32(mode),
		TimerActive:         timerActive != 0,
		ChapterStarted:      chapterStarted != 0,
		ChapterComplete:     chapterComplete != 0,
		ChapterTimeTicks:    chapterTime,
		ChapterStrawberries: int32(chapterStrawberries),
		ChapterCassette:     chapterCassette != 0,
		ChapterHeart:        chapterHeart != 0,
		FileTimeTicks:       fileTime,
		FileStrawberries:    int32(fileStrawberries),
		FileCassettes:       int32(fileCassettes),
		FileHearts:          int32(fileHearts),
	}, nil
}

// readSaveData implements §4.D step 2: death count and, when in a
// chapter, the checkpoint count for the current chapter/mode.
func (a *Adapter) readSaveData(dump *Dump) error {
	saveData, err := a.rt.StaticAddress(a.h.SaveDataClass, "Instance")
	if err != nil {
		return fmt.Errorf("resolving SaveData.Instance: %w", err)
	}
	if saveData == 0 {
		return nil
	}

	if a.SkipTickOnSaveDataRealloc && a.haveLastSample && saveData != a.lastSaveData {
		dump.ChapterCheckpoints = a.lastCheckpoints
		dump.DeathCount = a.lastDeathCount
		a.lastSaveData = saveData
		return nil
	}
	a.lastSaveData = saveData
	a.haveLastSample = true

	deaths, err := a.rt.InstanceUint32(saveData, "TotalDeaths")
	if err != nil {
		return fmt.Errorf("reading TotalDeaths: %w", err)
	}
	dump.DeathCount = deaths
	a.lastDeathCount = deaths

	if dump.Info.Chapter == -1 {
		return nil
	}

	checkpoints, err := a.readChapterCheckpoints(saveData, dump.Info.Chapter, dump.Info.Mode)
	if err != nil {
		return err
	}
	dump.ChapterCheckpoints = checkpoints
	a.lastCheckpoints = checkpoints
	return nil
}

func (a *Adapter) readChapterCheckpoints(saveData procmem.Address, chapter, mode int32) (uint32, error) {
	areas, err := a.rt.InstanceAddress(saveData, "Areas")
	if err != nil {
		return 0, fmt.Errorf("reading Areas: %w", err)
	}
	size, err := a.rt.InstanceUint32(areas, "_size")
	if err != nil {
		return 0, fmt.Errorf("reading Areas._size: %w", err)
	}
	if size != numAreas {
		glog.Warningf("Failed to get areas array: _size=%d, want %d", size, numAreas)
		return 0, nil
	}

	items, err := a.rt.InstanceAddress(areas, "_items")
	if err != nil {
		return 0, fmt.Errorf("reading Areas._items: %w", err)
	}
	// Managed array header is 0x20 bytes before the element data.
	areaStats, err := a.rt.ReadAddress(items.Add(0x20 + 8*int64(chapter)))
	if err != nil {
		return 0, fmt.Errorf("reading area_stats[%d]: %w", chapter, err)
	}

	modes, err := a.rt.InstanceAddress(areaStats, "Modes")
	if err != nil {
		return 0, fmt.Errorf("reading AreaStats.Modes: %w", err)
	}
	modeStats, err := a.rt.ReadAddress(modes.Add(0x20 + 8*int64(mode)))
	if err != nil {
		return 0, fmt.Errorf("reading modes[%d]: %w", mode, err)
	}
	if modeStats == 0 {
		return 0, nil
	}

	checkpoints, err := a.rt.InstanceAddress(modeStats, "Checkpoints")
	if err != nil {
		return 0, fmt.Errorf("reading ModeStats.Checkpoints: %w", err)
	}
	count, err := a.rt.InstanceUint32(checkpoints, "_count")
	if err != nil {
		return 0, fmt.Errorf("reading Checkpoints._count: %w", err)
	}
	return count, nil
}

// readCutscene implements §4.D step 3.
func (a *Adapter) readCutscene(dump *Dump) error {
	if dump.Info.Chapter == -1 || !dump.Info.ChapterStarted || dump.Info.ChapterComplete {
		dump.InCutscene = false
		return nil
	}

	sceneOff, err := a.rt.FieldOffset(a.h.EngineClass, "scene")
	if err != nil {
		return fmt.Errorf("resolving Engine.scene: %w", err)
	}
	scene, err := a.rt.ReadAddress(a.h.Singleton.Add(sceneOff))
	if err != nil {
		return fmt.Errorf("reading scene: %w", err)
	}

	sceneClass, err := a.rt.InstanceClass(scene)
	if err != nil {
		return fmt.Errorf("resolving scene class: %w", err)
	}
	if sceneClass != a.h.LevelClass {
		dump.InCutscene = false
		return nil
	}

	b, err := a.rt.InstanceUint8(scene, "InCutscene")
	if err != nil {
		return fmt.Errorf("reading InCutscene: %w", err)
	}
	dump.InCutscene = b != 0
	return nil
}
