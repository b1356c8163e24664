// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package monotest is the Mono-shape simulator called for by the design's
// testable-properties section: it lays out bytes in an in-memory buffer
// conforming to the offsets the mono package understands, and exposes that
// buffer through the procmem.Reader interface. Substituting this builder's
// Reader for a real /proc/<pid>/mem-backed one is the only abstraction
// point the walker needs to be fully tested without a live Celeste process.
package monotest

import (
	"encoding/binary"

	"github.com/celeste-speedrun/introspector/internal/mono"
	"github.com/celeste-speedrun/introspector/internal/procmem"
)

// Field describes one MonoClassField to synthesize.
type Field struct {
	Name   string
	Offset int64
}

// Builder incrementally lays out a simulated Mono process image in a flat
// byte arena and hands out addresses into it.
type Builder struct {
	buf  []byte
	next int
}

// NewBuilder returns a Builder with a size-byte arena. 4 MiB is comfortably
// larger than any fixture this package's tests construct.
func NewBuilder(size int) *Builder {
	if size <= 0 {
		size = 4 << 20
	}
	return &Builder{buf: make([]byte, size)}
}

// Reader returns a procmem.Reader over the builder's arena. Address 0 is
// never allocated to, so a null check against address 0 behaves as callers
// expect.
func (b *Builder) Reader() procmem.Reader {
	return &arenaReader{buf: b.buf}
}

func (b *Builder) alloc(n int) procmem.Address {
	if b.next == 0 {
		b.next = 8 // keep 0 reserved as a null sentinel
	}
	if rem := b.next % 8; rem != 0 {
		b.next += 8 - rem
	}
	addr := b.next
	b.next += n
	if b.next > len(b.buf) {
		panic("monotest: arena exhausted; construct with a larger NewBuilder size")
	}
	return procmem.Address(addr)
}

func (b *Builder) PutUint8(addr procmem.Address, v uint8) {
	b.buf[addr] = v
}

func (b *Builder) PutUint32(addr procmem.Address, v uint32) {
	binary.LittleEndian.PutUint32(b.buf[addr:], v)
}

func (b *Builder) PutUint64(addr procmem.Address, v uint64) {
	binary.LittleEndian.PutUint64(b.buf[addr:], v)
}

func (b *Builder) PutAddress(addr procmem.Address, v procmem.Address) {
	b.PutUint64(addr, uint64(v))
}

func (b *Builder) PutBytes(addr procmem.Address, data []byte) {
	copy(b.buf[addr:], data)
}

// AllocBytes reserves n fresh bytes and returns their address.
func (b *Builder) AllocBytes(n int) procmem.Address {
	return b.alloc(n)
}

// AllocCString writes s plus a NUL terminator and returns its address.
func (b *Builder) AllocCString(s string) procmem.Address {
	addr := b.alloc(len(s) + 1)
	b.PutBytes(addr, []byte(s))
	b.PutUint8(addr.Add(int64(len(s))), 0)
	return addr
}

// AllocManagedString lays out a Mono string object: a class (with
// m_stringLength/m_firstChar fields) plus the object itself.
func (b *Builder) AllocManagedString(s string) procmem.Address {
	class := b.AllocClass("String", mono.KindClassDef, []Field{
		{Name: "m_stringLength", Offset: 0x10},
		{Name: "m_firstChar", Offset: 0x14},
	}, 0)
	units := utf16Encode(s)
	instance := b.newObject(class, int64(0x14+2*len(units)+2))
	b.PutUint32(instance.Add(0x10), uint32(len(units)))
	for i, u := range units {
		b.PutUint8(instance.Add(0x14+int64(2*i)), uint8(u))
		b.PutUint8(instance.Add(0x14+int64(2*i)+1), uint8(u>>8))
	}
	return instance
}

func utf16Encode(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, uint16(r))
			continue
		}
		r -= 0x10000
		out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
	}
	return out
}

// AllocClass synthesizes a MonoClass: a name, a field array, and a kind
// byte. vtableSize is only meaningful if the caller later calls
// AttachStatic on this class.
func (b *Builder) AllocClass(name string, kind mono.Kind, fields []Field, vtableSize uint32) procmem.Address {
	class := b.alloc(0x100)
	b.PutUint8(class.Add(0x24), uint8(kind))
	namePtr := b.AllocCString(name)
	b.PutAddress(class.Add(0x40), namePtr)
	b.PutUint32(class.Add(0x54), vtableSize)
	b.PutUint32(class.Add(0xF0), uint32(len(fields)))

	const fieldSize = 28
	fieldsArr := b.alloc(fieldSize * len(fields))
	for i, f := range fields {
		rec := fieldsArr.Add(int64(i) * fieldSize)
		fnamePtr := b.AllocCString(f.Name)
		b.PutAddress(rec.Add(8), fnamePtr)
		b.PutUint32(rec.Add(24), uint32(f.Offset))
	}
	b.PutAddress(class.Add(0x90), fieldsArr)
	b.PutAddress(class.Add(0xF8), 0) // next-in-cache, filled in by Cache.Add
	return class
}

// AllocGenericInstantiation synthesizes a MonoClass of kind GInst whose
// field-offset lookups transparently redirect to gtd.
func (b *Builder) AllocGenericInstantiation(gtd procmem.Address) procmem.Address {
	class := b.alloc(0x100)
	b.PutUint8(class.Add(0x24), uint8(mono.KindGInst))
	gtdPtr := b.alloc(8)
	b.PutAddress(gtdPtr, gtd)
	b.PutAddress(class.Add(0xE0), gtdPtr)
	return class
}

// AttachStatic gives class static field storage reachable through exactly
// one non-null vtable, at the given domain slot index (0-based) among
// maxDomains+1 total slots, per the "static-data domain fallback" property.
func (b *Builder) AttachStatic(class procmem.Address, vtableSize uint32, maxDomains, domainSlot uint64) procmem.Address {
	staticStorage := b.alloc(0x200)

	vtable := b.alloc(int(64 + 8*vtableSize + 8))
	b.PutAddress(vtable.Add(64+8*int64(vtableSize)), staticStorage)
	b.PutAddress(vtable, class) // vtable->klass, used by InstanceClass via objects of this class

	runtimeInfo := b.alloc(int(8 + 8*(maxDomains+1)))
	b.PutUint64(runtimeInfo, maxDomains)
	b.PutAddress(runtimeInfo.Add(8+8*int64(domainSlot)), vtable)

	b.PutAddress(class.Add(0xC8), runtimeInfo)
	return staticStorage
}

// newObject allocates size bytes for an object of the given class and
// wires up an 8-byte vtable whose first field is the class pointer (so
// InstanceClass resolves it), writing the (untagged) vtable pointer into
// the object header. Returns the address of the object itself (the header
// is the first 8 bytes at that address).
func (b *Builder) newObject(class procmem.Address, size int64) procmem.Address {
	return b.newObjectTagged(class, size, false)
}

func (b *Builder) newObjectTagged(class procmem.Address, size int64, tagLowBit bool) procmem.Address {
	vtable := b.alloc(8)
	b.PutAddress(vtable, class)
	obj := b.alloc(int(size))
	header := uint64(vtable)
	if tagLowBit {
		header |= 1
	}
	b.PutUint64(obj, header)
	return obj
}

// NewInstance allocates an object of the given class with room for extra
// bytes of instance data beyond the header, for use as an instance-field
// target (e.g. SaveData.Instance, a ModeStats element, ...).
func (b *Builder) NewInstance(class procmem.Address, extra int64) procmem.Address {
	return b.newObject(class, 8+extra)
}

// NewInstanceTagged is NewInstance but with the object header's low tag
// bit set, exercising the "low-bit mask on instance class" property.
func (b *Builder) NewInstanceTagged(class procmem.Address, extra int64) procmem.Address {
	return b.newObjectTagged(class, 8+extra, true)
}

// A Cache is a synthesized Mono class cache (MonoInternalHashTable). A real
// Mono hash table picks each class's bucket from a hash of its name; here
// the caller of Add picks the bucket, which is sufficient to exercise
// "uniqueness holds regardless of bucket ordering".
type Cache struct {
	addr    procmem.Address
	table   procmem.Address
	buckets int
	b       *Builder
}

// AllocCache reserves a class cache with the given bucket count.
func (b *Builder) AllocCache(buckets int) *Cache {
	cache := b.alloc(0x30)
	table := b.alloc(8 * buckets)
	b.PutUint32(cache.Add(0x18), uint32(buckets))
	b.PutAddress(cache.Add(0x20), table)
	return &Cache{addr: cache, table: table, buckets: buckets, b: b}
}

// Addr returns the class cache's address (image+1216 in a real process).
func (c *Cache) Addr() procmem.Address { return c.addr }

// ClassCacheAt writes a class cache's bucket-table pointer and size
// directly at image+ClassCacheOffset, matching how Runtime.Attach derives
// class_cache from an image address, rather than allocating the cache
// struct itself elsewhere in the arena.
func (b *Builder) ClassCacheAt(image procmem.Address, buckets int) *Cache {
	cache := image.Add(ClassCacheOffset)
	table := b.alloc(8 * buckets)
	b.PutUint32(cache.Add(0x18), uint32(buckets))
	b.PutAddress(cache.Add(0x20), table)
	return &Cache{addr: cache, table: table, buckets: buckets, b: b}
}

// Add inserts class into bucket (class hashed to bucket % buckets by the
// caller), prepending it to that bucket's existing chain.
func (c *Cache) Add(bucket int, class procmem.Address) {
	slot := c.table.Add(8 * int64(bucket%c.buckets))
	head, _ := (&arenaReader{buf: c.b.buf}).ReadAddress(slot)
	c.b.PutAddress(class.Add(0xF8), head)
	c.b.PutAddress(slot, class)
}

// Domain synthesizes a MonoDomain with the given name, returning its address.
func (b *Builder) Domain(name string) procmem.Address {
	domain := b.alloc(0x100)
	namePtr := b.AllocCString(name)
	b.PutAddress(domain.Add(0xD8), namePtr)
	return domain
}

// DomainList lays out a two-element domain list (first, second) at a fresh
// address and returns it, suitable as the "anchor" address passed to
// Runtime.Attach.
func (b *Builder) DomainList(first, second procmem.Address) procmem.Address {
	addr := b.alloc(16)
	b.PutAddress(addr, first)
	b.PutAddress(addr.Add(8), second)
	return addr
}

// SetAssembly wires domain -> assembly -> image, and returns the image
// address, so the caller can build a class cache at image+1216.
func (b *Builder) SetAssembly(domain procmem.Address) (image procmem.Address) {
	assembly := b.alloc(0x100)
	b.PutAddress(domain.Add(0xD0), assembly)
	image = b.alloc(0x600)
	b.PutAddress(assembly.Add(0x60), image)
	return image
}

// ClassCacheOffset is the fixed byte offset of a class cache within its
// owning image, exported for tests that build the cache directly at
// image+ClassCacheOffset rather than via a separately allocated Cache.
const ClassCacheOffset = 1216

type arenaReader struct {
	buf []byte
}

func (a *arenaReader) ReadBytes(addr procmem.Address, out []byte) error {
	start := int(addr)
	if start < 0 || start+len(out) > len(a.buf) {
		return procmem.ErrRead
	}
	copy(out, a.buf[start:start+len(out)])
	return nil
}

func (a *arenaReader) ReadUint8(addr procmem.Address) (uint8, error) {
	var b [1]byte
	if err := a.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (a *arenaReader) ReadUint32(addr procmem.Address) (uint32, error) {
	var b [4]byte
	if err := a.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (a *arenaReader) ReadUint64(addr procmem.Address) (uint64, error) {
	var b [8]byte
	if err := a.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (a *arenaReader) ReadAddress(addr procmem.Address) (procmem.Address, error) {
	v, err := a.ReadUint64(addr)
	return procmem.Address(v), err
}

var _ procmem.Reader = (*arenaReader)(nil)
