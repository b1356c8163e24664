// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mono interprets the in-memory layout of a Mono runtime: domains,
// images, the per-image class cache, classes, and fields. Given a reader
// over another process's address space (see ../procmem) and a handful of
// hard-coded anchor addresses, it resolves (class name, field name) pairs
// to concrete addresses.
//
// The layout this package understands is specific to the Mono build
// Celeste ships with; a different Mono build is a different, incompatible
// layout and is out of scope (see the design notes on version-specificity).
package mono

import (
	"fmt"

	"github.com/celeste-speedrun/introspector/internal/procmem"
)

// Byte offsets into a MonoClass, fixed by the target Mono build.
const (
	classKindOffset       = 0x24 // low 3 bits: Kind
	classNameOffset       = 0x40 // char* class name
	classVtableSizeOffset = 0x54 // uint32 vtable size
	classFieldsOffset     = 0x90 // MonoClassField*
	classRuntimeInfoOffset = 0xC8 // per-domain runtime info
	classGenericDefOffset  = 0xE0 // ** to the GTD class, on GInst classes only
	classNumFieldsOffset   = 0xF0 // uint32 field count
	classNextInCacheOffset = 0xF8 // next-in-bucket link
)

// Byte offsets into a MonoDomain.
const (
	domainAssemblyOffset = 0xD0
	domainNameOffset     = 0xD8
)

// Byte offset of a MonoImage's class cache (MonoInternalHashTable), relative
// to the image base.
const classCacheOffset = 1216

// Byte offsets into a MonoInternalHashTable (the class cache).
const (
	cacheBucketsOffset = 0x20 // void** bucket array
	cacheSizeOffset    = 0x18 // uint32 bucket count
)

// sizeOfClassField is sizeof(MonoClassField): type*, name*, parent*, offset(u32).
const sizeOfClassField = 28

// Field offsets within a single MonoClassField record.
const (
	classFieldNameOffset   = 8
	classFieldOffsetOffset = 24
)

// maxCStringLen bounds how many bytes a C-string read will ever consult,
// per the design notes: Mono class/field names are known short, and an
// unbounded read on corrupted memory would run away.
const maxCStringLen = 100

// maxManagedStringLen bounds how many UTF-16 code units a managed string
// read will ever consult, per the data-model invariant on m_stringLength.
const maxManagedStringLen = 1024

// Kind is a MonoTypeKind: the low 3 bits of the byte at class+0x24.
type Kind uint8

const (
	KindClassDef Kind = 1
	KindGTD      Kind = 2
	KindGInst    Kind = 3
	KindGParam   Kind = 4
	KindArray    Kind = 5
	KindPointer  Kind = 6
)

func (k Kind) String() string {
	switch k {
	case KindClassDef:
		return "ClassDef"
	case KindGTD:
		return "GTD"
	case KindGInst:
		return "GInst"
	case KindGParam:
		return "GParam"
	case KindArray:
		return "Array"
	case KindPointer:
		return "Pointer"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// A Runtime interprets Mono metadata through a procmem.Reader. It carries no
// state of its own beyond the reader: every lookup in this package re-walks
// the target's memory from scratch, as the design notes require ("the
// walker is stateless between calls"). Callers that want to avoid repeated
// walks (e.g. the Celeste adapter) memoize the handles they care about
// themselves.
type Runtime struct {
	r procmem.Reader
}

// New returns a Runtime that interprets Mono metadata through r.
func New(r procmem.Reader) *Runtime {
	return &Runtime{r: r}
}

// Attach reads the domain list at domainListAddr, verifies the first domain
// is named "Celeste.exe", and returns the class cache of the second
// ("user code") domain.
//
// A first domain name other than "Celeste.exe" means the target is not
// Celeste (or the hard-coded layout no longer applies); that is always a
// fatal, user-visible attach failure.
func (rt *Runtime) Attach(domainListAddr procmem.Address) (classCache procmem.Address, err error) {
	firstDomain, err := rt.r.ReadAddress(domainListAddr)
	if err != nil {
		return 0, fmt.Errorf("reading domain list head: %w", err)
	}
	firstName, err := rt.domainName(firstDomain)
	if err != nil {
		return 0, fmt.Errorf("reading first domain name: %w", err)
	}
	if firstName != "Celeste.exe" {
		return 0, fmt.Errorf("%w: first Mono domain is %q, not \"Celeste.exe\"", ErrNotCeleste, firstName)
	}

	secondDomain, err := rt.r.ReadAddress(domainListAddr.Add(8))
	if err != nil {
		return 0, fmt.Errorf("reading second domain: %w", err)
	}

	assembly, err := rt.r.ReadAddress(secondDomain.Add(domainAssemblyOffset))
	if err != nil {
		return 0, fmt.Errorf("reading user-code assembly: %w", err)
	}
	image, err := rt.r.ReadAddress(assembly.Add(0x60))
	if err != nil {
		return 0, fmt.Errorf("reading user-code image: %w", err)
	}
	return image.Add(classCacheOffset), nil
}

func (rt *Runtime) domainName(domain procmem.Address) (string, error) {
	namePtr, err := rt.r.ReadAddress(domain.Add(domainNameOffset))
	if err != nil {
		return "", err
	}
	return rt.ReadCString(namePtr)
}

// LookupClass scans every bucket of the class cache at classCache for a
// class named name, following the per-bucket hash chain via the class's
// next-in-cache link. It returns ErrClassNotFound if the table is
// exhausted without a match.
func (rt *Runtime) LookupClass(classCache procmem.Address, name string) (procmem.Address, error) {
	table, err := rt.r.ReadAddress(classCache.Add(cacheBucketsOffset))
	if err != nil {
		return 0, fmt.Errorf("reading class cache table: %w", err)
	}
	size, err := rt.r.ReadUint32(classCache.Add(cacheSizeOffset))
	if err != nil {
		return 0, fmt.Errorf("reading class cache size: %w", err)
	}

	for bucket := uint32(0); bucket < size; bucket++ {
		class, err := rt.r.ReadAddress(table.Add(8 * int64(bucket)))
		if err != nil {
			return 0, fmt.Errorf("reading class cache bucket %d: %w", bucket, err)
		}
		for class != 0 {
			className, err := rt.ClassName(class)
			if err != nil {
				return 0, fmt.Errorf("reading class name at %s: %w", class, err)
			}
			if className == name {
				return class, nil
			}
			class, err = rt.r.ReadAddress(class.Add(classNextInCacheOffset))
			if err != nil {
				return 0, fmt.Errorf("walking class cache chain: %w", err)
			}
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrClassNotFound, name)
}

// ClassName reads the C-string class name of class.
func (rt *Runtime) ClassName(class procmem.Address) (string, error) {
	namePtr, err := rt.r.ReadAddress(class.Add(classNameOffset))
	if err != nil {
		return "", err
	}
	return rt.ReadCString(namePtr)
}

// classKind reads the low 3 bits of the kind byte at class+0x24.
func (rt *Runtime) classKind(class procmem.Address) (Kind, error) {
	b, err := rt.r.ReadUint8(class.Add(classKindOffset))
	if err != nil {
		return 0, err
	}
	k := Kind(b & 7)
	if k < KindClassDef || k > KindPointer {
		return 0, fmt.Errorf("%w: class %s has kind byte %#x", ErrUnexpectedClassKind, class, b)
	}
	return k, nil
}

// FieldOffset resolves the byte offset of the field named name on class.
//
// GInst classes are transparently redirected to their generic type
// definition (§4.B.3); ClassDef and GTD classes are searched linearly and
// case-sensitively. Any other class kind is a fatal ErrUnexpectedClassKind,
// and an exhausted field search is a fatal ErrFieldNotFound.
func (rt *Runtime) FieldOffset(class procmem.Address, name string) (int64, error) {
	kind, err := rt.classKind(class)
	if err != nil {
		return 0, err
	}
	switch kind {
	case KindGInst:
		gtdPtrPtr, err := rt.r.ReadAddress(class.Add(classGenericDefOffset))
		if err != nil {
			return 0, fmt.Errorf("reading generic instantiation pointer: %w", err)
		}
		gtd, err := rt.r.ReadAddress(gtdPtrPtr)
		if err != nil {
			return 0, fmt.Errorf("reading generic type definition: %w", err)
		}
		return rt.FieldOffset(gtd, name)
	case KindClassDef, KindGTD:
		numFields, err := rt.r.ReadUint32(class.Add(classNumFieldsOffset))
		if err != nil {
			return 0, fmt.Errorf("reading field count: %w", err)
		}
		fields, err := rt.r.ReadAddress(class.Add(classFieldsOffset))
		if err != nil {
			return 0, fmt.Errorf("reading field array: %w", err)
		}
		for i := uint32(0); i < numFields; i++ {
			rec := fields.Add(int64(i) * sizeOfClassField)
			namePtr, err := rt.r.ReadAddress(rec.Add(classFieldNameOffset))
			if err != nil {
				return 0, fmt.Errorf("reading field %d name pointer: %w", i, err)
			}
			fieldName, err := rt.ReadCString(namePtr)
			if err != nil {
				return 0, fmt.Errorf("reading field %d name: %w", i, err)
			}
			if fieldName == name {
				off, err := rt.r.ReadUint32(rec.Add(classFieldOffsetOffset))
				if err != nil {
					return 0, fmt.Errorf("reading field %d offset: %w", i, err)
				}
				return int64(off), nil
			}
		}
		return 0, fmt.Errorf("%w: class %s, field %q", ErrFieldNotFound, class, name)
	default:
		return 0, fmt.Errorf("%w: class %s has kind %s", ErrUnexpectedClassKind, class, kind)
	}
}

// StaticFieldsBase returns the base address of class's static field
// storage: the vtable belonging to the first domain that has class loaded.
func (rt *Runtime) StaticFieldsBase(class procmem.Address) (procmem.Address, error) {
	vtableSize, err := rt.r.ReadUint32(class.Add(classVtableSizeOffset))
	if err != nil {
		return 0, fmt.Errorf("reading vtable size: %w", err)
	}
	runtimeInfo, err := rt.r.ReadAddress(class.Add(classRuntimeInfoOffset))
	if err != nil {
		return 0, fmt.Errorf("reading runtime info: %w", err)
	}
	maxDomains, err := rt.r.ReadUint64(runtimeInfo)
	if err != nil {
		return 0, fmt.Errorf("reading max domains: %w", err)
	}

	for i := uint64(0); i <= maxDomains; i++ {
		vtable, err := rt.r.ReadAddress(runtimeInfo.Add(8 + 8*int64(i)))
		if err != nil {
			return 0, fmt.Errorf("reading vtable slot %d: %w", i, err)
		}
		if vtable == 0 {
			continue
		}
		base, err := rt.r.ReadAddress(vtable.Add(64 + 8*int64(vtableSize)))
		if err != nil {
			return 0, fmt.Errorf("reading static field base: %w", err)
		}
		return base, nil
	}
	return 0, fmt.Errorf("%w: class %s", ErrClassNotLoaded, class)
}

// InstanceClass returns the class of a managed object instance, masking
// off the low tag bit Mono stores in the embedded type pointer.
func (rt *Runtime) InstanceClass(instance procmem.Address) (procmem.Address, error) {
	tagged, err := rt.r.ReadAddress(instance)
	if err != nil {
		return 0, fmt.Errorf("reading instance type pointer: %w", err)
	}
	return rt.r.ReadAddress(procmem.Address(uint64(tagged) &^ 1))
}
