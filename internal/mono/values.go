package mono

import (
	"bytes"
	"fmt"
	"unicode/utf16"

	"github.com/celeste-speedrun/introspector/internal/procmem"
)

// ReadCString reads up to maxCStringLen bytes at addr and returns the
// portion before the first NUL, decoded as UTF-8. Mono class and field
// names are ASCII in practice; invalid byte sequences are tolerated rather
// than rejected, since this is diagnostic-grade string handling, not a
// trust boundary.
func (rt *Runtime) ReadCString(addr procmem.Address) (string, error) {
	buf := make([]byte, maxCStringLen)
	if err := rt.r.ReadBytes(addr, buf); err != nil {
		return "", err
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// ReadManagedString reads a Mono managed string object at instance: its
// class's m_stringLength field gives the UTF-16 code unit count, and its
// m_firstChar field gives the offset of the inline character buffer.
// Lengths are capped at maxManagedStringLen to avoid an unbounded read
// against a corrupted or mistyped pointer.
func (rt *Runtime) ReadManagedString(instance procmem.Address) (string, error) {
	class, err := rt.InstanceClass(instance)
	if err != nil {
		return "", fmt.Errorf("resolving string instance class: %w", err)
	}
	lengthOff, err := rt.FieldOffset(class, "m_stringLength")
	if err != nil {
		return "", fmt.Errorf("resolving m_stringLength: %w", err)
	}
	charsOff, err := rt.FieldOffset(class, "m_firstChar")
	if err != nil {
		return "", fmt.Errorf("resolving m_firstChar: %w", err)
	}
	length, err := rt.r.ReadUint32(instance.Add(lengthOff))
	if err != nil {
		return "", fmt.Errorf("reading m_stringLength: %w", err)
	}
	if length > maxManagedStringLen {
		length = maxManagedStringLen
	}

	buf := make([]byte, 2*int(length))
	if err := rt.r.ReadBytes(instance.Add(charsOff), buf); err != nil {
		return "", fmt.Errorf("reading string characters: %w", err)
	}
	units := make([]uint16, length)
	for i := range units {
		units[i] = uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}

// ReadUint8, ReadUint32, ReadUint64, and ReadAddress expose raw,
// unqualified reads through the underlying procmem.Reader, for callers
// (such as the Celeste adapter) that already have a concrete address in
// hand and don't need a (class, field-name) lookup — e.g. reading a fixed
// C-layout struct, or an element of a managed array.
func (rt *Runtime) ReadUint8(addr procmem.Address) (uint8, error)  { return rt.r.ReadUint8(addr) }
func (rt *Runtime) ReadUint32(addr procmem.Address) (uint32, error) { return rt.r.ReadUint32(addr) }
func (rt *Runtime) ReadUint64(addr procmem.Address) (uint64, error) { return rt.r.ReadUint64(addr) }
func (rt *Runtime) ReadAddress(addr procmem.Address) (procmem.Address, error) {
	return rt.r.ReadAddress(addr)
}

// StaticUint64 reads the static field named name on class as a uint64.
func (rt *Runtime) StaticUint64(class procmem.Address, name string) (uint64, error) {
	base, err := rt.StaticFieldsBase(class)
	if err != nil {
		return 0, err
	}
	off, err := rt.FieldOffset(class, name)
	if err != nil {
		return 0, err
	}
	return rt.r.ReadUint64(base.Add(off))
}

// StaticAddress reads the static field named name on class as an Address.
func (rt *Runtime) StaticAddress(class procmem.Address, name string) (procmem.Address, error) {
	v, err := rt.StaticUint64(class, name)
	return procmem.Address(v), err
}

// InstanceUint8 reads the instance field named name on instance as a byte.
func (rt *Runtime) InstanceUint8(instance procmem.Address, name string) (uint8, error) {
	class, err := rt.InstanceClass(instance)
	if err != nil {
		return 0, err
	}
	off, err := rt.FieldOffset(class, name)
	if err != nil {
		return 0, err
	}
	return rt.r.ReadUint8(instance.Add(off))
}

// InstanceUint32 reads the instance field named name on instance as a uint32.
func (rt *Runtime) InstanceUint32(instance procmem.Address, name string) (uint32, error) {
	class, err := rt.InstanceClass(instance)
	if err != nil {
		return 0, err
	}
	off, err := rt.FieldOffset(class, name)
	if err != nil {
		return 0, err
	}
	return rt.r.ReadUint32(instance.Add(off))
}

// InstanceUint64 reads the instance field named name on instance as a uint64.
func (rt *Runtime) InstanceUint64(instance procmem.Address, name string) (uint64, error) {
	class, err := rt.InstanceClass(instance)
	if err != nil {
		return 0, err
	}
	off, err := rt.FieldOffset(class, name)
	if err != nil {
		return 0, err
	}
	return rt.r.ReadUint64(instance.Add(off))
}

// InstanceAddress reads the instance field named name on instance as an Address.
func (rt *Runtime) InstanceAddress(instance procmem.Address, name string) (procmem.Address, error) {
	v, err := rt.InstanceUint64(instance, name)
	return procmem.Address(v), err
}
