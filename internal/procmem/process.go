// Copyright 2014 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package procmem provides random-access typed reads from the virtual
// address space of another, running process, via /proc/<pid>/mem.
//
// There's nothing Celeste- or Mono-specific about this package; it could
// just as easily back a reader for any other process's memory. See
// ../mono for the next layer up, a Mono-specific interpreter of the bytes
// this package returns.
package procmem

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// An Address is an untyped virtual address in the inferior's address space.
type Address uint64

// Add returns the address off bytes past a.
func (a Address) Add(off int64) Address {
	return Address(int64(a) + off)
}

// Sub returns the number of bytes between a and b (a-b).
func (a Address) Sub(b Address) int64 {
	return int64(a) - int64(b)
}

func (a Address) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// A Process represents a read-only attachment to another process's memory,
// addressed by its /proc/<pid>/mem file.
//
// All reads are host-endian: the inferior and this process run on the same
// machine, so no byte-swapping is ever required.
type Process struct {
	pid int
	mem *os.File
}

// Attach opens /proc/<pid>/mem for reading.
//
// A permission error here is fatal and user-visible: the caller needs
// ptrace_scope relaxed (or CAP_SYS_PTRACE) to read another process's memory.
func Attach(pid int) (*Process, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: permission denied opening memory of pid %d; relax ptrace_scope or run as the same user/root", ErrPermission, pid)
		}
		return nil, fmt.Errorf("opening memory of pid %d: %w", pid, err)
	}
	glog.V(1).Infof("attached to pid %d memory", pid)
	return &Process{pid: pid, mem: f}, nil
}

// Close releases the underlying /proc/<pid>/mem file descriptor.
func (p *Process) Close() error {
	return p.mem.Close()
}

// PID returns the process ID this reader is attached to.
func (p *Process) PID() int {
	return p.pid
}

// ReadBytes fills buf with len(buf) bytes read from addr.
//
// It uses pread(2) rather than seek+read, so concurrent callers never race
// on the shared file offset.
func (p *Process) ReadBytes(addr Address, buf []byte) error {
	n, err := unix.Pread(int(p.mem.Fd()), buf, int64(addr))
	if err != nil {
		return fmt.Errorf("%w: reading %d bytes at %s: %v", ErrRead, len(buf), addr, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short read at %s: got %d bytes, want %d", ErrRead, addr, n, len(buf))
	}
	return nil
}

// ReadUint8 reads a single byte at addr.
func (p *Process) ReadUint8(addr Address) (uint8, error) {
	var buf [1]byte
	if err := p.ReadBytes(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint32 reads a host-endian uint32 at addr.
func (p *Process) ReadUint32(addr Address) (uint32, error) {
	var buf [4]byte
	if err := p.ReadBytes(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadUint64 reads a host-endian uint64 at addr.
func (p *Process) ReadUint64(addr Address) (uint64, error) {
	var buf [8]byte
	if err := p.ReadBytes(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ReadAddress reads a pointer-sized value at addr and returns it as an Address.
func (p *Process) ReadAddress(addr Address) (Address, error) {
	v, err := p.ReadUint64(addr)
	return Address(v), err
}

// Reader is the subset of *Process that the layers above depend on. It
// exists so that tests can substitute a simulator (see mono's fixture
// tests) without opening a real /proc/<pid>/mem file, per the "substitute
// an in-memory reader" abstraction point called out in the design notes.
type Reader interface {
	ReadBytes(addr Address, buf []byte) error
	ReadUint8(addr Address) (uint8, error)
	ReadUint32(addr Address) (uint32, error)
	ReadUint64(addr Address) (uint64, error)
	ReadAddress(addr Address) (Address, error)
}

var _ Reader = (*Process)(nil)
