package procmem

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// fakeReader implements Reader over an in-memory byte buffer so tests don't
// need a real process to read from. addr 0 corresponds to buf[0].
type fakeReader struct {
	buf []byte
}

func (f *fakeReader) ReadBytes(addr Address, out []byte) error {
	start := int(addr)
	if start < 0 || start+len(out) > len(f.buf) {
		return ErrRead
	}
	copy(out, f.buf[start:start+len(out)])
	return nil
}

func (f *fakeReader) ReadUint8(addr Address) (uint8, error) {
	var b [1]byte
	if err := f.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (f *fakeReader) ReadUint32(addr Address) (uint32, error) {
	var b [4]byte
	if err := f.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (f *fakeReader) ReadUint64(addr Address) (uint64, error) {
	var b [8]byte
	if err := f.ReadBytes(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (f *fakeReader) ReadAddress(addr Address) (Address, error) {
	v, err := f.ReadUint64(addr)
	return Address(v), err
}

var _ Reader = (*fakeReader)(nil)

func TestAddressArithmetic(t *testing.T) {
	a := Address(0x1000)
	if got := a.Add(0x10); got != Address(0x1010) {
		t.Errorf("Add: got %s, want 0x1010", got)
	}
	if got := a.Add(-0x10); got != Address(0xFF0) {
		t.Errorf("Add negative: got %s, want 0xff0", got)
	}
	if got := a.Add(0x10).Sub(a); got != 0x10 {
		t.Errorf("Sub: got %d, want 16", got)
	}
}

func TestFakeReaderRoundTrip(t *testing.T) {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint64(buf[8:], 0xdeadbeefcafebabe)
	binary.LittleEndian.PutUint32(buf[24:], 0x12345678)
	buf[32] = 0xAB
	r := &fakeReader{buf: buf}

	if got, err := r.ReadUint64(8); err != nil || got != 0xdeadbeefcafebabe {
		t.Errorf("ReadUint64 = %#x, %v", got, err)
	}
	if got, err := r.ReadUint32(24); err != nil || got != 0x12345678 {
		t.Errorf("ReadUint32 = %#x, %v", got, err)
	}
	if got, err := r.ReadUint8(32); err != nil || got != 0xAB {
		t.Errorf("ReadUint8 = %#x, %v", got, err)
	}

	var out [4]byte
	if err := r.ReadBytes(24, out[:]); err != nil || !bytes.Equal(out[:], buf[24:28]) {
		t.Errorf("ReadBytes = %v, %v", out, err)
	}

	if _, err := r.ReadUint64(60); err == nil {
		t.Errorf("expected out-of-range read to fail")
	}
}
