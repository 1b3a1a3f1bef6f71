// Copyright 2025 Multisig Orchestrator

// Package codec implements the deterministic transaction wire format used by
// the orchestrator: manifest compilation, canonical partial-transaction
// serialization, payload hashing, and bech32m encoding of hashes and
// addresses.
//
// The format is byte-stable by construction: every integer is fixed-width
// little-endian, every byte string is u32 length-prefixed, and field order is
// fixed. Given identical inputs, Encode always yields identical bytes.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// writer accumulates the canonical byte serialization of a payload.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) i64(v int64) {
	w.u64(uint64(v))
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) str(s string) {
	w.bytes([]byte(s))
}

// optI64 encodes an optional value as a presence flag followed by the value.
func (w *writer) optI64(v *int64) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.i64(*v)
}

func (w *writer) result() []byte {
	return w.buf.Bytes()
}

// reader decodes the wire format. Errors latch: after the first failure all
// subsequent reads return zero values and err() reports the original cause.
type reader struct {
	data []byte
	off  int
	e    error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.e == nil {
		r.e = fmt.Errorf(format, args...)
	}
}

func (r *reader) take(n int) []byte {
	if r.e != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.fail("unexpected end of payload at offset %d (want %d bytes, have %d)", r.off, n, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) i64() int64 {
	return int64(r.u64())
}

func (r *reader) boolean() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail("invalid boolean byte at offset %d", r.off-1)
		return false
	}
}

func (r *reader) bytes() []byte {
	n := r.u32()
	if r.e != nil {
		return nil
	}
	if int(n) > len(r.data)-r.off {
		r.fail("declared length %d exceeds remaining payload", n)
		return nil
	}
	out := make([]byte, n)
	copy(out, r.take(int(n)))
	return out
}

func (r *reader) str() string {
	return string(r.bytes())
}

func (r *reader) optI64() *int64 {
	switch r.u8() {
	case 0:
		return nil
	case 1:
		v := r.i64()
		return &v
	default:
		r.fail("invalid option byte at offset %d", r.off-1)
		return nil
	}
}

func (r *reader) err() error {
	return r.e
}

// finish verifies the payload was fully consumed.
func (r *reader) finish() error {
	if r.e != nil {
		return r.e
	}
	if r.off != len(r.data) {
		return fmt.Errorf("trailing garbage: %d bytes after payload", len(r.data)-r.off)
	}
	return nil
}
