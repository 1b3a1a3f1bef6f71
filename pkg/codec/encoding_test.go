// Copyright 2025 Multisig Orchestrator

package codec

import (
	"bytes"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var w writer
	w.u8(0x7f)
	w.u32(123456)
	w.u64(1 << 60)
	w.i64(-42)
	w.boolean(true)
	w.bytes([]byte{1, 2, 3})
	w.str("hello")
	ts := int64(1700000000)
	w.optI64(&ts)
	w.optI64(nil)

	r := newReader(w.result())
	if got := r.u8(); got != 0x7f {
		t.Errorf("u8 = %d, want 0x7f", got)
	}
	if got := r.u32(); got != 123456 {
		t.Errorf("u32 = %d, want 123456", got)
	}
	if got := r.u64(); got != 1<<60 {
		t.Errorf("u64 = %d, want 1<<60", got)
	}
	if got := r.i64(); got != -42 {
		t.Errorf("i64 = %d, want -42", got)
	}
	if got := r.boolean(); !got {
		t.Error("boolean = false, want true")
	}
	if got := r.bytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("bytes = %v", got)
	}
	if got := r.str(); got != "hello" {
		t.Errorf("str = %q, want hello", got)
	}
	if got := r.optI64(); got == nil || *got != ts {
		t.Errorf("optI64 = %v, want %d", got, ts)
	}
	if got := r.optI64(); got != nil {
		t.Errorf("optI64 = %v, want nil", got)
	}
	if err := r.finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestReaderTruncatedPayload(t *testing.T) {
	r := newReader([]byte{1, 2})
	r.u64()
	if r.err() == nil {
		t.Fatal("expected error reading u64 from 2 bytes")
	}
}

func TestReaderOverlongDeclaredLength(t *testing.T) {
	var w writer
	w.u32(1 << 30) // declared length far past the payload
	r := newReader(w.result())
	r.bytes()
	if r.err() == nil {
		t.Fatal("expected error for declared length past payload end")
	}
}

func TestReaderTrailingGarbage(t *testing.T) {
	var w writer
	w.u8(1)
	data := append(w.result(), 0xff)
	r := newReader(data)
	r.u8()
	if err := r.finish(); err == nil {
		t.Fatal("expected trailing-garbage error")
	}
}
