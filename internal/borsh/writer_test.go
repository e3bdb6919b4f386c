package borsh

import (
	"bytes"
	"math/big"
	"testing"
)

func TestStringLayout(t *testing.T) {
	var w Writer
	w.String("abc")
	want := []byte{3, 0, 0, 0, 'a', 'b', 'c'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("string layout mismatch: got %v want %v", w.Bytes(), want)
	}
}

func TestEmptyString(t *testing.T) {
	var w Writer
	w.String("")
	if !bytes.Equal(w.Bytes(), []byte{0, 0, 0, 0}) {
		t.Fatalf("empty string should be a bare zero length prefix, got %v", w.Bytes())
	}
}

func TestU128LittleEndian(t *testing.T) {
	var w Writer
	if err := w.U128(big.NewInt(1)); err != nil {
		t.Fatalf("u128(1) failed: %v", err)
	}
	got := w.Bytes()
	if len(got) != 16 {
		t.Fatalf("u128 must be 16 bytes, got %d", len(got))
	}
	if got[0] != 1 {
		t.Fatalf("u128 must be little-endian, got %v", got)
	}
	for _, b := range got[1:] {
		if b != 0 {
			t.Fatalf("high bytes of u128(1) must be zero, got %v", got)
		}
	}
}

func TestU128Range(t *testing.T) {
	var w Writer
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	if err := w.U128(tooBig); err == nil {
		t.Fatal("2^128 should not fit in u128")
	}
	if err := w.U128(big.NewInt(-1)); err == nil {
		t.Fatal("negative values should not fit in u128")
	}
	if err := w.U128(nil); err == nil {
		t.Fatal("nil should be rejected")
	}
}

func TestOptionTags(t *testing.T) {
	var w Writer
	w.OptionAbsent()
	w.OptionPresent()
	w.String("x")
	want := []byte{0, 1, 1, 0, 0, 0, 'x'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("option layout mismatch: got %v want %v", w.Bytes(), want)
	}
}

func TestIntegerWidths(t *testing.T) {
	var w Writer
	w.U8(0xAB)
	w.U32(0x01020304)
	w.U64(0x0102030405060708)
	want := []byte{
		0xAB,
		0x04, 0x03, 0x02, 0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("integer layout mismatch: got %v want %v", w.Bytes(), want)
	}
}
