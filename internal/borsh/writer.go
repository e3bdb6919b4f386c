// Package borsh implements the subset of Borsh serialization this backend
// needs for NEP-413 payloads and NEAR transactions. Borsh is little-endian,
// length-prefixed, and has no self-description; every byte written here must
// match the layouts the chain and external wallets expect exactly.
package borsh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

const (
	// OptionNone and OptionSome are the one-byte tags for Option<T>.
	OptionNone byte = 0
	OptionSome byte = 1
)

var ErrU128Range = errors.New("borsh: value does not fit in u128")

// Writer accumulates a Borsh-encoded message. The zero value is ready to use.
type Writer struct {
	buf []byte
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) U8(v byte) {
	w.buf = append(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// U128 writes a non-negative big integer as 16 little-endian bytes.
func (w *Writer) U128(v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.BitLen() > 128 {
		return fmt.Errorf("%w: %v", ErrU128Range, v)
	}
	var be [16]byte
	v.FillBytes(be[:])
	for i := 15; i >= 0; i-- {
		w.buf = append(w.buf, be[i])
	}
	return nil
}

// String writes a u32 byte-length prefix followed by the UTF-8 bytes.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// Vec writes a u32 length prefix followed by the raw bytes (Vec<u8>).
func (w *Writer) Vec(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Fixed writes the bytes with no length prefix ([N]u8).
func (w *Writer) Fixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// OptionAbsent writes the tag for a None value; the caller writes the payload
// itself after an OptionPresent tag.
func (w *Writer) OptionAbsent() {
	w.U8(OptionNone)
}

func (w *Writer) OptionPresent() {
	w.U8(OptionSome)
}
