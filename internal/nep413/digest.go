// Package nep413 implements NEP-413 message hashing and signature
// verification. The digest layout below is a wire contract with external
// wallets: any deviation silently produces a different hash and every
// verification against a real wallet fails.
package nep413

import (
	"crypto/sha256"
	"fmt"

	"passlink/go-backend/internal/borsh"
)

// payloadTag is 2^31 + 413, prepended as a little-endian u32 so signed
// messages can never collide with transaction hashes.
const payloadTag uint32 = 2_147_484_061

// NonceSize is the exact nonce length the payload layout admits.
const NonceSize = 32

// NonceLengthError reports a nonce that is not exactly NonceSize bytes.
// Nonces are never truncated or padded.
type NonceLengthError struct {
	Len int
}

func (e *NonceLengthError) Error() string {
	return fmt.Sprintf("nep413: nonce must be exactly %d bytes, got %d", NonceSize, e.Len)
}

// Digest hashes the canonical payload for (message, nonce, recipient). The
// callback URL slot is always absent in this system. External signers sign
// this digest, not the raw message text.
func Digest(message string, nonce []byte, recipient string) ([32]byte, error) {
	if len(nonce) != NonceSize {
		return [32]byte{}, &NonceLengthError{Len: len(nonce)}
	}
	var w borsh.Writer
	w.U32(payloadTag)
	w.String(message)
	w.Fixed(nonce)
	w.String(recipient)
	w.OptionAbsent() // callbackUrl
	return sha256.Sum256(w.Bytes()), nil
}
