package nep413

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"passlink/go-backend/internal/nearkey"
)

var (
	ErrSignatureMismatch = errors.New("nep413: signature does not match digest")
	ErrSignatureEncoding = errors.New("nep413: signature is not valid base64")
	ErrSignatureLength   = errors.New("nep413: signature has wrong length")
)

// Outcome is the terminal result of a verification. It is a value, never
// partially filled: either Valid is true, or Reason explains why it is not.
type Outcome struct {
	Valid  bool
	Reason error
}

func invalid(reason error) Outcome {
	return Outcome{Reason: reason}
}

// Verify checks a wallet's claimed signature over (message, nonce, recipient).
// The signature arrives in its transport encoding (standard base64) and the
// public key in its curve-prefixed textual form. All inputs are treated as
// attacker-controlled: malformed values yield an invalid Outcome, they never
// escape as errors or panics, because this runs inside request handling.
func Verify(message, signature, publicKey string, nonce []byte, recipient string) Outcome {
	digest, err := Digest(message, nonce, recipient)
	if err != nil {
		return invalid(err)
	}
	pub, err := nearkey.ParsePublicKey(publicKey)
	if err != nil {
		return invalid(err)
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return invalid(fmt.Errorf("%w: %v", ErrSignatureEncoding, err))
	}
	if len(raw) != ed25519.SignatureSize {
		return invalid(fmt.Errorf("%w: got %d bytes, want %d", ErrSignatureLength, len(raw), ed25519.SignatureSize))
	}
	if !ed25519.Verify(pub, digest[:], raw) {
		return invalid(ErrSignatureMismatch)
	}
	return Outcome{Valid: true}
}
