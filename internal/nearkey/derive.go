// Package nearkey derives and pools the ed25519 signing keys the relayer
// account submits transactions with. Derivation is deterministic so every
// process (and every test harness) that holds the same seed material ends up
// with byte-identical keys.
package nearkey

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"
)

// derivationNamespace separates relayer pool keys from any other keys a
// deployment might derive from the same seed.
const derivationNamespace = "relayer-key"

const ed25519Prefix = "ed25519:"

var (
	ErrEmptySeed        = errors.New("nearkey: seed material is empty")
	ErrInvalidPublicKey = errors.New("nearkey: invalid public key encoding")
)

// KeyPair is a derived ed25519 key pair. PrivateKey follows the standard
// ed25519 layout (32 seed bytes followed by the 32 public key bytes), which
// is also the chain's canonical secret-key representation.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Derive produces the key pair for (seed, index). Pure: same inputs always
// yield the same pair, across processes and time.
func Derive(seed string, index int) (KeyPair, error) {
	if strings.TrimSpace(seed) == "" {
		return KeyPair{}, ErrEmptySeed
	}
	material := fmt.Sprintf("%s:%s:%d", seed, derivationNamespace, index)
	sum := sha256.Sum256([]byte(material))
	priv := ed25519.NewKeyFromSeed(sum[:])
	return KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// PublicKeyString returns the curve-prefixed textual encoding the chain and
// wallets use, e.g. "ed25519:H9k5...".
func (k KeyPair) PublicKeyString() string {
	return ed25519Prefix + base58.Encode(k.PublicKey)
}

// SecretKeyString returns the curve-prefixed encoding of the full 64-byte
// secret key (seed || public key).
func (k KeyPair) SecretKeyString() string {
	return ed25519Prefix + base58.Encode(k.PrivateKey)
}

// ParsePublicKey decodes a curve-prefixed textual public key. Only ed25519
// keys are accepted; anything else is ErrInvalidPublicKey.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	encoded, ok := strings.CutPrefix(s, ed25519Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix in %q", ErrInvalidPublicKey, ed25519Prefix, s)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(raw), nil
}

// ParseSecretKey decodes a curve-prefixed 64-byte secret key. Used by the
// bootstrap tool for the account's full-access credential.
func ParseSecretKey(s string) (ed25519.PrivateKey, error) {
	encoded, ok := strings.CutPrefix(s, ed25519Prefix)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidPublicKey, ed25519Prefix)
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPublicKey, len(raw), ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(raw), nil
}
