package nep413

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"testing"

	"passlink/go-backend/internal/nearkey"
)

const testRecipient = "verifier.passlink.near"

func signTestMessage(t *testing.T, seed string, message string, nonce []byte, recipient string) (signature, publicKey string) {
	t.Helper()
	pair, err := nearkey.Derive(seed, 0)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	digest, err := Digest(message, nonce, recipient)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	raw := ed25519.Sign(pair.PrivateKey, digest[:])
	return base64.StdEncoding.EncodeToString(raw), pair.PublicKeyString()
}

func TestVerifyRoundTrip(t *testing.T) {
	nonce := testNonce(9)
	sig, pub := signTestMessage(t, "wallet-seed", "link my wallet", nonce, testRecipient)
	out := Verify("link my wallet", sig, pub, nonce, testRecipient)
	if !out.Valid {
		t.Fatalf("genuine signature rejected: %v", out.Reason)
	}
	if out.Reason != nil {
		t.Fatalf("valid outcome must carry no reason, got %v", out.Reason)
	}
}

func TestVerifyRejectsTamperedInputs(t *testing.T) {
	nonce := testNonce(9)
	sig, pub := signTestMessage(t, "wallet-seed", "link my wallet", nonce, testRecipient)
	otherPair, err := nearkey.Derive("other-wallet-seed", 0)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	cases := []struct {
		name      string
		message   string
		nonce     []byte
		recipient string
		publicKey string
	}{
		{"wrong message", "link my wallet!", nonce, testRecipient, pub},
		{"wrong nonce", "link my wallet", testNonce(10), testRecipient, pub},
		{"wrong recipient", "link my wallet", nonce, "attacker.near", pub},
		{"different signer", "link my wallet", nonce, testRecipient, otherPair.PublicKeyString()},
	}
	for _, c := range cases {
		out := Verify(c.message, sig, c.publicKey, c.nonce, c.recipient)
		if out.Valid {
			t.Fatalf("%s: verification should fail", c.name)
		}
		if out.Reason == nil {
			t.Fatalf("%s: invalid outcome must carry a reason", c.name)
		}
	}
}

func TestVerifyRejectsWrongLengthSignatures(t *testing.T) {
	nonce := testNonce(3)
	sig, pub := signTestMessage(t, "wallet-seed", "m", nonce, testRecipient)
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	for _, corrupted := range [][]byte{raw[:63], append(append([]byte{}, raw...), 0x01)} {
		out := Verify("m", base64.StdEncoding.EncodeToString(corrupted), pub, nonce, testRecipient)
		if out.Valid {
			t.Fatalf("%d-byte signature should be invalid", len(corrupted))
		}
		if !errors.Is(out.Reason, ErrSignatureLength) {
			t.Fatalf("%d-byte signature should report a length reason, got %v", len(corrupted), out.Reason)
		}
	}
}

func TestVerifyRejectsBadEncodings(t *testing.T) {
	nonce := testNonce(3)
	sig, pub := signTestMessage(t, "wallet-seed", "m", nonce, testRecipient)

	out := Verify("m", "%%not-base64%%", pub, nonce, testRecipient)
	if out.Valid || !errors.Is(out.Reason, ErrSignatureEncoding) {
		t.Fatalf("bad base64 should report an encoding reason, got %v", out.Reason)
	}

	out = Verify("m", sig, "ed25519:not-a-key", nonce, testRecipient)
	if out.Valid || !errors.Is(out.Reason, nearkey.ErrInvalidPublicKey) {
		t.Fatalf("malformed public key should surface as invalid outcome, got %v", out.Reason)
	}

	out = Verify("m", sig, pub, testNonce(3)[:31], testRecipient)
	var lenErr *NonceLengthError
	if out.Valid || !errors.As(out.Reason, &lenErr) {
		t.Fatalf("short nonce should surface as invalid outcome, got %v", out.Reason)
	}
}
