package nep413

import (
	"bytes"
	"errors"
	"testing"
)

func testNonce(fill byte) []byte {
	nonce := make([]byte, NonceSize)
	for i := range nonce {
		nonce[i] = fill
	}
	return nonce
}

func TestDigestDeterministic(t *testing.T) {
	a, err := Digest("hello", testNonce(1), "verifier.passlink.near")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	b, err := Digest("hello", testNonce(1), "verifier.passlink.near")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if a != b {
		t.Fatal("digest must be deterministic")
	}
}

func TestDigestInjectivePerArgument(t *testing.T) {
	base, err := Digest("hello", testNonce(1), "verifier.passlink.near")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	variants := []struct {
		name      string
		message   string
		nonce     []byte
		recipient string
	}{
		{"message", "hello!", testNonce(1), "verifier.passlink.near"},
		{"nonce", "hello", testNonce(2), "verifier.passlink.near"},
		{"recipient", "hello", testNonce(1), "other.passlink.near"},
	}
	for _, v := range variants {
		got, err := Digest(v.message, v.nonce, v.recipient)
		if err != nil {
			t.Fatalf("digest(%s) failed: %v", v.name, err)
		}
		if got == base {
			t.Fatalf("changing only the %s did not change the digest", v.name)
		}
	}
}

func TestDigestNonceBoundary(t *testing.T) {
	if _, err := Digest("m", testNonce(0), "r"); err != nil {
		t.Fatalf("32-byte nonce should succeed: %v", err)
	}
	for _, n := range []int{0, 31, 33} {
		_, err := Digest("m", make([]byte, n), "r")
		var lenErr *NonceLengthError
		if !errors.As(err, &lenErr) {
			t.Fatalf("%d-byte nonce should fail with NonceLengthError, got %v", n, err)
		}
		if lenErr.Len != n {
			t.Fatalf("length error reports %d, want %d", lenErr.Len, n)
		}
	}
}

func TestDigestNeverTruncatesNonce(t *testing.T) {
	// A 33-byte nonce whose first 32 bytes match a valid one must fail, not
	// silently hash the prefix.
	long := append(testNonce(7), 0xFF)
	if _, err := Digest("m", long, "r"); err == nil {
		t.Fatal("oversized nonce must not be truncated")
	}
	short := testNonce(7)[:31]
	if _, err := Digest("m", short, "r"); err == nil {
		t.Fatal("undersized nonce must not be padded")
	}
	if bytes.Equal(long[:32], short) {
		t.Fatal("test setup broken")
	}
}
