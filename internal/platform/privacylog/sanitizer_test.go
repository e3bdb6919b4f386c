package privacylog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func capture(t *testing.T, logFn func(logger *slog.Logger)) string {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewTextHandler(&buf, nil)))
	logFn(logger)
	return buf.String()
}

func TestSeedValuesAreRedacted(t *testing.T) {
	out := capture(t, func(logger *slog.Logger) {
		logger.Info("pool built", "relayer_seed", "super secret words")
	})
	if strings.Contains(out, "super secret words") {
		t.Fatalf("seed material leaked into logs: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Fatalf("expected redaction marker, got: %s", out)
	}
}

func TestNullifierIsFingerprinted(t *testing.T) {
	out := capture(t, func(logger *slog.Logger) {
		logger.Info("record confirmed", "nullifier", "null-123456")
	})
	if strings.Contains(out, "null-123456") {
		t.Fatalf("nullifier leaked into logs: %s", out)
	}
	if !strings.Contains(out, "nullifier_fp=fp_") {
		t.Fatalf("expected fingerprinted nullifier, got: %s", out)
	}
}

func TestFingerprintStableWithinRun(t *testing.T) {
	a := Fingerprint("null-1")
	b := Fingerprint("null-1")
	c := Fingerprint("null-2")
	if a != b {
		t.Fatal("fingerprints must be stable within one run")
	}
	if a == c {
		t.Fatal("different values must fingerprint differently")
	}
}

func TestNeutralAttrsPassThrough(t *testing.T) {
	out := capture(t, func(logger *slog.Logger) {
		logger.Info("rpc call", "method", "broadcast_tx_commit", "key_index", 4)
	})
	if !strings.Contains(out, "broadcast_tx_commit") || !strings.Contains(out, "key_index=4") {
		t.Fatalf("neutral attributes must pass through unchanged: %s", out)
	}
}
