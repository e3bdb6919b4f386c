// Package registry submits proof-of-personhood records to the on-chain
// registry exactly once per logical record, and reconciles the ambiguous
// failures an RPC layer produces: a timed-out broadcast may still have
// landed, so the recovery path probes chain state instead of resubmitting.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"

	"passlink/go-backend/internal/chainrpc"
	"passlink/go-backend/internal/nearkey"
)

const (
	registerMethod = "register"
	probeMethod    = "is_nullifier_used"
)

var (
	ErrNoContract  = errors.New("registry: target contract account is not configured")
	ErrNoSigner    = errors.New("registry: relayer account is not configured")
	ErrNoNullifier = errors.New("registry: record has no nullifier")
)

// RejectionError is a definitive business rejection from the contract, with
// the panic framing already stripped.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "registry: record rejected: " + e.Reason
}

// Record is one append-only registry entry: the wallet being linked, the
// uniqueness nullifier from the identity proof, and the opaque proof payload
// the contract re-checks.
type Record struct {
	AccountID string          `json:"account_id"`
	Nullifier string          `json:"nullifier"`
	Proof     json.RawMessage `json:"proof,omitempty"`
}

// Receipt describes a confirmed submission. TxHash is empty when the write
// was confirmed by observing the record rather than by a direct
// acknowledgment.
type Receipt struct {
	TxHash           string
	KeyIndex         int
	ConfirmedByProbe bool
}

// Provider is the chain RPC collaborator the reconciler submits through.
type Provider interface {
	SubmitSignedCall(ctx context.Context, key nearkey.KeyPair, signerID, contract, method string, args []byte, gas uint64, deposit *big.Int) (chainrpc.ExecutionResult, error)
	ReadOnlyCall(ctx context.Context, contract, method string, args []byte) ([]byte, error)
}

type Config struct {
	Contract string
	SignerID string
	Profile  NetworkProfile
	Logger   *slog.Logger
	Metrics  *Metrics
}

// Submitter drives one signed write per record through the state machine
// pending -> confirmed | rejected | ambiguous -> (probe) -> confirmed | failed.
type Submitter struct {
	pool     *nearkey.Pool
	provider Provider
	cfg      Config
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewSubmitter(pool *nearkey.Pool, provider Provider, cfg Config) (*Submitter, error) {
	if cfg.Contract == "" {
		return nil, ErrNoContract
	}
	if cfg.SignerID == "" {
		return nil, ErrNoSigner
	}
	if cfg.Profile.ProbeAttempts == 0 {
		cfg.Profile = Testnet
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		pool:     pool,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepContext,
	}, nil
}

// SubmitRecord writes rec to the registry. The returned error is terminal:
// nil means the record is on chain, *RejectionError means the contract
// refused it for a business reason, anything else means the write could not
// be confirmed within the recovery budget.
func (s *Submitter) SubmitRecord(ctx context.Context, rec Record) (Receipt, error) {
	if rec.Nullifier == "" {
		return Receipt{}, ErrNoNullifier
	}
	started := time.Now()

	key, index, err := s.pool.SelectNext(ctx)
	if err != nil {
		// Configuration or counter failure: fail fast, never a silent
		// single-key fallback.
		s.cfg.Metrics.observeOutcome("failed", started)
		return Receipt{}, err
	}
	logger := s.logger.With("nullifier", rec.Nullifier, "key_index", index)

	args, err := json.Marshal(rec)
	if err != nil {
		return Receipt{}, fmt.Errorf("registry: encode record: %w", err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.cfg.Profile.SubmitTimeout)
	result, err := s.provider.SubmitSignedCall(
		submitCtx, key, s.cfg.SignerID, s.cfg.Contract,
		registerMethod, args, chainrpc.DefaultGas, chainrpc.OneYocto(),
	)
	cancel()

	switch {
	case err == nil:
		logger.Info("record confirmed", "tx_hash", result.TxHash)
		s.cfg.Metrics.observeOutcome("confirmed", started)
		return Receipt{TxHash: result.TxHash, KeyIndex: index}, nil

	case isRejection(err):
		var execErr *chainrpc.ExecutionError
		errors.As(err, &execErr)
		logger.Warn("record rejected by contract", "reason", execErr.Reason())
		s.cfg.Metrics.observeOutcome("rejected", started)
		return Receipt{}, &RejectionError{Reason: execErr.Reason()}

	case chainrpc.IsAmbiguous(err):
		logger.Warn("submission outcome ambiguous, probing chain state", "cause", err)
		receipt, probeErr := s.reconcile(ctx, logger, rec, index, err)
		if probeErr != nil {
			s.cfg.Metrics.observeOutcome("failed", started)
			return Receipt{}, probeErr
		}
		s.cfg.Metrics.observeOutcome("confirmed_via_probe", started)
		return receipt, nil

	default:
		logger.Error("submission failed", "error", err)
		s.cfg.Metrics.observeOutcome("failed", started)
		return Receipt{}, err
	}
}

// reconcile runs the bounded probe loop after an ambiguous failure. It
// returns the original submission error when the probe budget is exhausted
// without observing the record; the write is never repeated from here.
func (s *Submitter) reconcile(ctx context.Context, logger *slog.Logger, rec Record, index int, original error) (Receipt, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.Profile.ProbeInitialDelay
	policy.MaxInterval = s.cfg.Profile.ProbeMaxDelay
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0 // the attempt count is the bound, not wall time
	policy.Reset()

	attempts := 0
	defer func() { s.cfg.Metrics.observeProbes(attempts) }()

	for attempts < s.cfg.Profile.ProbeAttempts {
		if err := s.sleep(ctx, policy.NextBackOff()); err != nil {
			return Receipt{}, fmt.Errorf("registry: probing interrupted: %w (submission outcome: %w)", err, original)
		}
		attempts++

		exists, err := s.recordExists(ctx, rec.Nullifier)
		if err != nil {
			logger.Debug("probe attempt failed", "attempt", attempts, "error", err)
			continue
		}
		if exists {
			logger.Info("record observed on chain after ambiguous submission", "attempts", attempts)
			return Receipt{KeyIndex: index, ConfirmedByProbe: true}, nil
		}
	}
	logger.Error("probe budget exhausted, surfacing original failure",
		"attempts", attempts, "error", original)
	return Receipt{}, fmt.Errorf("registry: submission unconfirmed after %d probes: %w", attempts, original)
}

func (s *Submitter) recordExists(ctx context.Context, nullifier string) (bool, error) {
	args, err := json.Marshal(map[string]string{"nullifier": nullifier})
	if err != nil {
		return false, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.Profile.ProbeInitialDelay+5*time.Second)
	defer cancel()
	raw, err := s.provider.ReadOnlyCall(probeCtx, s.cfg.Contract, probeMethod, args)
	if err != nil {
		return false, err
	}
	return bytes.Equal(bytes.TrimSpace(raw), []byte("true")), nil
}

func isRejection(err error) bool {
	var execErr *chainrpc.ExecutionError
	return errors.As(err, &execErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
