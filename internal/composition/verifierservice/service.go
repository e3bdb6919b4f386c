// Package verifierservice wires the chain core together: config, key pool,
// chain client, and submitter, behind one explicitly constructed Service.
// Construction is cheap and touches no network; the chain client and the
// submitter are built on first use behind sync.Once, and the selection
// counter is a constructor dependency so an unconfigured pool cannot exist.
package verifierservice

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"passlink/go-backend/internal/bootstrap/chainconfig"
	"passlink/go-backend/internal/chainrpc"
	"passlink/go-backend/internal/nearkey"
	"passlink/go-backend/internal/nep413"
	"passlink/go-backend/internal/registry"
)

type Service struct {
	cfg     chainconfig.Config
	seed    string
	counter nearkey.Counter
	logger  *slog.Logger
	metrics *registry.Metrics

	poolOnce sync.Once
	pool     *nearkey.Pool
	poolErr  error

	clientOnce sync.Once
	client     *chainrpc.Client

	submitterOnce sync.Once
	submitter     *registry.Submitter
	submitterErr  error
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics registers submission metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Service) { s.metrics = registry.NewMetrics(reg) }
}

// New validates the configuration and captures the seed material and counter
// client. Everything that needs the network stays unbuilt until first use.
func New(cfg chainconfig.Config, counter nearkey.Counter, opts ...Option) (*Service, error) {
	seed, err := cfg.SeedMaterial()
	if err != nil {
		return nil, err
	}
	if cfg.RelayerAccount == "" {
		return nil, chainconfig.ErrNoRelayer
	}
	if cfg.RegistryContract == "" {
		return nil, chainconfig.ErrNoContract
	}
	if counter == nil {
		return nil, nearkey.ErrNoCounter
	}
	s := &Service{
		cfg:     cfg,
		seed:    seed,
		counter: counter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify checks a wallet-ownership signature. Stateless; safe on untrusted
// input.
func (s *Service) Verify(message, signature, publicKey string, nonce []byte, recipient string) nep413.Outcome {
	return nep413.Verify(message, signature, publicKey, nonce, recipient)
}

// ExtractSignedRecord recovers the signature fields from a wallet redirect
// blob.
func (s *Service) ExtractSignedRecord(blob []byte) (nep413.SignedRecord, error) {
	return nep413.ExtractSignedRecord(blob)
}

// SubmitRecord writes one registry record through the reconciling submitter.
func (s *Service) SubmitRecord(ctx context.Context, rec registry.Record) (registry.Receipt, error) {
	sub, err := s.getSubmitter()
	if err != nil {
		return registry.Receipt{}, err
	}
	return sub.SubmitRecord(ctx, rec)
}

// PublicKeys returns every pooled public key, for the out-of-band key
// bootstrap.
func (s *Service) PublicKeys() ([]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	return pool.AllPublicKeys()
}

func (s *Service) KeyByIndex(i int) (nearkey.KeyPair, error) {
	pool, err := s.getPool()
	if err != nil {
		return nearkey.KeyPair{}, err
	}
	return pool.KeyByIndex(i)
}

func (s *Service) getPool() (*nearkey.Pool, error) {
	s.poolOnce.Do(func() {
		s.pool, s.poolErr = nearkey.NewPool(s.seed, s.cfg.PoolSize, s.counter, s.cfg.CounterKey)
	})
	return s.pool, s.poolErr
}

func (s *Service) chainClient() *chainrpc.Client {
	s.clientOnce.Do(func() {
		s.client = chainrpc.NewClient(
			s.cfg.RPCEndpoint,
			chainrpc.WithRateLimit(s.cfg.RPCRateLimit, s.cfg.RPCBurst),
			chainrpc.WithLogger(s.logger),
		)
	})
	return s.client
}

func (s *Service) getSubmitter() (*registry.Submitter, error) {
	s.submitterOnce.Do(func() {
		pool, err := s.getPool()
		if err != nil {
			s.submitterErr = err
			return
		}
		s.submitter, s.submitterErr = registry.NewSubmitter(pool, s.chainClient(), registry.Config{
			Contract: s.cfg.RegistryContract,
			SignerID: s.cfg.RelayerAccount,
			Profile:  registry.ProfileFor(s.cfg.Network),
			Logger:   s.logger,
			Metrics:  s.metrics,
		})
	})
	return s.submitter, s.submitterErr
}
