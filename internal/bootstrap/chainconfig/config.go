// Package chainconfig loads the backend's chain-facing configuration from an
// optional YAML file with environment overrides. Seed material is expected
// through the environment; it is never written back anywhere.
package chainconfig

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip39"
	"gopkg.in/yaml.v3"

	"passlink/go-backend/internal/nearkey"
)

const (
	defaultCounterKey      = "passlink:relayer:counter"
	mainnetRPCEndpoint     = "https://rpc.mainnet.near.org"
	testnetRPCEndpoint     = "https://rpc.testnet.near.org"
)

var (
	ErrNoSeed     = errors.New("chainconfig: relayer seed material is not set")
	ErrNoContract = errors.New("chainconfig: registry contract is not set")
	ErrNoRelayer  = errors.New("chainconfig: relayer account is not set")
	ErrNoCounter  = errors.New("chainconfig: counter URL is not set")
)

type Config struct {
	Network          string
	RPCEndpoint      string
	RelayerAccount   string
	RegistryContract string
	CounterURL       string
	CounterKey       string
	PoolSize         int
	RPCRateLimit     float64
	RPCBurst         int

	seed string
}

type fileConfig struct {
	Chain struct {
		Network          string `yaml:"network"`
		RPCEndpoint      string `yaml:"rpcEndpoint"`
		RelayerAccount   string `yaml:"relayerAccount"`
		RegistryContract string `yaml:"registryContract"`
	} `yaml:"chain"`
	Counter struct {
		URL string `yaml:"url"`
		Key string `yaml:"key"`
	} `yaml:"counter"`
	Pool struct {
		Size int `yaml:"size"`
	} `yaml:"pool"`
	RPC struct {
		RateLimit float64 `yaml:"rateLimit"`
		Burst     int     `yaml:"burst"`
	} `yaml:"rpc"`
}

func Default() Config {
	return Config{
		Network:      "testnet",
		CounterKey:   defaultCounterKey,
		PoolSize:     nearkey.DefaultPoolSize,
		RPCRateLimit: 10,
		RPCBurst:     5,
	}
}

// LoadFromPath reads configPath (or the default locations when empty),
// merges it over the defaults, then applies environment overrides. A missing
// file is not an error; the environment alone can configure everything.
func LoadFromPath(configPath string) Config {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, configPath)
	} else {
		candidates = append(candidates,
			"go-backend/configs/config.yaml",
			"configs/config.yaml",
		)
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var parsed fileConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			continue
		}
		Merge(&cfg, parsed)
		break
	}

	ApplyEnvOverrides(&cfg)
	if cfg.RPCEndpoint == "" {
		cfg.RPCEndpoint = endpointFor(cfg.Network)
	}
	return cfg
}

func Merge(dst *Config, src fileConfig) {
	if src.Chain.Network != "" {
		dst.Network = src.Chain.Network
	}
	if src.Chain.RPCEndpoint != "" {
		dst.RPCEndpoint = src.Chain.RPCEndpoint
	}
	if src.Chain.RelayerAccount != "" {
		dst.RelayerAccount = src.Chain.RelayerAccount
	}
	if src.Chain.RegistryContract != "" {
		dst.RegistryContract = src.Chain.RegistryContract
	}
	if src.Counter.URL != "" {
		dst.CounterURL = src.Counter.URL
	}
	if src.Counter.Key != "" {
		dst.CounterKey = src.Counter.Key
	}
	if src.Pool.Size > 0 {
		dst.PoolSize = src.Pool.Size
	}
	if src.RPC.RateLimit > 0 {
		dst.RPCRateLimit = src.RPC.RateLimit
	}
	if src.RPC.Burst > 0 {
		dst.RPCBurst = src.RPC.Burst
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PASSLINK_NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("PASSLINK_RPC_ENDPOINT"); v != "" {
		cfg.RPCEndpoint = v
	}
	if v := os.Getenv("PASSLINK_RELAYER_ACCOUNT"); v != "" {
		cfg.RelayerAccount = v
	}
	if v := os.Getenv("PASSLINK_REGISTRY_CONTRACT"); v != "" {
		cfg.RegistryContract = v
	}
	if v := os.Getenv("PASSLINK_COUNTER_URL"); v != "" {
		cfg.CounterURL = v
	}
	if v := os.Getenv("PASSLINK_COUNTER_KEY"); v != "" {
		cfg.CounterKey = v
	}
	if v := os.Getenv("PASSLINK_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolSize = n
		}
	}
	if v := os.Getenv("PASSLINK_RELAYER_SEED"); v != "" {
		cfg.seed = v
	}
}

// SeedMaterial returns the configured seed. A BIP-39 mnemonic is validated
// and normalized so that "word  word" and "word word" derive identical keys;
// any other non-empty string is treated as an opaque seed.
func (c *Config) SeedMaterial() (string, error) {
	seed := strings.TrimSpace(c.seed)
	if seed == "" {
		return "", ErrNoSeed
	}
	normalized := strings.Join(strings.Fields(strings.ToLower(seed)), " ")
	if bip39.IsMnemonicValid(normalized) {
		return normalized, nil
	}
	return seed, nil
}

// Validate checks that everything the submission path depends on is present.
// These are configuration errors: fatal, surfaced immediately, never retried.
func (c *Config) Validate() error {
	if _, err := c.SeedMaterial(); err != nil {
		return err
	}
	if c.RelayerAccount == "" {
		return ErrNoRelayer
	}
	if c.RegistryContract == "" {
		return ErrNoContract
	}
	if c.CounterURL == "" {
		return ErrNoCounter
	}
	return nil
}

func endpointFor(network string) string {
	if network == "mainnet" {
		return mainnetRPCEndpoint
	}
	return testnetRPCEndpoint
}

// SetSeed injects seed material directly, for tests and tools that do not go
// through the environment.
func (c *Config) SetSeed(seed string) {
	c.seed = seed
}
