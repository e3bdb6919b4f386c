// keytool is the one-time key bootstrap: it derives the relayer key pool and
// registers each key's signing permission on the relayer account, so the
// steady-state service never needs the full-access credential.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"passlink/go-backend/internal/bootstrap/chainconfig"
	"passlink/go-backend/internal/chainrpc"
	"passlink/go-backend/internal/keystore"
	"passlink/go-backend/internal/nearkey"
)

const registerTimeout = 2 * time.Minute

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	keystorePath := flag.String("keystore", "relayer-key.enc", "Path to the encrypted full-access credential")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg := chainconfig.LoadFromPath(*configPath)
	var err error
	switch flag.Arg(0) {
	case "list":
		err = runList(cfg)
	case "init":
		err = runInit(*keystorePath)
	case "register":
		err = runRegister(cfg, *keystorePath, logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("keytool failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: keytool [flags] <command>

commands:
  list      print every pooled public key
  init      store the full-access credential (PASSLINK_RELAYER_SECRET_KEY,
            PASSLINK_KEYSTORE_PASSPHRASE) encrypted at -keystore
  register  add every pooled key to the relayer account as a function-call
            key restricted to the registry contract`)
	flag.PrintDefaults()
}

func runList(cfg chainconfig.Config) error {
	pool, err := staticPool(cfg)
	if err != nil {
		return err
	}
	keys, err := pool.AllPublicKeys()
	if err != nil {
		return err
	}
	for i, key := range keys {
		fmt.Printf("%2d  %s\n", i, key)
	}
	return nil
}

func runInit(keystorePath string) error {
	secretKey := os.Getenv("PASSLINK_RELAYER_SECRET_KEY")
	passphrase := os.Getenv("PASSLINK_KEYSTORE_PASSPHRASE")
	account := os.Getenv("PASSLINK_RELAYER_ACCOUNT")
	if secretKey == "" || passphrase == "" || account == "" {
		return fmt.Errorf("PASSLINK_RELAYER_SECRET_KEY, PASSLINK_KEYSTORE_PASSPHRASE and PASSLINK_RELAYER_ACCOUNT are required")
	}
	return keystore.Save(keystorePath, passphrase, keystore.Credential{
		AccountID: account,
		SecretKey: secretKey,
	})
}

func runRegister(cfg chainconfig.Config, keystorePath string, logger *slog.Logger) error {
	passphrase := os.Getenv("PASSLINK_KEYSTORE_PASSPHRASE")
	if passphrase == "" {
		return fmt.Errorf("PASSLINK_KEYSTORE_PASSPHRASE is required")
	}
	if cfg.RegistryContract == "" {
		return chainconfig.ErrNoContract
	}
	cred, err := keystore.Load(keystorePath, passphrase)
	if err != nil {
		return err
	}
	signer, err := cred.KeyPair()
	if err != nil {
		return err
	}
	pool, err := staticPool(cfg)
	if err != nil {
		return err
	}
	keys, err := pool.AllPublicKeys()
	if err != nil {
		return err
	}

	client := chainrpc.NewClient(cfg.RPCEndpoint, chainrpc.WithLogger(logger))
	for i, key := range keys {
		ctx, cancel := context.WithTimeout(context.Background(), registerTimeout)
		result, err := client.SubmitAddKey(ctx, signer, cred.AccountID, key, cfg.RegistryContract, []string{"register"})
		cancel()
		if err != nil {
			// An already-registered key is fine: the bootstrap is re-runnable.
			logger.Warn("add key failed", "index", i, "key", key, "error", err)
			continue
		}
		logger.Info("key registered", "index", i, "key", key, "tx_hash", result.TxHash)
	}
	return nil
}

func staticPool(cfg chainconfig.Config) (*nearkey.Pool, error) {
	seed, err := cfg.SeedMaterial()
	if err != nil {
		return nil, err
	}
	return nearkey.NewStaticPool(seed, cfg.PoolSize)
}
