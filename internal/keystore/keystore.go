// Package keystore persists the relayer account's full-access credential for
// the one-time key bootstrap, encrypted at rest with a passphrase. Pool seed
// material never goes through here; only the bootstrap credential does.
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"passlink/go-backend/internal/nearkey"
)

const (
	envelopeVersion = 1
	saltSize        = 16
	filePrefix      = "PLKEY1\n"
)

var (
	ErrAuthFailed = errors.New("keystore: authentication failed")
	ErrInvalid    = errors.New("keystore: envelope is invalid")
)

// Credential is the account's full-access key in its curve-prefixed textual
// encoding.
type Credential struct {
	AccountID string `json:"account_id"`
	SecretKey string `json:"secret_key"`
}

// KeyPair decodes the credential into a signing key pair.
func (c Credential) KeyPair() (nearkey.KeyPair, error) {
	priv, err := nearkey.ParseSecretKey(c.SecretKey)
	if err != nil {
		return nearkey.KeyPair{}, err
	}
	return nearkey.KeyPair{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

type envelope struct {
	Version     uint32 `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        []byte `json:"salt"`
	Nonce       []byte `json:"nonce"`
	Ciphertext  []byte `json:"ciphertext"`
}

// Save encrypts cred under passphrase and writes it to path with owner-only
// permissions.
func Save(path, passphrase string, cred Credential) error {
	if _, err := cred.KeyPair(); err != nil {
		return err
	}
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	sealed, err := seal(passphrase, plaintext)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, sealed, 0o600)
}

// Load reads and decrypts the credential at path.
func Load(path, passphrase string) (Credential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credential{}, err
	}
	plaintext, err := open(passphrase, raw)
	if err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return Credential{}, ErrInvalid
	}
	if _, err := cred.KeyPair(); err != nil {
		return Credential{}, err
	}
	return cred, nil
}

func seal(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := deriveKey(passphrase, salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	env := envelope{
		Version:     envelopeVersion,
		KDF:         "argon2id",
		KDFTime:     2,
		KDFMemoryKB: 64 * 1024,
		KDFThreads:  1,
		Salt:        salt,
		Nonce:       nonce,
		Ciphertext:  aead.Seal(nil, nonce, plaintext, nil),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(filePrefix), raw...), nil
}

func open(passphrase string, data []byte) ([]byte, error) {
	if !strings.HasPrefix(string(data), filePrefix) {
		return nil, ErrInvalid
	}
	var env envelope
	if err := json.Unmarshal(data[len(filePrefix):], &env); err != nil {
		return nil, ErrInvalid
	}
	if env.Version != envelopeVersion || env.KDF != "argon2id" {
		return nil, ErrInvalid
	}
	key := deriveKey(passphrase, env.Salt)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 2, 64*1024, 1, chacha20poly1305.KeySize)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
