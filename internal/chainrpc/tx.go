package chainrpc

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"

	"passlink/go-backend/internal/borsh"
)

// Action enum discriminants in the chain's transaction layout.
const (
	actionFunctionCall byte = 2
	actionAddKey       byte = 5
)

// Access-key permission enum discriminants.
const (
	permissionFunctionCall byte = 0
	permissionFullAccess   byte = 1
)

// ed25519 curve discriminant inside a serialized public key or signature.
const keyTypeED25519 byte = 0

var ErrBadKeySize = errors.New("chainrpc: key or signature has wrong size")

// Transaction is the unsigned transaction body. Signing happens over the
// SHA-256 of its serialized form.
type Transaction struct {
	SignerID   string
	PublicKey  ed25519.PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []Action
}

type Action interface {
	encode(w *borsh.Writer) error
}

// FunctionCall invokes a contract method with an attached gas budget and
// deposit (in yocto units).
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int
}

func (a FunctionCall) encode(w *borsh.Writer) error {
	w.U8(actionFunctionCall)
	w.String(a.MethodName)
	w.Vec(a.Args)
	w.U64(a.Gas)
	deposit := a.Deposit
	if deposit == nil {
		deposit = big.NewInt(0)
	}
	return w.U128(deposit)
}

// AddKey registers a new access key on the signer's account.
type AddKey struct {
	PublicKey ed25519.PublicKey
	AccessKey AccessKey
}

func (a AddKey) encode(w *borsh.Writer) error {
	w.U8(actionAddKey)
	if err := encodePublicKey(w, a.PublicKey); err != nil {
		return err
	}
	w.U64(a.AccessKey.Nonce)
	return a.AccessKey.Permission.encode(w)
}

type AccessKey struct {
	Nonce      uint64
	Permission Permission
}

// Permission is either full access or a function-call grant restricted to one
// receiver and an optional method list.
type Permission struct {
	FullAccess  bool
	Allowance   *big.Int // nil means unlimited
	ReceiverID  string
	MethodNames []string
}

func (p Permission) encode(w *borsh.Writer) error {
	if p.FullAccess {
		w.U8(permissionFullAccess)
		return nil
	}
	w.U8(permissionFunctionCall)
	if p.Allowance == nil {
		w.OptionAbsent()
	} else {
		w.OptionPresent()
		if err := w.U128(p.Allowance); err != nil {
			return err
		}
	}
	w.String(p.ReceiverID)
	w.U32(uint32(len(p.MethodNames)))
	for _, m := range p.MethodNames {
		w.String(m)
	}
	return nil
}

func encodePublicKey(w *borsh.Writer, pub ed25519.PublicKey) error {
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key is %d bytes", ErrBadKeySize, len(pub))
	}
	w.U8(keyTypeED25519)
	w.Fixed(pub)
	return nil
}

// Encode serializes the unsigned transaction body.
func (t *Transaction) Encode() ([]byte, error) {
	var w borsh.Writer
	w.String(t.SignerID)
	if err := encodePublicKey(&w, t.PublicKey); err != nil {
		return nil, err
	}
	w.U64(t.Nonce)
	w.String(t.ReceiverID)
	w.Fixed(t.BlockHash[:])
	w.U32(uint32(len(t.Actions)))
	for _, a := range t.Actions {
		if err := a.encode(&w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// Sign serializes the transaction, signs its SHA-256 digest, and returns the
// serialized signed transaction ready for broadcast.
func (t *Transaction) Sign(key ed25519.PrivateKey) ([]byte, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key is %d bytes", ErrBadKeySize, len(key))
	}
	body, err := t.Encode()
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(body)
	signature := ed25519.Sign(key, digest[:])

	var w borsh.Writer
	w.Fixed(body)
	w.U8(keyTypeED25519)
	w.Fixed(signature)
	return w.Bytes(), nil
}
