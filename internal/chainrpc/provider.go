package chainrpc

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58/base58"

	"passlink/go-backend/internal/nearkey"
)

// DefaultGas is the bounded per-call gas allowance (300 Tgas, the chain's
// per-transaction ceiling).
const DefaultGas uint64 = 300_000_000_000_000

// OneYocto is the minimal attached deposit the chain's spam-resistance
// convention requires on state-changing calls.
func OneYocto() *big.Int {
	return big.NewInt(1)
}

// ExecutionResult is the acknowledged outcome of a broadcast transaction.
type ExecutionResult struct {
	TxHash       string
	SuccessValue []byte
}

type broadcastResult struct {
	Status struct {
		SuccessValue *string         `json:"SuccessValue"`
		Failure      json.RawMessage `json:"Failure"`
	} `json:"status"`
	Transaction struct {
		Hash string `json:"hash"`
	} `json:"transaction"`
}

type accessKeyView struct {
	Nonce     uint64 `json:"nonce"`
	BlockHash string `json:"block_hash"`
}

type callFunctionView struct {
	Result []int `json:"result"`
}

// SubmitSignedCall assembles, signs, and broadcasts one function call from
// signerID using the given pooled key, waiting for execution. The access-key
// nonce and a recent block hash come from a single view query.
func (c *Client) SubmitSignedCall(ctx context.Context, key nearkey.KeyPair, signerID, contract, method string, args []byte, gas uint64, deposit *big.Int) (ExecutionResult, error) {
	nonce, blockHash, err := c.viewAccessKey(ctx, signerID, key.PublicKeyString())
	if err != nil {
		return ExecutionResult{}, err
	}
	tx := &Transaction{
		SignerID:   signerID,
		PublicKey:  key.PublicKey,
		Nonce:      nonce + 1,
		ReceiverID: contract,
		BlockHash:  blockHash,
		Actions: []Action{FunctionCall{
			MethodName: method,
			Args:       args,
			Gas:        gas,
			Deposit:    deposit,
		}},
	}
	return c.broadcast(ctx, tx, key.PrivateKey)
}

// SubmitAddKey registers newKey on signer's account with a function-call
// permission restricted to receiverID and methodNames. Used only by the
// one-time key bootstrap, signed by the account's full-access credential.
func (c *Client) SubmitAddKey(ctx context.Context, signer nearkey.KeyPair, signerID, newKey, receiverID string, methodNames []string) (ExecutionResult, error) {
	pub, err := nearkey.ParsePublicKey(newKey)
	if err != nil {
		return ExecutionResult{}, err
	}
	nonce, blockHash, err := c.viewAccessKey(ctx, signerID, signer.PublicKeyString())
	if err != nil {
		return ExecutionResult{}, err
	}
	tx := &Transaction{
		SignerID:   signerID,
		PublicKey:  signer.PublicKey,
		Nonce:      nonce + 1,
		ReceiverID: signerID,
		BlockHash:  blockHash,
		Actions: []Action{AddKey{
			PublicKey: pub,
			AccessKey: AccessKey{Permission: Permission{
				ReceiverID:  receiverID,
				MethodNames: methodNames,
			}},
		}},
	}
	return c.broadcast(ctx, tx, signer.PrivateKey)
}

func (c *Client) broadcast(ctx context.Context, tx *Transaction, key ed25519.PrivateKey) (ExecutionResult, error) {
	signed, err := tx.Sign(key)
	if err != nil {
		return ExecutionResult{}, err
	}
	var result broadcastResult
	params := []string{base64.StdEncoding.EncodeToString(signed)}
	if err := c.call(ctx, "broadcast_tx_commit", params, &result); err != nil {
		return ExecutionResult{}, err
	}
	if len(result.Status.Failure) > 0 {
		return ExecutionResult{}, &ExecutionError{Message: failureMessage(result.Status.Failure)}
	}
	out := ExecutionResult{TxHash: result.Transaction.Hash}
	if result.Status.SuccessValue != nil {
		decoded, err := base64.StdEncoding.DecodeString(*result.Status.SuccessValue)
		if err != nil {
			return ExecutionResult{}, fmt.Errorf("chainrpc: decode success value: %w", err)
		}
		out.SuccessValue = decoded
	}
	return out, nil
}

// ReadOnlyCall runs a view method and returns the raw result bytes.
func (c *Client) ReadOnlyCall(ctx context.Context, contract, method string, args []byte) ([]byte, error) {
	var view callFunctionView
	err := c.call(ctx, "query", queryArgs{
		RequestType: "call_function",
		Finality:    "optimistic",
		AccountID:   contract,
		MethodName:  method,
		ArgsBase64:  encodeArgs(args),
	}, &view)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(view.Result))
	for i, b := range view.Result {
		out[i] = byte(b)
	}
	return out, nil
}

func (c *Client) viewAccessKey(ctx context.Context, accountID, publicKey string) (uint64, [32]byte, error) {
	var view accessKeyView
	err := c.call(ctx, "query", queryArgs{
		RequestType: "view_access_key",
		Finality:    "final",
		AccountID:   accountID,
		PublicKey:   publicKey,
	}, &view)
	if err != nil {
		return 0, [32]byte{}, err
	}
	raw, err := base58.Decode(view.BlockHash)
	if err != nil || len(raw) != 32 {
		return 0, [32]byte{}, fmt.Errorf("chainrpc: invalid block hash %q", view.BlockHash)
	}
	var blockHash [32]byte
	copy(blockHash[:], raw)
	return view.Nonce, blockHash, nil
}

// failureMessage digs the contract's execution error out of the status
// failure object, falling back to the raw JSON when the shape is unexpected.
func failureMessage(raw json.RawMessage) string {
	var detail struct {
		ActionError struct {
			Kind struct {
				FunctionCallError struct {
					ExecutionError string `json:"ExecutionError"`
				} `json:"FunctionCallError"`
			} `json:"kind"`
		} `json:"ActionError"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if msg := detail.ActionError.Kind.FunctionCallError.ExecutionError; msg != "" {
			return msg
		}
	}
	return string(raw)
}
