// Package chainrpc is the JSON-RPC client for the target chain: view
// queries, access-key lookups, and signed transaction broadcast. It owns
// transaction assembly so callers only ever hand it a key, a contract, and
// arguments.
package chainrpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const jsonrpcVersion = "2.0"

// Client talks to one RPC endpoint. Safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
	nextID   atomic.Int64
}

type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests; public RPC endpoints throttle
// aggressively and a burst of probes must not trip that.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 0}, // deadlines come from the caller's context
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonrpcVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("chainrpc: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chainrpc: %s: %w", method, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{Method: method, StatusCode: resp.StatusCode}
	}
	var decoded rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("chainrpc: decode %s response: %w", method, err)
	}
	c.logger.Debug("rpc call", "method", method, "elapsed", time.Since(started))
	if decoded.Error != nil {
		return decoded.Error
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("chainrpc: decode %s result: %w", method, err)
		}
	}
	return nil
}

// queryArgs is the params object for the chain's generic query endpoint.
type queryArgs struct {
	RequestType string  `json:"request_type"`
	Finality    string  `json:"finality"`
	AccountID   string  `json:"account_id"`
	PublicKey   string  `json:"public_key,omitempty"`
	MethodName  string  `json:"method_name,omitempty"`
	ArgsBase64  *string `json:"args_base64,omitempty"`
}

func encodeArgs(args []byte) *string {
	s := base64.StdEncoding.EncodeToString(args)
	return &s
}
