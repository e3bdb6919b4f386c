package chainrpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// RPCError is the structured error object of the JSON-RPC layer.
type RPCError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Cause   struct {
		Name string `json:"name"`
	} `json:"cause"`
}

func (e *RPCError) Error() string {
	if e.Cause.Name != "" {
		return fmt.Sprintf("chainrpc: rpc error %s/%s: %s", e.Name, e.Cause.Name, e.Message)
	}
	return fmt.Sprintf("chainrpc: rpc error %s: %s", e.Name, e.Message)
}

// HTTPStatusError is a non-200 response from the RPC endpoint.
type HTTPStatusError struct {
	Method     string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("chainrpc: %s: http status %d", e.Method, e.StatusCode)
}

// ExecutionError is a definitive contract-level failure: the transaction ran
// and the contract refused it. Distinct from transport trouble.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return "chainrpc: execution failed: " + e.Message
}

const panicPrefix = "Smart contract panicked: "

// Reason strips the chain's panic framing and returns the human-readable
// rejection the contract raised.
func (e *ExecutionError) Reason() string {
	if reason, ok := strings.CutPrefix(e.Message, panicPrefix); ok {
		return reason
	}
	return e.Message
}

// ambiguousCauses are error names whose appearance does not tell us whether
// the transaction landed: the node may have applied the state change and
// failed to say so.
var ambiguousCauses = map[string]bool{
	"TIMEOUT_ERROR":  true,
	"INTERNAL_ERROR": true,
}

// IsAmbiguous reports whether err leaves the submission outcome unknown.
// Timeouts, server-side faults, and generic timeout text all qualify; a
// definitive execution failure never does.
func IsAmbiguous(err error) bool {
	if err == nil {
		return false
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
		return true
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		if ambiguousCauses[rpcErr.Cause.Name] || ambiguousCauses[rpcErr.Name] {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "Timeout")
}
