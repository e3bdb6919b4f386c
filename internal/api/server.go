// Package api exposes the chain core to the web application layer over a
// small JSON HTTP surface: signature verification, record submission, and
// the pooled public keys.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"passlink/go-backend/internal/composition/verifierservice"
	"passlink/go-backend/internal/nep413"
	"passlink/go-backend/internal/platform/ratelimiter"
	"passlink/go-backend/internal/registry"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc     *verifierservice.Service
	logger  *slog.Logger
	mux     *http.ServeMux
	limiter *ratelimiter.MapLimiter
	now     func() time.Time
}

type Option func(*Server)

// WithRegisterRateLimit caps POST /v1/register per client address. Each
// register call spends a relayer key nonce and a chain transaction, so it
// gets a tighter budget than the read-only endpoints.
func WithRegisterRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.limiter = ratelimiter.New(rps, burst, 10*time.Minute)
	}
}

func NewServer(svc *verifierservice.Service, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("POST /v1/verify", s.handleVerify)
	s.mux.HandleFunc("POST /v1/extract", s.handleExtract)
	s.mux.HandleFunc("POST /v1/register", s.handleRegister)
	s.mux.HandleFunc("GET /v1/keys", s.handleKeys)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type verifyRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	PublicKey string `json:"publicKey"`
	Nonce     string `json:"nonce"` // base64, must decode to exactly 32 bytes
	Recipient string `json:"recipient"`
}

type verifyResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	nonce, err := base64.StdEncoding.DecodeString(req.Nonce)
	if err != nil {
		writeJSON(w, http.StatusOK, verifyResponse{Reason: "nonce is not valid base64"})
		return
	}
	out := s.svc.Verify(req.Message, req.Signature, req.PublicKey, nonce, req.Recipient)
	resp := verifyResponse{Valid: out.Valid}
	if out.Reason != nil {
		resp.Reason = out.Reason.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}
	rec, err := s.svc.ExtractSignedRecord(blob)
	if errors.Is(err, nep413.ErrNoRecord) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no signed-message record found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type registerRequest struct {
	AccountID string          `json:"accountId"`
	Nullifier string          `json:"nullifier"`
	Proof     json.RawMessage `json:"proof,omitempty"`
}

type registerResponse struct {
	TxHash           string `json:"txHash,omitempty"`
	ConfirmedByProbe bool   `json:"confirmedByProbe,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r), s.now()) {
		writeJSON(w, http.StatusTooManyRequests, registerResponse{Error: "too many register attempts"})
		return
	}
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	receipt, err := s.svc.SubmitRecord(r.Context(), registry.Record{
		AccountID: req.AccountID,
		Nullifier: req.Nullifier,
		Proof:     req.Proof,
	})
	var rejection *registry.RejectionError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, registerResponse{
			TxHash:           receipt.TxHash,
			ConfirmedByProbe: receipt.ConfirmedByProbe,
		})
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusConflict, registerResponse{Error: rejection.Reason})
	case errors.Is(err, registry.ErrNoNullifier):
		writeJSON(w, http.StatusBadRequest, registerResponse{Error: err.Error()})
	default:
		s.logger.Error("record submission failed", "error", err)
		writeJSON(w, http.StatusBadGateway, registerResponse{Error: "submission could not be confirmed"})
	}
}

func (s *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.svc.PublicKeys()
	if err != nil {
		s.logger.Error("listing pooled keys failed", "error", err)
		http.Error(w, "key pool unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"publicKeys": keys})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clientKey buckets requests by remote IP, falling back to the raw address
// when it carries no port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
