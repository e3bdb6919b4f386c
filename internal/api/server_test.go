package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"passlink/go-backend/internal/bootstrap/chainconfig"
	"passlink/go-backend/internal/composition/verifierservice"
	"passlink/go-backend/internal/nearkey"
	"passlink/go-backend/internal/nep413"
)

type fakeCounter struct{ value int64 }

func (c *fakeCounter) Increment(ctx context.Context, key string) (int64, error) {
	c.value++
	return c.value, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := chainconfig.Default()
	cfg.SetSeed("api-test-seed")
	cfg.RelayerAccount = "relayer.passlink.near"
	cfg.RegistryContract = "registry.passlink.near"
	cfg.RPCEndpoint = "http://127.0.0.1:1" // dead endpoint; fails fast when dialed
	svc, err := verifierservice.New(cfg, &fakeCounter{})
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}
	srv := httptest.NewServer(NewServer(svc, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	srv := newTestServer(t)

	pair, err := nearkey.Derive("wallet-seed", 0)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	nonce := make([]byte, nep413.NonceSize)
	digest, err := nep413.Digest("link me", nonce, "verifier.passlink.near")
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	sig := base64.StdEncoding.EncodeToString(ed25519.Sign(pair.PrivateKey, digest[:]))

	resp := postJSON(t, srv.URL+"/v1/verify", map[string]string{
		"message":   "link me",
		"signature": sig,
		"publicKey": pair.PublicKeyString(),
		"nonce":     base64.StdEncoding.EncodeToString(nonce),
		"recipient": "verifier.passlink.near",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var out struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !out.Valid {
		t.Fatalf("verification failed: %s", out.Reason)
	}
}

func TestVerifyEndpointInvalidSignature(t *testing.T) {
	srv := newTestServer(t)
	pair, _ := nearkey.Derive("wallet-seed", 0)
	nonce := make([]byte, nep413.NonceSize)

	resp := postJSON(t, srv.URL+"/v1/verify", map[string]string{
		"message":   "link me",
		"signature": base64.StdEncoding.EncodeToString(make([]byte, 64)),
		"publicKey": pair.PublicKeyString(),
		"nonce":     base64.StdEncoding.EncodeToString(nonce),
		"recipient": "verifier.passlink.near",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("an invalid signature is still a 200 with valid=false, got %d", resp.StatusCode)
	}
	var out struct {
		Valid  bool   `json:"valid"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Valid || out.Reason == "" {
		t.Fatalf("want invalid with a reason, got %+v", out)
	}
}

func TestExtractEndpoint(t *testing.T) {
	srv := newTestServer(t)
	blob := append([]byte{0}, []byte(`{"accountId":"alice.near","publicKey":"ed25519:abc","signature":"c2ln"}`)...)

	resp, err := http.Post(srv.URL+"/v1/extract", "application/octet-stream", bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/v1/extract", "application/octet-stream", bytes.NewReader([]byte("garbage")))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("garbage blob should 404, got %d", resp.StatusCode)
	}
}

func TestRegisterEndpointRequiresNullifier(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/v1/register", map[string]string{"accountId": "alice.near"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing nullifier should 400, got %d", resp.StatusCode)
	}
}

func TestRegisterRateLimit(t *testing.T) {
	cfg := chainconfig.Default()
	cfg.SetSeed("api-test-seed")
	cfg.RelayerAccount = "relayer.passlink.near"
	cfg.RegistryContract = "registry.passlink.near"
	cfg.RPCEndpoint = "http://127.0.0.1:1"
	svc, err := verifierservice.New(cfg, &fakeCounter{})
	if err != nil {
		t.Fatalf("service construction failed: %v", err)
	}
	srv := httptest.NewServer(NewServer(svc, nil, WithRegisterRateLimit(1, 2)).Handler())
	t.Cleanup(srv.Close)

	// The first two requests fit the burst; both fail with 400 (no
	// nullifier), which still proves they passed the limiter.
	for i := 0; i < 2; i++ {
		resp := postJSON(t, srv.URL+"/v1/register", map[string]string{"accountId": "alice.near"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("request %d: status %d, want 400", i, resp.StatusCode)
		}
	}
	resp := postJSON(t, srv.URL+"/v1/register", map[string]string{"accountId": "alice.near"})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third request should be limited, got %d", resp.StatusCode)
	}
}

func TestKeysEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/v1/keys")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		PublicKeys []string `json:"publicKeys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(out.PublicKeys) != nearkey.DefaultPoolSize {
		t.Fatalf("got %d keys, want %d", len(out.PublicKeys), nearkey.DefaultPoolSize)
	}
}
