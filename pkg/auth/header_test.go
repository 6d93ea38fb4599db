package auth

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

type failingSigner struct{ pub solana.PublicKey }

func (f failingSigner) Sign([]byte) ([]byte, error) { return nil, errors.New("hsm offline") }
func (f failingSigner) PublicKey() solana.PublicKey { return f.pub }

func TestBuildChallengeHeaders(t *testing.T) {
	s := newTestSigner(t)
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(1_700_000_000_000))
	b := NewHeaderBuilder(s, WithClock(mock))

	body := []byte(`{"replicas":5}`)
	h, err := b.Build(http.MethodPatch, "/api/deployment/abc/update-replica-count", body)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if h.Get(HeaderUserID) != s.Address() {
		t.Errorf("Expected user id %q, got %q", s.Address(), h.Get(HeaderUserID))
	}
	if !strings.HasPrefix(h.Get(HeaderAuthorization), AuthPrefix+":1700000000000:") {
		t.Errorf("Unexpected authorization %q", h.Get(HeaderAuthorization))
	}
	if err := VerifyHeaders(h, http.MethodPatch, "/api/deployment/abc/update-replica-count", body, mock.Now()); err != nil {
		t.Errorf("Expected headers to verify: %v", err)
	}
}

func TestChallengeBindsRequest(t *testing.T) {
	s := newTestSigner(t)
	mock := clock.NewMock()
	b := NewHeaderBuilder(s, WithClock(mock))

	body := []byte(`{"timeout":60}`)
	h, err := b.Build(http.MethodPatch, "/api/deployment/abc/update-timeout", body)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   []byte
		now    time.Time
	}{
		{"other method", http.MethodPost, "/api/deployment/abc/update-timeout", body, mock.Now()},
		{"other path", http.MethodPatch, "/api/deployment/xyz/update-timeout", body, mock.Now()},
		{"other body", http.MethodPatch, "/api/deployment/abc/update-timeout", []byte(`{"timeout":61}`), mock.Now()},
		{"expired", http.MethodPatch, "/api/deployment/abc/update-timeout", body, mock.Now().Add(ChallengeTTL + time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyHeaders(h, tt.method, tt.path, tt.body, tt.now); err == nil {
				t.Error("Expected verification to fail")
			}
		})
	}
}

func TestBuildFreshPerCall(t *testing.T) {
	s := newTestSigner(t)
	b := NewHeaderBuilder(s, WithClock(clock.NewMock()))

	h1, _ := b.Build(http.MethodGet, "/api/deployments", nil)
	h2, _ := b.Build(http.MethodGet, "/api/deployments", nil)
	if h1.Get(HeaderAuthorization) == h2.Get(HeaderAuthorization) {
		t.Error("Expected a distinct challenge per call even at the same instant")
	}
}

func TestBuildLegacyScheme(t *testing.T) {
	s := newTestSigner(t)
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(42_000))
	b := NewHeaderBuilder(s, WithScheme(SchemeLegacy), WithClock(mock))

	h, err := b.Build(http.MethodGet, "/api/deployments", nil)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(h.Get(HeaderAuthorization), ":")
	if len(parts) != 3 || parts[0] != AuthPrefix || parts[2] != "42000" {
		t.Errorf("Unexpected legacy header %q", h.Get(HeaderAuthorization))
	}
	if err := VerifyHeaders(h, http.MethodGet, "/api/deployments", nil, mock.Now()); err != nil {
		t.Errorf("Expected legacy header to verify: %v", err)
	}
}

func TestBuildSigningFailure(t *testing.T) {
	b := NewHeaderBuilder(failingSigner{pub: solana.NewWallet().PublicKey()})
	_, err := b.Build(http.MethodGet, "/api/deployments", nil)
	if !sdkerrors.IsSigning(err) {
		t.Errorf("Expected SigningError, got %v", err)
	}
}

func TestApply(t *testing.T) {
	s := newTestSigner(t)
	b := NewHeaderBuilder(s)
	req, _ := http.NewRequest(http.MethodGet, "https://manager.example/api/deployment/abc?x=1", nil)
	if err := b.Apply(req, nil); err != nil {
		t.Fatal(err)
	}
	if err := VerifyHeaders(req.Header, http.MethodGet, "/api/deployment/abc?x=1", nil, time.Now()); err != nil {
		t.Errorf("Expected applied headers to verify: %v", err)
	}
}

func TestBodyDigest(t *testing.T) {
	if BodyDigest(nil) != "" {
		t.Error("Expected empty digest for empty body")
	}
	if len(BodyDigest([]byte("x"))) != 64 {
		t.Error("Expected hex sha256")
	}
}
