package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Header names and the authorization scheme prefix expected by the
// deployment manager.
const (
	HeaderUserID        = "x-user-id"
	HeaderAuthorization = "authorization"
	AuthPrefix          = "DeploymentsAuthorization"
)

// ChallengeTTL bounds how long a signed challenge is accepted.
const ChallengeTTL = 30 * time.Second

// Scheme selects the authorization header format.
type Scheme int

const (
	// SchemeChallenge signs a per-request challenge binding method, path,
	// body digest, nonce and timestamp.
	SchemeChallenge Scheme = iota
	// SchemeLegacy signs the constant prefix and appends a millisecond
	// timestamp, the format the deployed manager accepts from older SDKs.
	SchemeLegacy
)

// Challenge is the per-request payload the wallet signs.
type Challenge struct {
	Method     string
	Path       string
	BodyDigest string
	Nonce      string
	Timestamp  int64 // unix milliseconds
}

// Message returns the exact bytes that get signed.
func (c Challenge) Message() []byte {
	return []byte(strings.Join([]string{
		AuthPrefix,
		strconv.FormatInt(c.Timestamp, 10),
		c.Nonce,
		strings.ToUpper(c.Method),
		c.Path,
		c.BodyDigest,
	}, ":"))
}

// Fresh reports whether the challenge is still inside the freshness window.
func (c Challenge) Fresh(now time.Time) bool {
	age := now.Sub(time.UnixMilli(c.Timestamp))
	return age >= -ChallengeTTL && age <= ChallengeTTL
}

// BodyDigest returns the hex sha256 of body, or "" for an empty body.
func BodyDigest(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// HeaderBuilder produces authentication headers, one fresh challenge per call.
type HeaderBuilder struct {
	signer   MessageSigner
	scheme   Scheme
	clock    clock.Clock
	newNonce func() string
}

// Option configures a HeaderBuilder.
type Option func(*HeaderBuilder)

// WithScheme selects the header format.
func WithScheme(s Scheme) Option {
	return func(b *HeaderBuilder) { b.scheme = s }
}

// WithClock overrides the time source.
func WithClock(c clock.Clock) Option {
	return func(b *HeaderBuilder) { b.clock = c }
}

// NewHeaderBuilder creates a builder that signs with signer.
func NewHeaderBuilder(signer MessageSigner, opts ...Option) *HeaderBuilder {
	b := &HeaderBuilder{
		signer:   signer,
		clock:    clock.New(),
		newNonce: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scheme returns the configured header format.
func (b *HeaderBuilder) Scheme() Scheme {
	return b.scheme
}

// Build signs a new challenge for the request and returns the headers.
func (b *HeaderBuilder) Build(method, path string, body []byte) (http.Header, error) {
	ts := b.clock.Now().UnixMilli()

	h := make(http.Header, 3)
	h.Set(HeaderUserID, b.signer.PublicKey().String())
	h.Set("Content-Type", "application/json")

	if b.scheme == SchemeLegacy {
		sig, err := b.signer.Sign([]byte(AuthPrefix))
		if err != nil {
			return nil, asSigningError(err)
		}
		h.Set(HeaderAuthorization, fmt.Sprintf("%s:%s:%d", AuthPrefix, base58.Encode(sig), ts))
		return h, nil
	}

	c := Challenge{
		Method:     method,
		Path:       path,
		BodyDigest: BodyDigest(body),
		Nonce:      b.newNonce(),
		Timestamp:  ts,
	}
	sig, err := b.signer.Sign(c.Message())
	if err != nil {
		return nil, asSigningError(err)
	}
	h.Set(HeaderAuthorization, fmt.Sprintf("%s:%d:%s:%s", AuthPrefix, ts, c.Nonce, base58.Encode(sig)))
	return h, nil
}

// Apply builds headers for req and sets them on it.
func (b *HeaderBuilder) Apply(req *http.Request, body []byte) error {
	h, err := b.Build(req.Method, req.URL.RequestURI(), body)
	if err != nil {
		return err
	}
	for k, v := range h {
		req.Header[k] = v
	}
	return nil
}

func asSigningError(err error) error {
	if sdkerrors.IsSigning(err) {
		return err
	}
	return sdkerrors.NewSigningError("auth header", err)
}

// VerifyHeaders checks headers produced by Build against the request they
// were issued for. It is what a manager-side verifier does and is used to
// self-check headers.
func VerifyHeaders(h http.Header, method, path string, body []byte, now time.Time) error {
	pub, err := solana.PublicKeyFromBase58(h.Get(HeaderUserID))
	if err != nil {
		return fmt.Errorf("invalid %s header: %w", HeaderUserID, err)
	}

	parts := strings.Split(h.Get(HeaderAuthorization), ":")
	if len(parts) < 3 || parts[0] != AuthPrefix {
		return fmt.Errorf("malformed %s header", HeaderAuthorization)
	}

	var (
		message []byte
		sigText string
		ts      int64
	)
	switch len(parts) {
	case 3:
		sigText = parts[1]
		ts, err = strconv.ParseInt(parts[2], 10, 64)
		message = []byte(AuthPrefix)
	case 4:
		ts, err = strconv.ParseInt(parts[1], 10, 64)
		c := Challenge{Method: method, Path: path, BodyDigest: BodyDigest(body), Nonce: parts[2], Timestamp: ts}
		sigText = parts[3]
		message = c.Message()
	default:
		return fmt.Errorf("malformed %s header", HeaderAuthorization)
	}
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if !(Challenge{Timestamp: ts}).Fresh(now) {
		return fmt.Errorf("challenge expired")
	}

	sig, err := base58.Decode(sigText)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !Verify(pub, message, sig) {
		return fmt.Errorf("signature does not match")
	}
	return nil
}
