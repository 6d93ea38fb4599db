package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/auth"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

const maxResponseBytes = 8 << 20

// Session issues authenticated JSON requests to the deployment manager over
// a pooled connection set.
type Session struct {
	cfg        *SessionConfig
	baseURL    string
	headers    *auth.HeaderBuilder
	httpClient *http.Client
	transport  *http.Transport
	logger     *zap.Logger
	closed     atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the pooled client. Close still releases idle
// connections when the client uses an *http.Transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Session) {
		s.httpClient = hc
		if t, ok := hc.Transport.(*http.Transport); ok {
			s.transport = t
		} else {
			s.transport = nil
		}
	}
}

// NewSession creates a session. logger may be nil.
func NewSession(cfg *SessionConfig, headers *auth.HeaderBuilder, logger *zap.Logger, opts ...Option) (*Session, error) {
	if err := ValidateSessionConfig(cfg); err != nil {
		return nil, err
	}
	if headers == nil {
		return nil, ErrNoAuth
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	s := &Session{
		cfg:        cfg,
		baseURL:    cfg.baseURL(),
		headers:    headers,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		transport:  transport,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseURL returns the manager base URL.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// Do sends one request. body, when non-nil, is encoded as JSON; a non-nil
// out receives the decoded response. Non-2xx responses become APIError and
// connection failures become TransportError. A failed dial is attempted
// once more since the server never saw the request. Any other failure of a
// mutating request is marked in flight.
func (s *Session) Do(ctx context.Context, method, path string, body, out interface{}) error {
	if s.closed.Load() {
		return sdkerrors.NewDeploymentError(sdkerrors.CodeInternal, "session closed", sdkerrors.ErrClosed)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return sdkerrors.NewValidationError("body", "cannot encode request body: "+err.Error(), nil)
		}
	}

	headers, err := s.headers.Build(method, path, payload)
	if err != nil {
		return err
	}

	start := time.Now()
	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return sdkerrors.NewValidationError("path", err.Error(), path)
		}
		for k, v := range headers {
			req.Header[k] = v
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", s.cfg.UserAgent)

		resp, err = s.httpClient.Do(req)
		if err == nil {
			break
		}
		if attempt == 0 && isDialError(err) && ctx.Err() == nil {
			s.debug("Dial failed, reattempting", zap.String("method", method), zap.String("path", path), zap.Error(err))
			continue
		}
		s.debug("Request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		terr := sdkerrors.NewTransportError(method, path, err)
		if !isDialError(err) && mutates(method) {
			// The server may have received and applied the request.
			terr.MarkInFlight("")
		}
		return terr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return sdkerrors.NewTransportError(method, path, err).MarkInFlight("")
	}

	s.debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sdkerrors.FromResponse(method, path, resp.StatusCode, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			var typed sdkerrors.Error
			if errors.As(err, &typed) {
				return err
			}
			return sdkerrors.NewDeploymentError(sdkerrors.CodeSerializationError, "failed to decode response from "+method+" "+path, err)
		}
	}
	return nil
}

// Get sends a GET request.
func (s *Session) Get(ctx context.Context, path string, out interface{}) error {
	return s.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends a POST request.
func (s *Session) Post(ctx context.Context, path string, body, out interface{}) error {
	return s.Do(ctx, http.MethodPost, path, body, out)
}

// Patch sends a PATCH request.
func (s *Session) Patch(ctx context.Context, path string, body, out interface{}) error {
	return s.Do(ctx, http.MethodPatch, path, body, out)
}

// Close releases pooled connections. Further requests fail. Close is safe
// to call more than once.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}
	s.logger.Debug("Session closed", zap.String("base_url", s.baseURL))
	return nil
}

func (s *Session) debug(msg string, fields ...zap.Field) {
	if s.cfg.Verbose {
		s.logger.Debug(msg, fields...)
	}
}
