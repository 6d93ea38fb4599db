package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/httputil"
)

// IPFSClient defines the interface for job definition storage
type IPFSClient interface {
	PinJSON(ctx context.Context, v interface{}) (*PinResponse, error)
	Get(ctx context.Context, cid string) (io.ReadCloser, error)
	Fetch(ctx context.Context, cid string, out interface{}) error
	Health(ctx context.Context) error
	Close(ctx context.Context) error
}

// Client pins JSON documents through the Pinata API and reads them back
// through an IPFS gateway.
type Client struct {
	apiURL     string
	gatewayURL string
	jwt        string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the IPFS client
type Config struct {
	// APIURL is the Pinata API base URL.
	// If empty, defaults to "https://api.pinata.cloud"
	APIURL string

	// GatewayURL is the gateway prefix a CID is appended to.
	// If empty, defaults to "https://nosana.mypinata.cloud/ipfs/"
	GatewayURL string

	// JWT authenticates pin requests. Reads do not need it.
	JWT string

	// Timeout is the timeout for client operations
	// If zero, defaults to 30 seconds
	Timeout time.Duration
}

// PinResponse represents the response from pinning a document
type PinResponse struct {
	IpfsHash  string    `json:"IpfsHash"`
	PinSize   int64     `json:"PinSize"`
	Timestamp time.Time `json:"Timestamp"`
}

// NewClient creates a new Pinata client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.pinata.cloud"
	}

	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = "https://nosana.mypinata.cloud/ipfs/"
	}
	if !strings.HasSuffix(gatewayURL, "/") {
		gatewayURL += "/"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		gatewayURL: gatewayURL,
		jwt:        cfg.JWT,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// GatewayURL returns the gateway address of cid.
func (c *Client) GatewayURL(cid string) string {
	return c.gatewayURL + cid
}

func (c *Client) authorize(req *http.Request) error {
	if c.jwt == "" {
		return sdkerrors.NewValidationError("pinata_jwt", "is required to pin", nil)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	return nil
}

// Health checks that the configured JWT is accepted
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/data/testAuthentication", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sdkerrors.NewTransportError(http.MethodGet, "/data/testAuthentication", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return sdkerrors.FromResponse(http.MethodGet, "/data/testAuthentication", resp.StatusCode, body)
	}
	return nil
}

// PinJSON pins v as a JSON document and returns its CID
func (c *Client) PinJSON(ctx context.Context, v interface{}) (*PinResponse, error) {
	const path = "/pinning/pinJSONToIPFS"

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, sdkerrors.NewValidationError("document", "cannot encode as JSON: "+err.Error(), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sdkerrors.NewTransportError(http.MethodPost, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sdkerrors.NewTransportError(http.MethodPost, path, err).MarkInFlight("")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, sdkerrors.FromResponse(http.MethodPost, path, resp.StatusCode, body)
	}

	var result PinResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode pin response: %w", err)
	}
	if result.IpfsHash == "" {
		return nil, fmt.Errorf("pin response missing IpfsHash")
	}

	c.logger.Debug("Pinned document", zap.String("cid", result.IpfsHash), zap.Int("bytes", len(payload)))
	return &result, nil
}

// Get retrieves content by CID from the gateway
func (c *Client) Get(ctx context.Context, cid string) (io.ReadCloser, error) {
	if !httputil.ValidateCID(cid) {
		return nil, sdkerrors.NewValidationError("cid", "is not a valid content id", cid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.GatewayURL(cid), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create get request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, sdkerrors.NewTransportError(http.MethodGet, cid, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, sdkerrors.FromResponse(http.MethodGet, "/ipfs/"+cid, resp.StatusCode, body)
	}

	return resp.Body, nil
}

// Fetch retrieves a JSON document by CID and decodes it into out
func (c *Client) Fetch(ctx context.Context, cid string, out interface{}) error {
	rc, err := c.Get(ctx, cid)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := json.NewDecoder(rc).Decode(out); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", cid, err)
	}
	return nil
}

// Close releases idle connections
func (c *Client) Close(ctx context.Context) error {
	c.httpClient.CloseIdleConnections()
	return nil
}
