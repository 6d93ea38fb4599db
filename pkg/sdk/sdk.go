// Package sdk wires the wallet signer, manager session, cache, vault
// controller and IPFS client into a single Client.
package sdk

import (
	"context"
	"net/http"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/auth"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/cache"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/client"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/config"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/ipfs"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/logging"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/vault"
)

// TokenDecimals is the number of decimals of the NOS token.
const TokenDecimals = 6

// Client is one wallet's connection to the deployment manager, the chain
// and IPFS. It is safe for concurrent use; Close releases pooled
// connections.
type Client struct {
	cfg         *config.Config
	signer      *auth.Signer
	session     *client.Session
	cache       *cache.ResultCache
	deployments *deployments.Client
	chain       chain.Chain
	vault       *vault.Controller
	ipfs        *ipfs.Client
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

type options struct {
	logger     *zap.Logger
	clock      clock.Clock
	chain      chain.Chain
	httpClient *http.Client
	credential *auth.Credential
}

// Option customises New.
type Option func(*options)

// WithLogger sets the logger instead of one derived from Config.Verbose.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the time source for cache expiry, auth timestamps and
// retry backoff.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithChain replaces the Solana RPC client.
func WithChain(c chain.Chain) Option {
	return func(o *options) { o.chain = c }
}

// WithHTTPClient sets the HTTP client used for manager requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithCredential overrides the wallet section of the config.
func WithCredential(c auth.Credential) Option {
	return func(o *options) { o.credential = &c }
}

// New validates cfg and builds a Client. A nil cfg means devnet defaults.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.DefaultConfig(config.Devnet)
	}
	if err := multierr.Combine(cfg.Validate()...); err != nil {
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeConfigError, "invalid configuration", err)
	}

	o := &options{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = logging.NewClientLogger(cfg.Verbose); err != nil {
			return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeConfigError, "failed to create logger", err)
		}
	}

	cred := cfg.Wallet.Credential()
	if o.credential != nil {
		cred = *o.credential
	}
	signer, err := auth.NewSigner(cred)
	if err != nil {
		return nil, err
	}
	headers := auth.NewHeaderBuilder(signer, auth.WithScheme(cfg.Wallet.AuthScheme()), auth.WithClock(o.clock))

	scfg := client.DefaultSessionConfig(cfg.ManagerURL)
	scfg.Timeout = cfg.HTTP.Timeout
	scfg.MaxIdleConns = cfg.HTTP.MaxIdleConns
	if cfg.HTTP.UserAgent != "" {
		scfg.UserAgent = cfg.HTTP.UserAgent
	}
	scfg.Verbose = cfg.Verbose

	var sessionOpts []client.Option
	if o.httpClient != nil {
		sessionOpts = append(sessionOpts, client.WithHTTPClient(o.httpClient))
	}
	session, err := client.NewSession(scfg, headers, logging.For(logger, logging.ComponentClient), sessionOpts...)
	if err != nil {
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeConfigError, "invalid session configuration", err)
	}

	rc, err := cache.New(cfg.Cache.MaxEntries, o.clock, logging.For(logger, logging.ComponentCache))
	if err != nil {
		session.Close()
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeConfigError, "invalid cache configuration", err)
	}
	dc := deployments.NewClient(session, rc, deployments.CacheTTLs{
		Deployment: cfg.Cache.DeploymentTTL,
		List:       cfg.Cache.ListTTL,
		Tasks:      cfg.Cache.TasksTTL,
	}, logging.For(logger, logging.ComponentClient))

	ch := o.chain
	if ch == nil {
		rpc, err := chain.NewRPC(chain.Config{
			URL:            cfg.Chain.RPCURL,
			ConfirmTimeout: cfg.Chain.ConfirmTimeout,
			ConfirmPoll:    cfg.Chain.ConfirmPoll,
		}, logging.For(logger, logging.ComponentChain))
		if err != nil {
			session.Close()
			return nil, err
		}
		ch = rpc
	}

	mint, err := solana.PublicKeyFromBase58(cfg.Chain.TokenMint)
	if err != nil {
		session.Close()
		ch.Close()
		return nil, sdkerrors.NewValidationError("chain.token_mint", "is not a valid address", cfg.Chain.TokenMint)
	}
	vc := vault.NewController(dc, ch, signer, vault.Config{
		Mint:              mint,
		TokenDecimals:     TokenDecimals,
		MinNative:         cfg.Vault.MinNative,
		MinToken:          cfg.Vault.MinToken,
		StartRetryBackoff: cfg.Vault.StartRetryBackoff,
	}, o.clock, logging.For(logger, logging.ComponentVault))

	ic, err := ipfs.NewClient(ipfs.Config{
		APIURL:     cfg.IPFS.APIURL,
		GatewayURL: cfg.IPFS.GatewayURL,
		JWT:        cfg.IPFS.JWT,
		Timeout:    cfg.IPFS.Timeout,
	}, logging.For(logger, logging.ComponentIPFS))
	if err != nil {
		session.Close()
		ch.Close()
		return nil, err
	}

	logger.Debug("SDK client ready",
		zap.String("environment", string(cfg.Environment)),
		zap.String("wallet", signer.Address()),
		zap.String("manager", session.BaseURL()),
	)

	return &Client{
		cfg:         cfg,
		signer:      signer,
		session:     session,
		cache:       rc,
		deployments: dc,
		chain:       ch,
		vault:       vc,
		ipfs:        ic,
		logger:      logger,
	}, nil
}

// With creates a Client, runs fn and closes the client whatever fn returns.
func With(cfg *config.Config, fn func(*Client) error, opts ...Option) (err error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, c.Close())
	}()
	return fn(c)
}

// Config returns the configuration the client was built from.
func (c *Client) Config() *config.Config { return c.cfg }

// Address returns the wallet address.
func (c *Client) Address() string { return c.signer.Address() }

// Signer returns the wallet signer.
func (c *Client) Signer() *auth.Signer { return c.signer }

// Deployments returns the deployment client.
func (c *Client) Deployments() *deployments.Client { return c.deployments }

// Vault returns the vault controller.
func (c *Client) Vault() *vault.Controller { return c.vault }

// IPFS returns the IPFS client.
func (c *Client) IPFS() *ipfs.Client { return c.ipfs }

// Chain returns the chain client.
func (c *Client) Chain() chain.Chain { return c.chain }

// CacheStats returns the read cache counters.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }

// Close releases pooled HTTP and RPC connections. Later calls return the
// first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = multierr.Combine(
			c.session.Close(),
			c.chain.Close(),
			c.ipfs.Close(context.Background()),
		)
		c.cache.Purge()
		c.logger.Debug("SDK client closed")
		_ = c.logger.Sync()
	})
	return c.closeErr
}
