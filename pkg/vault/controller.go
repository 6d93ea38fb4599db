// Package vault funds deployment vaults from the wallet and withdraws them
// back.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Manager is the part of the deployment manager the controller uses.
// *deployments.Client implements it.
type Manager interface {
	Start(ctx context.Context, id string) (*deployments.StatusUpdate, error)
	BuildWithdrawal(ctx context.Context, vault string, req deployments.WithdrawRequest) (*deployments.WithdrawTransaction, error)
}

// TxSigner signs transactions with the wallet key. *auth.Signer implements
// it.
type TxSigner interface {
	PublicKey() solana.PublicKey
	SignTransaction(tx *solana.Transaction) (solana.Signature, error)
}

// Config holds vault policy.
type Config struct {
	Mint          solana.PublicKey
	TokenDecimals uint8
	// MinNative and MinToken are the wallet balances preflight requires,
	// in lamports and token base units.
	MinNative uint64
	MinToken  uint64
	// StartRetryBackoff is the wait before the single start retry.
	StartRetryBackoff time.Duration
}

// DefaultConfig returns the mainnet NOS policy.
func DefaultConfig() Config {
	return Config{
		Mint:              solana.MustPublicKeyFromBase58("nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7"),
		TokenDecimals:     6,
		MinNative:         12_000_000,
		MinToken:          3_000_000,
		StartRetryBackoff: 5 * time.Second,
	}
}

// Controller runs balance, funding and withdrawal operations for the
// wallet's vaults. All operations block until done or ctx ends.
type Controller struct {
	manager Manager
	chain   chain.Chain
	signer  TxSigner
	cfg     Config
	clock   clock.Clock
	logger  *zap.Logger

	mu     sync.Mutex
	vaults map[string]*Vault
}

// NewController creates a controller. clk and logger may be nil.
func NewController(manager Manager, ch chain.Chain, signer TxSigner, cfg Config, clk clock.Clock, logger *zap.Logger) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		manager: manager,
		chain:   ch,
		signer:  signer,
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
		vaults:  make(map[string]*Vault),
	}
}

// Vault returns the tracker for address, creating it on first use.
func (c *Controller) Vault(address string) *Vault {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.vaults[address]
	if !ok {
		v = newVault(address, c.clock)
		c.vaults[address] = v
	}
	return v
}

func parseVault(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, sdkerrors.NewValidationError("vault", "is not a valid address", address)
	}
	return pk, nil
}

func (c *Controller) balancesOf(ctx context.Context, owner solana.PublicKey) (Balances, error) {
	native, err := c.chain.NativeBalance(ctx, owner)
	if err != nil {
		return Balances{}, err
	}
	token, err := c.chain.TokenBalance(ctx, owner, c.cfg.Mint)
	if err != nil {
		return Balances{}, err
	}
	return Balances{Native: native, Token: token}, nil
}

// UpdateBalance reads the vault's balances from the chain and updates its
// state. Amounts are not scaled.
func (c *Controller) UpdateBalance(ctx context.Context, vault string) (Balances, error) {
	pk, err := parseVault(vault)
	if err != nil {
		return Balances{}, err
	}
	b, err := c.balancesOf(ctx, pk)
	if err != nil {
		return Balances{}, err
	}
	state := c.Vault(vault).Observe(b)
	c.logger.Debug("Vault balance read",
		zap.String("vault", vault),
		zap.Uint64("native", b.Native),
		zap.Uint64("token", b.Token),
		zap.String("state", string(state)),
	)
	return b, nil
}

// WalletBalance reads the wallet's own balances.
func (c *Controller) WalletBalance(ctx context.Context) (Balances, error) {
	return c.balancesOf(ctx, c.signer.PublicKey())
}

// Preflight checks the wallet holds at least the configured minimums. It
// reads balances only and never sends a manager request or transaction.
func (c *Controller) Preflight(ctx context.Context) (Balances, error) {
	return c.preflight(ctx, Amounts{})
}

// preflight also requires enough of each asset to cover the requested
// transfer amounts.
func (c *Controller) preflight(ctx context.Context, want Amounts) (Balances, error) {
	b, err := c.WalletBalance(ctx)
	if err != nil {
		return Balances{}, err
	}

	needNative, needToken := c.cfg.MinNative, c.cfg.MinToken
	if want.Native != nil && *want.Native > needNative {
		needNative = *want.Native
	}
	if want.Token != nil && *want.Token > needToken {
		needToken = *want.Token
	}

	var short []sdkerrors.Shortfall
	if b.Native < needNative {
		short = append(short, sdkerrors.Shortfall{Asset: "SOL", Have: b.Native, Need: needNative})
	}
	if b.Token < needToken {
		short = append(short, sdkerrors.Shortfall{Asset: "NOS", Have: b.Token, Need: needToken})
	}
	if len(short) > 0 {
		wallet := c.signer.PublicKey().String()
		c.logger.Warn("Preflight failed", zap.String("wallet", wallet), zap.Int("shortfalls", len(short)))
		return b, sdkerrors.NewInsufficientBalanceError(wallet, short)
	}
	return b, nil
}

// submit signs, sends and confirms tx. A transaction the node refused is
// returned as a CodeChainError. Once the transaction has been sent, a lost
// connection or a missing confirmation yields an in-flight TransportError
// carrying the signature.
func (c *Controller) submit(ctx context.Context, op string, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.signer.SignTransaction(tx)
	if err != nil {
		if sdkerrors.IsSigning(err) {
			return solana.Signature{}, err
		}
		return solana.Signature{}, sdkerrors.NewSigningError(op, err)
	}

	if _, err := c.chain.Send(ctx, tx); err != nil {
		if sdkerrors.GetErrorCode(err) == sdkerrors.CodeChainError {
			return solana.Signature{}, fmt.Errorf("%s: %w", op, err)
		}
		var terr *sdkerrors.TransportError
		if errors.As(err, &terr) {
			return sig, terr.MarkInFlight(sig.String())
		}
		return sig, sdkerrors.NewTransportError("send", op, err).MarkInFlight(sig.String())
	}

	if err := c.chain.Confirm(ctx, sig); err != nil {
		var failed *chain.TxFailedError
		if errors.As(err, &failed) {
			return sig, sdkerrors.NewDeploymentError(sdkerrors.CodeChainError, op+": "+err.Error(), err)
		}
		return sig, sdkerrors.NewTransportError("confirm", op, err).MarkInFlight(sig.String())
	}

	c.logger.Info("Transaction confirmed", zap.String("op", op), zap.String("signature", sig.String()))
	return sig, nil
}

func (c *Controller) fail(v *Vault, op string, err error) error {
	if terr := v.transition(StateFailed, op+": "+sdkerrors.GetErrorMessage(err)); terr != nil {
		c.logger.Debug("State not updated", zap.String("vault", v.Address()), zap.Error(terr))
	}
	return err
}

func wrapStep(step string, err error) error {
	return fmt.Errorf("%s: %w", step, err)
}
