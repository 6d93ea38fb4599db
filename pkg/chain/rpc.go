package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Config holds RPC connection settings.
type Config struct {
	URL            string
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration
}

// DefaultConfig returns settings for url with a 60s confirmation window
// polled every 2s.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		ConfirmTimeout: 60 * time.Second,
		ConfirmPoll:    2 * time.Second,
	}
}

// RPC implements Chain over a Solana JSON-RPC endpoint.
type RPC struct {
	cfg    Config
	client *rpc.Client
	logger *zap.Logger
}

var _ Chain = (*RPC)(nil)

// NewRPC creates a Chain backed by cfg.URL.
func NewRPC(cfg Config, logger *zap.Logger) (*RPC, error) {
	if cfg.URL == "" {
		return nil, sdkerrors.NewValidationError("rpc_url", "is required", nil)
	}
	if cfg.ConfirmTimeout <= 0 || cfg.ConfirmPoll <= 0 {
		return nil, sdkerrors.NewValidationError("confirm", "timeout and poll interval must be positive", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RPC{cfg: cfg, client: rpc.New(cfg.URL), logger: logger}, nil
}

func (r *RPC) transportErr(method string, err error) error {
	return sdkerrors.NewTransportError(method, r.cfg.URL, err)
}

// NativeBalance returns the lamport balance of owner.
func (r *RPC) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := r.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, r.transportErr("getBalance", err)
	}
	return out.Value, nil
}

// TokenBalance returns owner's balance of mint in base units.
func (r *RPC) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, sdkerrors.NewDeploymentError(sdkerrors.CodeInternal, "derive token account", err)
	}
	exists, err := r.accountExists(ctx, ata)
	if err != nil || !exists {
		return 0, err
	}
	out, err := r.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, r.transportErr("getTokenAccountBalance", err)
	}
	if out.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, sdkerrors.NewDeploymentError(sdkerrors.CodeSerializationError,
			fmt.Sprintf("token amount %q is not an integer", out.Value.Amount), err)
	}
	return amount, nil
}

// TokenAccountExists reports whether owner's associated token account for
// mint exists.
func (r *RPC) TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, sdkerrors.NewDeploymentError(sdkerrors.CodeInternal, "derive token account", err)
	}
	return r.accountExists(ctx, ata)
}

func (r *RPC) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := r.client.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, r.transportErr("getAccountInfo", err)
	}
	return true, nil
}

// LatestBlockhash returns a recent blockhash for new transactions.
func (r *RPC) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := r.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, r.transportErr("getLatestBlockhash", err)
	}
	return out.Value.Blockhash, nil
}

// Send submits tx. A JSON-RPC error from the node means the transaction was
// refused before broadcast and yields a CodeChainError. Any other failure
// is a TransportError; callers decide whether the transaction may have
// been accepted.
func (r *RPC) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := r.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentProcessed,
	})
	if err != nil {
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			return solana.Signature{}, sdkerrors.NewDeploymentError(sdkerrors.CodeChainError,
				fmt.Sprintf("sendTransaction rejected (%d): %s", rpcErr.Code, rpcErr.Message), err)
		}
		return solana.Signature{}, r.transportErr("sendTransaction", err)
	}
	r.logger.Debug("Transaction sent", zap.String("signature", sig.String()))
	return sig, nil
}

var errPending = errors.New("transaction not yet confirmed")

// Confirm polls the signature status until it reaches confirmed
// commitment, the transaction fails, or ConfirmTimeout passes.
func (r *RPC) Confirm(ctx context.Context, sig solana.Signature) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		out, err := r.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			r.logger.Debug("Signature status lookup failed", zap.String("signature", sig.String()), zap.Error(err))
			return struct{}{}, errPending
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			return struct{}{}, errPending
		}
		st := out.Value[0]
		if st.Err != nil {
			return struct{}{}, backoff.Permanent(&TxFailedError{Signature: sig, Reason: fmt.Sprint(st.Err)})
		}
		switch st.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return struct{}{}, nil
		}
		return struct{}{}, errPending
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(r.cfg.ConfirmPoll)),
		backoff.WithMaxElapsedTime(r.cfg.ConfirmTimeout),
	)

	var failed *TxFailedError
	switch {
	case err == nil:
		r.logger.Debug("Transaction confirmed", zap.String("signature", sig.String()))
		return nil
	case errors.As(err, &failed):
		return failed
	case errors.Is(err, errPending):
		return sdkerrors.NewTimeoutError("confirm "+sig.String(), r.cfg.ConfirmTimeout.String())
	default:
		return err
	}
}

// Close releases the RPC client.
func (r *RPC) Close() error {
	return r.client.Close()
}
