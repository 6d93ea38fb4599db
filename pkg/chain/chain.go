// Package chain reads balances and moves funds on Solana.
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = solana.LAMPORTS_PER_SOL

// Chain is the subset of the Solana RPC surface the SDK depends on.
type Chain interface {
	// NativeBalance returns the lamport balance of owner.
	NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	// TokenBalance returns owner's balance of mint in base units. A missing
	// token account counts as zero.
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	// TokenAccountExists reports whether owner's associated token account
	// for mint exists.
	TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	// Send submits a signed transaction.
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	// Confirm waits until sig reaches confirmed commitment. A transaction
	// that landed with an error yields *TxFailedError.
	Confirm(ctx context.Context, sig solana.Signature) error
	Close() error
}

// TxFailedError reports a transaction that landed on chain but failed.
type TxFailedError struct {
	Signature solana.Signature
	Reason    string
}

func (e *TxFailedError) Error() string {
	return "transaction " + e.Signature.String() + " failed: " + e.Reason
}
