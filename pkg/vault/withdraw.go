package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// PendingTransaction is a server-built transaction awaiting the wallet's
// signature. It is used for one submission only.
type PendingTransaction struct {
	Tx              *solana.Transaction
	FeePayer        solana.PublicKey
	RequiredSigners []solana.PublicKey
}

// DecodePending parses a base64 transaction from the manager.
func DecodePending(encoded string) (*PendingTransaction, error) {
	tx, err := chain.DecodeTransaction(encoded)
	if err != nil {
		return nil, err
	}
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n == 0 || n > len(tx.Message.AccountKeys) {
		return nil, fmt.Errorf("transaction declares %d signers for %d accounts", n, len(tx.Message.AccountKeys))
	}
	return &PendingTransaction{
		Tx:              tx,
		FeePayer:        tx.Message.AccountKeys[0],
		RequiredSigners: append([]solana.PublicKey(nil), tx.Message.AccountKeys[:n]...),
	}, nil
}

// RequiresSigner reports whether pk must sign.
func (p *PendingTransaction) RequiresSigner(pk solana.PublicKey) bool {
	for _, s := range p.RequiredSigners {
		if s.Equals(pk) {
			return true
		}
	}
	return false
}

var tokenAccountHints = []string{
	"token account",
	"could not find account",
	"accountnotfound",
	"tokenaccountnotfounderror",
}

func mentionsTokenAccount(msg string) bool {
	msg = strings.ToLower(msg)
	for _, h := range tokenAccountHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}

// Withdraw moves the vault's whole native and token balances back to the
// wallet. The manager builds the transaction, the wallet co-signs and
// submits it. Each call fetches a fresh transaction.
func (c *Controller) Withdraw(ctx context.Context, vault string) (solana.Signature, error) {
	pk, err := parseVault(vault)
	if err != nil {
		return solana.Signature{}, err
	}
	if _, err := c.UpdateBalance(ctx, vault); err != nil {
		return solana.Signature{}, err
	}

	v := c.Vault(vault)
	if err := v.transition(StateWithdrawing, "withdraw requested"); err != nil {
		return solana.Signature{}, sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedState,
			fmt.Sprintf("vault %s is %s, nothing to withdraw", vault, v.State()), err)
	}

	built, err := c.manager.BuildWithdrawal(ctx, vault, deployments.WithdrawRequest{})
	if err != nil {
		return solana.Signature{}, c.fail(v, "withdraw", c.buildFailure(ctx, vault, pk, err))
	}

	pending, err := DecodePending(built.Transaction)
	if err != nil {
		return solana.Signature{}, c.fail(v, "withdraw", sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonMalformedTransaction, err))
	}
	if !pending.RequiresSigner(c.signer.PublicKey()) {
		err := fmt.Errorf("wallet %s is not a required signer", c.signer.PublicKey())
		return solana.Signature{}, c.fail(v, "withdraw", sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonMalformedTransaction, err))
	}

	sig, err := c.submit(ctx, "withdraw", pending.Tx)
	if err != nil {
		if sdkerrors.GetErrorCode(err) == sdkerrors.CodeChainError {
			err = sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonSubmissionFailed, err)
		}
		return sig, c.fail(v, "withdraw", err)
	}

	if err := v.transition(StateWithdrawn, "withdrawal confirmed"); err != nil {
		return sig, err
	}
	return sig, nil
}

// buildFailure names a refusal to build the withdrawal. A vault that never
// received the token has no token account, so there is nothing the server
// can move it from.
func (c *Controller) buildFailure(ctx context.Context, vault string, pk solana.PublicKey, err error) error {
	apiErr, ok := sdkerrors.AsAPIError(err)
	if !ok {
		return err
	}
	if mentionsTokenAccount(apiErr.Message()) {
		return sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonMissingTokenAccount, err)
	}
	if exists, lookupErr := c.chain.TokenAccountExists(ctx, pk, c.cfg.Mint); lookupErr == nil && !exists {
		return sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonMissingTokenAccount, err)
	}
	return sdkerrors.NewWithdrawalError(vault, sdkerrors.ReasonBuildRejected, err)
}
