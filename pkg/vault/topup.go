package vault

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Amounts selects what a top-up moves, in lamports and token base units.
// A nil field skips that asset.
type Amounts struct {
	Native *uint64
	Token  *uint64
}

// Amount returns a pointer to n for use in Amounts.
func Amount(n uint64) *uint64 {
	return &n
}

// TopupResult holds the signature of each confirmed transfer. A zero
// signature means the asset was not requested or was not reached.
type TopupResult struct {
	Native solana.Signature
	Token  solana.Signature
}

func (a Amounts) validate() error {
	if a.Native == nil && a.Token == nil {
		return sdkerrors.NewValidationError("amounts", "at least one of native or token is required", nil)
	}
	if a.Native != nil && *a.Native == 0 {
		return sdkerrors.NewValidationError("native", "must be greater than 0", *a.Native)
	}
	if a.Token != nil && *a.Token == 0 {
		return sdkerrors.NewValidationError("token", "must be greater than 0", *a.Token)
	}
	return nil
}

// Topup transfers the requested amounts from the wallet to the vault. The
// native and token transfers are separate transactions, each confirmed
// before the next starts; the first failure ends the top-up and the result
// shows which transfers landed. The vault's token account is created when
// missing.
func (c *Controller) Topup(ctx context.Context, vault string, amounts Amounts) (*TopupResult, error) {
	pk, err := parseVault(vault)
	if err != nil {
		return nil, err
	}
	if err := amounts.validate(); err != nil {
		return nil, err
	}
	if _, err := c.preflight(ctx, amounts); err != nil {
		return nil, err
	}

	v := c.Vault(vault)
	wallet := c.signer.PublicKey()
	res := &TopupResult{}

	if amounts.Native != nil {
		sig, err := c.transfer(ctx, "native topup", func(bh solana.Hash) (*solana.Transaction, error) {
			return chain.NativeTransfer(wallet, pk, *amounts.Native, bh)
		})
		if err != nil {
			return res, c.fail(v, "topup", err)
		}
		res.Native = sig
	}

	if amounts.Token != nil {
		exists, err := c.chain.TokenAccountExists(ctx, pk, c.cfg.Mint)
		if err != nil {
			return res, c.fail(v, "topup", err)
		}
		sig, err := c.transfer(ctx, "token topup", func(bh solana.Hash) (*solana.Transaction, error) {
			return chain.TokenTransfer(wallet, pk, c.cfg.Mint, *amounts.Token, !exists, bh)
		})
		if err != nil {
			return res, c.fail(v, "topup", err)
		}
		res.Token = sig
	}

	if _, err := c.UpdateBalance(ctx, vault); err != nil {
		c.logger.Warn("Could not re-read vault balance after topup", zap.String("vault", vault), zap.Error(err))
	}
	return res, nil
}

func (c *Controller) transfer(ctx context.Context, op string, build func(solana.Hash) (*solana.Transaction, error)) (solana.Signature, error) {
	bh, err := c.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := build(bh)
	if err != nil {
		return solana.Signature{}, sdkerrors.NewDeploymentError(sdkerrors.CodeInternal, "build "+op, err)
	}
	return c.submit(ctx, op, tx)
}
