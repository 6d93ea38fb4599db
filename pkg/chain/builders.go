package chain

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// NativeTransfer builds an unsigned SOL transfer paid by from.
func NativeTransfer(from, to solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	return solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		blockhash,
		solana.TransactionPayer(from),
	)
}

// TokenTransfer builds an unsigned SPL token transfer between the
// associated token accounts of from and to. When createDest is set the
// destination account is created first, paid by from.
func TokenTransfer(from, to, mint solana.PublicKey, amount uint64, createDest bool, blockhash solana.Hash) (*solana.Transaction, error) {
	src, _, err := solana.FindAssociatedTokenAddress(from, mint)
	if err != nil {
		return nil, fmt.Errorf("derive source token account: %w", err)
	}
	dst, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, fmt.Errorf("derive destination token account: %w", err)
	}

	ixs := make([]solana.Instruction, 0, 2)
	if createDest {
		ixs = append(ixs, associatedtokenaccount.NewCreateInstruction(from, to, mint).Build())
	}
	ixs = append(ixs, token.NewTransferInstruction(amount, src, dst, from, nil).Build())

	return solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(from))
}

// DecodeTransaction parses a base64 wire transaction.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

// EncodeTransaction serialises tx to base64 wire format.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// ToBaseUnits converts a whole-unit amount to base units with the given
// number of decimals, rounding down.
func ToBaseUnits(amount float64, decimals uint8) uint64 {
	if amount <= 0 {
		return 0
	}
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return uint64(amount*scale + 1e-9)
}

// FromBaseUnits converts base units to whole units.
func FromBaseUnits(amount uint64, decimals uint8) float64 {
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return float64(amount) / scale
}
