package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// ErrNotRequiredSigner is returned when a transaction does not list the
// wallet among its required signers.
var ErrNotRequiredSigner = errors.New("wallet is not a required signer of the transaction")

// MessageSigner signs arbitrary messages with the wallet key.
type MessageSigner interface {
	Sign(message []byte) ([]byte, error)
	PublicKey() solana.PublicKey
}

// Signer holds the wallet key for the lifetime of a client.
type Signer struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

// NewSigner resolves the credential and builds a signer.
func NewSigner(cred Credential) (*Signer, error) {
	key, err := cred.resolve()
	if err != nil {
		return nil, err
	}
	pk := solana.PrivateKey(key)
	return &Signer{key: pk, pub: pk.PublicKey()}, nil
}

// PublicKey returns the wallet public key.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.pub
}

// Address returns the base58 wallet address.
func (s *Signer) Address() string {
	return s.pub.String()
}

// String never includes the secret key.
func (s *Signer) String() string {
	return fmt.Sprintf("Signer(%s)", s.pub)
}

// Sign returns the 64-byte ed25519 signature of message. Signing is
// deterministic and does not modify message.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	if len(s.key) != ed25519.PrivateKeySize {
		return nil, sdkerrors.NewSigningError("message", fmt.Errorf("signer has no key"))
	}
	sig, err := s.key.Sign(message)
	if err != nil {
		return nil, sdkerrors.NewSigningError("message", err)
	}
	return sig[:], nil
}

// SignTransaction adds the wallet's signature to tx in place. The wallet must
// be one of the transaction's required signers; other signature slots are
// left untouched.
func (s *Signer) SignTransaction(tx *solana.Transaction) (solana.Signature, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	idx := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(s.pub) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return solana.Signature{}, sdkerrors.NewSigningError("transaction", ErrNotRequiredSigner)
	}

	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return solana.Signature{}, sdkerrors.NewSigningError("transaction", err)
	}
	sig, err := s.key.Sign(payload)
	if err != nil {
		return solana.Signature{}, sdkerrors.NewSigningError("transaction", err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[idx] = sig
	return sig, nil
}

// Verify checks an ed25519 signature against a public key.
func Verify(pub solana.PublicKey, message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature)
}
