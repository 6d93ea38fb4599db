package vault

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
)

// fakeChain is an in-memory chain. Balances are set by the test; sent
// transactions are recorded and optionally applied by onSend.
type fakeChain struct {
	mu            sync.Mutex
	native        map[solana.PublicKey]uint64
	token         map[solana.PublicKey]uint64
	tokenAccounts map[solana.PublicKey]bool
	sent          []*solana.Transaction
	reads         int

	sendErr    error
	confirmErr error
	onSend     func(tx *solana.Transaction)
}

var _ chain.Chain = (*fakeChain)(nil)

func newFakeChain() *fakeChain {
	return &fakeChain{
		native:        make(map[solana.PublicKey]uint64),
		token:         make(map[solana.PublicKey]uint64),
		tokenAccounts: make(map[solana.PublicKey]bool),
	}
}

func (f *fakeChain) set(owner solana.PublicKey, native, token uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.native[owner] = native
	f.token[owner] = token
	if token > 0 {
		f.tokenAccounts[owner] = true
	}
}

func (f *fakeChain) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChain) NativeBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.native[owner], nil
}

func (f *fakeChain) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.token[owner], nil
}

func (f *fakeChain) TokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenAccounts[owner], nil
}

func (f *fakeChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{42}, nil
}

func (f *fakeChain) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	f.sent = append(f.sent, tx)
	err, hook := f.sendErr, f.onSend
	f.mu.Unlock()
	if err != nil {
		return solana.Signature{}, err
	}
	if hook != nil {
		hook(tx)
	}
	return tx.Signatures[0], nil
}

func (f *fakeChain) Confirm(ctx context.Context, sig solana.Signature) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmErr
}

func (f *fakeChain) Close() error {
	return nil
}

var errConnReset = errors.New("connection reset by peer")
