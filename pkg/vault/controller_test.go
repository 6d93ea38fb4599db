package vault

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/auth"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/chain"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/client"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments/deploymentstest"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

type harness struct {
	manager     *deploymentstest.Manager
	deployments *deployments.Client
	chain       *fakeChain
	signer      *auth.Signer
	controller  *Controller
	vault       solana.PublicKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	signer, err := auth.NewSigner(auth.RawSecret(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{5}, 32))))
	require.NoError(t, err)

	m := deploymentstest.NewManager()
	t.Cleanup(m.Close)
	session, err := client.NewSession(client.DefaultSessionConfig(m.URL), auth.NewHeaderBuilder(signer), nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	dc := deployments.NewClient(session, nil, deployments.DefaultCacheTTLs(), nil)

	fc := newFakeChain()
	fc.set(signer.PublicKey(), 50_000_000, 10_000_000)

	cfg := DefaultConfig()
	cfg.StartRetryBackoff = 10 * time.Millisecond

	return &harness{
		manager:     m,
		deployments: dc,
		chain:       fc,
		signer:      signer,
		controller:  NewController(dc, fc, signer, cfg, clock.New(), nil),
		vault:       solana.NewWallet().PublicKey(),
	}
}

func TestUpdateBalance(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 12_000_000, 0)

	b, err := h.controller.UpdateBalance(context.Background(), h.vault.String())
	require.NoError(t, err)
	assert.Equal(t, Balances{Native: 12_000_000}, b)
	assert.Equal(t, StatePartiallyFunded, h.controller.Vault(h.vault.String()).State())

	_, err = h.controller.UpdateBalance(context.Background(), "not-a-vault")
	assert.True(t, sdkerrors.IsValidation(err))
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name   string
		native uint64
		token  uint64
		short  []string
	}{
		{"enough", 12_000_000, 3_000_000, nil},
		{"no sol", 11_999_999, 3_000_000, []string{"SOL"}},
		{"no nos", 12_000_000, 0, []string{"NOS"}},
		{"neither", 0, 0, []string{"SOL", "NOS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.chain.set(h.signer.PublicKey(), tt.native, tt.token)

			_, err := h.controller.Preflight(context.Background())
			if tt.short == nil {
				require.NoError(t, err)
				return
			}
			var ibe *sdkerrors.InsufficientBalanceError
			require.ErrorAs(t, err, &ibe)
			require.Len(t, ibe.Shortfalls, len(tt.short))
			for i, asset := range tt.short {
				assert.Equal(t, asset, ibe.Shortfalls[i].Asset)
			}
			assert.Equal(t, sdkerrors.OutcomeNothingHappened, sdkerrors.Classify(err))
		})
	}
}

func TestTopupPreflightSendsNothing(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.signer.PublicKey(), 1_000, 0)

	_, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(5_000_000)})
	require.True(t, sdkerrors.IsInsufficientBalance(err), "got %v", err)
	assert.Equal(t, 0, h.chain.sentCount())
	assert.Equal(t, 0, h.manager.TotalRequests())
}

func TestTopupRequestedAmountCounts(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(80_000_000)})
	var ibe *sdkerrors.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, uint64(80_000_000), ibe.Shortfalls[0].Need)
}

func TestTopupValidation(t *testing.T) {
	h := newHarness(t)
	for _, a := range []Amounts{{}, {Native: Amount(0)}, {Token: Amount(0)}} {
		_, err := h.controller.Topup(context.Background(), h.vault.String(), a)
		assert.True(t, sdkerrors.IsValidation(err), "amounts %+v: got %v", a, err)
	}
	assert.Equal(t, 0, h.chain.sentCount())
}

func TestTopup(t *testing.T) {
	h := newHarness(t)
	h.chain.onSend = func(tx *solana.Transaction) {
		h.chain.set(h.vault, 12_000_000, 3_000_000)
	}

	res, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{
		Native: Amount(12_000_000),
		Token:  Amount(3_000_000),
	})
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, res.Native)
	assert.NotEqual(t, solana.Signature{}, res.Token)
	require.Equal(t, 2, h.chain.sentCount())

	// The vault had no token account, so the token transfer creates it.
	assert.Len(t, h.chain.sent[0].Message.Instructions, 1)
	assert.Len(t, h.chain.sent[1].Message.Instructions, 2)
	for _, tx := range h.chain.sent {
		assert.True(t, tx.Message.AccountKeys[0].Equals(h.signer.PublicKey()))
		assert.True(t, auth.Verify(h.signer.PublicKey(), mustMessage(t, tx), tx.Signatures[0][:]))
	}
	assert.Equal(t, StateFunded, h.controller.Vault(h.vault.String()).State())
}

func TestTopupTokenOnly(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 0, 1)

	res, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Token: Amount(3_000_000)})
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{}, res.Native)
	require.Equal(t, 1, h.chain.sentCount())
	assert.Len(t, h.chain.sent[0].Message.Instructions, 1)
}

func TestTopupSendFailureIsInFlight(t *testing.T) {
	h := newHarness(t)
	h.chain.sendErr = errConnReset

	res, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(12_000_000), Token: Amount(3_000_000)})
	var te *sdkerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.InFlight)
	assert.NotEmpty(t, te.Signature)
	assert.Equal(t, sdkerrors.OutcomeMaybeSubmitted, sdkerrors.Classify(err))
	assert.Equal(t, solana.Signature{}, res.Native)
	assert.Equal(t, 1, h.chain.sentCount())
	assert.Equal(t, StateFailed, h.controller.Vault(h.vault.String()).State())
}

func TestTopupRefusedByNodeWasNotSubmitted(t *testing.T) {
	h := newHarness(t)
	h.chain.sendErr = sdkerrors.NewDeploymentError(sdkerrors.CodeChainError,
		"sendTransaction rejected (-32002): Transaction simulation failed", errors.New("simulation failed"))

	res, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(1000)})
	require.Error(t, err)
	assert.False(t, sdkerrors.IsTransport(err))
	assert.Equal(t, sdkerrors.CodeChainError, sdkerrors.GetErrorCode(err))
	assert.Equal(t, sdkerrors.OutcomeRejected, sdkerrors.Classify(err))
	assert.Equal(t, solana.Signature{}, res.Native)
}

func TestTopupTransportErrorNotWrappedTwice(t *testing.T) {
	h := newHarness(t)
	h.chain.sendErr = sdkerrors.NewTransportError("sendTransaction", "http://rpc.invalid", errConnReset)

	_, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(1000)})
	var te *sdkerrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.InFlight)
	assert.NotEmpty(t, te.Signature)
	assert.Equal(t, "sendTransaction", te.Method)
	assert.Equal(t, sdkerrors.OutcomeMaybeSubmitted, sdkerrors.Classify(err))
}

func TestTopupConfirmTimeoutIsInFlight(t *testing.T) {
	h := newHarness(t)
	h.chain.confirmErr = sdkerrors.NewTimeoutError("confirm", "60s")

	_, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(12_000_000)})
	assert.Equal(t, sdkerrors.OutcomeMaybeSubmitted, sdkerrors.Classify(err))
}

func TestTopupLandedButFailed(t *testing.T) {
	h := newHarness(t)
	h.chain.confirmErr = &chain.TxFailedError{Reason: "custom program error: 0x1"}

	_, err := h.controller.Topup(context.Background(), h.vault.String(), Amounts{Native: Amount(12_000_000)})
	assert.Equal(t, sdkerrors.CodeChainError, sdkerrors.GetErrorCode(err))
	assert.Equal(t, sdkerrors.OutcomeRejected, sdkerrors.Classify(err))
}

// withdrawTx builds what the manager returns: the wallet pays fees and the
// vault authority has already signed.
func withdrawTx(t *testing.T, wallet solana.PublicKey) string {
	t.Helper()
	authority := solana.NewWallet()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(12_000_000, authority.PublicKey(), wallet).Build()},
		solana.Hash{3},
		solana.TransactionPayer(wallet),
	)
	require.NoError(t, err)
	require.Equal(t, uint8(2), tx.Message.Header.NumRequiredSignatures)

	msg := mustMessage(t, tx)
	authSig, err := authority.PrivateKey.Sign(msg)
	require.NoError(t, err)
	tx.Signatures = []solana.Signature{{}, authSig}

	encoded, err := chain.EncodeTransaction(tx)
	require.NoError(t, err)
	return encoded
}

func mustMessage(t *testing.T, tx *solana.Transaction) []byte {
	t.Helper()
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	return msg
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 12_000_000, 3_000_000)
	h.manager.WithdrawTx = withdrawTx(t, h.signer.PublicKey())

	sig, err := h.controller.Withdraw(context.Background(), h.vault.String())
	require.NoError(t, err)

	require.Equal(t, 1, h.chain.sentCount())
	sent := h.chain.sent[0]
	assert.Equal(t, sig, sent.Signatures[0])
	assert.NotEqual(t, solana.Signature{}, sent.Signatures[1], "authority signature must be kept")
	assert.True(t, auth.Verify(h.signer.PublicKey(), mustMessage(t, sent), sig[:]))

	v := h.controller.Vault(h.vault.String())
	assert.Equal(t, StateWithdrawn, v.State())
	var states []State
	for _, tr := range v.History() {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateFunded, StateWithdrawing, StateWithdrawn}, states)
	assert.Equal(t, 1, h.manager.Requests("POST /api/vault/"+h.vault.String()+"/withdraw"))
}

func TestWithdrawMissingTokenAccount(t *testing.T) {
	t.Run("named by server", func(t *testing.T) {
		h := newHarness(t)
		h.chain.set(h.vault, 12_000_000, 0)
		h.manager.WithdrawError = "Could not find vault token account"

		_, err := h.controller.Withdraw(context.Background(), h.vault.String())
		var we *sdkerrors.WithdrawalError
		require.ErrorAs(t, err, &we)
		assert.Equal(t, sdkerrors.ReasonMissingTokenAccount, we.Reason)
		assert.True(t, sdkerrors.IsMissingTokenAccount(err))

		apiErr, ok := sdkerrors.AsAPIError(err)
		require.True(t, ok, "server context must be kept")
		assert.Equal(t, 500, apiErr.StatusCode)
		assert.Equal(t, StateFailed, h.controller.Vault(h.vault.String()).State())
		assert.Equal(t, 0, h.chain.sentCount())
	})

	t.Run("generic refusal with no token account", func(t *testing.T) {
		h := newHarness(t)
		h.chain.set(h.vault, 12_000_000, 0)
		h.manager.WithdrawError = "Internal Server Error"

		_, err := h.controller.Withdraw(context.Background(), h.vault.String())
		assert.True(t, sdkerrors.IsMissingTokenAccount(err), "got %v", err)
	})
}

func TestWithdrawBuildRejected(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 12_000_000, 3_000_000)
	h.manager.WithdrawError = "Internal Server Error"

	_, err := h.controller.Withdraw(context.Background(), h.vault.String())
	var we *sdkerrors.WithdrawalError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, sdkerrors.ReasonBuildRejected, we.Reason)
	assert.Equal(t, sdkerrors.OutcomeRejected, sdkerrors.Classify(err))
}

func TestWithdrawMalformed(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 12_000_000, 3_000_000)

	h.manager.WithdrawTx = "AQID"
	_, err := h.controller.Withdraw(context.Background(), h.vault.String())
	var we *sdkerrors.WithdrawalError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, sdkerrors.ReasonMalformedTransaction, we.Reason)

	// A transaction the wallet is not asked to sign.
	h.manager.WithdrawTx = withdrawTx(t, solana.NewWallet().PublicKey())
	_, err = h.controller.Withdraw(context.Background(), h.vault.String())
	require.ErrorAs(t, err, &we)
	assert.Equal(t, sdkerrors.ReasonMalformedTransaction, we.Reason)
	assert.Equal(t, 0, h.chain.sentCount())
}

func TestWithdrawSubmissionFailed(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.vault, 12_000_000, 3_000_000)
	h.manager.WithdrawTx = withdrawTx(t, h.signer.PublicKey())
	h.chain.confirmErr = &chain.TxFailedError{Reason: "blockhash not found"}

	_, err := h.controller.Withdraw(context.Background(), h.vault.String())
	var we *sdkerrors.WithdrawalError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, sdkerrors.ReasonSubmissionFailed, we.Reason)

	// Each attempt asks the manager for a fresh transaction.
	h.chain.confirmErr = nil
	_, err = h.controller.Withdraw(context.Background(), h.vault.String())
	require.NoError(t, err)
	assert.Equal(t, 2, h.manager.Requests("POST /api/vault/"+h.vault.String()+"/withdraw"))
}

func TestWithdrawEmptyVault(t *testing.T) {
	h := newHarness(t)

	_, err := h.controller.Withdraw(context.Background(), h.vault.String())
	assert.True(t, errors.Is(err, sdkerrors.ErrInvalidTransition), "got %v", err)
	assert.Equal(t, sdkerrors.OutcomeNothingHappened, sdkerrors.Classify(err))
	assert.Equal(t, 0, h.manager.TotalRequests())
}

func createDeployment(t *testing.T, h *harness) *deployments.Deployment {
	t.Helper()
	d, err := h.deployments.Create(context.Background(), deployments.CreateRequest{
		Name:               "stable-diffusion",
		Market:             "97G9NnvBDQ2WpKu6fasoMsAKmfj63C9rhysJnkeWodAf",
		IPFSDefinitionHash: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		Replicas:           1,
		Timeout:            3600,
		Strategy:           deployments.StrategySimple,
	})
	require.NoError(t, err)
	return d
}

func TestStartFundedRetriesOnce(t *testing.T) {
	h := newHarness(t)
	d := createDeployment(t, h)
	h.manager.StartFailures = 1

	out, err := h.controller.StartFunded(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, deployments.StatusRunning, out.Status)
	assert.Equal(t, 2, h.manager.Requests("POST /api/deployment/"+d.ID+"/start"))
}

func TestStartFundedSurfacesSecondFailure(t *testing.T) {
	h := newHarness(t)
	d := createDeployment(t, h)
	h.manager.StartFailures = 5

	_, err := h.controller.StartFunded(context.Background(), d.ID)
	apiErr, ok := sdkerrors.AsAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 402, apiErr.StatusCode)
	assert.Equal(t, 2, h.manager.Requests("POST /api/deployment/"+d.ID+"/start"))
}

func TestStartFundedNoRetryOnOtherErrors(t *testing.T) {
	h := newHarness(t)
	_, err := h.controller.StartFunded(context.Background(), "missing")
	assert.True(t, sdkerrors.IsNotFound(err))
	assert.Equal(t, 1, h.manager.Requests("POST /api/deployment/missing/start"))
}

func TestStartFundedPreflight(t *testing.T) {
	h := newHarness(t)
	h.chain.set(h.signer.PublicKey(), 0, 0)

	_, err := h.controller.StartFunded(context.Background(), "dep-1")
	assert.True(t, sdkerrors.IsInsufficientBalance(err))
	assert.Equal(t, 0, h.manager.TotalRequests())
}

func TestStartRetryHonoursContext(t *testing.T) {
	h := newHarness(t)
	d := createDeployment(t, h)
	h.manager.StartFailures = 1

	mock := clock.NewMock()
	cfg := DefaultConfig()
	c := NewController(h.deployments, h.chain, h.signer, cfg, mock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.StartFunded(ctx, d.ID)
		done <- err
	}()

	// The mock clock never reaches the backoff, so only cancel ends the wait.
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("StartFunded did not return after cancel")
	}
	assert.Equal(t, 1, h.manager.Requests("POST /api/deployment/"+d.ID+"/start"))
}

func TestFundAndStart(t *testing.T) {
	h := newHarness(t)
	d := createDeployment(t, h)
	vault := solana.MustPublicKeyFromBase58(d.Vault)
	h.chain.onSend = func(tx *solana.Transaction) {
		// Funding drains the wallet below the preflight minimum; the start
		// must not preflight again.
		h.chain.set(h.signer.PublicKey(), 1, 1)
		h.chain.set(vault, 12_000_000, 3_000_000)
	}
	h.manager.StartFailures = 1

	res, err := h.controller.FundAndStart(context.Background(), d, Amounts{
		Native: Amount(12_000_000),
		Token:  Amount(3_000_000),
	})
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, res.Topup.Native)
	assert.Equal(t, deployments.StatusRunning, res.Status.Status)
	assert.Equal(t, StateFunded, h.controller.Vault(d.Vault).State())

	got, err := h.deployments.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, deployments.StatusRunning, got.Status)
}

func TestFundAndStartStopsOnFundingFailure(t *testing.T) {
	h := newHarness(t)
	d := createDeployment(t, h)
	h.chain.sendErr = errConnReset

	res, err := h.controller.FundAndStart(context.Background(), d, Amounts{Native: Amount(12_000_000)})
	require.Error(t, err)
	assert.Nil(t, res.Status)
	assert.Equal(t, 0, h.manager.Requests("POST /api/deployment/"+d.ID+"/start"))
}

func TestIsFundingError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"payment required", 402, `{"error":"Payment required"}`, true},
		{"insufficient funds", 400, `{"error":"Insufficient funds in vault"}`, true},
		{"vault not funded", 400, `{"message":"Vault is not funded"}`, true},
		{"vault not found", 404, `{"error":"vault not found"}`, false},
		{"refund pending", 409, `{"error":"refund pending"}`, false},
		{"archived", 400, `{"error":"Deployment is archived"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sdkerrors.FromResponse("POST", "/api/deployment/d1/start", tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, isFundingError(err))
		})
	}
	assert.False(t, isFundingError(errConnReset))
}
