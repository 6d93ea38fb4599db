package vault

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

var fundingHints = []string{"insufficient", "not funded", "not enough"}

// isFundingError reports whether the manager refused because the vault is
// not (yet) funded.
func isFundingError(err error) bool {
	apiErr, ok := sdkerrors.AsAPIError(err)
	if !ok {
		return false
	}
	if apiErr.StatusCode == http.StatusPaymentRequired {
		return true
	}
	msg := strings.ToLower(apiErr.Message())
	for _, h := range fundingHints {
		if strings.Contains(msg, h) {
			return true
		}
	}
	return false
}

// StartFunded checks the wallet balance, then starts the deployment. A
// funding refusal is retried once after StartRetryBackoff, since a vault
// funded moments ago may not be visible to the manager yet.
func (c *Controller) StartFunded(ctx context.Context, id string) (*deployments.StatusUpdate, error) {
	if _, err := c.Preflight(ctx); err != nil {
		return nil, err
	}
	return c.startWithRetry(ctx, id)
}

func (c *Controller) startWithRetry(ctx context.Context, id string) (*deployments.StatusUpdate, error) {
	out, err := c.manager.Start(ctx, id)
	if err == nil || !isFundingError(err) {
		return out, err
	}

	c.logger.Info("Start refused for funding, retrying once",
		zap.String("deployment", id),
		zap.Duration("backoff", c.cfg.StartRetryBackoff),
		zap.Error(err),
	)
	t := c.clock.Timer(c.cfg.StartRetryBackoff)
	select {
	case <-ctx.Done():
		t.Stop()
		return nil, ctx.Err()
	case <-t.C:
	}
	return c.manager.Start(ctx, id)
}

// FundAndStartResult reports both halves of FundAndStart.
type FundAndStartResult struct {
	Topup  *TopupResult
	Status *deployments.StatusUpdate
}

// FundAndStart tops up the deployment's vault and starts it. The top-up's
// preflight covers the start.
func (c *Controller) FundAndStart(ctx context.Context, d *deployments.Deployment, amounts Amounts) (*FundAndStartResult, error) {
	if d == nil {
		return nil, sdkerrors.NewValidationError("deployment", "is required", nil)
	}

	res := &FundAndStartResult{}
	topup, err := c.Topup(ctx, d.Vault, amounts)
	res.Topup = topup
	if err != nil {
		return res, wrapStep("fund", err)
	}

	status, err := c.startWithRetry(ctx, d.ID)
	res.Status = status
	if err != nil {
		return res, wrapStep("start", err)
	}
	return res, nil
}
