package deployments

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cache"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Requester sends one authenticated manager request. *client.Session
// implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

// CacheTTLs sets how long read results are reused. Zero disables caching
// for that read.
type CacheTTLs struct {
	Deployment time.Duration
	List       time.Duration
	Tasks      time.Duration
}

// DefaultCacheTTLs returns the default lifetimes.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Deployment: 60 * time.Second,
		List:       10 * time.Second,
		Tasks:      30 * time.Second,
	}
}

// Client manages deployments through the manager's REST API.
type Client struct {
	session Requester
	cache   *cache.ResultCache
	ttls    CacheTTLs
	logger  *zap.Logger
}

// NewClient creates a deployment client. rc may be nil to disable caching.
func NewClient(session Requester, rc *cache.ResultCache, ttls CacheTTLs, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		session: session,
		cache:   rc,
		ttls:    ttls,
		logger:  logger,
	}
}

func deploymentPath(id string, suffix ...string) string {
	return "/api/deployment/" + strings.Join(append([]string{id}, suffix...), "/")
}

// Create creates a deployment. The request is validated before anything is
// sent.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Deployment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var d Deployment
	err := c.session.Do(ctx, http.MethodPost, "/api/deployment/create", req, &d)
	c.invalidate(cache.AllResources)
	if err != nil {
		return nil, err
	}

	if err := checkCreated(&d, req); err != nil {
		return nil, err
	}

	c.logger.Debug("Deployment created", zap.String("id", d.ID), zap.String("status", string(d.Status)))
	return &d, nil
}

// checkCreated compares the server's record of a new deployment with the
// request that created it.
func checkCreated(d *Deployment, req CreateRequest) error {
	var mismatch string
	switch {
	case d.ID == "":
		mismatch = "no deployment id"
	case d.Status != StatusDraft:
		mismatch = fmt.Sprintf("status %q, expected %s", d.Status, StatusDraft)
	case d.Replicas != req.Replicas:
		mismatch = fmt.Sprintf("%d replicas, expected %d", d.Replicas, req.Replicas)
	case d.Timeout != req.Timeout:
		mismatch = fmt.Sprintf("timeout %d, expected %d", d.Timeout, req.Timeout)
	default:
		return nil
	}
	return sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedState,
		fmt.Sprintf("create deployment %s: server reported %s", req.Name, mismatch), nil)
}

// Get returns one deployment, from cache when fresh.
func (c *Client) Get(ctx context.Context, id string) (*Deployment, error) {
	if err := validateID("deployment_id", id); err != nil {
		return nil, err
	}
	v, err := c.load(cache.NewKey("get", id), id, c.ttls.Deployment, func() (interface{}, error) {
		var d Deployment
		if err := c.session.Do(ctx, http.MethodGet, deploymentPath(id), nil, &d); err != nil {
			return nil, err
		}
		return &d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Deployment).clone(), nil
}

// List returns every deployment owned by the wallet.
func (c *Client) List(ctx context.Context) ([]Deployment, error) {
	v, err := c.load(cache.NewKey("list"), cache.AllResources, c.ttls.List, func() (interface{}, error) {
		var out []Deployment
		if err := c.session.Do(ctx, http.MethodGet, "/api/deployments", nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	list := v.([]Deployment)
	out := make([]Deployment, len(list))
	for i := range list {
		out[i] = *list[i].clone()
	}
	return out, nil
}

// GetTasks returns the scheduled tasks of a deployment.
func (c *Client) GetTasks(ctx context.Context, id string) ([]Task, error) {
	if err := validateID("deployment_id", id); err != nil {
		return nil, err
	}
	v, err := c.load(cache.NewKey("tasks", id), id, c.ttls.Tasks, func() (interface{}, error) {
		var out []Task
		if err := c.session.Do(ctx, http.MethodGet, deploymentPath(id, "tasks"), nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Task(nil), v.([]Task)...), nil
}

// Start asks the manager to start the deployment.
func (c *Client) Start(ctx context.Context, id string) (*StatusUpdate, error) {
	return c.transition(ctx, "start", id, http.MethodPost, deploymentPath(id, "start"), StatusRunning, StatusStarting)
}

// Stop asks the manager to stop the deployment.
func (c *Client) Stop(ctx context.Context, id string) (*StatusUpdate, error) {
	return c.transition(ctx, "stop", id, http.MethodPost, deploymentPath(id, "stop"), StatusStopped, StatusStopping)
}

// Archive archives the deployment. Archived deployments accept no further
// lifecycle operations.
func (c *Client) Archive(ctx context.Context, id string) (*StatusUpdate, error) {
	return c.transition(ctx, "archive", id, http.MethodPatch, deploymentPath(id, "archive"), StatusArchived)
}

func (c *Client) transition(ctx context.Context, op, id, method, path string, want ...Status) (*StatusUpdate, error) {
	if err := validateID("deployment_id", id); err != nil {
		return nil, err
	}

	var out StatusUpdate
	err := c.session.Do(ctx, method, path, nil, &out)
	c.invalidate(id)
	if err != nil {
		return nil, err
	}

	for _, s := range want {
		if out.Status == s {
			c.logger.Debug("Deployment transitioned", zap.String("op", op), zap.String("id", id), zap.String("status", string(out.Status)))
			return &out, nil
		}
	}
	names := make([]string, len(want))
	for i, s := range want {
		names[i] = string(s)
	}
	return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedState,
		fmt.Sprintf("%s deployment %s: server reported status %q, expected %s", op, id, out.Status, strings.Join(names, " or ")), nil)
}

// UpdateReplicaCount sets the number of replicas.
func (c *Client) UpdateReplicaCount(ctx context.Context, id string, replicas int) (*ReplicaUpdate, error) {
	if err := validateID("deployment_id", id); err != nil {
		return nil, err
	}
	if err := validateReplicas(replicas); err != nil {
		return nil, err
	}

	var out ReplicaUpdate
	err := c.session.Do(ctx, http.MethodPatch, deploymentPath(id, "update-replica-count"), replicaRequest{Replicas: replicas}, &out)
	c.invalidate(id)
	if err != nil {
		return nil, err
	}
	if out.Replicas != replicas {
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedState,
			fmt.Sprintf("update replicas of %s: server reported %d, expected %d", id, out.Replicas, replicas), nil)
	}
	return &out, nil
}

// UpdateTimeout sets the job timeout in seconds.
func (c *Client) UpdateTimeout(ctx context.Context, id string, seconds int) (*TimeoutUpdate, error) {
	if err := validateID("deployment_id", id); err != nil {
		return nil, err
	}
	if err := validateTimeout(seconds); err != nil {
		return nil, err
	}

	var out TimeoutUpdate
	err := c.session.Do(ctx, http.MethodPatch, deploymentPath(id, "update-timeout"), timeoutRequest{Timeout: seconds}, &out)
	c.invalidate(id)
	if err != nil {
		return nil, err
	}
	if out.Timeout != seconds {
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeUnexpectedState,
			fmt.Sprintf("update timeout of %s: server reported %d, expected %d", id, out.Timeout, seconds), nil)
	}
	return &out, nil
}

// ListVaults returns the vaults the manager knows for this wallet.
func (c *Client) ListVaults(ctx context.Context) ([]VaultSummary, error) {
	var out []VaultSummary
	if err := c.session.Do(ctx, http.MethodGet, "/api/vaults", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshVaultBalance asks the manager to re-read a vault balance.
func (c *Client) RefreshVaultBalance(ctx context.Context, vault string) (*VaultBalance, error) {
	if err := validateID("vault", vault); err != nil {
		return nil, err
	}
	var out VaultBalance
	if err := c.session.Do(ctx, http.MethodPatch, "/api/vault/"+vault+"/update-balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuildWithdrawal asks the manager for an unsigned transaction moving the
// vault's funds back to the wallet.
func (c *Client) BuildWithdrawal(ctx context.Context, vault string, req WithdrawRequest) (*WithdrawTransaction, error) {
	if err := validateID("vault", vault); err != nil {
		return nil, err
	}
	var out WithdrawTransaction
	if err := c.session.Do(ctx, http.MethodPost, "/api/vault/"+vault+"/withdraw", req, &out); err != nil {
		return nil, err
	}
	if out.Transaction == "" {
		return nil, sdkerrors.NewDeploymentError(sdkerrors.CodeSerializationError, "withdraw response has no transaction", nil)
	}
	return &out, nil
}

// Invalidate drops cached reads for a deployment and all list results.
func (c *Client) Invalidate(id string) {
	c.invalidate(id)
}

func (c *Client) invalidate(id string) {
	if c.cache != nil {
		c.cache.Invalidate(id)
	}
}

func (c *Client) load(key cache.Key, resource string, ttl time.Duration, fetch func() (interface{}, error)) (interface{}, error) {
	if c.cache == nil {
		return fetch()
	}
	return c.cache.GetOrLoad(key, resource, ttl, fetch)
}

func (d *Deployment) clone() *Deployment {
	out := *d
	out.Jobs = append([]Job(nil), d.Jobs...)
	out.Events = append([]Event(nil), d.Events...)
	return &out
}
