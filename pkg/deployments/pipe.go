package deployments

import (
	"context"
	"fmt"
)

// Target yields the deployment a pipe starts from.
type Target func(ctx context.Context, c *Client) (*Deployment, error)

// ByID starts a pipe from an existing deployment.
func ByID(id string) Target {
	return func(ctx context.Context, c *Client) (*Deployment, error) {
		return c.Get(ctx, id)
	}
}

// FromCreate starts a pipe by creating a deployment.
func FromCreate(req CreateRequest) Target {
	return func(ctx context.Context, c *Client) (*Deployment, error) {
		return c.Create(ctx, req)
	}
}

// Operation transforms a deployment and returns its new state.
type Operation func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error)

// Pipe resolves target and applies ops in order. The first failure stops
// the pipe; effects of earlier steps are not undone. On failure the last
// known state is returned with the error.
func (c *Client) Pipe(ctx context.Context, target Target, ops ...Operation) (*Deployment, error) {
	d, err := target(ctx, c)
	if err != nil {
		return nil, err
	}
	for i, op := range ops {
		next, err := op(ctx, c, d)
		if err != nil {
			return d, fmt.Errorf("pipe step %d on %s: %w", i+1, d.ID, err)
		}
		if next != nil {
			d = next
		}
	}
	return d, nil
}

// refresh re-reads the deployment after a mutation. The mutation already
// dropped the cached entry.
func refresh(ctx context.Context, c *Client, id string) (*Deployment, error) {
	return c.Get(ctx, id)
}

// StartOp starts the deployment.
func StartOp() Operation {
	return func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error) {
		if _, err := c.Start(ctx, d.ID); err != nil {
			return nil, err
		}
		return refresh(ctx, c, d.ID)
	}
}

// StopOp stops the deployment.
func StopOp() Operation {
	return func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error) {
		if _, err := c.Stop(ctx, d.ID); err != nil {
			return nil, err
		}
		return refresh(ctx, c, d.ID)
	}
}

// ArchiveOp archives the deployment.
func ArchiveOp() Operation {
	return func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error) {
		if _, err := c.Archive(ctx, d.ID); err != nil {
			return nil, err
		}
		return refresh(ctx, c, d.ID)
	}
}

// ScaleOp sets the replica count.
func ScaleOp(replicas int) Operation {
	return func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error) {
		if _, err := c.UpdateReplicaCount(ctx, d.ID, replicas); err != nil {
			return nil, err
		}
		return refresh(ctx, c, d.ID)
	}
}

// RetimeOp sets the job timeout in seconds.
func RetimeOp(seconds int) Operation {
	return func(ctx context.Context, c *Client, d *Deployment) (*Deployment, error) {
		if _, err := c.UpdateTimeout(ctx, d.ID, seconds); err != nil {
			return nil, err
		}
		return refresh(ctx, c, d.ID)
	}
}
