package deployments

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
)

// CreateFlags are the flags of "deployments create", shared with "run".
type CreateFlags struct {
	Name     string
	Market   string
	Replicas int
	Timeout  int
	Strategy string
	Schedule string
}

// Bind registers the flags on cmd.
func (f *CreateFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Name, "name", "", "Deployment name (required)")
	cmd.Flags().StringVar(&f.Market, "market", "", "Market address (required)")
	cmd.Flags().IntVar(&f.Replicas, "replicas", 1, "Number of replicas")
	cmd.Flags().IntVar(&f.Timeout, "job-timeout", 3600, "Job timeout in seconds")
	cmd.Flags().StringVar(&f.Strategy, "strategy", string(deployments.StrategySimple), "Strategy: SIMPLE, SCHEDULED, INFINITE")
	cmd.Flags().StringVar(&f.Schedule, "schedule", "", "Cron schedule for the SCHEDULED strategy")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("market")
}

// Request builds a create request for the given job definition.
func (f *CreateFlags) Request(ipfsHash string) deployments.CreateRequest {
	return deployments.CreateRequest{
		Name:               f.Name,
		Market:             f.Market,
		IPFSDefinitionHash: ipfsHash,
		Replicas:           f.Replicas,
		Timeout:            f.Timeout,
		Strategy:           deployments.Strategy(f.Strategy),
		Schedule:           f.Schedule,
	}
}

func newCreateCmd(rt *utils.Runtime) *cobra.Command {
	var flags CreateFlags
	var ipfsHash string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a deployment from a pinned job definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.Request(ipfsHash)
			if err := req.Validate(); err != nil {
				return err
			}
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				d, err := c.Deployments().Create(ctx, req)
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(d)
				}
				rt.Success("Created deployment %s", d.ID)
				rt.Printf("   Vault:  %s\n", d.Vault)
				rt.Printf("   Status: %s\n", d.Status)
				return nil
			})
		},
	}
	flags.Bind(cmd)
	cmd.Flags().StringVar(&ipfsHash, "ipfs-hash", "", "IPFS hash of the job definition (required)")
	cmd.MarkFlagRequired("ipfs-hash")
	return cmd
}

func newStartCmd(rt *utils.Runtime) *cobra.Command {
	var funded bool

	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				var (
					u   *deployments.StatusUpdate
					err error
				)
				if funded {
					u, err = c.Vault().StartFunded(ctx, args[0])
				} else {
					u, err = c.Deployments().Start(ctx, args[0])
				}
				if err != nil {
					return err
				}
				return printStatus(rt, "Started", args[0], u)
			})
		},
	}
	cmd.Flags().BoolVar(&funded, "funded", false, "Check wallet balances first and retry while the vault is still being funded")
	return cmd
}

func newStopCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				u, err := c.Deployments().Stop(ctx, args[0])
				if err != nil {
					return err
				}
				return printStatus(rt, "Stopped", args[0], u)
			})
		},
	}
}

func newArchiveCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a deployment",
		Long:  "Archive a deployment. Archived deployments accept no further lifecycle operations.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				u, err := c.Deployments().Archive(ctx, args[0])
				if err != nil {
					return err
				}
				return printStatus(rt, "Archived", args[0], u)
			})
		},
	}
}

func newScaleCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "scale <id> <replicas>",
		Short: "Change the replica count of a deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			replicas, err := strconv.Atoi(args[1])
			if err != nil {
				return sdkerrors.NewValidationError("replicas", "must be an integer", args[1])
			}
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				u, err := c.Deployments().UpdateReplicaCount(ctx, args[0], replicas)
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(u)
				}
				rt.Success("Deployment %s now runs %d replicas", args[0], u.Replicas)
				return nil
			})
		},
	}
}

func newTimeoutCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "timeout <id> <seconds>",
		Short: "Change the job timeout of a deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[1])
			if err != nil {
				return sdkerrors.NewValidationError("timeout", "must be an integer number of seconds", args[1])
			}
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				u, err := c.Deployments().UpdateTimeout(ctx, args[0], seconds)
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(u)
				}
				rt.Success("Deployment %s timeout set to %ds", args[0], u.Timeout)
				return nil
			})
		},
	}
}

func printStatus(rt *utils.Runtime, verb, id string, u *deployments.StatusUpdate) error {
	if rt.JSON() {
		return rt.PrintJSON(u)
	}
	rt.Success("%s deployment %s (status %s)", verb, id, u.Status)
	return nil
}
