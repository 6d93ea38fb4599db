package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	clideployments "github.com/DeBrosOfficial/deployments-sdk/pkg/cli/deployments"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	clivault "github.com/DeBrosOfficial/deployments-sdk/pkg/cli/vault"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/vault"
)

// RunResult is the JSON output of the run command.
type RunResult struct {
	IPFSHash     string             `json:"ipfsHash"`
	DeploymentID string             `json:"deploymentId"`
	Vault        string             `json:"vault"`
	Topup        *vault.TopupResult `json:"topup,omitempty"`
	Status       string             `json:"status,omitempty"`
}

// NewRunCmd builds the run command: pin, create, fund and start.
func NewRunCmd(rt *utils.Runtime) *cobra.Command {
	var (
		create  clideployments.CreateFlags
		amounts clivault.AmountFlags
	)

	cmd := &cobra.Command{
		Use:   "run <job.json>",
		Short: "Pin a job definition and create, fund and start a deployment for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readJobDefinition(args[0])
			if err != nil {
				return err
			}
			amts, err := amounts.Amounts()
			if err != nil {
				return err
			}
			// The hash is only known after pinning; check everything else first.
			precheck := create.Request(args[0])
			if err := precheck.Validate(); err != nil {
				return err
			}

			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				if _, err := c.Vault().Preflight(ctx); err != nil {
					return err
				}

				pin, err := c.IPFS().PinJSON(ctx, doc)
				if err != nil {
					return err
				}
				if !rt.JSON() {
					rt.Printf("📌 Pinned job definition %s\n", pin.IpfsHash)
				}

				d, err := c.Deployments().Create(ctx, create.Request(pin.IpfsHash))
				if err != nil {
					return err
				}
				if !rt.JSON() {
					rt.Success("Created deployment %s (vault %s)", d.ID, d.Vault)
				}

				res := RunResult{IPFSHash: pin.IpfsHash, DeploymentID: d.ID, Vault: d.Vault}
				started, err := c.Vault().FundAndStart(ctx, d, amts)
				if started != nil {
					res.Topup = started.Topup
					if started.Status != nil {
						res.Status = string(started.Status.Status)
					}
				}
				if err != nil {
					if !rt.JSON() && started != nil {
						clivault.PrintTopup(rt, started.Topup)
					}
					return fmt.Errorf("deployment %s created but not started: %w", d.ID, err)
				}

				if rt.JSON() {
					return rt.PrintJSON(res)
				}
				clivault.PrintTopup(rt, res.Topup)
				rt.Printf("🚀 Deployment %s is %s\n", d.ID, res.Status)
				return nil
			})
		},
	}
	rt.BindFlags(cmd)
	create.Bind(cmd)
	amounts.Bind(cmd)
	return cmd
}
