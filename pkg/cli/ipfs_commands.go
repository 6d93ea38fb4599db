package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
)

// NewIPFSCmd builds the ipfs command tree.
func NewIPFSCmd(rt *utils.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ipfs",
		Short: "Pin and fetch job definitions",
	}
	rt.BindFlags(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "pin <file.json>",
			Short: "Pin a JSON job definition",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := readJobDefinition(args[0])
				if err != nil {
					return err
				}
				return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
					res, err := c.IPFS().PinJSON(ctx, doc)
					if err != nil {
						return err
					}
					if rt.JSON() {
						return rt.PrintJSON(res)
					}
					rt.Printf("📌 Pinned %s\n", res.IpfsHash)
					rt.Printf("   Gateway: %s\n", c.IPFS().GatewayURL(res.IpfsHash))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <cid>",
			Short: "Print a pinned JSON document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
					var doc json.RawMessage
					if err := c.IPFS().Fetch(ctx, args[0], &doc); err != nil {
						return err
					}
					return rt.PrintJSON(doc)
				})
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Check the pinning service credentials",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
					if err := c.IPFS().Health(ctx); err != nil {
						return err
					}
					rt.Success("Pinning service reachable and authorized")
					return nil
				})
			},
		},
	)
	return cmd
}

// readJobDefinition loads a JSON document from path. The document is
// checked for well-formedness only.
func readJobDefinition(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job definition: %w", err)
	}
	if !json.Valid(data) {
		return nil, sdkerrors.NewValidationError("job definition", "is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}
