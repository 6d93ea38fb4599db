// Package vault holds the "vault" command group.
package vault

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/vault"
)

// NewCmd builds the vault command tree.
func NewCmd(rt *utils.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Inspect, fund and drain deployment vaults",
	}
	rt.BindFlags(cmd)

	cmd.AddCommand(
		newListCmd(rt),
		newBalanceCmd(rt),
		newWalletCmd(rt),
		newTopupCmd(rt),
		newWithdrawCmd(rt),
	)
	return cmd
}

type balanceView struct {
	Address string `json:"address"`
	State   string `json:"state,omitempty"`
	SOL     uint64 `json:"lamports"`
	NOS     uint64 `json:"tokenUnits"`
}

func printBalances(rt *utils.Runtime, title string, view balanceView) error {
	if rt.JSON() {
		return rt.PrintJSON(view)
	}
	rt.Printf("%s: %s\n", title, view.Address)
	if view.State != "" {
		rt.Printf("  State: %s\n", view.State)
	}
	rt.Printf("  SOL:   %s\n", utils.FormatSOL(view.SOL))
	rt.Printf("  NOS:   %s\n", utils.FormatNOS(view.NOS))
	return nil
}

func newListCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the wallet's vaults known to the manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				vaults, err := c.Deployments().ListVaults(ctx)
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(vaults)
				}
				if len(vaults) == 0 {
					rt.Printf("No vaults found\n")
					return nil
				}
				w := rt.Table()
				fmt.Fprintln(w, "VAULT\tOWNER")
				for _, v := range vaults {
					fmt.Fprintf(w, "%s\t%s\n", v.Key(), v.Owner)
				}
				w.Flush()
				return nil
			})
		},
	}
}

func newBalanceCmd(rt *utils.Runtime) *cobra.Command {
	var fromManager bool

	cmd := &cobra.Command{
		Use:   "balance <vault>",
		Short: "Show a vault's balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				if fromManager {
					b, err := c.Deployments().RefreshVaultBalance(ctx, args[0])
					if err != nil {
						return err
					}
					if rt.JSON() {
						return rt.PrintJSON(b)
					}
					rt.Printf("Vault: %s\n", args[0])
					rt.Printf("  SOL:   %v\n", b.SOL)
					rt.Printf("  NOS:   %v\n", b.NOS)
					return nil
				}

				b, err := c.Vault().UpdateBalance(ctx, args[0])
				if err != nil {
					return err
				}
				return printBalances(rt, "Vault", balanceView{
					Address: args[0],
					State:   string(c.Vault().Vault(args[0]).State()),
					SOL:     b.Native,
					NOS:     b.Token,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&fromManager, "refresh", false, "Ask the manager to refresh and report the balance instead of reading the chain")
	return cmd
}

func newWalletCmd(rt *utils.Runtime) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Show the wallet's balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				var (
					b   vault.Balances
					err error
				)
				if check {
					b, err = c.Vault().Preflight(ctx)
				} else {
					b, err = c.Vault().WalletBalance(ctx)
				}
				if err != nil {
					return err
				}
				if err := printBalances(rt, "Wallet", balanceView{Address: c.Address(), SOL: b.Native, NOS: b.Token}); err != nil {
					return err
				}
				if check && !rt.JSON() {
					rt.Success("Wallet meets the configured minimum balances")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Fail when the wallet holds less than the configured minimums")
	return cmd
}

// AmountFlags are whole-unit transfer amounts, shared with "run".
type AmountFlags struct {
	SOL string
	NOS string
}

// Bind registers --sol and --nos on cmd.
func (f *AmountFlags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.SOL, "sol", "", "SOL to transfer")
	cmd.Flags().StringVar(&f.NOS, "nos", "", "NOS to transfer")
}

// Amounts converts the flags to base units.
func (f *AmountFlags) Amounts() (vault.Amounts, error) {
	native, err := utils.ParseAmount("sol", f.SOL, 9)
	if err != nil {
		return vault.Amounts{}, err
	}
	token, err := utils.ParseAmount("nos", f.NOS, sdk.TokenDecimals)
	if err != nil {
		return vault.Amounts{}, err
	}
	return vault.Amounts{Native: native, Token: token}, nil
}

// PrintTopup reports which transfers of a top-up landed.
func PrintTopup(rt *utils.Runtime, res *vault.TopupResult) {
	if res == nil {
		return
	}
	if res.Native != (solana.Signature{}) {
		rt.Printf("  SOL transfer: %s\n", res.Native)
	}
	if res.Token != (solana.Signature{}) {
		rt.Printf("  NOS transfer: %s\n", res.Token)
	}
}

func newTopupCmd(rt *utils.Runtime) *cobra.Command {
	var flags AmountFlags

	cmd := &cobra.Command{
		Use:   "topup <vault>",
		Short: "Transfer SOL and NOS from the wallet to a vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amounts, err := flags.Amounts()
			if err != nil {
				return err
			}
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				res, err := c.Vault().Topup(ctx, args[0], amounts)
				if err != nil {
					if !rt.JSON() {
						PrintTopup(rt, res)
					}
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(res)
				}
				rt.Success("Topped up vault %s", args[0])
				PrintTopup(rt, res)
				return nil
			})
		},
	}
	flags.Bind(cmd)
	return cmd
}

func newWithdrawCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <vault>",
		Short: "Withdraw everything from a vault back to the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				sig, err := c.Vault().Withdraw(ctx, args[0])
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(map[string]string{"vault": args[0], "signature": sig.String()})
				}
				rt.Success("Withdrew vault %s", args[0])
				rt.Printf("   Signature: %s\n", sig)
				return nil
			})
		},
	}
}
