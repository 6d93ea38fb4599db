package deployments

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/deployments"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
)

const timeLayout = "2006-01-02 15:04"

func newListCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List deployments owned by the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				list, err := c.Deployments().List(ctx)
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(list)
				}
				if len(list) == 0 {
					rt.Printf("No deployments found\n")
					return nil
				}

				w := rt.Table()
				fmt.Fprintln(w, "ID\tNAME\tSTATUS\tSTRATEGY\tREPLICAS\tVAULT\tCREATED")
				for _, d := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
						d.ID, d.Name, d.Status, d.Strategy, d.Replicas, d.Vault, d.CreatedAt.Format(timeLayout))
				}
				w.Flush()

				rt.Printf("\nTotal: %d\n", len(list))
				return nil
			})
		},
	}
}

func newGetCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get deployment details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				d, err := c.Deployments().Get(ctx, args[0])
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(d)
				}
				printDeployment(rt, d)
				return nil
			})
		},
	}
}

func newTasksCmd(rt *utils.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks <id>",
		Short: "List scheduled tasks of a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.WithClient(cmd, func(ctx context.Context, c *sdk.Client) error {
				tasks, err := c.Deployments().GetTasks(ctx, args[0])
				if err != nil {
					return err
				}
				if rt.JSON() {
					return rt.PrintJSON(tasks)
				}
				if len(tasks) == 0 {
					rt.Printf("No scheduled tasks\n")
					return nil
				}

				w := rt.Table()
				fmt.Fprintln(w, "TASK\tDUE\tTX")
				for _, t := range tasks {
					fmt.Fprintf(w, "%s\t%s\t%s\n", t.Task, t.DueAt.Format(timeLayout), t.Tx)
				}
				w.Flush()
				return nil
			})
		},
	}
}

func printDeployment(rt *utils.Runtime, d *deployments.Deployment) {
	rt.Printf("Deployment: %s\n\n", d.Name)
	rt.Printf("ID:               %s\n", d.ID)
	rt.Printf("Status:           %s\n", d.Status)
	rt.Printf("Strategy:         %s\n", d.Strategy)
	if d.Schedule != "" {
		rt.Printf("Schedule:         %s\n", d.Schedule)
	}
	rt.Printf("Market:           %s\n", d.Market)
	rt.Printf("Vault:            %s\n", d.Vault)
	rt.Printf("Owner:            %s\n", d.Owner)
	rt.Printf("Job Definition:   %s\n", d.IPFSDefinitionHash)
	rt.Printf("Replicas:         %d\n", d.Replicas)
	rt.Printf("Timeout:          %ds\n", d.Timeout)
	rt.Printf("Created:          %s\n", d.CreatedAt.Format(timeLayout))
	rt.Printf("Updated:          %s\n", d.UpdatedAt.Format(timeLayout))

	if len(d.Jobs) > 0 {
		rt.Printf("\nJobs:\n")
		for _, j := range d.Jobs {
			rt.Printf("  - %s (%s)\n", j.Job, j.CreatedAt.Format(timeLayout))
		}
	}
	if len(d.Events) > 0 {
		rt.Printf("\nEvents:\n")
		for _, e := range d.Events {
			rt.Printf("  [%s] %s %s: %s\n", e.CreatedAt.Format(timeLayout), e.Category, e.Type, e.Message)
		}
	}
}
