// Package deployments holds the "deployments" command group.
package deployments

import (
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
)

// NewCmd builds the deployments command tree.
func NewCmd(rt *utils.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deployments",
		Aliases: []string{"deployment", "dep"},
		Short:   "Manage deployments",
		Long:    "Create, inspect, start, stop, scale and archive deployments on the deployment manager",
	}
	rt.BindFlags(cmd)

	cmd.AddCommand(
		newListCmd(rt),
		newGetCmd(rt),
		newTasksCmd(rt),
		newCreateCmd(rt),
		newStartCmd(rt),
		newStopCmd(rt),
		newArchiveCmd(rt),
		newScaleCmd(rt),
		newTimeoutCmd(rt),
	)
	return cmd
}
