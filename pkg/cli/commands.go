package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/deployments"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/utils"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli/vault"
)

// HandleDeploymentsCommand handles deployment management commands
func HandleDeploymentsCommand(args []string) {
	execute(deployments.NewCmd, args)
}

// HandleVaultCommand handles vault commands
func HandleVaultCommand(args []string) {
	execute(vault.NewCmd, args)
}

// HandleIPFSCommand handles IPFS commands
func HandleIPFSCommand(args []string) {
	execute(NewIPFSCmd, args)
}

// HandleRunCommand pins a job definition, then creates, funds and starts a
// deployment for it
func HandleRunCommand(args []string) {
	execute(NewRunCmd, args)
}

func execute(build func(*utils.Runtime) *cobra.Command, args []string) {
	rt := utils.NewRuntime()
	if err := Execute(rt, build(rt), args); err != nil {
		os.Exit(1)
	}
}

// Execute runs cmd with args and reports a failure on the runtime's error
// stream.
func Execute(rt *utils.Runtime, cmd *cobra.Command, args []string) error {
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		utils.ReportFailure(rt.Err, err)
		return err
	}
	return nil
}
