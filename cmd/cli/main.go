package main

import (
	"fmt"
	"os"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/cli"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "version":
		fmt.Printf("deployctl %s", version)
		if commit != "" {
			fmt.Printf(" (commit %s)", commit)
		}
		if date != "" {
			fmt.Printf(" built %s", date)
		}
		fmt.Println()
		return

	case "deployments", "deployment", "dep":
		cli.HandleDeploymentsCommand(args)

	case "vault":
		cli.HandleVaultCommand(args)

	case "ipfs":
		cli.HandleIPFSCommand(args)

	case "run":
		cli.HandleRunCommand(args)

	case "help", "--help", "-h":
		showHelp()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Printf("deployctl - Nosana deployment manager client\n\n")
	fmt.Printf("Usage: deployctl <command> [args...]\n\n")

	fmt.Printf("📦 Deployments:\n")
	fmt.Printf("  deployments list                         - List your deployments\n")
	fmt.Printf("  deployments get <id>                     - Show deployment details\n")
	fmt.Printf("  deployments tasks <id>                   - Show scheduled tasks\n")
	fmt.Printf("  deployments create --name --market ...   - Create a deployment\n")
	fmt.Printf("  deployments start <id> [--funded]        - Start a deployment\n")
	fmt.Printf("  deployments stop <id>                    - Stop a deployment\n")
	fmt.Printf("  deployments archive <id>                 - Archive a deployment\n")
	fmt.Printf("  deployments scale <id> <replicas>        - Change the replica count\n")
	fmt.Printf("  deployments timeout <id> <seconds>       - Change the job timeout\n\n")

	fmt.Printf("🏦 Vaults:\n")
	fmt.Printf("  vault list                               - List your vaults\n")
	fmt.Printf("  vault balance <vault> [--refresh]        - Show vault balances\n")
	fmt.Printf("  vault wallet [--check]                   - Show wallet balances\n")
	fmt.Printf("  vault topup <vault> --sol X --nos Y      - Fund a vault\n")
	fmt.Printf("  vault withdraw <vault>                   - Drain a vault back to the wallet\n\n")

	fmt.Printf("📌 IPFS:\n")
	fmt.Printf("  ipfs pin <file.json>                     - Pin a job definition\n")
	fmt.Printf("  ipfs get <cid>                           - Print a pinned document\n")
	fmt.Printf("  ipfs health                              - Check pinning credentials\n\n")

	fmt.Printf("🚀 All-in-one:\n")
	fmt.Printf("  run <job.json> --name --market --sol --nos\n")
	fmt.Printf("                                           - Pin, create, fund and start\n\n")

	fmt.Printf("Global Flags:\n")
	fmt.Printf("  --config <path>                          - Config file (default: ~/.config/deployments-sdk/config.yaml)\n")
	fmt.Printf("  --manager <url>                          - Deployment manager URL\n")
	fmt.Printf("  --rpc <url>                              - Solana RPC URL\n")
	fmt.Printf("  --wallet-env <name>                      - Environment variable holding the wallet secret\n")
	fmt.Printf("  -v, --verbose                            - Log requests and responses\n")
	fmt.Printf("  -f, --format <format>                    - Output format: table, json (default: table)\n")
	fmt.Printf("  -t, --timeout <duration>                 - Operation timeout (default: 2m)\n\n")

	fmt.Printf("Examples:\n")
	fmt.Printf("  # Deploy a job definition with 0.05 SOL and 10 NOS\n")
	fmt.Printf("  export WALLET_PRIVATE_KEY=...\n")
	fmt.Printf("  deployctl run job.json --name demo --market <market> --sol 0.05 --nos 10\n\n")

	fmt.Printf("  # Drain a vault\n")
	fmt.Printf("  deployctl vault withdraw <vault>\n")
}
