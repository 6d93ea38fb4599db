package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/config"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/logging"
	"github.com/DeBrosOfficial/deployments-sdk/pkg/sdk"
)

// GlobalFlags are accepted by every command group.
type GlobalFlags struct {
	ConfigPath string
	EnvPrefix  string
	Verbose    bool
	ManagerURL string
	RPCURL     string
	WalletEnv  string
	Format     string
	Timeout    time.Duration
}

// Runtime carries the output streams, global flags and client options a
// command tree runs with.
type Runtime struct {
	Out   io.Writer
	Err   io.Writer
	Flags GlobalFlags

	// Options are appended to every sdk.New call.
	Options []sdk.Option
}

// NewRuntime returns a runtime writing to stdout and stderr.
func NewRuntime() *Runtime {
	return &Runtime{
		Out: os.Stdout,
		Err: os.Stderr,
		Flags: GlobalFlags{
			Format:  FormatTable,
			Timeout: 2 * time.Minute,
		},
	}
}

// BindFlags registers the global flags as persistent flags of root.
func (rt *Runtime) BindFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&rt.Flags.ConfigPath, "config", rt.Flags.ConfigPath, "Config file (default: ~/.config/deployments-sdk/config.yaml if present)")
	f.StringVar(&rt.Flags.EnvPrefix, "env-prefix", rt.Flags.EnvPrefix, "Prefix for environment variable names")
	f.BoolVarP(&rt.Flags.Verbose, "verbose", "v", rt.Flags.Verbose, "Log requests and responses")
	f.StringVar(&rt.Flags.ManagerURL, "manager", rt.Flags.ManagerURL, "Deployment manager base URL")
	f.StringVar(&rt.Flags.RPCURL, "rpc", rt.Flags.RPCURL, "Solana RPC URL")
	f.StringVar(&rt.Flags.WalletEnv, "wallet-env", rt.Flags.WalletEnv, "Environment variable holding the wallet secret")
	f.StringVarP(&rt.Flags.Format, "format", "f", rt.Flags.Format, "Output format: table, json")
	f.DurationVarP(&rt.Flags.Timeout, "timeout", "t", rt.Flags.Timeout, "Operation timeout")
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetOut(rt.Out)
	root.SetErr(rt.Err)
}

// LoadConfig reads the config file, the environment and then the flag
// overrides.
func (rt *Runtime) LoadConfig() (*config.Config, error) {
	path := rt.Flags.ConfigPath
	if path == "" {
		if p, err := config.DefaultPath("config.yaml"); err == nil {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	}

	cfg, err := config.Load(path, rt.Flags.EnvPrefix)
	if err != nil {
		return nil, err
	}

	if rt.Flags.ManagerURL != "" {
		cfg.ManagerURL = rt.Flags.ManagerURL
	}
	if rt.Flags.RPCURL != "" {
		cfg.Chain.RPCURL = rt.Flags.RPCURL
	}
	if rt.Flags.WalletEnv != "" {
		cfg.Wallet = config.WalletConfig{
			EnvVar:     rt.Flags.WalletEnv,
			LegacyAuth: cfg.Wallet.LegacyAuth,
		}
	}
	if rt.Flags.Verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

// Context returns a context bounded by the --timeout flag.
func (rt *Runtime) Context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if rt.Flags.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, rt.Flags.Timeout)
}

// WithClient builds an SDK client from the loaded config, runs fn and
// closes the client.
func (rt *Runtime) WithClient(cmd *cobra.Command, fn func(ctx context.Context, c *sdk.Client) error) error {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return err
	}
	if rt.Flags.Format != FormatTable && rt.Flags.Format != FormatJSON {
		return fmt.Errorf("unsupported format %q (use %s or %s)", rt.Flags.Format, FormatTable, FormatJSON)
	}

	var opts []sdk.Option
	if cfg.Verbose {
		l := logging.NewColoredLogger(rt.Err, true, true)
		l.ComponentDebug(logging.ComponentCLI, "Configuration loaded",
			zap.String("environment", string(cfg.Environment)),
			zap.String("manager", cfg.ManagerURL),
			zap.String("rpc", cfg.Chain.RPCURL),
		)
		opts = append(opts, sdk.WithLogger(l.Logger))
	}
	opts = append(opts, rt.Options...)

	ctx, cancel := rt.Context(cmd)
	defer cancel()

	return sdk.With(cfg, func(c *sdk.Client) error {
		return fn(ctx, c)
	}, opts...)
}
