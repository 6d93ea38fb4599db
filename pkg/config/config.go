package config

import (
	"time"

	"github.com/DeBrosOfficial/deployments-sdk/pkg/auth"
)

// Environment selects the network the SDK talks to.
type Environment string

const (
	Mainnet Environment = "mainnet"
	Devnet  Environment = "devnet"
)

// Well-known endpoints and on-chain constants.
const (
	DefaultManagerURL     = "https://deployment-manager.k8s.prd.nos.ci"
	MainnetRPCURL         = "https://api.mainnet-beta.solana.com"
	DevnetRPCURL          = "https://api.devnet.solana.com"
	DefaultTokenMint      = "nosXBVoaCTtYdLvKY6Csb4AC8JCdQKKAaWYtx2ZMoo7"
	DefaultPinataAPIURL   = "https://api.pinata.cloud"
	DefaultIPFSGatewayURL = "https://nosana.mypinata.cloud/ipfs/"
	DefaultWalletEnvVar   = "WALLET_PRIVATE_KEY"
)

// Config is the complete SDK configuration.
type Config struct {
	Environment Environment  `yaml:"environment"`
	ManagerURL  string       `yaml:"manager_url"`
	Verbose     bool         `yaml:"verbose"`
	Wallet      WalletConfig `yaml:"wallet"`
	HTTP        HTTPConfig   `yaml:"http"`
	Cache       CacheConfig  `yaml:"cache"`
	Chain       ChainConfig  `yaml:"chain"`
	Vault       VaultConfig  `yaml:"vault"`
	IPFS        IPFSConfig   `yaml:"ipfs"`
}

// WalletConfig says where the wallet secret comes from. The first non-empty
// source wins: private_key, keypair_file, keyring, then env_var.
type WalletConfig struct {
	PrivateKey     string `yaml:"private_key"`
	KeypairFile    string `yaml:"keypair_file"`
	KeyringService string `yaml:"keyring_service"`
	KeyringUser    string `yaml:"keyring_user"`
	EnvVar         string `yaml:"env_var"`
	LegacyAuth     bool   `yaml:"legacy_auth"` // sign the constant prefix instead of a per-request challenge
}

// HTTPConfig tunes the manager session.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	UserAgent    string        `yaml:"user_agent"`
}

// CacheConfig sets read-result lifetimes. A zero TTL disables caching for
// that operation.
type CacheConfig struct {
	DeploymentTTL time.Duration `yaml:"deployment_ttl"`
	ListTTL       time.Duration `yaml:"list_ttl"`
	TasksTTL      time.Duration `yaml:"tasks_ttl"`
	MaxEntries    int           `yaml:"max_entries"`
}

// ChainConfig points at the Solana RPC node.
type ChainConfig struct {
	RPCURL         string        `yaml:"rpc_url"`
	TokenMint      string        `yaml:"token_mint"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	ConfirmPoll    time.Duration `yaml:"confirm_poll"`
}

// VaultConfig holds funding thresholds in smallest units.
type VaultConfig struct {
	MinNative         uint64        `yaml:"min_native"`
	MinToken          uint64        `yaml:"min_token"`
	StartRetryBackoff time.Duration `yaml:"start_retry_backoff"`
}

// IPFSConfig configures job definition pinning.
type IPFSConfig struct {
	APIURL     string        `yaml:"api_url"`
	GatewayURL string        `yaml:"gateway_url"`
	JWT        string        `yaml:"jwt"`
	Timeout    time.Duration `yaml:"timeout"`
}

// DefaultConfig returns defaults for env. Unknown environments get devnet
// defaults and are rejected later by Validate.
func DefaultConfig(env Environment) *Config {
	rpc := DevnetRPCURL
	if env == Mainnet {
		rpc = MainnetRPCURL
	}
	if env == "" {
		env = Devnet
	}
	return &Config{
		Environment: env,
		ManagerURL:  DefaultManagerURL,
		Wallet: WalletConfig{
			EnvVar: DefaultWalletEnvVar,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			MaxIdleConns: 16,
			UserAgent:    "deployments-sdk-go/0.1.0",
		},
		Cache: CacheConfig{
			DeploymentTTL: 60 * time.Second,
			ListTTL:       10 * time.Second,
			TasksTTL:      30 * time.Second,
			MaxEntries:    100,
		},
		Chain: ChainConfig{
			RPCURL:         rpc,
			TokenMint:      DefaultTokenMint,
			ConfirmTimeout: 60 * time.Second,
			ConfirmPoll:    2 * time.Second,
		},
		Vault: VaultConfig{
			MinNative:         12_000_000,
			MinToken:          3_000_000,
			StartRetryBackoff: 5 * time.Second,
		},
		IPFS: IPFSConfig{
			APIURL:     DefaultPinataAPIURL,
			GatewayURL: DefaultIPFSGatewayURL,
			Timeout:    30 * time.Second,
		},
	}
}

// Credential builds the wallet credential described by the config.
func (w WalletConfig) Credential() auth.Credential {
	switch {
	case w.PrivateKey != "":
		return auth.RawSecretText(w.PrivateKey)
	case w.KeypairFile != "":
		return auth.ExternalKeypair(auth.FileSource{Path: w.KeypairFile})
	case w.KeyringService != "":
		return auth.ExternalKeypair(auth.KeyringSource{Service: w.KeyringService, User: w.KeyringUser})
	case w.EnvVar != "":
		return auth.EnvVarRef(w.EnvVar)
	default:
		return auth.EnvVarRef(DefaultWalletEnvVar)
	}
}

// AuthScheme returns the header scheme selected by the config.
func (w WalletConfig) AuthScheme() auth.Scheme {
	if w.LegacyAuth {
		return auth.SchemeLegacy
	}
	return auth.SchemeChallenge
}
