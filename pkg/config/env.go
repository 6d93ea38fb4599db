package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names, relative to an optional prefix. VerboseEnv is
// never prefixed.
const (
	EnvWalletKey   = "WALLET_PRIVATE_KEY"
	EnvEnvironment = "ENVIRONMENT"
	EnvManagerURL  = "NOSANA_MANAGER_URL"
	EnvRPCURL      = "NOSANA_RPC_URL"
	EnvPinataJWT   = "PINATA_JWT"
	EnvVerbose     = "NOSANA_SDK_DEBUG"
	EnvHTTPTimeout = "NOSANA_HTTP_TIMEOUT"
)

// ParseBool accepts true/1/yes/on and false/0/no/off, case-insensitively.
func ParseBool(name, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value for %s: %s", name, value)
	}
}

// ApplyEnv overlays environment variables onto c. When the environment
// variable changes the network, chain defaults that were not overridden
// follow it.
func (c *Config) ApplyEnv(prefix string) error {
	if v, ok := os.LookupEnv(prefix + EnvEnvironment); ok && v != "" {
		env := Environment(strings.ToLower(v))
		if env != c.Environment && c.Chain.RPCURL == DefaultConfig(c.Environment).Chain.RPCURL {
			c.Chain.RPCURL = DefaultConfig(env).Chain.RPCURL
		}
		c.Environment = env
	}
	if _, ok := os.LookupEnv(prefix + EnvWalletKey); ok && c.Wallet.PrivateKey == "" && c.Wallet.KeypairFile == "" && c.Wallet.KeyringService == "" {
		c.Wallet.EnvVar = prefix + EnvWalletKey
	}
	if v := os.Getenv(prefix + EnvManagerURL); v != "" {
		c.ManagerURL = v
	}
	if v := os.Getenv(prefix + EnvRPCURL); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv(prefix + EnvPinataJWT); v != "" {
		c.IPFS.JWT = v
	}
	timeout, err := durationFromEnv(prefix+EnvHTTPTimeout, c.HTTP.Timeout)
	if err != nil {
		return err
	}
	c.HTTP.Timeout = timeout
	if v, ok := os.LookupEnv(EnvVerbose); ok && v != "" {
		verbose, err := ParseBool(EnvVerbose, v)
		if err != nil {
			return err
		}
		c.Verbose = verbose
	}
	return nil
}

// durationFromEnv accepts whole seconds or a Go duration string.
func durationFromEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid duration for %s: %s", name, v)
	}
	return d, nil
}
