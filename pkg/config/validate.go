package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "chain.rpc_url"
	Message string // e.g., "must be an http(s) URL"
	Hint    string // e.g., "expected https://api.mainnet-beta.solana.com"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs validation of the entire config.
// It aggregates all errors so the caller can print every issue at once.
func (c *Config) Validate() []error {
	var errs []error

	if c.Environment != Mainnet && c.Environment != Devnet {
		errs = append(errs, ValidationError{
			Path:    "environment",
			Message: fmt.Sprintf("invalid value %q", c.Environment),
			Hint:    "must be 'devnet' or 'mainnet'",
		})
	}

	errs = append(errs, validateURL("manager_url", c.ManagerURL)...)
	errs = append(errs, c.validateHTTP()...)
	errs = append(errs, c.validateCache()...)
	errs = append(errs, c.validateChain()...)
	errs = append(errs, c.validateIPFS()...)

	return errs
}

func validateURL(path, raw string) []error {
	if raw == "" {
		return []error{ValidationError{Path: path, Message: "must not be empty"}}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []error{ValidationError{
			Path:    path,
			Message: fmt.Sprintf("invalid URL %q", raw),
			Hint:    "expected http(s)://host[:port]",
		}}
	}
	return nil
}

func validateNonNegative(path string, d time.Duration) []error {
	if d < 0 {
		return []error{ValidationError{Path: path, Message: "must not be negative"}}
	}
	return nil
}

func (c *Config) validateHTTP() []error {
	var errs []error
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, ValidationError{Path: "http.timeout", Message: "must be positive"})
	}
	if c.HTTP.MaxIdleConns < 0 {
		errs = append(errs, ValidationError{Path: "http.max_idle_conns", Message: "must not be negative"})
	}
	return errs
}

func (c *Config) validateCache() []error {
	var errs []error
	errs = append(errs, validateNonNegative("cache.deployment_ttl", c.Cache.DeploymentTTL)...)
	errs = append(errs, validateNonNegative("cache.list_ttl", c.Cache.ListTTL)...)
	errs = append(errs, validateNonNegative("cache.tasks_ttl", c.Cache.TasksTTL)...)
	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, ValidationError{Path: "cache.max_entries", Message: "must be positive"})
	}
	return errs
}

func (c *Config) validateChain() []error {
	var errs []error
	errs = append(errs, validateURL("chain.rpc_url", c.Chain.RPCURL)...)
	if _, err := solana.PublicKeyFromBase58(c.Chain.TokenMint); err != nil {
		errs = append(errs, ValidationError{
			Path:    "chain.token_mint",
			Message: "malformed public key",
			Hint:    "expected a base58 mint address such as " + DefaultTokenMint,
		})
	}
	if c.Chain.ConfirmTimeout <= 0 {
		errs = append(errs, ValidationError{Path: "chain.confirm_timeout", Message: "must be positive"})
	}
	if c.Chain.ConfirmPoll <= 0 || c.Chain.ConfirmPoll > c.Chain.ConfirmTimeout {
		errs = append(errs, ValidationError{
			Path:    "chain.confirm_poll",
			Message: "must be positive and not exceed chain.confirm_timeout",
		})
	}
	errs = append(errs, validateNonNegative("vault.start_retry_backoff", c.Vault.StartRetryBackoff)...)
	return errs
}

func (c *Config) validateIPFS() []error {
	var errs []error
	errs = append(errs, validateURL("ipfs.api_url", c.IPFS.APIURL)...)
	errs = append(errs, validateURL("ipfs.gateway_url", c.IPFS.GatewayURL)...)
	return errs
}
