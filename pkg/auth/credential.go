package auth

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/zalando/go-keyring"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

// Kind identifies which variant a Credential holds.
type Kind int

const (
	KindEnvVar Kind = iota + 1
	KindRawSecret
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindEnvVar:
		return "env"
	case KindRawSecret:
		return "raw"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// KeypairSource supplies encoded secret text from outside the process
// environment, such as an OS keychain or a keypair file.
type KeypairSource interface {
	// Name describes the source without revealing the secret.
	Name() string
	// Secret returns the encoded secret key text.
	Secret() (string, error)
}

// Credential is exactly one of: the name of an environment variable holding
// the secret, the secret itself, or an external keypair source.
type Credential struct {
	kind    Kind
	envName string
	text    string
	raw     []byte
	source  KeypairSource
}

// EnvVarRef refers to an environment variable holding the encoded secret.
func EnvVarRef(name string) Credential {
	return Credential{kind: KindEnvVar, envName: name}
}

// RawSecret wraps raw key bytes: a 64-byte keypair or a 32-byte seed.
func RawSecret(secret []byte) Credential {
	return Credential{kind: KindRawSecret, raw: append([]byte(nil), secret...)}
}

// RawSecretText wraps encoded secret text (base58, hex or a JSON byte array).
func RawSecretText(secret string) Credential {
	return Credential{kind: KindRawSecret, text: secret}
}

// ExternalKeypair loads the secret from src when the signer is built.
func ExternalKeypair(src KeypairSource) Credential {
	return Credential{kind: KindExternal, source: src}
}

// Kind returns the variant held.
func (c Credential) Kind() Kind {
	return c.kind
}

// String never includes secret material.
func (c Credential) String() string {
	return fmt.Sprintf("Credential(%s)", c.describe())
}

// GoString keeps %#v from dumping the secret.
func (c Credential) GoString() string {
	return c.String()
}

func (c Credential) describe() string {
	switch c.kind {
	case KindEnvVar:
		return "env:" + c.envName
	case KindRawSecret:
		return "raw"
	case KindExternal:
		if c.source == nil {
			return "external"
		}
		return c.source.Name()
	default:
		return "empty"
	}
}

// resolve returns the decoded private key bytes.
func (c Credential) resolve() (ed25519.PrivateKey, error) {
	source := c.describe()
	switch c.kind {
	case KindEnvVar:
		value, ok := lookupEnv(c.envName)
		if !ok {
			return nil, sdkerrors.NewInvalidCredentialError(source, "environment variable is not set", nil)
		}
		return decodeKey(source, value)
	case KindRawSecret:
		if c.raw != nil {
			return keyFromBytes(source, c.raw)
		}
		return decodeKey(source, c.text)
	case KindExternal:
		if c.source == nil {
			return nil, sdkerrors.NewInvalidCredentialError(source, "no keypair source", nil)
		}
		text, err := c.source.Secret()
		if err != nil {
			return nil, sdkerrors.NewInvalidCredentialError(source, "keypair source failed", err)
		}
		return decodeKey(source, text)
	default:
		return nil, sdkerrors.NewInvalidCredentialError(source, "credential is empty", nil)
	}
}

// lookupEnv checks the name as given, then uppercased.
func lookupEnv(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if upper := strings.ToUpper(name); upper != name {
		if v, ok := os.LookupEnv(upper); ok && strings.TrimSpace(v) != "" {
			return v, true
		}
	}
	return "", false
}

// DecodeSecret decodes secret key text. A 0x prefix means hex, a leading '['
// means a JSON byte array (Solana CLI keypair file), text longer than 64
// characters is base58, anything else is hex.
func DecodeSecret(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return nil, fmt.Errorf("secret is empty")
	case strings.HasPrefix(text, "["):
		var ints []int
		if err := json.Unmarshal([]byte(text), &ints); err != nil {
			return nil, fmt.Errorf("invalid keypair array: %w", err)
		}
		out := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("keypair array value %d out of range", i)
			}
			out[i] = byte(v)
		}
		return out, nil
	case strings.HasPrefix(text, "0x"), strings.HasPrefix(text, "0X"):
		out, err := hex.DecodeString(text[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid hex secret")
		}
		return out, nil
	case len(text) > 64:
		out, err := base58.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("invalid base58 secret")
		}
		return out, nil
	default:
		out, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("invalid hex secret")
		}
		return out, nil
	}
}

func decodeKey(source, text string) (ed25519.PrivateKey, error) {
	raw, err := DecodeSecret(text)
	if err != nil {
		return nil, sdkerrors.NewInvalidCredentialError(source, err.Error(), nil)
	}
	defer ZeroBytes(raw)
	return keyFromBytes(source, raw)
}

func keyFromBytes(source string, raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !ed25519.PublicKey(raw[ed25519.SeedSize:]).Equal(key.Public()) {
			ZeroBytes(key)
			return nil, sdkerrors.NewInvalidCredentialError(source, "public key does not match secret seed", nil)
		}
		return key, nil
	default:
		return nil, sdkerrors.NewInvalidCredentialError(source,
			fmt.Sprintf("expected %d or %d key bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw)), nil)
	}
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// KeyringSource reads the secret from the OS keychain.
type KeyringSource struct {
	Service string
	User    string
}

// Name implements KeypairSource.
func (k KeyringSource) Name() string {
	return fmt.Sprintf("keyring:%s/%s", k.Service, k.User)
}

// Secret implements KeypairSource.
func (k KeyringSource) Secret() (string, error) {
	return keyring.Get(k.Service, k.User)
}

// StoreInKeyring saves encoded secret text to the OS keychain so it can be
// used later through a KeyringSource.
func StoreInKeyring(service, user, secret string) error {
	if _, err := DecodeSecret(secret); err != nil {
		return sdkerrors.NewInvalidCredentialError("keyring:"+service+"/"+user, err.Error(), nil)
	}
	return keyring.Set(service, user, secret)
}

// FileSource reads a keypair file: a JSON byte array as written by the
// Solana CLI, or a single line of base58 or hex text.
type FileSource struct {
	Path string
}

// DefaultKeypairPath returns the Solana CLI default keypair location.
func DefaultKeypairPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "solana", "id.json"), nil
}

// Name implements KeypairSource.
func (f FileSource) Name() string {
	return "file:" + f.Path
}

// Secret implements KeypairSource.
func (f FileSource) Secret() (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read keypair file: %w", err)
	}
	return string(data), nil
}
