package auth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/zalando/go-keyring"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

func testKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize))
}

func jsonArray(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestDecodeSecretFormats(t *testing.T) {
	key := testKey()

	tests := []struct {
		name string
		text string
	}{
		{"base58 keypair", base58.Encode(key)},
		{"hex keypair with prefix", "0x" + hex.EncodeToString(key)},
		{"hex seed", hex.EncodeToString(key.Seed())},
		{"json array", jsonArray(key)},
		{"surrounding whitespace", "  " + base58.Encode(key) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewSigner(RawSecretText(tt.text))
			if err != nil {
				t.Fatalf("NewSigner failed: %v", err)
			}
			want := key.Public().(ed25519.PublicKey)
			if !bytes.Equal(signer.PublicKey().Bytes(), want) {
				t.Errorf("Expected public key %x, got %x", want, signer.PublicKey().Bytes())
			}
		})
	}
}

func TestInvalidCredentials(t *testing.T) {
	key := testKey()
	mismatched := append([]byte(nil), key...)
	mismatched[40] ^= 0xff

	tests := []struct {
		name string
		cred Credential
	}{
		{"empty text", RawSecretText("")},
		{"bad base58", RawSecretText(strings.Repeat("0", 88))},
		{"bad hex", RawSecretText("zz")},
		{"wrong length", RawSecret([]byte{1, 2, 3})},
		{"pubkey mismatch", RawSecret(mismatched)},
		{"array out of range", RawSecretText("[1,2,300]")},
		{"zero value", Credential{}},
		{"nil source", ExternalKeypair(nil)},
		{"unset env var", EnvVarRef("DEPLOYMENTS_SDK_TEST_UNSET")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigner(tt.cred)
			if !sdkerrors.IsInvalidCredential(err) {
				t.Fatalf("Expected InvalidCredentialError, got %v", err)
			}
		})
	}
}

func TestInvalidCredentialDoesNotLeakSecret(t *testing.T) {
	secret := strings.Repeat("A", 100) + "0OIl"
	_, err := NewSigner(RawSecretText(secret))
	if err == nil {
		t.Fatal("Expected error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Error("Error message must not contain the secret")
	}
}

func TestEnvVarRef(t *testing.T) {
	key := testKey()

	t.Run("exact name", func(t *testing.T) {
		t.Setenv("WALLET_PRIVATE_KEY", base58.Encode(key))
		signer, err := NewSigner(EnvVarRef("WALLET_PRIVATE_KEY"))
		if err != nil {
			t.Fatalf("NewSigner failed: %v", err)
		}
		if signer.Address() == "" {
			t.Error("Expected address")
		}
	})

	t.Run("uppercased fallback", func(t *testing.T) {
		t.Setenv("MY_WALLET", hex.EncodeToString(key.Seed()))
		if _, err := NewSigner(EnvVarRef("my_wallet")); err != nil {
			t.Fatalf("NewSigner failed: %v", err)
		}
	})
}

func TestKeyringSource(t *testing.T) {
	keyring.MockInit()
	key := testKey()

	if err := StoreInKeyring("deployments-sdk", "default", base58.Encode(key)); err != nil {
		t.Fatalf("StoreInKeyring failed: %v", err)
	}
	signer, err := NewSigner(ExternalKeypair(KeyringSource{Service: "deployments-sdk", User: "default"}))
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	if !bytes.Equal(signer.PublicKey().Bytes(), key.Public().(ed25519.PublicKey)) {
		t.Error("Expected keyring key to resolve")
	}

	_, err = NewSigner(ExternalKeypair(KeyringSource{Service: "deployments-sdk", User: "missing"}))
	if !sdkerrors.IsInvalidCredential(err) {
		t.Errorf("Expected InvalidCredentialError for missing keyring entry, got %v", err)
	}

	if err := StoreInKeyring("deployments-sdk", "bad", "not a key"); !sdkerrors.IsInvalidCredential(err) {
		t.Errorf("Expected StoreInKeyring to reject bad secret, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	key := testKey()
	path := filepath.Join(t.TempDir(), "id.json")
	if err := os.WriteFile(path, []byte(jsonArray(key)), 0600); err != nil {
		t.Fatal(err)
	}

	signer, err := NewSigner(ExternalKeypair(FileSource{Path: path}))
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}
	if signer.Address() == "" {
		t.Error("Expected address")
	}

	_, err = NewSigner(ExternalKeypair(FileSource{Path: filepath.Join(t.TempDir(), "nope.json")}))
	if !sdkerrors.IsInvalidCredential(err) {
		t.Errorf("Expected InvalidCredentialError, got %v", err)
	}
}

func TestCredentialString(t *testing.T) {
	key := testKey()
	cred := RawSecretText(base58.Encode(key))
	if strings.Contains(cred.String(), base58.Encode(key)) || strings.Contains(fmt.Sprintf("%#v", cred), base58.Encode(key)) {
		t.Error("Credential formatting must not reveal the secret")
	}
	if EnvVarRef("X").String() != "Credential(env:X)" {
		t.Errorf("Unexpected string %q", EnvVarRef("X").String())
	}
}
