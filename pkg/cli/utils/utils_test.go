package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	sdkerrors "github.com/DeBrosOfficial/deployments-sdk/pkg/errors"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals uint8
		want     *uint64
		wantErr  bool
	}{
		{name: "empty", value: "", decimals: 9},
		{name: "whole SOL", value: "1", decimals: 9, want: u64(1_000_000_000)},
		{name: "fraction", value: "0.05", decimals: 9, want: u64(50_000_000)},
		{name: "token", value: "2.5", decimals: 6, want: u64(2_500_000)},
		{name: "zero", value: "0", decimals: 6, want: u64(0)},
		{name: "negative", value: "-1", decimals: 9, wantErr: true},
		{name: "garbage", value: "lots", decimals: 9, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount("sol", tt.value, tt.decimals)
			if tt.wantErr {
				if !sdkerrors.IsValidation(err) {
					t.Fatalf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Expected %d, got %d", *tt.want, *got)
			}
		})
	}
}

func u64(n uint64) *uint64 { return &n }

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NOSANA_MANAGER_URL", "")
	t.Setenv("NOSANA_RPC_URL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "manager_url: https://manager.example\nwallet:\n  private_key: from-file\n  legacy_auth: true\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	rt := NewRuntime()
	rt.Flags.ConfigPath = path
	rt.Flags.RPCURL = "http://localhost:8899"
	rt.Flags.WalletEnv = "MY_WALLET"
	rt.Flags.Verbose = true

	cfg, err := rt.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ManagerURL != "https://manager.example" {
		t.Errorf("Expected manager from file, got %s", cfg.ManagerURL)
	}
	if cfg.Chain.RPCURL != "http://localhost:8899" {
		t.Errorf("Expected RPC override, got %s", cfg.Chain.RPCURL)
	}
	if cfg.Wallet.PrivateKey != "" || cfg.Wallet.EnvVar != "MY_WALLET" {
		t.Errorf("Expected wallet from MY_WALLET only, got env %q", cfg.Wallet.EnvVar)
	}
	if !cfg.Wallet.LegacyAuth {
		t.Error("Expected legacy auth to survive the wallet override")
	}
	if !cfg.Verbose {
		t.Error("Expected verbose")
	}
}

func TestReportFailure(t *testing.T) {
	var buf bytes.Buffer
	err := sdkerrors.NewInsufficientBalanceError("wallet", []sdkerrors.Shortfall{{Asset: "SOL", Have: 1, Need: 5}})
	ReportFailure(&buf, err)

	out := buf.String()
	for _, want := range []string{"❌ Error:", "Missing 4 SOL (have 1, need 5)", "Nothing was submitted."} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}

	buf.Reset()
	ReportFailure(&buf, sdkerrors.NewTransportError("POST", "/api/deployment/create", os.ErrDeadlineExceeded).MarkInFlight(""))
	if !strings.Contains(buf.String(), "may have taken effect") {
		t.Errorf("Expected in-flight hint, got:\n%s", buf.String())
	}
}

func TestFormatAmounts(t *testing.T) {
	if got := FormatSOL(1_500_000_000); got != "1.5 SOL" {
		t.Errorf("Expected 1.5 SOL, got %s", got)
	}
	if got := FormatNOS(250_000); got != "0.25 NOS" {
		t.Errorf("Expected 0.25 NOS, got %s", got)
	}
}
