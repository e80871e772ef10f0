package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesOverrides(t *testing.T) {
	path := writeConfig(t, `ListenAddress = "0.0.0.0:9000"
DataDir = "./data"
Environment = "staging"
GenesisAdmin = "0x00000000000000000000000000000000000000aa"
ReadTimeoutSeconds = 30

[auth]
JWTSecret = "topsecret"

[ratelimit]
RequestsPerSecond = 5.5
Burst = 11

[loan]
MinAmount = "250"
MinCreditScore = 550
GracePeriodSeconds = 86400

[pool]
MinDeposit = "1000"
ReserveFactorBps = 1500
KinkBps = 9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.Environment != "staging" {
		t.Fatalf("environment = %q", cfg.Environment)
	}
	if cfg.ReadTimeoutSeconds != 30 || cfg.WriteTimeoutSeconds != 15 {
		t.Fatalf("timeouts = %d/%d", cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)
	}
	if cfg.RateLimit.RequestsPerSecond != 5.5 || cfg.RateLimit.Burst != 11 {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}

	admin, err := cfg.AdminAddress()
	if err != nil {
		t.Fatalf("admin address: %v", err)
	}
	if admin != common.HexToAddress("0x00000000000000000000000000000000000000aa") {
		t.Fatalf("admin = %s", admin.Hex())
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		t.Fatalf("jwt secret: %v", err)
	}
	if secret != "topsecret" {
		t.Fatalf("secret = %q", secret)
	}

	params, err := cfg.LoanParameters()
	if err != nil {
		t.Fatalf("loan parameters: %v", err)
	}
	if params.MinAmount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("min amount = %s", params.MinAmount)
	}
	if params.MinCreditScore != 550 {
		t.Fatalf("min credit score = %d", params.MinCreditScore)
	}
	if params.GracePeriod != 24*time.Hour {
		t.Fatalf("grace period = %s", params.GracePeriod)
	}
	// Unset knobs keep their defaults.
	if params.AutoApproveScore != 800 || params.MaxActiveLoans != 3 {
		t.Fatalf("defaults not preserved: %+v", params)
	}

	min, err := cfg.MinDeposit()
	if err != nil {
		t.Fatalf("min deposit: %v", err)
	}
	if min.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("min deposit = %s", min)
	}
	model := cfg.RateModel()
	if model.KinkBps != 9000 || model.BaseBps != 200 {
		t.Fatalf("rate model = %+v", model)
	}
}

func TestLoadCreatesDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" || cfg.DataDir != "./lendnet-data" {
		t.Fatalf("defaults = %+v", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}

	// The persisted file must load back cleanly.
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Auth.JWTSecretEnv != "LENDNET_JWT_SECRET" {
		t.Fatalf("auth defaults = %+v", reloaded.Auth)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"badAdmin", "GenesisAdmin = \"not-an-address\"\n"},
		{"badAmount", "[loan]\nMinAmount = \"12.5\"\n"},
		{"minOverMax", "[loan]\nMinAmount = \"2000000\"\n"},
		{"rateInverted", "[loan]\nRateFloorBps = 3000\nRateWorstBps = 1000\n"},
		{"scoreRange", "[loan]\nAutoApproveScore = 1200\n"},
		{"reserveFactor", "[pool]\nReserveFactorBps = 10500\n"},
		{"kink", "[pool]\nKinkBps = 20000\n"},
		{"rateLimit", "[ratelimit]\nRequestsPerSecond = -1.0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Fatalf("expected load to fail")
			}
		})
	}
}

func TestJWTSecretSources(t *testing.T) {
	dir := t.TempDir()
	secretFile := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(secretFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	cfg := &Config{Auth: Auth{JWTSecretFile: secretFile}}
	secret, err := cfg.JWTSecret()
	if err != nil {
		t.Fatalf("jwt secret: %v", err)
	}
	if secret != "from-file" {
		t.Fatalf("secret = %q", secret)
	}

	t.Setenv("LENDNET_TEST_SECRET", "from-env")
	cfg = &Config{Auth: Auth{JWTSecretEnv: "LENDNET_TEST_SECRET"}}
	if secret, err = cfg.JWTSecret(); err != nil || secret != "from-env" {
		t.Fatalf("env secret = %q err = %v", secret, err)
	}

	cfg = &Config{}
	if _, err := cfg.JWTSecret(); err == nil {
		t.Fatalf("expected missing secret error")
	}
}
