package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"lendnet/native/loan"
	"lendnet/native/pool"
)

// Config is the on-disk configuration for lendnetd.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	// GenesisAdmin is granted ADMIN on an empty database so the operator
	// can bootstrap further role grants over RPC.
	GenesisAdmin string `toml:"GenesisAdmin"`

	ReadTimeoutSeconds  uint64 `toml:"ReadTimeoutSeconds"`
	WriteTimeoutSeconds uint64 `toml:"WriteTimeoutSeconds"`
	IdleTimeoutSeconds  uint64 `toml:"IdleTimeoutSeconds"`

	Auth      Auth      `toml:"auth"`
	RateLimit RateLimit `toml:"ratelimit"`
	Loan      Loan      `toml:"loan"`
	Pool      Pool      `toml:"pool"`
}

// Auth configures bearer-token authentication for the RPC server. The
// signing secret may be given inline, via a file, or via an environment
// variable; exactly one source must resolve to a non-empty value.
type Auth struct {
	JWTSecret     string `toml:"JWTSecret"`
	JWTSecretFile string `toml:"JWTSecretFile"`
	JWTSecretEnv  string `toml:"JWTSecretEnv"`
}

// RateLimit throttles RPC requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Loan overrides the lending engine parameters. Zero values fall back to
// the engine defaults, so a config file only names the knobs it changes.
type Loan struct {
	MinAmount             string `toml:"MinAmount"`
	MaxAmount             string `toml:"MaxAmount"`
	MinDurationSeconds    uint64 `toml:"MinDurationSeconds"`
	MaxDurationSeconds    uint64 `toml:"MaxDurationSeconds"`
	MinCreditScore        uint64 `toml:"MinCreditScore"`
	AutoApproveScore      uint64 `toml:"AutoApproveScore"`
	MaxActiveLoans        int    `toml:"MaxActiveLoans"`
	GracePeriodSeconds    uint64 `toml:"GracePeriodSeconds"`
	DefaultAfterSeconds   uint64 `toml:"DefaultAfterSeconds"`
	LatePenaltyBpsPerWeek uint64 `toml:"LatePenaltyBpsPerWeek"`
	RateFloorBps          uint64 `toml:"RateFloorBps"`
	RateWorstBps          uint64 `toml:"RateWorstBps"`
	CollateralDiscountBps uint64 `toml:"CollateralDiscountBps"`
	CompletionBonus       int64  `toml:"CompletionBonus"`
	DefaultPenalty        int64  `toml:"DefaultPenalty"`
}

// Pool overrides the liquidity pool options and interest rate curve.
type Pool struct {
	MinDeposit       string `toml:"MinDeposit"`
	ReserveFactorBps uint64 `toml:"ReserveFactorBps"`
	BaseBps          uint64 `toml:"BaseBps"`
	Slope1Bps        uint64 `toml:"Slope1Bps"`
	Slope2Bps        uint64 `toml:"Slope2Bps"`
	KinkBps          uint64 `toml:"KinkBps"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./lendnet-data"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "local"
	}
	if c.ReadTimeoutSeconds == 0 {
		c.ReadTimeoutSeconds = 15
	}
	if c.WriteTimeoutSeconds == 0 {
		c.WriteTimeoutSeconds = 15
	}
	if c.IdleTimeoutSeconds == 0 {
		c.IdleTimeoutSeconds = 60
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 20
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 40
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		Auth: Auth{JWTSecretEnv: "LENDNET_JWT_SECRET"},
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// AdminAddress parses the configured genesis admin. A blank setting yields
// the zero address, which the ledger treats as "no bootstrap grant".
func (c *Config) AdminAddress() (common.Address, error) {
	trimmed := strings.TrimSpace(c.GenesisAdmin)
	if trimmed == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid GenesisAdmin address %q", trimmed)
	}
	return common.HexToAddress(trimmed), nil
}

// JWTSecret resolves the RPC signing secret from the configured source.
func (c *Config) JWTSecret() (string, error) {
	if secret := strings.TrimSpace(c.Auth.JWTSecret); secret != "" {
		return secret, nil
	}
	if file := strings.TrimSpace(c.Auth.JWTSecretFile); file != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read auth.JWTSecretFile: %w", err)
		}
		secret := strings.TrimSpace(string(raw))
		if secret == "" {
			return "", fmt.Errorf("auth.JWTSecretFile %s is empty", file)
		}
		return secret, nil
	}
	if env := strings.TrimSpace(c.Auth.JWTSecretEnv); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("auth.JWTSecretEnv %s is not set", env)
	}
	return "", fmt.Errorf("no JWT secret configured")
}

// LoanParameters merges the configured overrides onto the engine defaults.
func (c *Config) LoanParameters() (loan.Parameters, error) {
	params := loan.DefaultParameters()
	if min, err := parseAmount(c.Loan.MinAmount); err != nil {
		return params, fmt.Errorf("invalid loan.MinAmount: %w", err)
	} else if min != nil {
		params.MinAmount = min
	}
	if max, err := parseAmount(c.Loan.MaxAmount); err != nil {
		return params, fmt.Errorf("invalid loan.MaxAmount: %w", err)
	} else if max != nil {
		params.MaxAmount = max
	}
	if c.Loan.MinDurationSeconds > 0 {
		params.MinDurationSeconds = c.Loan.MinDurationSeconds
	}
	if c.Loan.MaxDurationSeconds > 0 {
		params.MaxDurationSeconds = c.Loan.MaxDurationSeconds
	}
	if c.Loan.MinCreditScore > 0 {
		params.MinCreditScore = c.Loan.MinCreditScore
	}
	if c.Loan.AutoApproveScore > 0 {
		params.AutoApproveScore = c.Loan.AutoApproveScore
	}
	if c.Loan.MaxActiveLoans > 0 {
		params.MaxActiveLoans = c.Loan.MaxActiveLoans
	}
	if c.Loan.GracePeriodSeconds > 0 {
		params.GracePeriod = time.Duration(c.Loan.GracePeriodSeconds) * time.Second
	}
	if c.Loan.DefaultAfterSeconds > 0 {
		params.DefaultAfter = time.Duration(c.Loan.DefaultAfterSeconds) * time.Second
	}
	if c.Loan.LatePenaltyBpsPerWeek > 0 {
		params.LatePenaltyBpsPerWeek = c.Loan.LatePenaltyBpsPerWeek
	}
	if c.Loan.RateFloorBps > 0 {
		params.RateFloorBps = c.Loan.RateFloorBps
	}
	if c.Loan.RateWorstBps > 0 {
		params.RateWorstBps = c.Loan.RateWorstBps
	}
	if c.Loan.CollateralDiscountBps > 0 {
		params.CollateralDiscountBps = c.Loan.CollateralDiscountBps
	}
	if c.Loan.CompletionBonus > 0 {
		params.CompletionBonus = c.Loan.CompletionBonus
	}
	if c.Loan.DefaultPenalty > 0 {
		params.DefaultPenalty = c.Loan.DefaultPenalty
	}
	return params, nil
}

// RateModel builds the pool interest curve from the configured overrides.
func (c *Config) RateModel() *pool.RateModel {
	model := pool.DefaultRateModel.Clone()
	if c.Pool.BaseBps > 0 {
		model.BaseBps = c.Pool.BaseBps
	}
	if c.Pool.Slope1Bps > 0 {
		model.Slope1Bps = c.Pool.Slope1Bps
	}
	if c.Pool.Slope2Bps > 0 {
		model.Slope2Bps = c.Pool.Slope2Bps
	}
	if c.Pool.KinkBps > 0 {
		model.KinkBps = c.Pool.KinkBps
	}
	return model
}

// MinDeposit parses the configured pool deposit floor, nil when unset.
func (c *Config) MinDeposit() (*big.Int, error) {
	min, err := parseAmount(c.Pool.MinDeposit)
	if err != nil {
		return nil, fmt.Errorf("invalid pool.MinDeposit: %w", err)
	}
	return min, nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("not a base-10 integer: %q", trimmed)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("must not be negative: %q", trimmed)
	}
	return amount, nil
}
