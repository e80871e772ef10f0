package config

import "fmt"

// Validate rejects configurations that would misprice loans or leave the
// RPC server unprotected against runaway clients.
func (c *Config) Validate() error {
	if _, err := c.AdminAddress(); err != nil {
		return err
	}
	loanParams, err := c.LoanParameters()
	if err != nil {
		return err
	}
	if loanParams.MinAmount.Cmp(loanParams.MaxAmount) > 0 {
		return fmt.Errorf("loan: MinAmount > MaxAmount")
	}
	if loanParams.MinDurationSeconds == 0 || loanParams.MinDurationSeconds > loanParams.MaxDurationSeconds {
		return fmt.Errorf("loan: MinDurationSeconds > MaxDurationSeconds or zero")
	}
	if loanParams.RateFloorBps > loanParams.RateWorstBps {
		return fmt.Errorf("loan: RateFloorBps > RateWorstBps")
	}
	if loanParams.MinCreditScore > 1000 || loanParams.AutoApproveScore > 1000 {
		return fmt.Errorf("loan: credit score thresholds exceed 1000")
	}
	if _, err := c.MinDeposit(); err != nil {
		return err
	}
	if c.Pool.ReserveFactorBps > 10_000 {
		return fmt.Errorf("pool: ReserveFactorBps exceeds 10000")
	}
	model := c.RateModel()
	if model.KinkBps == 0 || model.KinkBps > 10_000 {
		return fmt.Errorf("pool: KinkBps must be in (0, 10000]")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("ratelimit: RequestsPerSecond <= 0")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit: Burst <= 0")
	}
	return nil
}
