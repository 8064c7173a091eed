package collector

import (
	"math"
	"math/rand"
	"time"
)

// CooldownConfig defines the wait between a failed or ended connection
// and the next connect attempt. The default Multiplier of 1.0 yields a
// fixed cooldown; raising it turns the policy into capped exponential
// backoff for producers that stay down for long stretches.
type CooldownConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Delay returns the cooldown before reconnect attempt N (1-based). The
// attempt counter resets on every successful connect.
func (c CooldownConfig) Delay(attempt int, rng *rand.Rand) time.Duration {
	if c.InitialDelay <= 0 {
		return 0
	}
	d := float64(c.InitialDelay)
	if attempt > 1 {
		m := c.Multiplier
		if m < 1.0 {
			m = 1.0
		}
		d *= math.Pow(m, float64(attempt-1))
	}
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		d *= f
	}
	return time.Duration(d)
}
