package config

import (
	"time"

	"github.com/tendant/simple-signup/pkg/ratelimit"
)

// RateLimitConfig contains the issuance cooldown and per-IP request
// throttling settings.
type RateLimitConfig struct {
	// CooldownWindow is the minimum spacing between accepted token
	// issuances per account and action kind
	CooldownWindow time.Duration `env:"RATELIMIT_COOLDOWN_WINDOW" env-default:"60s"`

	// Per-IP request throttling in front of the issuance endpoints
	PerIPEnabled    bool    `env:"RATELIMIT_PER_IP_ENABLED" env-default:"true"`
	PerIPRefillRate float64 `env:"RATELIMIT_PER_IP_REFILL_RATE" env-default:"1.67"`
	PerIPBurst      int     `env:"RATELIMIT_PER_IP_BURST" env-default:"20"`
}

// DefaultRateLimitConfig returns a RateLimitConfig with sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		CooldownWindow: ratelimit.DefaultWindow,

		// Per-IP: ~100 requests per minute
		PerIPEnabled:    true,
		PerIPRefillRate: 1.67,
		PerIPBurst:      20,
	}
}

// NewRateLimitConfigFromEnv loads RateLimitConfig from environment variables
func NewRateLimitConfigFromEnv() RateLimitConfig {
	return RateLimitConfig{
		CooldownWindow:  GetEnvDuration("RATELIMIT_COOLDOWN_WINDOW", ratelimit.DefaultWindow),
		PerIPEnabled:    GetEnvBool("RATELIMIT_PER_IP_ENABLED", true),
		PerIPRefillRate: GetEnvFloat64("RATELIMIT_PER_IP_REFILL_RATE", 1.67),
		PerIPBurst:      GetEnvInt("RATELIMIT_PER_IP_BURST", 20),
	}
}
