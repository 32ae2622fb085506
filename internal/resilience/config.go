package resilience

import "time"

// FromRetryConfig builds a fixed-backoff RetryConfig from config values, keeping defaults for
// anything non-positive.
func FromRetryConfig(maxAttempts, backoffMs int) RetryConfig {
	cfg := FixedBackoff(3, 250*time.Millisecond)
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if backoffMs > 0 {
		cfg.InitialBackoff = time.Duration(backoffMs) * time.Millisecond
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}

// FromCircuitConfig builds a CircuitBreakerConfig from config values.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
