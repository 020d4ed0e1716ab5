package resilience

import (
	"time"

	"github.com/sells-group/dqi-engine/internal/config"
)

// Policy pairs the retry and breaker settings applied to one collaborator.
type Policy struct {
	Retry   RetryConfig
	Breaker CircuitBreakerConfig
}

// PolicyFrom builds a Policy from the resilience config section. Zero or
// negative values keep the defaults, and a max backoff below the initial
// backoff is raised to match it.
func PolicyFrom(c config.ResilienceConfig) Policy {
	p := Policy{Retry: DefaultRetryConfig(), Breaker: DefaultCircuitBreakerConfig()}
	if c.MaxAttempts > 0 {
		p.Retry.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		p.Retry.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		p.Retry.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}
	if p.Retry.MaxBackoff < p.Retry.InitialBackoff {
		p.Retry.MaxBackoff = p.Retry.InitialBackoff
	}
	if c.FailureThreshold > 0 {
		p.Breaker.FailureThreshold = c.FailureThreshold
	}
	if c.ResetTimeoutSecs > 0 {
		p.Breaker.ResetTimeout = time.Duration(c.ResetTimeoutSecs) * time.Second
	}
	return p
}

// NewBreaker returns a fresh breaker with the policy's settings. Each
// collaborator gets its own so one outage does not trip the other.
func (p Policy) NewBreaker() *CircuitBreaker {
	return NewCircuitBreaker(p.Breaker)
}
