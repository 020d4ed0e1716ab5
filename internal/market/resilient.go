package market

import (
	"context"

	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/resilience"
)

// ResilientProvider retries transient provider failures and stops calling a
// provider whose circuit has opened, so that analyses fall back to sector
// defaults quickly instead of waiting on a dead service.
type ResilientProvider struct {
	inner   Provider
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewResilientProvider decorates inner with retry and breaker.
func NewResilientProvider(inner Provider, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *ResilientProvider {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("market", "rate")
	}
	return &ResilientProvider{inner: inner, retry: retry, breaker: breaker}
}

// MarketCapRate implements Provider.
func (r *ResilientProvider) MarketCapRate(ctx context.Context, pt model.PropertyType, location string) (float64, error) {
	return r.call(ctx, func(ctx context.Context) (float64, error) {
		return r.inner.MarketCapRate(ctx, pt, location)
	})
}

// CommercialRate implements Provider.
func (r *ResilientProvider) CommercialRate(ctx context.Context, loanAmount, ltv float64) (float64, error) {
	return r.call(ctx, func(ctx context.Context) (float64, error) {
		return r.inner.CommercialRate(ctx, loanAmount, ltv)
	})
}

func (r *ResilientProvider) call(ctx context.Context, fn func(context.Context) (float64, error)) (float64, error) {
	return resilience.ExecuteVal(ctx, r.breaker, func(ctx context.Context) (float64, error) {
		return resilience.DoVal(ctx, r.retry, fn)
	})
}
