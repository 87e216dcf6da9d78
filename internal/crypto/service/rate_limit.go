package service

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedKeyWrapper throttles calls to an underlying KeyWrapper with a token bucket.
//
// Managed key services enforce per-account request quotas; bulk reads decrypt one data
// key per secret version and would otherwise burst past them. Calls wait for a token and
// give up only when ctx is done.
type RateLimitedKeyWrapper struct {
	next    KeyWrapper
	limiter *rate.Limiter
}

// NewRateLimitedKeyWrapper wraps next allowing rps calls per second with the given burst.
// A non-positive rps disables limiting.
func NewRateLimitedKeyWrapper(next KeyWrapper, rps float64, burst int) *RateLimitedKeyWrapper {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedKeyWrapper{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// WrapKey waits for a token and delegates to the wrapped KeyWrapper.
func (r *RateLimitedKeyWrapper) WrapKey(ctx context.Context, dataKey []byte) (string, []byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", nil, fmt.Errorf("key wrap rate limit: %w", err)
	}
	return r.next.WrapKey(ctx, dataKey)
}

// UnwrapKey waits for a token and delegates to the wrapped KeyWrapper.
func (r *RateLimitedKeyWrapper) UnwrapKey(ctx context.Context, keyID string, wrapped []byte) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("key unwrap rate limit: %w", err)
	}
	return r.next.UnwrapKey(ctx, keyID, wrapped)
}
