package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

// RateLimitedClient spaces out Generator calls to stay under provider quotas.
type RateLimitedClient struct {
	next    schemas.LLMClient
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedClient wraps next. A non-positive rps disables limiting.
func NewRateLimitedClient(next schemas.LLMClient, rps float64, logger *zap.Logger) *RateLimitedClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("rate_limiter"),
	}
}

// Generate waits for a token, then delegates.
func (c *RateLimitedClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if c.limiter.Limit() != rate.Inf && c.limiter.Tokens() < 1 {
		c.logger.Debug("Waiting for rate limit")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return c.next.Generate(ctx, req)
}

// Close closes the wrapped client.
func (c *RateLimitedClient) Close() error { return c.next.Close() }
