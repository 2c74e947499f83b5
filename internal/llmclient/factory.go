// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// NewClient builds the Generator from configuration: one client per tier behind a
// router, all sharing a single rate limiter.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		powerful, err := NewGeminiClient(ctx, cfg, cfg.Model, logger)
		if err != nil {
			return nil, err
		}
		fastModel := cfg.FastModel
		if fastModel == "" {
			fastModel = cfg.Model
		}
		fast, err := NewGeminiClient(ctx, cfg, fastModel, logger)
		if err != nil {
			return nil, err
		}
		router, err := NewLLMRouter(logger, fast, powerful)
		if err != nil {
			return nil, err
		}
		return NewRateLimitedClient(router, cfg.RequestsPerSecond, logger), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}
}
