// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

// ErrEmptyGeneration is returned when the model produced no text.
var ErrEmptyGeneration = errors.New("model returned no content")

// contentGenerator is the slice of genai.Models the client uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient implements schemas.LLMClient on top of the official genai SDK.
// It makes exactly one call per Generate; retries belong to callers.
type GeminiClient struct {
	models    contentGenerator
	model     string
	timeout   time.Duration
	maxTokens int
	logger    *zap.Logger
}

// NewGeminiClient builds a client for one model name.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, model string, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set CODESMITH_GEMINI_API_KEY or GEMINI_API_KEY")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiClient(cli.Models, cfg, model, logger), nil
}

func newGeminiClient(models contentGenerator, cfg config.LLMConfig, model string, logger *zap.Logger) *GeminiClient {
	return &GeminiClient{
		models:    models,
		model:     model,
		timeout:   cfg.APITimeout,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm_client.gemini").With(zap.String("model", model)),
	}
}

// Generate sends the prompts to Gemini and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: req.UserPrompt}}}},
		c.buildConfig(req),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyGeneration
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w (finish reason: %s)", ErrEmptyGeneration, resp.Candidates[0].FinishReason)
	}

	c.logger.Debug("LLM generation complete",
		zap.Duration("duration", time.Since(start)),
		zap.String("tier", string(req.Tier)),
		zap.Int("response_chars", sb.Len()),
	)
	return sb.String(), nil
}

func (c *GeminiClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Options.Temperature)),
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		gc.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if c.maxTokens > 0 {
		gc.MaxOutputTokens = int32(c.maxTokens)
	}
	if req.Options.TopP > 0 {
		gc.TopP = genai.Ptr(float32(req.Options.TopP))
	}
	if req.Options.TopK > 0 {
		gc.TopK = genai.Ptr(float32(req.Options.TopK))
	}
	if req.Options.ForceJSONFormat {
		gc.ResponseMIMEType = "application/json"
	}
	return gc
}

// Close is a no-op; the genai client holds no resources that need releasing.
func (c *GeminiClient) Close() error { return nil }
