package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/metrics"
)

// GeneratorConfig holds the chat completion settings.
type GeneratorConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	Temperature   float32
	TopP          float32
	MaxTokens     int
	Seed          int
	Provider      string
	Timeout       time.Duration
	Logger        *zap.Logger
}

// Generator implements domain.Generator over chat completions.
type Generator struct {
	client   *openai.Client
	cfg      GeneratorConfig
	provider string
	logger   *zap.Logger
}

// NewGenerator creates a chat completion adapter.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client:   newClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout),
		cfg:      *cfg,
		provider: cfg.Provider,
		logger:   logger,
	}
}

// Complete sends one system+user prompt. A failed call is retried once with
// the fallback model.
func (g *Generator) Complete(ctx context.Context, p domain.Prompt, model string) (string, error) {
	if model == "" {
		model = g.cfg.Model
	}

	out, err := g.complete(ctx, p, model)
	if err == nil {
		return out, nil
	}
	fallback := g.cfg.FallbackModel
	if fallback == "" || fallback == model || ctx.Err() != nil {
		return "", err
	}

	g.logger.Warn("Generation failed, retrying with fallback model",
		zap.String("model", model),
		zap.String("fallback", fallback),
		zap.Error(err),
	)
	return g.complete(ctx, p, fallback)
}

func (g *Generator) complete(ctx context.Context, p domain.Prompt, model string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages(p),
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if g.cfg.Seed != 0 {
		seed := g.cfg.Seed
		req.Seed = &seed
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, model).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "error").Inc()
		return "", parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "error").Inc()
		return "", fmt.Errorf("empty completion from %s: %w", model, domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, model, "success").Inc()
	g.logger.Debug("Generation completed",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

func messages(p domain.Prompt) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.User})
}
