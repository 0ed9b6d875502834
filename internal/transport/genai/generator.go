package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/metrics"
)

// Generator implements domain.Generator on Gemini models.
type Generator struct {
	models models
	cfg    Config
	logger *zap.Logger
}

// NewGenerator creates a generator on an existing client.
func NewGenerator(client *genai.Client, cfg Config) *Generator {
	return newGenerator(client.Models, cfg)
}

func newGenerator(m models, cfg Config) *Generator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{models: m, cfg: cfg, logger: logger}
}

// Complete generates with the system prompt as system instruction and
// retries once with the fallback model.
func (g *Generator) Complete(ctx context.Context, p domain.Prompt, model string) (string, error) {
	if model == "" {
		model = g.cfg.Model
	}
	out, err := g.complete(ctx, p, model)
	if err == nil || g.cfg.FallbackModel == "" || g.cfg.FallbackModel == model || ctx.Err() != nil {
		return out, err
	}

	g.logger.Warn("Generation failed, retrying with fallback model",
		zap.String("model", model),
		zap.String("fallback", g.cfg.FallbackModel),
		zap.Error(err),
	)
	return g.complete(ctx, p, g.cfg.FallbackModel)
}

func (g *Generator) complete(ctx context.Context, p domain.Prompt, model string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(g.cfg.Temperature)}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, model, genai.Text(p.User), cfg)
	metrics.GenerationRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, model, "error").Inc()
		return "", fmt.Errorf("generate with %s: %v: %w", model, err, domain.ErrGenerationProviderError)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, model, "error").Inc()
		return "", fmt.Errorf("empty completion from %s: %w", model, domain.ErrGenerationProviderError)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(provider, model, "success").Inc()
	return text, nil
}
