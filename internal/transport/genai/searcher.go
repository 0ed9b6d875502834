// Package genai runs grounded web search and optional generation on the
// Gemini API.
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/corpintel/internal/domain"
	"github.com/kailas-cloud/corpintel/internal/domain/external"
	"github.com/kailas-cloud/corpintel/internal/metrics"
)

const provider = "genai"

// DefaultMaxResults caps the results kept from one search.
const DefaultMaxResults = 5

// models is the subset of *genai.Models the adapters call.
type models interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini adapter settings.
type Config struct {
	APIKey        string
	Model         string
	FallbackModel string
	MaxResults    int
	Temperature   float32
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// Searcher answers external queries with the Google Search tool enabled.
type Searcher struct {
	models models
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewSearcher creates a searcher on an existing client.
func NewSearcher(client *genai.Client, cfg Config) *Searcher {
	return newSearcher(client.Models, cfg)
}

func newSearcher(m models, cfg Config) *Searcher {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{models: m, cfg: cfg, logger: logger, now: time.Now}
}

// Search runs one grounded search. The fallback model is tried once when the
// primary call fails or yields no results.
func (s *Searcher) Search(ctx context.Context, q external.Query) ([]external.Result, error) {
	model := q.Model
	if model == "" {
		model = s.cfg.Model
	}

	results, err := s.search(ctx, q, model)
	if (err == nil && len(results) > 0) || s.cfg.FallbackModel == "" || s.cfg.FallbackModel == model {
		return results, err
	}
	if ctx.Err() != nil {
		return nil, domain.NewCollaboratorError("search", ctx.Err())
	}

	s.logger.Warn("Search retrying with fallback model",
		zap.String("model", model),
		zap.String("fallback", s.cfg.FallbackModel),
		zap.Error(err),
	)
	return s.search(ctx, q, s.cfg.FallbackModel)
}

func (s *Searcher) search(ctx context.Context, q external.Query, model string) ([]external.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(searchSystem, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:       genai.Ptr(s.cfg.Temperature),
	}

	start := time.Now()
	resp, err := s.models.GenerateContent(ctx, model, genai.Text(searchPrompt(q, s.cfg.MaxResults)), cfg)
	metrics.GenerationRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(provider, model, "error").Inc()
		return nil, domain.NewCollaboratorError("search", err)
	}
	metrics.GenerationRequestsTotal.WithLabelValues(provider, model, "success").Inc()

	results := ParseResults(resp.Text(), q, s.now())
	attachGrounding(results, resp)
	if len(results) > s.cfg.MaxResults {
		results = results[:s.cfg.MaxResults]
	}

	s.logger.Debug("Search completed",
		zap.String("model", model),
		zap.String("query", q.Text),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// attachGrounding fills missing URLs from the grounding chunks, in order.
func attachGrounding(results []external.Result, resp *genai.GenerateContentResponse) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return
	}
	var urls []string
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk != nil && chunk.Web != nil && chunk.Web.URI != "" {
			urls = append(urls, chunk.Web.URI)
		}
	}
	for i := range results {
		if results[i].URL == "" && i < len(urls) {
			results[i].URL = urls[i]
		}
	}
}

const searchSystem = "你是专业的企业信息检索助手，只依据联网搜索得到的公开信息作答，不编造来源。"

func searchPrompt(q external.Query, maxResults int) string {
	var b strings.Builder
	b.WriteString("请使用联网搜索功能，搜索以下信息：\n\n")
	fmt.Fprintf(&b, "搜索主题：%s\n", q.Text)
	if q.Entity != "" {
		fmt.Fprintf(&b, "企业名称：%s\n", q.Entity)
	}
	if q.Scenario != "" {
		fmt.Fprintf(&b, "分析场景：%s\n", q.Scenario)
	}
	b.WriteString("\n具体要求：\n")
	b.WriteString("1. 信息类型：官方公告、权威报道、研究报告等\n")
	fmt.Fprintf(&b, "2. 数量要求：%d条最相关的结果\n", maxResults)
	b.WriteString("3. 质量要求：信息准确、来源可靠、内容详实\n\n")
	b.WriteString("请只返回JSON数组，每条结果包含：\n")
	b.WriteString("- title: 信息标题\n")
	b.WriteString("- content: 内容摘要（300-400字，包含关键数据）\n")
	b.WriteString("- source: 信息来源（具体机构/媒体名称）\n")
	b.WriteString("- url: 原文链接（如果可得）\n")
	b.WriteString("- publish_date: 发布日期\n")
	b.WriteString("- relevance_score: 相关性评分（0-1）\n")
	return b.String()
}
