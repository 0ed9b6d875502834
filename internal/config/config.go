// Package config loads the YAML service configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/corpintel/internal/domain/scenario"
)

// Config holds the corpintel configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Generation   GenerationConfig   `yaml:"generation"`
	Search       SearchConfig       `yaml:"search"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Sufficiency  SufficiencyConfig  `yaml:"sufficiency"`
	Augmentation AugmentationConfig `yaml:"augmentation"`
	Context      ContextConfig      `yaml:"context"`
	Cache        CacheConfig        `yaml:"cache"`
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Corpus           string   `yaml:"corpus"` // corpus name inside the key namespace
}

// EmbeddingConfig holds the embedding provider and index settings.
type EmbeddingConfig struct {
	Provider        string `yaml:"provider"`
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	Dimensions      int    `yaml:"dimensions"`
	MaxBatchSize    int    `yaml:"max_batch_size"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	TimeoutSec      int    `yaml:"timeout_sec"`
}

// GenerationConfig holds the answer generator settings.
type GenerationConfig struct {
	Provider      string  `yaml:"provider"` // openai, genai
	APIKey        string  `yaml:"api_key"`
	BaseURL       string  `yaml:"base_url"`
	Model         string  `yaml:"model"`
	FallbackModel string  `yaml:"fallback_model"`
	Temperature   float32 `yaml:"temperature"`
	TopP          float32 `yaml:"top_p"`
	MaxTokens     int     `yaml:"max_tokens"`
	Seed          int     `yaml:"seed"`
	TimeoutSec    int     `yaml:"timeout_sec"`
}

// SearchConfig holds the external search settings.
type SearchConfig struct {
	Provider      string  `yaml:"provider"` // genai, none
	APIKey        string  `yaml:"api_key"`
	Model         string  `yaml:"model"`
	FallbackModel string  `yaml:"fallback_model"`
	MaxResults    int     `yaml:"max_results"`
	Temperature   float32 `yaml:"temperature"`
	TimeoutSec    int     `yaml:"timeout_sec"`
}

// RetrievalConfig holds retrieval and fusion settings.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	SimilarityWeight    float64 `yaml:"similarity_weight"`
	EntityWeight        float64 `yaml:"entity_weight"`
}

// SufficiencyConfig holds the local evidence thresholds.
type SufficiencyConfig struct {
	MinDocs          int     `yaml:"min_docs"`
	MinAvgSimilarity float64 `yaml:"min_avg_similarity"`
}

// AugmentationConfig holds the search decision settings.
type AugmentationConfig struct {
	MandatoryScenarios []string `yaml:"mandatory_scenarios"`
}

// ContextConfig bounds the assembled context.
type ContextConfig struct {
	CharBudget  int `yaml:"char_budget"`
	MaxLocal    int `yaml:"max_local"`
	MaxExternal int `yaml:"max_external"`
}

// CacheConfig holds the embedding cache and search memo settings.
type CacheConfig struct {
	Backend         string `yaml:"backend"` // redis, memory, none
	SearchTTLSec    int    `yaml:"search_ttl_sec"`
	EmbeddingTTLSec int    `yaml:"embedding_ttl_sec"`
}

// SearchTTL returns the search memo TTL.
func (c CacheConfig) SearchTTL() time.Duration { return time.Duration(c.SearchTTLSec) * time.Second }

// EmbeddingTTL returns the embedding cache TTL.
func (c CacheConfig) EmbeddingTTL() time.Duration {
	return time.Duration(c.EmbeddingTTLSec) * time.Second
}

// AnalysisConfig holds pipeline-level settings.
type AnalysisConfig struct {
	ExtractFromQuery *bool `yaml:"extract_from_query"` // default true
	HistorySize      int   `yaml:"history_size"`
}

// Load reads .env, then config/<env>.yaml.
func Load(env string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates one YAML file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads the given env files that exist. Variables already set in
// the environment win.
func LoadDotEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if fileExists(f) {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.Corpus == "" {
		c.Database.Corpus = "corpus"
	}

	c.applyModelDefaults()
	c.applyPipelineDefaults()

	if c.Cache.Backend == "" {
		c.Cache.Backend = "redis"
	}
	if c.Cache.SearchTTLSec <= 0 {
		c.Cache.SearchTTLSec = 3600
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 7 * 24 * 3600
	}
}

func (c *Config) applyModelDefaults() {
	e := &c.Embedding
	if e.Provider == "" {
		e.Provider = "dashscope"
	}
	if e.BaseURL == "" {
		e.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if e.Model == "" {
		e.Model = "text-embedding-v3"
	}
	if e.Dimensions <= 0 {
		e.Dimensions = 1024
	}
	if e.MaxBatchSize <= 0 {
		e.MaxBatchSize = 10
	}
	if e.HNSWM <= 0 {
		e.HNSWM = 16
	}
	if e.HNSWEFConstruct <= 0 {
		e.HNSWEFConstruct = 200
	}
	if e.TimeoutSec <= 0 {
		e.TimeoutSec = 30
	}

	g := &c.Generation
	if g.Provider == "" {
		g.Provider = "openai"
	}
	if g.BaseURL == "" && g.Provider == "openai" {
		g.BaseURL = e.BaseURL
	}
	if g.APIKey == "" && g.Provider == "openai" {
		g.APIKey = e.APIKey
	}
	if g.Model == "" {
		g.Model = "qwen-max"
	}
	if g.FallbackModel == "" {
		g.FallbackModel = "qwen-turbo"
	}
	if g.Temperature <= 0 {
		g.Temperature = 0.2
	}
	if g.TopP <= 0 {
		g.TopP = 0.9
	}
	if g.MaxTokens <= 0 {
		g.MaxTokens = 5000
	}
	if g.Seed == 0 {
		g.Seed = 12345
	}
	if g.TimeoutSec <= 0 {
		g.TimeoutSec = 120
	}

	s := &c.Search
	if s.Provider == "" {
		s.Provider = "genai"
	}
	if s.Model == "" {
		s.Model = "gemini-2.5-flash"
	}
	if s.MaxResults <= 0 {
		s.MaxResults = 5
	}
	if s.Temperature <= 0 {
		s.Temperature = 0.3
	}
	if s.TimeoutSec <= 0 {
		s.TimeoutSec = 60
	}
}

func (c *Config) applyPipelineDefaults() {
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 15
	}
	if c.Retrieval.SimilarityThreshold <= 0 {
		c.Retrieval.SimilarityThreshold = 0.5
	}
	if c.Retrieval.SimilarityWeight <= 0 && c.Retrieval.EntityWeight <= 0 {
		c.Retrieval.SimilarityWeight = 0.6
		c.Retrieval.EntityWeight = 0.4
	}
	if c.Sufficiency.MinDocs <= 0 {
		c.Sufficiency.MinDocs = 2
	}
	if c.Sufficiency.MinAvgSimilarity <= 0 {
		c.Sufficiency.MinAvgSimilarity = 0.5
	}
	if c.Context.CharBudget <= 0 {
		c.Context.CharBudget = 6000
	}
	if c.Context.MaxLocal <= 0 {
		c.Context.MaxLocal = 3
	}
	if c.Context.MaxExternal <= 0 {
		c.Context.MaxExternal = 2
	}
	if c.Analysis.ExtractFromQuery == nil {
		on := true
		c.Analysis.ExtractFromQuery = &on
	}
	if c.Analysis.HistorySize <= 0 {
		c.Analysis.HistorySize = 20
	}
}

// MandatoryScenarios resolves augmentation.mandatory_scenarios.
func (c *Config) MandatoryScenarios() ([]scenario.ID, error) {
	ids := make([]scenario.ID, 0, len(c.Augmentation.MandatoryScenarios))
	for _, s := range c.Augmentation.MandatoryScenarios {
		id, err := scenario.ParseID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// MinCharBudget leaves room for the fixed context sections and at least one passage.
const MinCharBudget = 1000

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}
	if len(c.Database.Addrs) == 0 {
		errs = append(errs, errors.New("database.addrs is required"))
	}
	switch c.Generation.Provider {
	case "openai", "genai":
	default:
		errs = append(errs, fmt.Errorf("generation.provider must be \"openai\" or \"genai\", got %q", c.Generation.Provider))
	}
	switch c.Search.Provider {
	case "genai", "none":
	default:
		errs = append(errs, fmt.Errorf("search.provider must be \"genai\" or \"none\", got %q", c.Search.Provider))
	}
	switch c.Cache.Backend {
	case "redis", "memory", "none":
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be \"redis\", \"memory\" or \"none\", got %q", c.Cache.Backend))
	}
	if t := c.Retrieval.SimilarityThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("retrieval.similarity_threshold must be in [0,1], got %v", t))
	}
	if w := c.Retrieval.SimilarityWeight + c.Retrieval.EntityWeight; math.Abs(w-1) > 1e-6 ||
		c.Retrieval.SimilarityWeight < 0 || c.Retrieval.EntityWeight < 0 {
		errs = append(errs, fmt.Errorf("retrieval weights must be non-negative and sum to 1, got %v + %v",
			c.Retrieval.SimilarityWeight, c.Retrieval.EntityWeight))
	}
	if c.Context.CharBudget < MinCharBudget {
		errs = append(errs, fmt.Errorf("context.char_budget must be at least %d, got %d",
			MinCharBudget, c.Context.CharBudget))
	}
	if _, err := c.MandatoryScenarios(); err != nil {
		errs = append(errs, fmt.Errorf("augmentation.mandatory_scenarios: %w", err))
	}
	return errors.Join(errs...)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
