package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ethix/internal/audit"
	"ethix/internal/llm"
	"ethix/internal/rag"
)

const (
	DefaultLLMProvider    = "openai"
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLLMBaseURL     = "https://api.openai.com/v1"
	DefaultLLMTemperature = 0.4
	DefaultLLMMaxTokens   = 2048

	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultEmbedCacheSize = 256

	DefaultStorePath  = "vectorstore"
	DefaultCollection = "guidelines"
	DefaultSourceDir  = "guidelines"
	DefaultChunkSize  = 400
	DefaultOverlap    = 60

	DefaultOutputDir = "reports"
)

// LLMConfig configures the chat-completion backend shared by the
// extractor, evaluator and generative recommender.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// EmbeddingConfig configures the embedding backend used by the
// guideline store. APIKey falls back to the LLM key when empty.
type EmbeddingConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	CacheSize int    `mapstructure:"cache_size" yaml:"cache_size"`
}

// StoreConfig locates the guideline corpus and its persisted index.
type StoreConfig struct {
	PersistPath string `mapstructure:"persist_path" yaml:"persist_path"`
	Collection  string `mapstructure:"collection" yaml:"collection"`
	SourceDir   string `mapstructure:"source_dir" yaml:"source_dir"`
	ChunkSize   int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	Overlap     int    `mapstructure:"overlap" yaml:"overlap"`
}

// RetrievalConfig bounds the per-factor fan-out and retention counts.
type RetrievalConfig struct {
	FactorFanout int `mapstructure:"factor_fanout" yaml:"factor_fanout"`
	FactorKeep   int `mapstructure:"factor_keep" yaml:"factor_keep"`
	QueryKeep    int `mapstructure:"query_keep" yaml:"query_keep"`
}

// EvaluatorConfig selects the output contract and prompt bounds.
type EvaluatorConfig struct {
	Contract        string `mapstructure:"contract" yaml:"contract"`
	SnippetLimit    int    `mapstructure:"snippet_limit" yaml:"snippet_limit"`
	SnippetMaxChars int    `mapstructure:"snippet_max_chars" yaml:"snippet_max_chars"`
}

// LoopConfig controls the human-feedback revision pass.
type LoopConfig struct {
	Policy    string  `mapstructure:"policy" yaml:"policy"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// RecommendConfig selects the recommendation mode.
type RecommendConfig struct {
	Mode         string `mapstructure:"mode" yaml:"mode"`
	ContextLimit int    `mapstructure:"context_limit" yaml:"context_limit"`
}

// CrawlerConfig configures service-description acquisition from the web.
type CrawlerConfig struct {
	Enabled      bool          `mapstructure:"enabled" yaml:"enabled"`
	SearchAPIKey string        `mapstructure:"search_api_key" yaml:"search_api_key"`
	SearchURL    string        `mapstructure:"search_url" yaml:"search_url"`
	MaxChars     int           `mapstructure:"max_chars" yaml:"max_chars"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// OutputConfig controls where reports land.
type OutputConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Config is the full runtime configuration, layered from defaults, an
// optional ethix.yaml and ETHIX_* environment variables.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" yaml:"retrieval"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator" yaml:"evaluator"`
	Loop      LoopConfig      `mapstructure:"loop" yaml:"loop"`
	Recommend RecommendConfig `mapstructure:"recommend" yaml:"recommend"`
	Crawler   CrawlerConfig   `mapstructure:"crawler" yaml:"crawler"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the secret keys with viper so that
	// AutomaticEnv values survive Unmarshal.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("crawler.search_api_key", "")

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.model", DefaultLLMModel)
	v.SetDefault("llm.base_url", DefaultLLMBaseURL)
	v.SetDefault("llm.temperature", DefaultLLMTemperature)
	v.SetDefault("llm.max_tokens", DefaultLLMMaxTokens)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)

	v.SetDefault("embedding.model", DefaultEmbeddingModel)
	v.SetDefault("embedding.cache_size", DefaultEmbedCacheSize)

	v.SetDefault("store.persist_path", DefaultStorePath)
	v.SetDefault("store.collection", DefaultCollection)
	v.SetDefault("store.source_dir", DefaultSourceDir)
	v.SetDefault("store.chunk_size", DefaultChunkSize)
	v.SetDefault("store.overlap", DefaultOverlap)

	v.SetDefault("retrieval.factor_fanout", 5)
	v.SetDefault("retrieval.factor_keep", 2)
	v.SetDefault("retrieval.query_keep", 3)

	v.SetDefault("evaluator.contract", audit.ContractStructured)
	v.SetDefault("evaluator.snippet_limit", 12)
	v.SetDefault("evaluator.snippet_max_chars", 600)

	v.SetDefault("loop.policy", string(audit.PolicyAnyCategory))
	v.SetDefault("loop.threshold", 4.0)

	v.SetDefault("recommend.mode", "rule")
	v.SetDefault("recommend.context_limit", 3000)

	v.SetDefault("crawler.enabled", false)
	v.SetDefault("crawler.search_url", "https://api.tavily.com/search")
	v.SetDefault("crawler.max_chars", 15000)
	v.SetDefault("crawler.timeout", 30*time.Second)
	v.SetDefault("crawler.cache_ttl", 15*time.Minute)

	v.SetDefault("output.dir", DefaultOutputDir)
}

// Load reads configuration from an optional file plus the environment.
// When path is empty it searches for ethix.yaml in the current directory
// and $HOME. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ethix")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("ETHIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Crawler.MaxChars <= 0 {
		c.Crawler.MaxChars = 15000
	}
}

// Validate reports configuration errors that would only surface later
// as opaque backend failures.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set ETHIX_LLM_API_KEY)")
	}
	switch c.Evaluator.Contract {
	case audit.ContractStructured, audit.ContractFreeText:
	default:
		return fmt.Errorf("evaluator.contract must be %q or %q, got %q",
			audit.ContractStructured, audit.ContractFreeText, c.Evaluator.Contract)
	}
	switch audit.TriggerPolicy(c.Loop.Policy) {
	case audit.PolicyAnyCategory, audit.PolicyMaxScore:
	default:
		return fmt.Errorf("loop.policy must be %q or %q, got %q",
			audit.PolicyAnyCategory, audit.PolicyMaxScore, c.Loop.Policy)
	}
	if c.Recommend.Mode != "rule" && c.Recommend.Mode != "generative" {
		return fmt.Errorf("recommend.mode must be \"rule\" or \"generative\", got %q", c.Recommend.Mode)
	}
	return nil
}

// LLMClientConfig maps the llm section onto the client config.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Provider:    c.LLM.Provider,
		Model:       c.LLM.Model,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Temperature: float32(c.LLM.Temperature),
		MaxTokens:   c.LLM.MaxTokens,
		Timeout:     c.LLM.Timeout,
	}
}

// GuidelineStoreConfig maps the store and embedding sections onto the
// guideline store config. The fallback to the LLM credentials applies
// here too, so keys set after Load still reach the embedder.
func (c *Config) GuidelineStoreConfig() rag.GuidelineStoreConfig {
	embed := rag.EmbedderConfig{
		Model:     c.Embedding.Model,
		APIKey:    c.Embedding.APIKey,
		BaseURL:   c.Embedding.BaseURL,
		CacheSize: c.Embedding.CacheSize,
	}
	if embed.APIKey == "" {
		embed.APIKey = c.LLM.APIKey
	}
	if embed.BaseURL == "" {
		embed.BaseURL = c.LLM.BaseURL
	}

	return rag.GuidelineStoreConfig{
		PersistPath: c.Store.PersistPath,
		Collection:  c.Store.Collection,
		SourceDir:   c.Store.SourceDir,
		Chunk: rag.ChunkerConfig{
			ChunkSize:    c.Store.ChunkSize,
			ChunkOverlap: c.Store.Overlap,
		},
		Embed: embed,
	}
}

// RetrieverConfig maps the retrieval section.
func (c *Config) RetrieverConfig() audit.RetrieverConfig {
	return audit.RetrieverConfig{
		FactorFanout: c.Retrieval.FactorFanout,
		FactorKeep:   c.Retrieval.FactorKeep,
		QueryKeep:    c.Retrieval.QueryKeep,
	}
}

// EvaluatorAuditConfig maps the evaluator section.
func (c *Config) EvaluatorAuditConfig() audit.EvaluatorConfig {
	return audit.EvaluatorConfig{
		Contract:        c.Evaluator.Contract,
		SnippetLimit:    c.Evaluator.SnippetLimit,
		SnippetMaxChars: c.Evaluator.SnippetMaxChars,
	}
}

// LoopAuditConfig maps the loop section.
func (c *Config) LoopAuditConfig() audit.LoopConfig {
	return audit.LoopConfig{
		Policy:    audit.TriggerPolicy(c.Loop.Policy),
		Threshold: c.Loop.Threshold,
	}
}
