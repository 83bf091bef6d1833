// Package config loads the per-environment YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/topicrag/internal/domain"
)

// Config holds the topicrag service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Cache     CacheConfig     `yaml:"cache"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
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
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// CorpusConfig locates the dataset and names its columns.
type CorpusConfig struct {
	Path    string        `yaml:"path"`
	Format  string        `yaml:"format"` // auto, xlsx, csv, parquet
	Sheet   string        `yaml:"sheet"`  // xlsx only; empty selects the first sheet
	Columns ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig holds the dataset header names.
type ColumnsConfig struct {
	ID        string `yaml:"id"`
	Content   string `yaml:"content"`
	Topic     string `yaml:"topic"`
	Embedding string `yaml:"embedding"`
}

// EmbeddingConfig holds the query embedding provider settings.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"` // label for metrics and budget keys
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	Budget           BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// LLMConfig holds the generative model settings.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Temperature for answers; unset keeps the provider default.
	Temperature         *float32 `yaml:"temperature"`
	ClassifyTemperature *float32 `yaml:"classify_temperature"`
	MinIntervalMs       int      `yaml:"min_interval_ms"`
	MaxTokens           int      `yaml:"max_tokens"`
}

// RetrievalConfig holds top-K and context size limits.
type RetrievalConfig struct {
	DefaultTopK     int `yaml:"default_top_k"`
	MaxTopK         int `yaml:"max_top_k"`
	MaxItemChars    int `yaml:"max_item_chars"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// CacheConfig holds the optional Redis/Valkey backend for the embedding
// cache and budget counters.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, redis, valkey
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return c.Driver == "redis" || c.Driver == "valkey" }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory, if any, is loaded first; variables
// already set in the process environment win.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Corpus.Format == "" {
		c.Corpus.Format = "auto"
	}
	if c.Corpus.Columns.ID == "" {
		c.Corpus.Columns.ID = "ID"
	}
	if c.Corpus.Columns.Content == "" {
		c.Corpus.Columns.Content = "Nội dung"
	}
	if c.Corpus.Columns.Topic == "" {
		c.Corpus.Columns.Topic = "Chủ đề"
	}
	if c.Corpus.Columns.Embedding == "" {
		c.Corpus.Columns.Embedding = "Embedding_MathBERT"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = "warn"
	}

	if c.LLM.ClassifyTemperature == nil {
		t := float32(0.1)
		c.LLM.ClassifyTemperature = &t
	}
	if c.LLM.MinIntervalMs < 0 {
		c.LLM.MinIntervalMs = 0
	}

	def := domain.DefaultRetrievalConfig()
	if c.Retrieval.DefaultTopK <= 0 {
		c.Retrieval.DefaultTopK = def.DefaultTopK
	}
	if c.Retrieval.MaxTopK <= 0 {
		c.Retrieval.MaxTopK = def.MaxTopK
	}
	if c.Retrieval.MaxItemChars <= 0 {
		c.Retrieval.MaxItemChars = def.MaxItemChars
	}
	if c.Retrieval.MaxContextChars <= 0 {
		c.Retrieval.MaxContextChars = def.MaxContextChars
	}

	if c.Cache.Driver == "" {
		c.Cache.Driver = "none"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 24 * 60 * 60
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return errors.New("corpus.path is required")
	}
	switch c.Corpus.Format {
	case "auto", "xlsx", "csv", "parquet":
	default:
		return fmt.Errorf("corpus.format must be auto, xlsx, csv or parquet, got %q", c.Corpus.Format)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	if c.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if c.Retrieval.DefaultTopK > c.Retrieval.MaxTopK {
		return fmt.Errorf("retrieval.default_top_k (%d) exceeds retrieval.max_top_k (%d)",
			c.Retrieval.DefaultTopK, c.Retrieval.MaxTopK)
	}
	switch c.Cache.Driver {
	case "none":
	case "redis", "valkey":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", c.Cache.Driver)
		}
	default:
		return fmt.Errorf("cache.driver must be none, redis or valkey, got %q", c.Cache.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to this source file, for tests and go run from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
