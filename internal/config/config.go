package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Embedding providers.
const (
	ProviderLocal       = "local"
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

// Snapshot drivers.
const (
	SnapshotFile   = "file"
	SnapshotValkey = "valkey"
	SnapshotNone   = "none"
)

// Config holds the plantsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Auth      AuthConfig      `yaml:"auth"`
	Content   ContentConfig   `yaml:"content"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
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

// ContentConfig points at the plant content provider.
type ContentConfig struct {
	PlantsURL  string `yaml:"plants_url"` // bulk endpoint
	PlantURL   string `yaml:"plant_url"`  // single plant by ?name=
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // local, huggingface, openai (default: local)
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	PoolSize   int    `yaml:"pool_size"`
	BatchSize  int    `yaml:"batch_size"`
	// Prepended before embedding; e5-style models expect "passage: " and "query: ".
	DocumentInstruction string            `yaml:"document_instruction"`
	QueryInstruction    string            `yaml:"query_instruction"`
	HuggingFace         HuggingFaceConfig `yaml:"huggingface"`
	OpenAI              OpenAIConfig      `yaml:"openai"`
}

// HuggingFaceConfig holds inference endpoint settings.
type HuggingFaceConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
}

// OpenAIConfig holds OpenAI-compatible API settings.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// CorpusConfig controls how plant records become corpus text.
type CorpusConfig struct {
	EagerLoad   bool     `yaml:"eager_load"`
	Important   []string `yaml:"important_fields"`
	Secondary   []string `yaml:"secondary_fields"`
	LocalNames  string   `yaml:"local_names_field"`
	Repeat      int      `yaml:"repeat"`
	BoostFields []string `yaml:"boost_fields"`
}

// SnapshotConfig selects where built corpora are persisted.
type SnapshotConfig struct {
	Driver   string `yaml:"driver"` // file, valkey, none (default: file)
	Path     string `yaml:"path"`
	Key      string `yaml:"key"`
	SkipSave bool   `yaml:"skip_save"`
}

// SearchConfig tunes ranking.
type SearchConfig struct {
	BoostWeight  *float64 `yaml:"boost_weight"`
	MaxTopK      int      `yaml:"max_top_k"`
	SuggestLimit int      `yaml:"suggest_limit"`
}

// CacheConfig holds the Valkey/Redis connection used for embedding cache and
// snapshots. Disabled when Addrs is empty.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLHours         int      `yaml:"ttl_hours"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache server is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// TTL returns the embedding cache TTL.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Content.TimeoutSec <= 0 {
		c.Content.TimeoutSec = 60
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderLocal
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "all-MiniLM-L6-v2"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Embedding.PoolSize <= 0 {
		c.Embedding.PoolSize = 8
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 256
	}
	if c.Corpus.Repeat <= 0 {
		c.Corpus.Repeat = 2
	}
	if c.Snapshot.Driver == "" {
		c.Snapshot.Driver = SnapshotFile
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = "data/plant_embeddings.json"
	}
	if c.Search.BoostWeight == nil {
		w := 0.4
		c.Search.BoostWeight = &w
	}
	if c.Search.MaxTopK <= 0 {
		c.Search.MaxTopK = 1000
	}
	if c.Search.SuggestLimit <= 0 {
		c.Search.SuggestLimit = 10
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24 * 30
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
	if c.Content.PlantsURL == "" {
		return fmt.Errorf("content.plants_url is required")
	}

	switch c.Embedding.Provider {
	case ProviderLocal:
	case ProviderHuggingFace:
		if c.Embedding.HuggingFace.Endpoint == "" {
			return fmt.Errorf("embedding.huggingface.endpoint is required for provider %q", ProviderHuggingFace)
		}
	case ProviderOpenAI:
		if c.Embedding.OpenAI.APIKey == "" {
			return fmt.Errorf("embedding.openai.api_key is required for provider %q", ProviderOpenAI)
		}
	default:
		return fmt.Errorf(
			"embedding.provider must be %q, %q or %q, got %q",
			ProviderLocal, ProviderHuggingFace, ProviderOpenAI, c.Embedding.Provider,
		)
	}

	switch c.Snapshot.Driver {
	case SnapshotFile, SnapshotNone:
	case SnapshotValkey:
		if !c.Cache.Enabled() {
			return fmt.Errorf("snapshot.driver %q requires cache.addrs", SnapshotValkey)
		}
	default:
		return fmt.Errorf(
			"snapshot.driver must be %q, %q or %q, got %q",
			SnapshotFile, SnapshotValkey, SnapshotNone, c.Snapshot.Driver,
		)
	}

	if c.Search.BoostWeight != nil && *c.Search.BoostWeight < 0 {
		return fmt.Errorf("search.boost_weight must be >= 0, got %g", *c.Search.BoostWeight)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
