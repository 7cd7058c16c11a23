package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the careersync API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Match     MatchConfig     `yaml:"match"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	StaticDir       string `yaml:"static_dir"`
}

// CatalogConfig locates the career catalog and its precomputed vectors.
type CatalogConfig struct {
	Path        string `yaml:"path"`
	VectorsPath string `yaml:"vectors_path"` // memory backend only
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"`
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	BatchSize           int    `yaml:"batch_size"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"` // memory, redis, qdrant
	Redis   RedisConfig  `yaml:"redis"`
	Qdrant  QdrantConfig `yaml:"qdrant"`
}

// RedisConfig holds Redis backend settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Index            string   `yaml:"index"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QdrantConfig holds Qdrant backend settings.
type QdrantConfig struct {
	Addr             string `yaml:"addr"`
	Collection       string `yaml:"collection"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// FieldWeight gives one questionnaire field its position and weight in
// the composed query text.
type FieldWeight struct {
	Name   string `yaml:"name"`
	Weight int    `yaml:"weight"`
}

// MatchConfig holds matching settings.
type MatchConfig struct {
	TopK   int           `yaml:"top_k"`
	Fields []FieldWeight `yaml:"fields"`
}

// DefaultInstruction is the retrieval prefix the catalog vectors were
// precomputed with. Changing one side without the other makes scores
// meaningless.
const DefaultInstruction = "Represent this sentence for retrieval: "

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.QueryInstruction == "" {
		c.Embedding.QueryInstruction = DefaultInstruction
	}
	if c.Embedding.DocumentInstruction == "" {
		c.Embedding.DocumentInstruction = DefaultInstruction
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.Store.Redis.Index == "" {
		c.Store.Redis.Index = "careers_idx"
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = "careersync:career:"
	}
	if c.Store.Redis.ReadinessTimeout <= 0 {
		c.Store.Redis.ReadinessTimeout = 10
	}
	if c.Store.Qdrant.Collection == "" {
		c.Store.Qdrant.Collection = "careers"
	}
	if c.Store.Qdrant.ReadinessTimeout <= 0 {
		c.Store.Qdrant.ReadinessTimeout = 10
	}
	if c.Match.TopK <= 0 {
		c.Match.TopK = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Store.Backend {
	case "memory":
		if c.Catalog.VectorsPath == "" {
			return fmt.Errorf("catalog.vectors_path is required for the memory backend")
		}
	case "redis":
		if len(c.Store.Redis.Addrs) == 0 {
			return fmt.Errorf("store.redis.addrs is required")
		}
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions is required for the redis backend")
		}
	case "qdrant":
		if c.Store.Qdrant.Addr == "" {
			return fmt.Errorf("store.qdrant.addr is required")
		}
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions is required for the qdrant backend")
		}
	default:
		return fmt.Errorf("store.backend must be memory, redis, or qdrant, got %q", c.Store.Backend)
	}
	for i, f := range c.Match.Fields {
		if f.Name == "" {
			return fmt.Errorf("match.fields[%d].name is required", i)
		}
		if f.Weight < 0 {
			return fmt.Errorf("match.fields[%d].weight must not be negative", i)
		}
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
