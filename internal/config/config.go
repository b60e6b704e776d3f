package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. LOCALRAG_EXPANDER_MODEL.
const EnvPrefix = "LOCALRAG_"

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" validate:"omitempty,oneof=text json"`
	Debug  bool   `yaml:"debug" env:"DEBUG"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" validate:"omitempty,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" env:"TYPE" validate:"oneof=features openai"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" validate:"required_if=Type openai"`
}

// ExpanderConfig configures query expansion through a local model.
type ExpanderConfig struct {
	Model      string `yaml:"model" env:"MODEL"`
	ServiceURL string `yaml:"service_url" env:"SERVICE_URL" validate:"omitempty,url"`
	// NumVariations outside 2..5 is clamped by the expander; 1 disables it
	// and 0 selects the default.
	NumVariations int    `yaml:"num_variations" env:"NUM_VARIATIONS" validate:"gte=0"`
	Runner        string `yaml:"runner" env:"RUNNER" validate:"oneof=exec chat"`
	Binary        string `yaml:"binary" env:"BINARY"`
	APIKeyEnv     string `yaml:"api_key_env" env:"API_KEY_ENV"`
	TimeoutSecs   int    `yaml:"timeout_secs" env:"TIMEOUT_SECS" validate:"gte=0"`
}

// Timeout returns the per-invocation timeout.
func (c ExpanderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" validate:"oneof=sentence"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" validate:"gt=0"`
	OverlapSentences  int    `yaml:"overlap_sentences" validate:"gte=0,ltfield=SentencesPerChunk"`
}

// SearchConfig configures ranking and ingestion parallelism.
type SearchConfig struct {
	TopK    int `yaml:"top_k" env:"TOP_K" validate:"gt=0"`
	Workers int `yaml:"workers" env:"WORKERS" validate:"gte=0"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Embedder EmbedderConfig `yaml:"embedder" envPrefix:"EMBEDDER_"`
	Expander ExpanderConfig `yaml:"expander" envPrefix:"EXPANDER_"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Search   SearchConfig   `yaml:"search" envPrefix:"SEARCH_"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads a config from a specified path. If the file does not exist,
// defaults are used. Environment overrides are applied on top.
func Load(path string) (*AppConfig, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadDefault tries ./config.yaml first, then ~/.config/localrag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, DefaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := finish(DefaultConfig())
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks field constraints.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Log:      LogConfig{Level: "info", Format: "text"},
		Embedder: EmbedderConfig{Type: "features"},
		Expander: ExpanderConfig{
			Model:         "llama3.2",
			ServiceURL:    "http://localhost:11434",
			NumVariations: 3,
			Runner:        "exec",
			Binary:        "ollama",
			TimeoutSecs:   60,
		},
		Chunker: ChunkerConfig{Type: "sentence", SentencesPerChunk: 5, OverlapSentences: 1},
		Search:  SearchConfig{TopK: 10, Workers: 4},
	}
}

func readFile(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func finish(cfg *AppConfig) (*AppConfig, error) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "localrag", "config.yaml"), nil
}

func applyConfigDefaults(cfg *AppConfig) {
	def := DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Expander.Model == "" {
		cfg.Expander.Model = def.Expander.Model
	}
	if cfg.Expander.ServiceURL == "" {
		cfg.Expander.ServiceURL = def.Expander.ServiceURL
	}
	if cfg.Expander.NumVariations == 0 {
		cfg.Expander.NumVariations = def.Expander.NumVariations
	}
	if cfg.Expander.TimeoutSecs == 0 {
		cfg.Expander.TimeoutSecs = def.Expander.TimeoutSecs
	}
	if cfg.Expander.Runner == "" {
		cfg.Expander.Runner = def.Expander.Runner
	}
	if cfg.Expander.Binary == "" {
		cfg.Expander.Binary = def.Expander.Binary
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = def.Chunker.Type
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = def.Chunker.SentencesPerChunk
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = def.Search.TopK
	}
}
