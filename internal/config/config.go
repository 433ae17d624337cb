// Package config loads and validates V8Config, the orchestrator's top-level
// configuration: retry/timeout budgets, per-strategy parameters, and the
// ambient logging/chunk-store settings every other package reads at
// construction time.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AlphaCodeConfig configures the ALPHACODE mass-sampling strategy (spec §4.F).
type AlphaCodeConfig struct {
	NumSamples          int     `yaml:"num_samples" validate:"gte=50,lte=200"`
	Temperature         float64 `yaml:"temperature" validate:"gte=0.5,lte=1"`
	NumClusters         int     `yaml:"num_clusters" validate:"gte=5,lte=20"`
	ParallelWorkers     int     `yaml:"parallel_workers" validate:"gte=1,lte=50"`
	UseRealPytest       bool    `yaml:"use_real_pytest"`
	PytestTimeout       int     `yaml:"pytest_timeout" validate:"gte=10,lte=300"`
	UseSemanticEmbedding bool   `yaml:"use_semantic_embedding"`
	EmbeddingCache      bool    `yaml:"embedding_cache"`
}

// StrategyConfig collects every per-strategy bound from spec §6.
type StrategyConfig struct {
	BeamWidth               int             `yaml:"beam_width" validate:"gte=3,lte=10"`
	MaxDepth                int             `yaml:"max_depth" validate:"gte=1,lte=5"`
	O1MaxAttempts           int             `yaml:"o1_max_attempts" validate:"gte=1,lte=10"`
	O1VerificationThreshold float64         `yaml:"o1_verification_threshold" validate:"gte=0.5,lte=1"`
	NumProposers            int             `yaml:"num_proposers" validate:"gte=2,lte=5"`
	NumCritics              int             `yaml:"num_critics" validate:"gte=1,lte=5"`
	MaxRounds               int             `yaml:"max_rounds" validate:"gte=1,lte=3"`
	AlphaCode               AlphaCodeConfig `yaml:"alphacode"`
}

// PortRange resolves Open Question (b): the zombie-port cleanup window used
// by internal/tdd, configurable rather than hard-coded.
type PortRange struct {
	Low  int `yaml:"low" validate:"gte=1,lte=65535"`
	High int `yaml:"high" validate:"gtefield=Low,lte=65535"`
}

// LoggingConfig is the subset of V8Config the logging package consumes.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// ChunkStoreConfig configures 4.K's storage backend.
type ChunkStoreConfig struct {
	Backend         string `yaml:"backend" validate:"oneof=memory sql"`
	DatabasePath    string `yaml:"database_path"`
	UseVectorSearch bool   `yaml:"use_vector_search"`
	WatchForChanges bool   `yaml:"watch_for_changes"`
	MaxFilesForGraph int   `yaml:"max_files_for_graph" validate:"gte=1"`
}

// LLMConfig configures the default LLMPort provider.
type LLMConfig struct {
	Provider string `yaml:"provider" validate:"oneof=mock genai"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// V8Config is the orchestrator's complete, validated configuration surface
// (spec §6). Every field is optional at the YAML level; DefaultConfig
// supplies the documented default before overrides are applied.
type V8Config struct {
	MaxIterations      int     `yaml:"max_iterations" validate:"gte=1,lte=10"`
	TimeoutSeconds     int     `yaml:"timeout_seconds" validate:"gt=0,lte=3600"`
	Temperature        float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	System2Threshold   float64 `yaml:"system_2_threshold" validate:"gte=0,lte=1"`

	Strategy       StrategyConfig   `yaml:"strategy"`
	Logging        LoggingConfig    `yaml:"logging"`
	ChunkStore     ChunkStoreConfig `yaml:"chunk_store"`
	LLM            LLMConfig        `yaml:"llm"`
	PortCleanupRange PortRange      `yaml:"port_cleanup_range"`
}

// DefaultConfig returns the configuration with every documented default
// from spec §6 applied.
func DefaultConfig() *V8Config {
	return &V8Config{
		MaxIterations:    3,
		TimeoutSeconds:   300,
		Temperature:      0.7,
		System2Threshold: 0.7,
		Strategy: StrategyConfig{
			BeamWidth:               5,
			MaxDepth:                2,
			O1MaxAttempts:           5,
			O1VerificationThreshold: 0.7,
			NumProposers:            3,
			NumCritics:              2,
			MaxRounds:               1,
			AlphaCode: AlphaCodeConfig{
				NumSamples:      100,
				Temperature:     0.8,
				NumClusters:     10,
				ParallelWorkers: 10,
				UseRealPytest:   false,
				PytestTimeout:   60,
			},
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
		ChunkStore: ChunkStoreConfig{
			Backend:          "memory",
			MaxFilesForGraph: 5000,
		},
		LLM: LLMConfig{
			Provider: "mock",
		},
		PortCleanupRange: PortRange{Low: 49152, High: 65535},
	}
}

// Load reads path as YAML over the defaults, layers environment overrides
// via viper (prefix DEEPREASON_), and validates bounds. A missing file is
// not an error: it returns defaults plus env overrides.
func Load(path string) (*V8Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *V8Config) {
	v := viper.New()
	v.SetEnvPrefix("DEEPREASON")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if v.IsSet("llm_api_key") {
		cfg.LLM.APIKey = v.GetString("llm_api_key")
	}
	if v.IsSet("llm_provider") {
		cfg.LLM.Provider = v.GetString("llm_provider")
	}
	if v.IsSet("debug_mode") {
		cfg.Logging.DebugMode = v.GetBool("debug_mode")
	}
	if v.IsSet("chunk_store_database_path") {
		cfg.ChunkStore.DatabasePath = v.GetString("chunk_store_database_path")
	}
}

var validate = validator.New()

// Validate runs struct-tag bounds validation over cfg.
func Validate(cfg *V8Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func (c *V8Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
