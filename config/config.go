package config

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"sgt/internal/domain"
)

// Config holds all configuration for the sgt tool.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Alphabet  AlphabetConfig  `yaml:"alphabet"`
	Execution ExecutionConfig `yaml:"execution"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EmbeddingConfig holds the parameters every embedding is computed with.
type EmbeddingConfig struct {
	Kappa           float64 `yaml:"kappa"`
	LengthSensitive bool    `yaml:"length_sensitive"`
	Flatten         bool    `yaml:"flatten"`
	Statistic       string  `yaml:"statistic"` // "root-mean-gap" or "power-mean"
}

// AlphabetConfig fixes the alphabet up front or controls how it is inferred.
type AlphabetConfig struct {
	Symbols []string `yaml:"symbols"` // empty = infer from the corpus
	Order   string   `yaml:"order"`   // "sorted" or "insertion"
}

// ExecutionConfig selects the corpus execution strategy.
type ExecutionConfig struct {
	Mode       string `yaml:"mode"` // "sequential", "worker-pool", "distributed-map"
	Workers    int    `yaml:"workers"`
	Partitions int    `yaml:"partitions"`
	CacheSize  int    `yaml:"cache_size"` // 0 disables the embedding cache
}

// CorpusConfig controls how corpus files are found and parsed.
type CorpusConfig struct {
	Includes  []string `yaml:"includes"`
	Excludes  []string `yaml:"excludes"`
	Format    string   `yaml:"format"`    // "auto", "lines", "csv"
	Delimiter string   `yaml:"delimiter"` // "" = whitespace, "char" = per character
	Lowercase bool     `yaml:"lowercase"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Kappa:           1,
			LengthSensitive: false,
			Flatten:         true,
			Statistic:       "root-mean-gap",
		},
		Alphabet: AlphabetConfig{
			Order: "sorted",
		},
		Execution: ExecutionConfig{
			Mode:       "sequential",
			Workers:    runtime.NumCPU(),
			Partitions: 4,
			CacheSize:  1024,
		},
		Corpus: CorpusConfig{
			Includes: []string{"**/*.txt", "**/*.csv", "**/*.seq"},
			Excludes: []string{"**/.git/**", "**/.sgt/**", "**/node_modules/**", "**/vendor/**"},
			Format:   "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for sgt.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "sgt.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".sgt", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv overrides values from SGT_KAPPA, SGT_MODE, SGT_WORKERS and
// SGT_LOG_LEVEL when they are set.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("SGT_KAPPA"); ok {
		kappa, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return &domain.InvalidParameterError{Name: "SGT_KAPPA", Value: v, Reason: err.Error()}
		}
		c.Embedding.Kappa = kappa
	}
	if v, ok := os.LookupEnv("SGT_MODE"); ok {
		c.Execution.Mode = strings.TrimSpace(v)
	}
	if v, ok := os.LookupEnv("SGT_WORKERS"); ok {
		workers, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &domain.InvalidParameterError{Name: "SGT_WORKERS", Value: v, Reason: err.Error()}
		}
		c.Execution.Workers = workers
	}
	if v, ok := os.LookupEnv("SGT_LOG_LEVEL"); ok {
		c.Logging.Level = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks values that can be rejected without touching a corpus.
func (c *Config) Validate() error {
	k := c.Embedding.Kappa
	if math.IsNaN(k) || math.IsInf(k, 0) || k <= 0 {
		return &domain.InvalidParameterError{Name: "embedding.kappa", Value: k, Reason: "must be finite and strictly positive"}
	}
	switch c.Embedding.Statistic {
	case "", "root-mean-gap", "power-mean":
	default:
		return &domain.InvalidParameterError{Name: "embedding.statistic", Value: c.Embedding.Statistic, Reason: "must be root-mean-gap or power-mean"}
	}
	switch c.Alphabet.Order {
	case "", "sorted", "insertion":
	default:
		return &domain.InvalidParameterError{Name: "alphabet.order", Value: c.Alphabet.Order, Reason: "must be sorted or insertion"}
	}

	switch c.Execution.Mode {
	case "", "sequential":
	case "worker-pool", "pool", "multiprocessing":
		if c.Execution.Workers <= 0 {
			return &domain.InvalidParameterError{Name: "execution.workers", Value: c.Execution.Workers, Reason: "must be positive for worker-pool"}
		}
	case "distributed-map", "distributed":
		if c.Execution.Partitions <= 0 {
			return &domain.InvalidParameterError{Name: "execution.partitions", Value: c.Execution.Partitions, Reason: "must be positive for distributed-map"}
		}
		if c.Execution.Workers <= 0 {
			return &domain.InvalidParameterError{Name: "execution.workers", Value: c.Execution.Workers, Reason: "must be positive for distributed-map"}
		}
		if len(c.Alphabet.Symbols) == 0 {
			return &domain.InvalidParameterError{Name: "alphabet.symbols", Value: "[]", Reason: "distributed-map requires an explicit alphabet"}
		}
	default:
		return &domain.InvalidParameterError{Name: "execution.mode", Value: c.Execution.Mode, Reason: "must be sequential, worker-pool or distributed-map"}
	}
	if c.Execution.CacheSize < 0 {
		return &domain.InvalidParameterError{Name: "execution.cache_size", Value: c.Execution.CacheSize, Reason: "must not be negative"}
	}

	switch strings.ToLower(c.Corpus.Format) {
	case "", "auto", "lines", "csv":
	default:
		return &domain.InvalidParameterError{Name: "corpus.format", Value: c.Corpus.Format, Reason: "must be auto, lines or csv"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &domain.InvalidParameterError{Name: "logging.level", Value: c.Logging.Level, Reason: "must be debug, info, warn or error"}
	}
	return nil
}

// StoreDBPath returns the path to the embedding database.
func StoreDBPath(dir string) string {
	return filepath.Join(dir, ".sgt", "embeddings.db")
}

// EnsureSGTDir ensures the .sgt directory exists.
func EnsureSGTDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".sgt"), 0755)
}
