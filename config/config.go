// Package config loads index settings from YAML files with environment
// variable overrides and turns them into lexigo options.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/lexigo"
	"github.com/hupe1980/lexigo/analysis"
	"github.com/hupe1980/lexigo/codec"
)

// Config is the top-level index configuration.
type Config struct {
	Path       string           `yaml:"path"`
	Storage    StorageConfig    `yaml:"storage"`
	Indexer    IndexerConfig    `yaml:"indexer"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Compaction CompactionConfig `yaml:"compaction"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig holds file and stored-field settings.
type StorageConfig struct {
	Codec           string        `yaml:"codec"`
	Compression     string        `yaml:"compression"`
	OpenTimeout     time.Duration `yaml:"openTimeout"`
	InitialMmapSize int           `yaml:"initialMmapSize"`
	NoSync          bool          `yaml:"noSync"`
}

// IndexerConfig controls write buffering.
type IndexerConfig struct {
	FlushThreshold int   `yaml:"flushThreshold"`
	MemoryLimit    int64 `yaml:"memoryLimit"`
}

// AnalysisConfig selects the analyzer filters.
type AnalysisConfig struct {
	// Stem adds English snowball stemming to the default chain.
	Stem bool `yaml:"stem"`
	// Normalize adds NFKC normalization ahead of lower-casing.
	Normalize bool `yaml:"normalize"`
	// StopWords replaces the default English stop words when set.
	StopWords []string `yaml:"stopWords"`
	MinLength int      `yaml:"minLength"`
}

// CompactionConfig controls tombstone purging.
type CompactionConfig struct {
	Enabled            bool    `yaml:"enabled"`
	Ratio              float64 `yaml:"ratio"`
	BatchSize          int     `yaml:"batchSize"`
	MaxBytes           int     `yaml:"maxBytes"`
	IOLimitBytesPerSec int64   `yaml:"ioLimitBytesPerSec"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration matching lexigo's built-in defaults.
func Default() *Config {
	return &Config{
		Path: "lexigo.idx",
		Storage: StorageConfig{
			Codec:       codec.Default.Name(),
			Compression: "none",
			OpenTimeout: 5 * time.Second,
		},
		Indexer: IndexerConfig{
			FlushThreshold: lexigo.DefaultFlushThreshold,
		},
		Compaction: CompactionConfig{
			Enabled:   true,
			Ratio:     lexigo.DefaultCompactionRatio,
			BatchSize: lexigo.DefaultCompactionBatchSize,
			MaxBytes:  lexigo.DefaultCompactionMaxBytes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// applyEnvOverrides reads LEXIGO_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEXIGO_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("LEXIGO_CODEC"); v != "" {
		cfg.Storage.Codec = v
	}
	if v := os.Getenv("LEXIGO_COMPRESSION"); v != "" {
		cfg.Storage.Compression = v
	}
	if v := os.Getenv("LEXIGO_NO_SYNC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.NoSync = b
		}
	}
	if v := os.Getenv("LEXIGO_FLUSH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.FlushThreshold = n
		}
	}
	if v := os.Getenv("LEXIGO_MEMORY_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Indexer.MemoryLimit = n
		}
	}
	if v := os.Getenv("LEXIGO_ANALYSIS_STEM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analysis.Stem = b
		}
	}
	if v := os.Getenv("LEXIGO_STOP_WORDS"); v != "" {
		cfg.Analysis.StopWords = strings.Split(v, ",")
	}
	if v := os.Getenv("LEXIGO_COMPACTION_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Compaction.Enabled = b
		}
	}
	if v := os.Getenv("LEXIGO_COMPACTION_RATIO"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Compaction.Ratio = f
		}
	}
	if v := os.Getenv("LEXIGO_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LEXIGO_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate reports settings no option could represent.
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("config: empty index path")
	}
	if _, ok := codec.ByName(c.Storage.Codec); !ok {
		return fmt.Errorf("config: unknown codec %q, want one of %s", c.Storage.Codec, strings.Join(codec.Names(), ", "))
	}
	if _, err := lexigo.ParseCompression(c.Storage.Compression); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text", "none":
	default:
		return fmt.Errorf("config: unknown logging format %q", c.Logging.Format)
	}
	if c.Compaction.Ratio < 0 {
		return fmt.Errorf("config: negative compaction ratio %v", c.Compaction.Ratio)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: logging level: %w", err)
	}
	return l, nil
}

// Analyzer builds the analyzer described by the analysis section.
func (c *Config) Analyzer() *analysis.Chain {
	a := c.Analysis
	var filters []analysis.Filter
	if a.Normalize {
		filters = append(filters, analysis.NormalizeNFKC)
	}
	filters = append(filters, analysis.LowerCase, analysis.RemovePossessiveSuffix)
	stop := analysis.DefaultStopWords
	if len(a.StopWords) > 0 {
		stop = a.StopWords
	}
	filters = append(filters, analysis.StopWords(stop...))
	if a.MinLength > 0 {
		filters = append(filters, analysis.MinLength(a.MinLength))
	}
	if a.Stem {
		filters = append(filters, analysis.Stem)
	}
	return analysis.NewAnalyzer(filters...)
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() *lexigo.Logger {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	switch c.Logging.Format {
	case "text":
		return lexigo.NewTextLogger(level)
	case "none":
		return lexigo.NoopLogger()
	default:
		return lexigo.NewJSONLogger(level)
	}
}

// Options converts the configuration into options for lexigo.Open.
func (c *Config) Options() []lexigo.Option {
	opts := []lexigo.Option{
		lexigo.WithAnalyzer(c.Analyzer()),
		lexigo.WithLogger(c.Logger()),
		lexigo.WithFlushThreshold(c.Indexer.FlushThreshold),
		lexigo.WithMemoryLimit(c.Indexer.MemoryLimit),
		lexigo.WithAutoCompaction(c.Compaction.Enabled),
		lexigo.WithCompactionRatio(c.Compaction.Ratio),
		lexigo.WithCompactionBatch(c.Compaction.BatchSize, c.Compaction.MaxBytes),
		lexigo.WithCompactionIOLimit(c.Compaction.IOLimitBytesPerSec),
		lexigo.WithOpenTimeout(c.Storage.OpenTimeout),
		lexigo.WithInitialMmapSize(c.Storage.InitialMmapSize),
		lexigo.WithNoSync(c.Storage.NoSync),
	}
	if cd, ok := codec.ByName(c.Storage.Codec); ok {
		opts = append(opts, lexigo.WithCodec(cd))
	}
	if comp, err := lexigo.ParseCompression(c.Storage.Compression); err == nil {
		opts = append(opts, lexigo.WithCompression(comp))
	}
	return opts
}

// Open opens the configured index.
func (c *Config) Open() (*lexigo.Index, error) {
	return lexigo.Open(c.Path, c.Options()...)
}
