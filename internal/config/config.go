// Package config loads application configuration from file, environment,
// and defaults, and owns the on-disk data directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Patterns PatternsConfig `yaml:"patterns" mapstructure:"patterns"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the shared HTTP fetcher.
type HTTPConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PipelineConfig configures the four-stage brochure pipeline.
type PipelineConfig struct {
	DataDir           string  `yaml:"data_dir" mapstructure:"data_dir"`
	IndexLimit        int     `yaml:"index_limit" mapstructure:"index_limit"`
	APIRateLimit      float64 `yaml:"api_rate_limit" mapstructure:"api_rate_limit"`
	DownloadRateLimit float64 `yaml:"download_rate_limit" mapstructure:"download_rate_limit"`
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	Incremental       bool    `yaml:"incremental" mapstructure:"incremental"`
	BaselineFile      string  `yaml:"baseline_file" mapstructure:"baseline_file"`
	ForceRestart      bool    `yaml:"force_restart" mapstructure:"force_restart"`
}

// ExtractConfig configures PDF text extraction.
type ExtractConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// PatternsConfig configures the classification pattern catalog.
type PatternsConfig struct {
	// File is an optional YAML overlay adding patterns to the built-in catalog.
	File string `yaml:"file" mapstructure:"file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("IAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("http.user_agent", "iapd-pipeline/1.0 (research@sellsadvisors.com)")
	v.SetDefault("http.timeout_secs", 60)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("pipeline.data_dir", "Data")
	v.SetDefault("pipeline.api_rate_limit", 2)
	v.SetDefault("pipeline.download_rate_limit", 5)
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.incremental", true)
	v.SetDefault("extract.provider", "pdf")
	v.SetDefault("extract.pdftotext_path", "pdftotext")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that configured values are usable before any stage runs.
func (c *Config) Validate() error {
	if c.Pipeline.APIRateLimit <= 0 {
		return eris.Errorf("config: api_rate_limit must be positive, got %v", c.Pipeline.APIRateLimit)
	}
	if c.Pipeline.DownloadRateLimit <= 0 {
		return eris.Errorf("config: download_rate_limit must be positive, got %v", c.Pipeline.DownloadRateLimit)
	}
	if c.Pipeline.Workers < 1 {
		return eris.Errorf("config: workers must be >= 1, got %d", c.Pipeline.Workers)
	}
	if c.Pipeline.IndexLimit < 0 {
		return eris.Errorf("config: index_limit must be >= 0, got %d", c.Pipeline.IndexLimit)
	}
	if c.Pipeline.DataDir == "" {
		return eris.New("config: data_dir must not be empty")
	}
	switch c.Extract.Provider {
	case "", "pdf", "pdftotext":
	default:
		return eris.Errorf("config: unknown extract provider %q", c.Extract.Provider)
	}
	return nil
}

// Layout resolves the working-directory structure under the data dir.
type Layout struct {
	Root      string
	FirmFiles string
	Input     string
	Output    string
	Downloads string
	Logs      string
}

// NewLayout builds the directory layout rooted at dataDir.
func NewLayout(dataDir string) Layout {
	return Layout{
		Root:      dataDir,
		FirmFiles: filepath.Join(dataDir, "FirmFiles"),
		Input:     filepath.Join(dataDir, "Input"),
		Output:    filepath.Join(dataDir, "Output"),
		Downloads: filepath.Join(dataDir, "Downloads"),
		Logs:      filepath.Join(dataDir, "Logs"),
	}
}

// Ensure creates all layout directories.
func (l Layout) Ensure() error {
	for _, dir := range []string{l.Root, l.FirmFiles, l.Input, l.Output, l.Downloads, l.Logs} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "config: create dir %s", dir)
		}
	}
	return nil
}

// MasterPath returns the cumulative master CSV location.
func (l Layout) MasterPath() string {
	return filepath.Join(l.Output, "IAPD_Data.csv")
}

// Archive renames the data directory with a timestamp suffix. Used by
// force_restart; the master CSV archives along with everything else.
func (l Layout) Archive(now time.Time) (string, error) {
	if _, err := os.Stat(l.Root); os.IsNotExist(err) {
		return "", nil
	}
	dest := fmt.Sprintf("%s_%s", l.Root, now.Format("20060102_150405"))
	if err := os.Rename(l.Root, dest); err != nil {
		return "", eris.Wrapf(err, "config: archive %s", l.Root)
	}
	return dest, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
