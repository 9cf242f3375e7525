// Package config loads lexipop settings from defaults, an optional YAML
// file, LEXIPOP_* environment variables and bound command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/valpere/lexipop/internal/chunker"
	"github.com/valpere/lexipop/internal/dictionary"
	"github.com/valpere/lexipop/internal/translator"
)

const EnvPrefix = "LEXIPOP"

// Config holds the application configuration.
type Config struct {
	Dictionary  DictionaryConfig  `mapstructure:"dictionary"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Translation TranslationConfig `mapstructure:"translation"`
	Deck        DeckConfig        `mapstructure:"deck"`
	Log         LogConfig         `mapstructure:"log"`
	Server      ServerConfig      `mapstructure:"server"`
}

type DictionaryConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BackendConfig points at the lexipop backend that serves translations and
// transcripts.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TranslationConfig struct {
	SourceLang     string        `mapstructure:"source_lang"`
	TargetLang     string        `mapstructure:"target_lang"`
	MaxTextBytes   int           `mapstructure:"max_text_bytes"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Timeout        time.Duration `mapstructure:"timeout"`
	// Detect skips translating dictionary text already in the target language.
	Detect bool `mapstructure:"detect"`
}

type DeckConfig struct {
	DBPath string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ServerConfig struct {
	Addr          string                   `mapstructure:"addr"`
	TranscriptDir string                   `mapstructure:"transcript_dir"`
	Service       string                   `mapstructure:"service"`
	Upstream      translator.ServiceConfig `mapstructure:"upstream"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Dictionary: DictionaryConfig{
			BaseURL: dictionary.DefaultBaseURL,
			Timeout: 15 * time.Second,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000",
			Timeout: 15 * time.Second,
		},
		Translation: TranslationConfig{
			SourceLang:     translator.SourceLang,
			TargetLang:     translator.TargetLang,
			MaxTextBytes:   chunker.DefaultMaxBytes,
			MaxConcurrency: 4,
			Timeout:        15 * time.Second,
			Detect:         true,
		},
		Deck: DeckConfig{
			DBPath: "./data/lexipop.db",
		},
		Log: LogConfig{
			Level: "warn",
		},
		Server: ServerConfig{
			Addr:          "localhost:5000",
			TranscriptDir: "./data/transcripts",
			Service:       "mymemory",
			Upstream: translator.ServiceConfig{
				Timeout: 30 * time.Second,
			},
		},
	}
}

// SetDefaults registers every default with v so that environment variables
// are picked up for keys no file sets.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	defaults := map[string]any{
		"dictionary.base_url":         d.Dictionary.BaseURL,
		"dictionary.timeout":          d.Dictionary.Timeout,
		"backend.base_url":            d.Backend.BaseURL,
		"backend.timeout":             d.Backend.Timeout,
		"translation.source_lang":     d.Translation.SourceLang,
		"translation.target_lang":     d.Translation.TargetLang,
		"translation.max_text_bytes":  d.Translation.MaxTextBytes,
		"translation.max_concurrency": d.Translation.MaxConcurrency,
		"translation.timeout":         d.Translation.Timeout,
		"translation.detect":          d.Translation.Detect,
		"deck.db_path":                d.Deck.DBPath,
		"log.level":                   d.Log.Level,
		"log.file":                    d.Log.File,
		"server.addr":                 d.Server.Addr,
		"server.transcript_dir":       d.Server.TranscriptDir,
		"server.service":              d.Server.Service,
		"server.upstream.credentials": d.Server.Upstream.Credentials,
		"server.upstream.api_key":     d.Server.Upstream.APIKey,
		"server.upstream.email":       d.Server.Upstream.Email,
		"server.upstream.model":       d.Server.Upstream.Model,
		"server.upstream.base_url":    d.Server.Upstream.BaseURL,
		"server.upstream.timeout":     d.Server.Upstream.Timeout,
		"server.upstream.project_id":  d.Server.Upstream.ProjectID,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load reads configuration into a Config. configPath names a YAML file;
// when empty, lexipop.yaml is looked up in the working directory and in the
// user config directory, and a missing file is not an error.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("lexipop")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "lexipop"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Dictionary.BaseURL == "" {
		errs = append(errs, errors.New("dictionary.base_url must be set"))
	}
	if c.Dictionary.Timeout <= 0 {
		errs = append(errs, errors.New("dictionary.timeout must be positive"))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Translation.Timeout <= 0 {
		errs = append(errs, errors.New("translation.timeout must be positive"))
	}
	if c.Translation.MaxTextBytes < 0 {
		errs = append(errs, fmt.Errorf("translation.max_text_bytes must not be negative, got %d", c.Translation.MaxTextBytes))
	}
	if c.Translation.SourceLang == "" || c.Translation.TargetLang == "" {
		errs = append(errs, errors.New("translation languages must be set"))
	}
	if !slices.Contains(translator.ServiceNames, c.Server.Service) {
		errs = append(errs, fmt.Errorf("server.service %q is not one of %s", c.Server.Service, strings.Join(translator.ServiceNames, ", ")))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}
