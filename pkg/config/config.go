// Package config loads configuration for the blocklist generator.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"blockmerge/pkg/blocklist"
	"blockmerge/pkg/version"
)

const (
	// DefaultConfigFile is read from the working directory when present.
	DefaultConfigFile = "blockmerge.toml"
	configEnvVar      = "BLOCKMERGE_CONFIG"
	envPrefix         = "BLOCKMERGE"
)

// Config contains all runtime options of blockmerge.
type Config struct {
	Output                 OutputConfig  `mapstructure:"output"`
	Input                  InputConfig   `mapstructure:"input"`
	Sources                SourcesConfig `mapstructure:"sources"`
	Logging                LoggingConfig `mapstructure:"logging"`
	Fetch                  FetchConfig   `mapstructure:"fetch"`
	IgnoreRetrievalFailure bool          `mapstructure:"ignore_retrieval_failure"`
	// File is the configuration file that was read, empty when defaults and
	// environment alone were used.
	File string `mapstructure:"-"`
}

// OutputConfig selects where the merged document goes.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// InputConfig locates the generation inputs.
type InputConfig struct {
	Dir            string `mapstructure:"dir"`
	Baseline       string `mapstructure:"baseline"`
	LocalAdditions string `mapstructure:"local_additions"`
	Rules          string `mapstructure:"rules"`
}

// SourcesConfig holds the publisher priority order.
type SourcesConfig struct {
	Order []string `mapstructure:"order"`
}

// LoggingConfig holds log settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	ErrorLimit int    `mapstructure:"error_limit"`
}

// FetchConfig holds fetcher settings. Per-source tables such as
// [fetch.nextdns] end up in Overrides.
type FetchConfig struct {
	Timeout     time.Duration             `mapstructure:"-"`
	UserAgent   string                    `mapstructure:"user_agent"`
	Concurrency int                       `mapstructure:"concurrency"`
	CacheDir    string                    `mapstructure:"cache_dir"`
	Sources     []string                  `mapstructure:"sources"`
	Overrides   map[string]SourceOverride `mapstructure:"-"`
}

// SourceOverride changes the endpoint of one fetcher.
type SourceOverride struct {
	URL string `mapstructure:"url"`
}

// URLs returns the endpoint overrides keyed by source ID.
func (f FetchConfig) URLs() map[string]string {
	urls := make(map[string]string, len(f.Overrides))
	for id, override := range f.Overrides {
		if override.URL != "" {
			urls[id] = override.URL
		}
	}
	return urls
}

// ValidateLogLevel ensures the user-provided log level matches the supported set.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(level)] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", level)
	}
	return nil
}

// NewViper returns a viper instance with defaults and environment overrides
// (BLOCKMERGE_OUTPUT_PATH for output.path and so on). Callers bind their
// flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the configuration file, if any, and produces a validated
// Config. An explicit path must exist; without one BLOCKMERGE_CONFIG is
// consulted, then DefaultConfigFile when it is present.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = NewViper()
	}

	configPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.File = configPath

	cfg.Fetch.Overrides, err = parseSourceOverrides(v)
	if err != nil {
		return nil, err
	}

	cfg.Fetch.Timeout, err = parseDuration(v.GetString("fetch.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid fetch.timeout: %w", err)
	}

	cfg.Sources.Order = normalizeIDs(cfg.Sources.Order)
	cfg.Fetch.Sources = normalizeIDs(cfg.Fetch.Sources)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit, nil
	}
	if fromEnv := strings.TrimSpace(os.Getenv(configEnvVar)); fromEnv != "" {
		return fromEnv, nil
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", DefaultConfigFile, err)
	}
	return "", nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.path", "domains-blocklist.conf")
	v.SetDefault("input.dir", ".")
	v.SetDefault("input.baseline", blocklist.BaselineFileName)
	v.SetDefault("input.local_additions", blocklist.DefaultLocalAdditionsFile)
	v.SetDefault("input.rules", "")
	v.SetDefault("ignore_retrieval_failure", false)
	v.SetDefault("sources.order", blocklist.DefaultSourceOrder)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "stderr")
	v.SetDefault("logging.error_limit", 20)
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.user_agent", "blockmerge/"+version.BlockmergeVersion)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.cache_dir", "")
	v.SetDefault("fetch.sources", append([]string{blocklist.BaselineSourceID}, blocklist.DefaultSourceOrder...))
}

func parseDuration(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.ToLower(strings.TrimSpace(id)))
	}
	return out
}

func validateConfig(cfg *Config) error {
	if err := ValidateLogLevel(cfg.Logging.Level); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Output.Path) == "" {
		return errors.New("output.path is required")
	}

	if err := blocklist.ValidateSourceOrder(cfg.Sources.Order); err != nil {
		return fmt.Errorf("invalid sources.order: %w", err)
	}

	seen := make(map[string]bool, len(cfg.Fetch.Sources))
	for _, id := range cfg.Fetch.Sources {
		if id != blocklist.BaselineSourceID && !blocklist.IsPublisher(id) {
			return fmt.Errorf("invalid fetch.sources: unknown source %q", id)
		}
		if seen[id] {
			return fmt.Errorf("invalid fetch.sources: duplicate source %q", id)
		}
		seen[id] = true
	}

	if cfg.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be > 0")
	}
	if cfg.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be >= 1")
	}

	for id, override := range cfg.Fetch.Overrides {
		if id != blocklist.BaselineSourceID && !blocklist.IsPublisher(id) {
			return fmt.Errorf("fetch.%s: unknown source", id)
		}
		if override.URL == "" {
			continue
		}
		u, err := url.Parse(override.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("fetch.%s.url must be an http(s) URL: %s", id, override.URL)
		}
	}

	return nil
}

func parseSourceOverrides(v *viper.Viper) (map[string]SourceOverride, error) {
	raw := v.GetStringMap("fetch")
	if len(raw) == 0 {
		return map[string]SourceOverride{}, nil
	}

	ignored := map[string]bool{
		"timeout":     true,
		"user_agent":  true,
		"concurrency": true,
		"cache_dir":   true,
		"sources":     true,
	}

	overrides := make(map[string]SourceOverride)
	for key, value := range raw {
		if ignored[key] {
			continue
		}
		subMap, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("fetch.%s must be a table", key)
		}
		var override SourceOverride
		if err := mapstructure.Decode(subMap, &override); err != nil {
			return nil, fmt.Errorf("parse fetch.%s: %w", key, err)
		}
		override.URL = strings.TrimSpace(override.URL)
		overrides[strings.ToLower(key)] = override
	}

	return overrides, nil
}
