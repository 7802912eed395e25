package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"snowintel.yaml", "/etc/snowintel/config.yaml"}

// Config holds all settings. Precedence: environment > config file > defaults.
type Config struct {
	WSDLURL     string        `koanf:"wsdl_url" validate:"required,url"`
	SOAPTimeout time.Duration `koanf:"soap_timeout" validate:"gt=0"`

	Cache CacheConfig `koanf:"cache"`

	HTTPAddr string `koanf:"http_addr" validate:"required"`
	// RefreshInterval is how often serve re-fetches the site table; 0 fetches
	// it once at startup.
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"gte=0"`
	MapBasemap      string        `koanf:"map_basemap" validate:"oneof=google_maps google_satellite google_terrain google_satellite_hybrid esri_satellite"`

	LogLevel  string `koanf:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat string `koanf:"log_format" validate:"oneof=json text"`

	ShutdownTimeout time.Duration `koanf:"-"`
}

// CacheConfig selects the SOAP response cache.
type CacheConfig struct {
	Backend    string        `koanf:"backend" validate:"oneof=sqlite badger memory none"`
	Path       string        `koanf:"path"` // empty uses the OS temp directory
	TTL        time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxEntries int           `koanf:"max_entries" validate:"gte=1"`
}

func defaultConfig() *Config {
	return &Config{
		WSDLURL:     "https://hydroportal.cuahsi.org/Snotel/cuahsi_1_1.asmx?WSDL",
		SOAPTimeout: 60 * time.Second,
		Cache: CacheConfig{
			Backend:    "sqlite",
			TTL:        60 * time.Second,
			MaxEntries: 1000,
		},
		HTTPAddr:        ":8080",
		RefreshInterval: 15 * time.Minute,
		MapBasemap:      "google_terrain",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// envMappings maps environment variable names (lower-cased) to config paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"wsdl_url":          "wsdl_url",
	"soap_timeout":      "soap_timeout",
	"cache_backend":     "cache.backend",
	"cache_path":        "cache.path",
	"cache_ttl":         "cache.ttl",
	"cache_max_entries": "cache.max_entries",
	"http_addr":         "http_addr",
	"refresh_interval":  "refresh_interval",
	"map_basemap":       "map_basemap",
	"log_level":         "log_level",
	"log_format":        "log_format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load layers defaults, the optional YAML config file, and environment
// variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.ShutdownTimeout, err = sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when set (it must exist), otherwise the
// first default path that exists, otherwise "".
func findConfigFile() (string, error) {
	if path := sharedcfg.EnvOrDefault(ConfigPathEnvVar, ""); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s: %w", ConfigPathEnvVar, err)
		}
		return path, nil
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks every field against its validate tag.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %s %s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
