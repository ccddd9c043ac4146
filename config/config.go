// Package config loads the routecache process configuration: a JSON file
// overlaid by ROUTECACHE_* environment variables.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by [Load].
const EnvPrefix = "ROUTECACHE_"

type Config struct {
	LogLevel LogLevel `json:"log_level" env:"LOG_LEVEL"`
	Log      Log      `json:"log" envPrefix:"LOG_"`

	Server    Server   `json:"server" envPrefix:"SERVER_"`
	Geocode   Cache    `json:"geocode" envPrefix:"GEOCODE_"`
	DriveTime Cache    `json:"drivetime" envPrefix:"DRIVETIME_"`
	Redis     Redis    `json:"redis" envPrefix:"REDIS_"`
	Nominatim Provider `json:"nominatim" envPrefix:"NOMINATIM_"`
	OSRM      Provider `json:"osrm" envPrefix:"OSRM_"`

	// APIKeys are only read from the file.
	APIKeys []APIKey `json:"api_keys"`
	// AdminScope guards the purge operations. Empty leaves them open.
	AdminScope string `json:"admin_scope" env:"ADMIN_SCOPE"`
}

type Server struct {
	GRPCAddress string `json:"grpc_address" env:"GRPC_ADDRESS"`
	HTTPAddress string `json:"http_address" env:"HTTP_ADDRESS"`

	// RateLimit and RateBurst bound inbound calls across all methods.
	RateLimit float64 `json:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `json:"rate_burst" env:"RATE_BURST"`

	// Timeout bounds each lookup call.
	Timeout Duration `json:"timeout" env:"TIMEOUT"`

	// SweepInterval enables the background purge of expired entries.
	SweepInterval Duration `json:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// Cache sizes one lookup cache and its failure memo.
type Cache struct {
	TTL      Duration `json:"ttl" env:"TTL"`
	Capacity int      `json:"capacity" env:"CAPACITY"`

	FailureTTL     Duration `json:"failure_ttl" env:"FAILURE_TTL"`
	FailureEntries int64    `json:"failure_entries" env:"FAILURE_ENTRIES"`
}

// Redis enables the shared tier when Address is set.
type Redis struct {
	Address  string `json:"address" env:"ADDRESS"`
	Password string `json:"password" env:"PASSWORD"`
	DB       int    `json:"db" env:"DB"`
	Prefix   string `json:"prefix" env:"PREFIX"`
}

// Provider configures an upstream HTTP API.
type Provider struct {
	URL       string   `json:"url" env:"URL"`
	UserAgent string   `json:"user_agent" env:"USER_AGENT"`
	Timeout   Duration `json:"timeout" env:"TIMEOUT"`
	Rate      float64  `json:"rate" env:"RATE"`
	Burst     int      `json:"burst" env:"BURST"`
	Attempts  int      `json:"attempts" env:"ATTEMPTS"`
}

type APIKey struct {
	Key    string   `json:"key"`
	Tenant string   `json:"tenant"`
	Scopes []string `json:"scopes,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cache := func(ttl time.Duration, capacity int) Cache {
		return Cache{
			TTL:            Duration(ttl),
			Capacity:       capacity,
			FailureTTL:     Duration(30 * time.Second),
			FailureEntries: 10_000,
		}
	}
	provider := func(url string) Provider {
		return Provider{
			URL:       url,
			UserAgent: "routecache/1.0",
			Timeout:   Duration(10 * time.Second),
			Rate:      5,
			Burst:     5,
			Attempts:  3,
		}
	}
	return Config{
		LogLevel: LogLevelInfo,
		Log: Log{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Server: Server{
			GRPCAddress: ":7600",
			HTTPAddress: ":7601",
			RateLimit:   200,
			RateBurst:   400,
			Timeout:     Duration(15 * time.Second),
		},
		Geocode:   cache(24*time.Hour, 10_000),
		DriveTime: cache(6*time.Hour, 20_000),
		Redis:     Redis{Prefix: "routecache:"},
		Nominatim: provider("https://nominatim.openstreetmap.org"),
		// No URL: drive times fall back to the straight-line estimate.
		OSRM:       provider(""),
		AdminScope: "admin",
	}
}

// ParseConfig decodes raw JSON over the defaults.
func ParseConfig(raw []byte) (Config, error) {
	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}

// Load reads path (if not empty), applies ROUTECACHE_* environment
// variables and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if cfg, err = ParseConfig(raw); err != nil {
			return cfg, errors.WithMessage(err, path)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, errors.Wrap(err, "load config from env")
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Server.GRPCAddress == "" && c.Server.HTTPAddress == "":
		return errors.New("config: at least one of server.grpc_address and server.http_address is required")
	case c.Geocode.TTL <= 0:
		return errors.New("config: geocode.ttl must be positive")
	case c.DriveTime.TTL <= 0:
		return errors.New("config: drivetime.ttl must be positive")
	case c.Nominatim.URL == "":
		return errors.New("config: nominatim.url is required")
	}
	for i, k := range c.APIKeys {
		if k.Key == "" || k.Tenant == "" {
			return errors.Errorf("config: api_keys[%d] needs key and tenant", i)
		}
	}
	return nil
}

// CreateSample writes the default configuration, with one example API key,
// to path.
func CreateSample(path string) error {
	sample := Default()
	sample.APIKeys = []APIKey{
		{Key: "change-me", Tenant: "example", Scopes: []string{sample.AdminScope}},
	}
	raw, err := json.MarshalIndent(sample, "", "    ")
	if err != nil {
		return errors.Wrap(err, "could not marshal sample config")
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrap(err, "could not write sample config file")
	}
	return nil
}
