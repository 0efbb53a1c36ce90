package cardscope

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a config with every tunable at its shipped default.
// Values here are overridden by whatever the TOML file sets.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: slog.LevelInfo},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: "*",
		},
		Ebay: EbayConfig{
			FindingURL:     "https://svcs.ebay.com/services/search/FindingService/v1",
			BrowseURL:      "https://api.ebay.com/buy/browse/v1",
			TokenURL:       "https://api.ebay.com/identity/v1/oauth2/token",
			MarketplaceID:  "EBAY_US",
			CategoryID:     "261328",
			EntriesPerPage: 20,
			CooldownMin:    10,
		},
		Pipeline: PipelineConfig{
			SparsityThreshold: 5,
			MaxListings:       50,
			RateMaxRequests:   1,
			RateWindow:        duration(5 * time.Second),
			QueryCacheTTL:     duration(5 * time.Minute),
			TextCacheTTL:      duration(30 * time.Minute),
			SweepInterval:     duration(10 * time.Minute),
			SearchTimeout:     duration(4 * time.Second),
			CacheSize:         1024,
			CurrencyRates: map[string]float64{
				"USD": 1.0,
				"CAD": 0.74,
				"EUR": 1.08,
				"GBP": 1.27,
				"AUD": 0.66,
			},
		},
	}
}

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	DB       DBConfig       `toml:"db"`
	Ebay     EbayConfig     `toml:"ebay"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	CORSOrigins string `toml:"cors_origins"`
}

// DBConfig is optional: an empty host runs the service without scan history.
type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

func (c DBConfig) Enabled() bool {
	return c.Host != ""
}

type EbayConfig struct {
	AppID          string `toml:"app_id"`
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	FindingURL     string `toml:"finding_url"`
	BrowseURL      string `toml:"browse_url"`
	TokenURL       string `toml:"token_url"`
	MarketplaceID  string `toml:"marketplace_id"`
	CategoryID     string `toml:"category_id"`
	EntriesPerPage int    `toml:"entries_per_page"`
	CooldownMin    int    `toml:"cooldown_minutes"`
}

type PipelineConfig struct {
	SparsityThreshold int                `toml:"sparsity_threshold"`
	MaxListings       int                `toml:"max_listings"`
	RateMaxRequests   int                `toml:"rate_max_requests"`
	RateWindow        duration           `toml:"rate_window"`
	QueryCacheTTL     duration           `toml:"query_cache_ttl"`
	TextCacheTTL      duration           `toml:"text_cache_ttl"`
	SweepInterval     duration           `toml:"sweep_interval"`
	SearchTimeout     duration           `toml:"search_timeout"`
	CacheSize         int                `toml:"cache_size"`
	CurrencyRates     map[string]float64 `toml:"currency_rates"`
}

// duration wraps time.Duration so TOML values can be written as "5s", "10m".
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Std() time.Duration {
	return time.Duration(d)
}
