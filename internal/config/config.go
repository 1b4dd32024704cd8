// Package config loads the equityrun YAML configuration. Every section has
// working defaults; a missing file is not an error, only an unreadable or
// invalid one is.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/equityrun/equityrun/internal/domain/portfolio"
	"github.com/equityrun/equityrun/internal/domain/regime"
	"github.com/equityrun/equityrun/internal/domain/signal"
)

// Config is the full application configuration.
type Config struct {
	Trading   TradingConfig   `yaml:"trading"`
	Signals   signal.Config   `yaml:"signals"`
	Regime    regime.Config   `yaml:"regime"`
	Watchlist []string        `yaml:"watchlist"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Feed      FeedConfig      `yaml:"feed"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// TradingConfig wraps the portfolio engine config plus the paper-trading
// safety switch.
type TradingConfig struct {
	portfolio.Config `yaml:",inline"`

	// PaperOnly must be true for a live session to start. There is no live
	// order path in this system; the flag exists so a config that claims
	// otherwise is refused loudly instead of silently paper-trading.
	PaperOnly bool `yaml:"paper_only"`
}

// DatabaseConfig points at the Postgres trade store. Empty DSN disables
// persistence.
type DatabaseConfig struct {
	DSN          string   `yaml:"dsn"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// RedisConfig points at the regime cache. Empty address disables caching.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// FeedConfig configures the indicator snapshot source.
type FeedConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	// RatePerSec caps outbound snapshot requests.
	RatePerSec float64  `yaml:"rate_per_sec"`
	Burst      int      `yaml:"burst"`
	Timeout    Duration `yaml:"timeout"`
}

// MonitorConfig configures the read-only HTTP surface.
type MonitorConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// SchedulerConfig drives the live session cadence.
type SchedulerConfig struct {
	CycleInterval  Duration `yaml:"cycle_interval"`
	RegimeInterval Duration `yaml:"regime_interval"`
}

// Default returns the standard paper account configuration.
func Default() Config {
	return Config{
		Trading: TradingConfig{
			Config:    portfolio.DefaultConfig(),
			PaperOnly: true,
		},
		Signals: signal.DefaultConfig(),
		Regime:  regime.DefaultConfig(),
		Watchlist: []string{
			"RELIANCE", "TCS", "HDFCBANK", "INFY", "HINDUNILVR",
			"ICICIBANK", "KOTAKBANK", "BHARTIARTL", "ITC", "SBIN",
		},
		Database: DatabaseConfig{QueryTimeout: Duration(5 * time.Second)},
		Redis:    RedisConfig{TTL: Duration(15 * time.Minute)},
		Feed: FeedConfig{
			RatePerSec: 5,
			Burst:      10,
			Timeout:    Duration(10 * time.Second),
		},
		Monitor: MonitorConfig{ListenAddr: ":8090"},
		Scheduler: SchedulerConfig{
			CycleInterval:  Duration(5 * time.Minute),
			RegimeInterval: Duration(15 * time.Minute),
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (c Config) Validate() error {
	if err := c.Trading.Config.Validate(); err != nil {
		return err
	}
	if c.Signals.MinScore <= 0 || c.Signals.MinScore > 100 {
		return fmt.Errorf("signals.min_score %.1f outside (0,100]", c.Signals.MinScore)
	}
	if c.Signals.MinConditions <= 0 {
		return fmt.Errorf("signals.min_conditions must be positive, got %d", c.Signals.MinConditions)
	}
	if c.Signals.StopATRMult <= 0 || c.Signals.TargetATRMult <= 0 {
		return fmt.Errorf("signals ATR multiples must be positive")
	}
	if c.Regime.BearThreshold >= c.Regime.BullThreshold {
		return fmt.Errorf("regime.bear_threshold %.1f must be below bull_threshold %.1f",
			c.Regime.BearThreshold, c.Regime.BullThreshold)
	}
	if sum := c.Regime.Weights.Sum(); sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("regime weights sum to %.3f, expected 1.0", sum)
	}
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	return nil
}
