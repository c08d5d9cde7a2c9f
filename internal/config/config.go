// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Exchange describes where the paper harness sources quotes.
type Exchange struct {
	Provider string   `yaml:"provider"` // stub|binance
	Symbols  []string `yaml:"symbols"`
	TickSize float64  `yaml:"tick_size"` // venue price per integer tick
	LotSize  float64  `yaml:"lot_size"`  // venue quantity per integer lot
	StubSeed int64    `yaml:"stub_seed"`
}

// Paper captures paper-trading account and loop settings.
type Paper struct {
	StartingCash   float64 `yaml:"starting_cash"`
	TickIntervalMs int     `yaml:"tick_interval_ms"`
	JournalPath    string  `yaml:"journal_path"`
	FillsPath      string  `yaml:"fills_path"`
	Conversions    int     `yaml:"conversions"`
	MaxNotional    float64 `yaml:"max_notional_per_trade"` // zero disables
}

// StateStore selects where the trader blob lives between ticks.
type StateStore struct {
	Backend   string `yaml:"backend"` // memory|redis
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
	TTLSecs   int    `yaml:"ttl_secs"`
}

// Band is a threshold policy: fixed ticks, k·volatility, or a z-score cutoff.
type Band struct {
	Kind  string  `yaml:"kind"` // fixed|volatility|zscore
	Value float64 `yaml:"value"`
}

// Tier maps a metric threshold to a trade size.
type Tier struct {
	Above float64 `yaml:"above"`
	Size  int     `yaml:"size"`
}

// Sizing picks how the max trade size is derived.
type Sizing struct {
	Kind  string `yaml:"kind"` // fixed|inventory|signal
	Base  int    `yaml:"base"`
	Tiers []Tier `yaml:"tiers"`
}

// Instrument is one row of the strategy table.
type Instrument struct {
	Window        int     `yaml:"window"`
	Seed          float64 `yaml:"seed"`
	FairValue     string  `yaml:"fair_value"` // rolling|fixed
	Mode          string  `yaml:"mode"`       // reversion|momentum
	Entry         Band    `yaml:"entry"`
	Exit          *Band   `yaml:"exit"`
	Limit         int     `yaml:"limit"`
	Sizing        Sizing  `yaml:"sizing"`
	Cooldown      int64   `yaml:"cooldown"` // snapshot timestamp units between entries
	StopLoss      float64 `yaml:"stop_loss"`
	TrailingStop  float64 `yaml:"trailing_stop"` // fraction of peak PnL given back before exiting
	MaxSpread     int     `yaml:"max_spread"`
	MaxVolatility float64 `yaml:"max_volatility"`
}

// Leg is one product of a spread, weighted into the spread value.
type Leg struct {
	Symbol string  `yaml:"symbol"`
	Weight float64 `yaml:"weight"` // spread = sum(weight * mid); negative weights are the hedge
	Limit  int     `yaml:"limit"`
}

// Spread trades a weighted basket of legs against its own rolling mean.
type Spread struct {
	Legs   []Leg  `yaml:"legs"`
	Window int    `yaml:"window"`
	Mode   string `yaml:"mode"` // reversion|momentum
	Entry  Band   `yaml:"entry"`
	Exit   *Band  `yaml:"exit"`
	Size   int    `yaml:"size"` // spread units per entry; leg quantity is size*|weight|
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App         App                   `yaml:"app"`
	Exchange    Exchange              `yaml:"exchange"`
	Paper       Paper                 `yaml:"paper"`
	State       StateStore            `yaml:"state"`
	Instruments map[string]Instrument `yaml:"instruments"`
	Spreads     map[string]Spread     `yaml:"spreads"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects instrument tables the trader cannot run.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 && len(c.Spreads) == 0 {
		return fmt.Errorf("config: no instruments configured")
	}
	for _, sym := range c.Symbols() {
		inst := c.Instruments[sym]
		if inst.Limit <= 0 {
			return fmt.Errorf("config: instrument %s: limit must be positive", sym)
		}
		if inst.Window < 0 {
			return fmt.Errorf("config: instrument %s: window must not be negative", sym)
		}
		if inst.TrailingStop < 0 || inst.TrailingStop >= 1 {
			return fmt.Errorf("config: instrument %s: trailing_stop must be in [0,1)", sym)
		}
	}
	owner := make(map[string]string)
	for _, name := range c.SpreadNames() {
		spread := c.Spreads[name]
		if _, ok := c.Instruments[name]; ok {
			return fmt.Errorf("config: spread %s: name collides with an instrument", name)
		}
		if len(spread.Legs) < 2 {
			return fmt.Errorf("config: spread %s: needs at least two legs", name)
		}
		if spread.Window < 0 || spread.Size < 0 {
			return fmt.Errorf("config: spread %s: window and size must not be negative", name)
		}
		for _, leg := range spread.Legs {
			if leg.Symbol == "" || leg.Weight == 0 || leg.Limit <= 0 {
				return fmt.Errorf("config: spread %s: leg %q needs a symbol, a non-zero weight and a positive limit", name, leg.Symbol)
			}
			if _, ok := c.Instruments[leg.Symbol]; ok {
				return fmt.Errorf("config: spread %s: leg %s is also a standalone instrument", name, leg.Symbol)
			}
			if other, ok := owner[leg.Symbol]; ok {
				return fmt.Errorf("config: spread %s: leg %s already belongs to spread %s", name, leg.Symbol, other)
			}
			owner[leg.Symbol] = name
		}
	}
	return nil
}

// SpreadNames returns the configured spreads in sorted order.
func (c *Config) SpreadNames() []string {
	out := make([]string, 0, len(c.Spreads))
	for name := range c.Spreads {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Limits maps every traded symbol, standalone or spread leg, to its position limit.
func (c *Config) Limits() map[string]int {
	out := make(map[string]int, len(c.Instruments))
	for sym, inst := range c.Instruments {
		out[sym] = inst.Limit
	}
	for _, spread := range c.Spreads {
		for _, leg := range spread.Legs {
			out[leg.Symbol] = leg.Limit
		}
	}
	return out
}

// Symbols returns the configured instruments in sorted order.
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Instruments))
	for sym := range c.Instruments {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
