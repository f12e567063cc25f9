package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pixperk/chugsql/internal/loader"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const DefaultPath = ".chugsql.yaml"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`

	// Source is a file path, or "postgres" to read PGTable through PostgresURL.
	Source      string `yaml:"source"`
	Sheet       string `yaml:"sheet"`
	PostgresURL string `yaml:"pg_url"`
	PGTable     string `yaml:"pg_table"`
	Limit       int    `yaml:"limit"`

	Ceiling       int `yaml:"ceiling"`
	WideThreshold int `yaml:"wide_threshold"`

	Polling PollingConfig `yaml:"polling"`
	Loads   []LoadConfig  `yaml:"loads"`
}

// LoadConfig overrides the top-level settings for one destination table.
type LoadConfig struct {
	Table   string         `yaml:"table"`
	Schema  *string        `yaml:"schema"`
	Source  string         `yaml:"source"`
	Sheet   string         `yaml:"sheet"`
	PGTable string         `yaml:"pg_table"`
	Limit   *int           `yaml:"limit"`
	Ceiling *int           `yaml:"ceiling"`
	Polling *PollingConfig `yaml:"polling"`
}

type PollingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DeltaCol string `yaml:"delta_column"`
	Interval int    `yaml:"interval_seconds"`
}

type ResolvedLoad struct {
	Destination   loader.Destination
	Source        string
	Sheet         string
	PGTable       string
	Limit         int
	Ceiling       int
	WideThreshold int
	Polling       PollingConfig
}

// Load reads path (DefaultPath when empty). Variables from a .env file next to
// the working directory are loaded first and ${VAR} references in the
// connection strings are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s (pass --config or run 'chugsql sample-config')", path)
	}

	// a missing .env is fine
	_ = godotenv.Load()

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	c.DSN = os.ExpandEnv(c.DSN)
	c.PostgresURL = os.ExpandEnv(c.PostgresURL)
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Driver == "" {
		return errors.Wrap(ErrInvalidConfig, "driver is required")
	}
	if _, ok := loader.DialectFor(c.Driver); !ok {
		return errors.Wrapf(ErrInvalidConfig, "unsupported driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.Wrap(ErrInvalidConfig, "dsn is required")
	}
	if c.Ceiling < 0 || c.WideThreshold < 0 || c.Limit < 0 {
		return errors.Wrap(ErrInvalidConfig, "ceiling, wide_threshold and limit must not be negative")
	}
	if len(c.EffectiveLoads()) == 0 {
		return errors.Wrap(ErrInvalidConfig, "no table configured")
	}
	for _, lc := range c.EffectiveLoads() {
		r := c.Resolve(lc)
		if r.Destination.Table == "" {
			return errors.Wrap(ErrInvalidConfig, "load without table")
		}
		if r.Source == "" {
			return errors.Wrapf(ErrInvalidConfig, "%s: source is required", r.Destination)
		}
		if r.Source == "postgres" && (c.PostgresURL == "" || r.PGTable == "") {
			return errors.Wrapf(ErrInvalidConfig, "%s: postgres source needs pg_url and pg_table", r.Destination)
		}
		if r.Polling.Enabled && r.Polling.DeltaCol == "" {
			return errors.Wrapf(ErrInvalidConfig, "%s: polling needs delta_column", r.Destination)
		}
	}
	return nil
}

// EffectiveLoads returns the loads list, or a single load built from the
// top-level table.
func (c *Config) EffectiveLoads() []LoadConfig {
	if len(c.Loads) > 0 {
		return c.Loads
	}
	if c.Table != "" {
		return []LoadConfig{{Table: c.Table}}
	}
	return nil
}

func (c *Config) Resolve(lc LoadConfig) ResolvedLoad {
	r := ResolvedLoad{
		Destination:   loader.Destination{Schema: c.Schema, Table: lc.Table},
		Source:        firstNonEmpty(lc.Source, c.Source),
		Sheet:         firstNonEmpty(lc.Sheet, c.Sheet),
		PGTable:       firstNonEmpty(lc.PGTable, c.PGTable, lc.Table),
		Limit:         c.Limit,
		Ceiling:       c.Ceiling,
		WideThreshold: c.WideThreshold,
		Polling:       c.Polling,
	}

	if lc.Schema != nil {
		r.Destination.Schema = *lc.Schema
	}
	if lc.Limit != nil {
		r.Limit = *lc.Limit
	}
	if lc.Ceiling != nil {
		r.Ceiling = *lc.Ceiling
	}
	if r.Ceiling == 0 {
		r.Ceiling = loader.DefaultCeiling
	}
	if r.WideThreshold == 0 {
		r.WideThreshold = loader.DefaultWideThreshold
	}
	if lc.Polling != nil {
		r.Polling = *lc.Polling
	}
	if r.Polling.Interval <= 0 {
		r.Polling.Interval = 30
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
