// Package config loads the configuration of the client.
//
// The configuration is read from a YAML file, then overridden by the
// environment variables prefixed with CANVASS_. The variables can also be
// defined in a .env file, the ones of the process taking precedence.
//
// Documentation Last Review: 06.10.2026
//
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.canvass.io/canvass/tag"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of the environment variables.
const EnvPrefix = "CANVASS_"

// Config is the configuration of the client.
type Config struct {
	// Network is the name of the network of the in-memory chain.
	Network string `yaml:"network"`
	// DataDir is the folder of the database and of the key.
	DataDir string `yaml:"datadir"`
	// KeyFile is the path to the private key of the wallet, relative to the
	// data folder when it is not absolute.
	KeyFile string `yaml:"keyfile"`
	// CommentsURL is the base URL of the comment service.
	CommentsURL string `yaml:"comments_url"`
	// Listen is the address of the comment service when it is served.
	Listen string `yaml:"listen"`
	// MetricsPath is the path of the Prometheus handler.
	MetricsPath string `yaml:"metrics_path"`
	// BallotTTL is the lifetime of a persisted ballot.
	BallotTTL time.Duration `yaml:"ballot_ttl"`
	// Automine mines a block after each transaction.
	Automine bool   `yaml:"automine"`
	LogLevel string `yaml:"log_level"`
	// Tags are the known tags of the polls.
	Tags []tag.Tag `yaml:"tags"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Network:     "mem",
		DataDir:     ".canvass",
		KeyFile:     "private.key",
		CommentsURL: "http://127.0.0.1:8080",
		Listen:      "127.0.0.1:8080",
		MetricsPath: "/metrics",
		BallotTTL:   24 * time.Hour,
		Automine:    true,
		LogLevel:    "info",
		Tags: []tag.Tag{
			{ID: "collateral-onboard", ShortName: "Collateral Onboard", LongName: "Collateral Onboarding"},
			{ID: "risk-parameter", ShortName: "Risk Parameter", LongName: "Risk Parameter Changes"},
			{ID: "oracles", ShortName: "Oracles", LongName: "Oracle Management"},
			{ID: "budget", ShortName: "Budget", LongName: "Core Unit Budgets"},
			{ID: "greenlight", ShortName: "Greenlight", LongName: "Greenlight Polls"},
			{ID: "auctions", ShortName: "Auctions", LongName: "Auction Parameters"},
			{ID: "misc", ShortName: "Misc", LongName: "Miscellaneous"},
		},
	}
}

// Option is the type of option to load a configuration.
type Option func(*loader)

// WithEnv is an option to set the lookup of the environment variables.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookup = lookup
	}
}

// WithDotEnv is an option to set the path of the .env file.
func WithDotEnv(path string) Option {
	return func(l *loader) {
		l.dotenv = path
	}
}

type loader struct {
	lookup func(string) (string, bool)
	dotenv string
}

// Load returns the configuration of the file, if any, with the overrides of
// the environment. An empty path only loads the default configuration.
func Load(path string, opts ...Option) (Config, error) {
	l := loader{
		lookup: os.LookupEnv,
		dotenv: ".env",
	}

	for _, opt := range opts {
		opt(&l)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, xerrors.Errorf("failed to read config: %v", err)
		}

		err = yaml.UnmarshalStrict(data, &cfg)
		if err != nil {
			return cfg, xerrors.Errorf("failed to parse config: %v", err)
		}
	}

	dotenv := map[string]string{}

	if l.dotenv != "" {
		values, err := godotenv.Read(l.dotenv)
		if err == nil {
			dotenv = values
		} else if !os.IsNotExist(err) {
			return cfg, xerrors.Errorf("failed to read %s: %v", l.dotenv, err)
		}
	}

	lookup := func(key string) (string, bool) {
		value, found := l.lookup(EnvPrefix + key)
		if found {
			return value, true
		}

		value, found = dotenv[EnvPrefix+key]

		return value, found
	}

	err := cfg.override(lookup)
	if err != nil {
		return cfg, err
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, xerrors.Errorf("invalid config: %v", err)
	}

	return cfg, nil
}

func (c *Config) override(lookup func(string) (string, bool)) error {
	strings := map[string]*string{
		"NETWORK":      &c.Network,
		"DATADIR":      &c.DataDir,
		"KEYFILE":      &c.KeyFile,
		"COMMENTS_URL": &c.CommentsURL,
		"LISTEN":       &c.Listen,
		"METRICS_PATH": &c.MetricsPath,
		"LOG_LEVEL":    &c.LogLevel,
	}

	for key, field := range strings {
		value, found := lookup(key)
		if found {
			*field = value
		}
	}

	value, found := lookup("BALLOT_TTL")
	if found {
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return xerrors.Errorf("invalid %sBALLOT_TTL: %v", EnvPrefix, err)
		}

		c.BallotTTL = ttl
	}

	value, found = lookup("AUTOMINE")
	if found {
		automine, err := strconv.ParseBool(value)
		if err != nil {
			return xerrors.Errorf("invalid %sAUTOMINE: %v", EnvPrefix, err)
		}

		c.Automine = automine
	}

	return nil
}

// Validate returns an error if the configuration is incomplete.
func (c Config) Validate() error {
	if c.Network == "" {
		return xerrors.New("network is required")
	}

	if c.DataDir == "" {
		return xerrors.New("datadir is required")
	}

	if c.BallotTTL <= 0 {
		return xerrors.Errorf("ballot ttl must be positive: %v", c.BallotTTL)
	}

	_, err := c.Level()
	if err != nil {
		return err
	}

	return nil
}

// Level returns the log level.
func (c Config) Level() (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, xerrors.Errorf("invalid log level: %v", err)
	}

	return level, nil
}

// KeyPath returns the path of the private key.
func (c Config) KeyPath() string {
	if filepath.IsAbs(c.KeyFile) {
		return c.KeyFile
	}

	return filepath.Join(c.DataDir, c.KeyFile)
}

// DBPath returns the path of the database.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "canvass.db")
}
