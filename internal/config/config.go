// Package config loads puzzlecheck settings from defaults, an optional config
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/freeeve/puzzlecheck/internal/oracle"
)

// EnvPrefix prefixes every environment variable, e.g. PUZZLECHECK_LEDGER_PATH.
const EnvPrefix = "PUZZLECHECK"

// Config is the full set of settings.
type Config struct {
	DBPath         string       `mapstructure:"db_path"`
	CandidatesPath string       `mapstructure:"candidates_path"`
	LedgerPath     string       `mapstructure:"ledger_path"`
	ExportPath     string       `mapstructure:"export_path"`
	Log            LogConfig    `mapstructure:"log"`
	Oracle         OracleConfig `mapstructure:"oracle"`
	HTTP           HTTPConfig   `mapstructure:"http"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // debug log file, empty to disable
}

// OracleConfig configures the tablebase client.
type OracleConfig struct {
	URL            string        `mapstructure:"url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MinInterval    time.Duration `mapstructure:"min_interval"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Cache          bool          `mapstructure:"cache"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the server
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "")
	v.SetDefault("candidates_path", "puzzle.csv")
	v.SetDefault("ledger_path", "puzzle_checked.txt")
	v.SetDefault("export_path", "incorrect_puzzles_id.txt")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "puz.log")

	v.SetDefault("oracle.url", oracle.DefaultURL)
	v.SetDefault("oracle.timeout", 30*time.Second)
	v.SetDefault("oracle.min_interval", 550*time.Millisecond)
	v.SetDefault("oracle.max_retries", 5)
	v.SetDefault("oracle.initial_backoff", 10*time.Second)
	v.SetDefault("oracle.max_backoff", 5*time.Minute)
	v.SetDefault("oracle.cache", true)

	v.SetDefault("http.addr", "")
}

// Load reads settings into v and returns them validated. cfgFile may name a
// YAML or .env file; when empty, ./puzzlecheck.yaml is used if present.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DB_PATH is the name used by existing .env files.
	if err := v.BindEnv("db_path", EnvPrefix+"_DB_PATH", "DB_PATH"); err != nil {
		return Config{}, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("puzzlecheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	var errs []error
	if c.CandidatesPath == "" {
		errs = append(errs, errors.New("candidates_path is empty"))
	}
	if c.LedgerPath == "" {
		errs = append(errs, errors.New("ledger_path is empty"))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	u, err := url.Parse(c.Oracle.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("oracle.url %q is not an http(s) URL", c.Oracle.URL))
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, errors.New("oracle.timeout must be positive"))
	}
	if c.Oracle.MinInterval <= 0 {
		errs = append(errs, errors.New("oracle.min_interval must be positive"))
	}
	if c.Oracle.MaxRetries < 0 {
		errs = append(errs, errors.New("oracle.max_retries must not be negative"))
	}
	if c.Oracle.InitialBackoff <= 0 || c.Oracle.MaxBackoff < c.Oracle.InitialBackoff {
		errs = append(errs, errors.New("oracle backoff must satisfy 0 < initial_backoff <= max_backoff"))
	}
	return errors.Join(errs...)
}
