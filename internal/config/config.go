// Package config resolves bonomen settings from flags, environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ner0x652/bonomen/internal/collector"
	"github.com/ner0x652/bonomen/internal/rulestore"
)

const envPrefix = "BONOMEN"

// Config is the resolved configuration of one run
type Config struct {
	RulesFile          string `mapstructure:"file"`
	Verbose            bool   `mapstructure:"verbose"`
	Quiet              bool   `mapstructure:"quiet"`
	JSON               bool   `mapstructure:"json"`
	LogLevel           string `mapstructure:"log-level"`
	LogFile            string `mapstructure:"log-file"`
	MaxPIDs            int    `mapstructure:"max-pids"`
	ProcRoot           string `mapstructure:"proc-root"`
	Workers            int    `mapstructure:"workers"`
	MetricsFile        string `mapstructure:"metrics-file"`
	SkipPrivilegeCheck bool   `mapstructure:"skip-privilege-check"`
	ShowVersion        bool   `mapstructure:"version"`
}

// NewFlagSet declares every command line flag. Usage and parse errors are
// written to out.
func NewFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringP("file", "f", rulestore.DefaultRulesFile, "File containing critical processes name, threshold, whitelist")
	fs.BoolP("verbose", "v", false, "Print every process/rule comparison")
	fs.BoolP("quiet", "q", false, "Print findings and the summary line only")
	fs.Bool("json", false, "Write the scan result as JSON to stdout")
	fs.String("config", "", "Optional YAML configuration file")
	fs.String("log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	fs.String("log-file", "", "Write JSON diagnostics to this file")
	fs.Int("max-pids", collector.DefaultMaxPIDs, "Upper bound on PIDs read from the process table (Windows)")
	fs.String("proc-root", collector.DefaultProcRoot, "procfs mount point (Linux)")
	fs.Int("workers", 1, "Goroutines used to match processes against rules")
	fs.String("metrics-file", "", "Write a Prometheus textfile summary to this path")
	fs.Bool("skip-privilege-check", false, "Scan even without administrative privileges")
	fs.Bool("version", false, "Show version information")
	return fs
}

// Load parses args and merges them with BONOMEN_* environment variables and
// the --config file. Explicit flags win over the environment, which wins over
// the file.
func Load(name string, args []string, out io.Writer) (*Config, error) {
	fs := NewFlagSet(name, out)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return FromFlags(fs)
}

// FromFlags resolves a configuration from an already parsed flag set
func FromFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}
	if c.RulesFile == "" {
		errs = append(errs, errors.New("rules file must not be empty"))
	}
	if c.MaxPIDs < 1 {
		errs = append(errs, fmt.Errorf("max-pids must be positive, got %d", c.MaxPIDs))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Quiet && c.Verbose {
		errs = append(errs, errors.New("--quiet and --verbose are mutually exclusive"))
	}

	return errors.Join(errs...)
}

// CollectorOptions maps the configuration onto the process collector
func (c *Config) CollectorOptions() collector.Options {
	return collector.Options{
		ProcRoot: c.ProcRoot,
		MaxPIDs:  c.MaxPIDs,
	}
}
