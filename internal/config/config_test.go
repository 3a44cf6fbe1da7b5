package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ner0x652/bonomen/internal/collector"
	"github.com/ner0x652/bonomen/internal/rulestore"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("bonomen", nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, rulestore.DefaultRulesFile, cfg.RulesFile)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, collector.DefaultMaxPIDs, cfg.MaxPIDs)
	assert.Equal(t, collector.DefaultProcRoot, cfg.ProcRoot)
	assert.Equal(t, 1, cfg.Workers)
	assert.False(t, cfg.Verbose)
	assert.False(t, cfg.JSON)
	assert.False(t, cfg.SkipPrivilegeCheck)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := Load("bonomen", []string{"-f", "/etc/bonomen/procs.txt", "-v", "--workers", "4", "--max-pids", "2048"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/etc/bonomen/procs.txt", cfg.RulesFile)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, collector.Options{ProcRoot: collector.DefaultProcRoot, MaxPIDs: 2048}, cfg.CollectorOptions())
}

func TestEnvironmentOverridesDefaultsButNotFlags(t *testing.T) {
	t.Setenv("BONOMEN_LOG_LEVEL", "debug")
	t.Setenv("BONOMEN_WORKERS", "3")
	t.Setenv("BONOMEN_JSON", "true")

	cfg, err := Load("bonomen", []string{"--workers", "6"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.JSON)
	assert.Equal(t, 6, cfg.Workers)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonomen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("file: /srv/rules.txt\nlog-level: info\nmetrics-file: /var/lib/node_exporter/bonomen.prom\n"), 0644))

	cfg, err := Load("bonomen", []string{"--config", path}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/srv/rules.txt", cfg.RulesFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "/var/lib/node_exporter/bonomen.prom", cfg.MetricsFile)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"log level", []string{"--log-level", "trace"}, "invalid log level"},
		{"workers", []string{"--workers", "0"}, "workers must be positive"},
		{"max pids", []string{"--max-pids", "-1"}, "max-pids must be positive"},
		{"quiet and verbose", []string{"-q", "-v"}, "mutually exclusive"},
		{"empty rules file", []string{"--file", ""}, "rules file must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load("bonomen", tt.args, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	var out bytes.Buffer
	_, err := Load("bonomen", []string{"--nope"}, &out)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "unknown flag: --nope")
	assert.Contains(t, out.String(), "--file", "usage goes to the given writer")
}

func TestLoadHelp(t *testing.T) {
	var out bytes.Buffer
	_, err := Load("bonomen", []string{"--help"}, &out)
	assert.ErrorIs(t, err, pflag.ErrHelp)
	assert.Contains(t, out.String(), "--skip-privilege-check")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load("bonomen", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
