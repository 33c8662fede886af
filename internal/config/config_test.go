package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "release", cfg.Mode)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
	require.Equal(t, "./data/studyhall.db", cfg.DatabasePath)
	require.Empty(t, cfg.JWTSecret)
	require.Equal(t, 100, cfg.HistoryLimit)
	require.Equal(t, 30*time.Second, cfg.ReadTimeout)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("STUDYHALL_PORT", "9090")
	t.Setenv("STUDYHALL_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 3000\nmode: debug\njwt_secret: sekrit\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, "debug", cfg.Mode)
	require.Equal(t, "sekrit", cfg.JWTSecret)
	// Untouched keys keep their defaults.
	require.Equal(t, "0.0.0.0", cfg.Host)
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	valid := func() Config {
		return Config{
			Mode: "release", Host: "localhost", Port: 8080,
			DatabasePath: "./x.db", HistoryLimit: 100,
			ReadTimeout: time.Second, WriteTimeout: time.Second,
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 70000 }},
		{"empty host", func(c *Config) { c.Host = "" }},
		{"empty database path", func(c *Config) { c.DatabasePath = "" }},
		{"zero history limit", func(c *Config) { c.HistoryLimit = 0 }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())
}
