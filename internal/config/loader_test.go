// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "DEBUG", "LOG_LEVEL", "SNAPDOWN_LISTEN", "SNAPDOWN_WORK_DIR",
	"SNAPDOWN_FFMPEG_BIN", "SNAPDOWN_YTDLP_BIN", "SNAPDOWN_SOCKET_TIMEOUT", "SNAPDOWN_RETRIES",
	"SNAPDOWN_EXTRACT_TIMEOUT", "SNAPDOWN_COPY_TIMEOUT", "SNAPDOWN_REENCODE_TIMEOUT",
	"SNAPDOWN_DOWNLOAD_TIMEOUT", "SNAPDOWN_JANITOR_INTERVAL", "SNAPDOWN_MAX_FILE_AGE",
	"SNAPDOWN_CORS_ORIGINS", "SNAPDOWN_RATELIMIT_ENABLED", "SNAPDOWN_RATELIMIT_RPM",
	"SNAPDOWN_CONVERT_RPS", "SNAPDOWN_CONVERT_BURST", "SNAPDOWN_TRUST_PROXY",
	"SNAPDOWN_OUTBOUND_ALLOW_PRIVATE", "SNAPDOWN_OUTBOUND_ALLOW_CIDRS", "SNAPDOWN_METRICS_ENABLED",
	"SNAPDOWN_TRACING_ENABLED", "SNAPDOWN_TRACING_EXPORTER", "SNAPDOWN_TRACING_ENDPOINT",
	"SNAPDOWN_TRACING_SAMPLING",
}

// clearEnv blanks every key the loader reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewLoader("", "1.0.0").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", cfg.Version)
	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
	assert.Equal(t, "snapdownloader", filepath.Base(cfg.WorkDir))
	assert.Equal(t, time.Hour, cfg.Janitor.MaxAge)
	assert.Equal(t, 5*time.Minute, cfg.FFmpeg.CopyTimeout)
	assert.Equal(t, 10*time.Minute, cfg.FFmpeg.ReencodeTimeout)
	assert.Equal(t, 3, cfg.Extract.Retries)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.NotEmpty(t, cfg.URLs.Patterns)
}

func TestLoad_ConsumesEveryDocumentedKey(t *testing.T) {
	clearEnv(t)
	l := NewLoader("", "dev")
	_, err := l.Load()
	require.NoError(t, err)
	for _, k := range envKeys {
		assert.Contains(t, l.ConsumedEnvKeys, k)
	}
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	clearEnv(t)
	work := t.TempDir()
	path := writeConfig(t, "config.yaml", `
listen: ":6000"
workDir: `+work+`
extract:
  retries: 0
  formatPreference: "best"
ffmpeg:
  bin: /opt/ffmpeg
  copyTimeout: 2m
rateLimit:
  enabled: false
outbound:
  allowCidrs: ["10.0.0.0/8"]
urls:
  patterns: ['^example\.com/v/.+']
  ownerPatterns: ['^example\.com/u/([a-z]+)']
`)
	t.Setenv("SNAPDOWN_COPY_TIMEOUT", "90s")
	t.Setenv("SNAPDOWN_CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.ListenAddr)
	assert.Equal(t, work, cfg.WorkDir)
	assert.Equal(t, 0, cfg.Extract.Retries, "explicit zero in file is kept")
	assert.Equal(t, "best", cfg.Extract.FormatPreference)
	assert.Equal(t, "/opt/ffmpeg", cfg.FFmpeg.Bin)
	assert.Equal(t, 90*time.Second, cfg.FFmpeg.CopyTimeout, "env wins over file")
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Outbound.AllowCIDRs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, []string{`^example\.com/v/.+`}, cfg.URLs.Patterns)
}

func TestLoad_PortAndListen(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)

	t.Setenv("SNAPDOWN_LISTEN", "127.0.0.1:9000")
	cfg, err = NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DEBUG", "true")
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadFile_Strict(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{name: "unknown field", file: "c.yaml", body: "bogus: 1\n", wantErr: "strict config parse error"},
		{name: "multiple documents", file: "c.yaml", body: "listen: \":1\"\n---\nlisten: \":2\"\n", wantErr: "multiple documents"},
		{name: "wrong extension", file: "c.json", body: "{}", wantErr: "only YAML supported"},
		{name: "bad regex", file: "c.yml", body: "urls:\n  patterns: ['(']\n", wantErr: "urls"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.file, tt.body), "dev").Load()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadFile_EmptyFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewLoader(writeConfig(t, "empty.yaml", ""), "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.ListenAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"), "dev").Load()
	assert.ErrorContains(t, err, "read file")
}
