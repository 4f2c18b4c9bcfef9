// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the variable that points at the YAML file.
const EnvConfigPath = "SNAPDOWN_CONFIG"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. An empty path skips the file.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) consume(key string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return key
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)
	cfg.Version = l.version

	if cfg.WorkDir != "" {
		if abs, err := filepath.Abs(cfg.WorkDir); err == nil {
			cfg.WorkDir = abs
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, f *FileConfig) {
	setString(&cfg.ListenAddr, f.Listen)
	setString(&cfg.WorkDir, f.WorkDir)
	setString(&cfg.LogLevel, f.LogLevel)

	setString(&cfg.Extract.Bin, f.Extract.Bin)
	setPositive(&cfg.Extract.Timeout, f.Extract.Timeout)
	setPositive(&cfg.Extract.SocketTimeout, f.Extract.SocketTimeout)
	setPtr(&cfg.Extract.Retries, f.Extract.Retries)
	setString(&cfg.Extract.FormatPreference, f.Extract.FormatPreference)
	setString(&cfg.Extract.UserAgent, f.Extract.UserAgent)
	setString(&cfg.Extract.Referer, f.Extract.Referer)
	setPositive(&cfg.Extract.MaxVariants, f.Extract.MaxVariants)
	setPtr(&cfg.Extract.CheckCertificate, f.Extract.CheckCertificate)

	setString(&cfg.FFmpeg.Bin, f.FFmpeg.Bin)
	setPositive(&cfg.FFmpeg.CopyTimeout, f.FFmpeg.CopyTimeout)
	setPositive(&cfg.FFmpeg.ReencodeTimeout, f.FFmpeg.ReencodeTimeout)

	setPositive(&cfg.Download.Timeout, f.Download.Timeout)
	setString(&cfg.Download.UserAgent, f.Download.UserAgent)
	setString(&cfg.Download.DefaultReferer, f.Download.DefaultReferer)
	setPositive(&cfg.Download.ChunkSize, f.Download.ChunkSize)

	setPositive(&cfg.Janitor.Interval, f.Janitor.Interval)
	setPositive(&cfg.Janitor.MaxAge, f.Janitor.MaxAge)

	if len(f.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = f.CORS.AllowedOrigins
	}

	setPtr(&cfg.RateLimit.Enabled, f.RateLimit.Enabled)
	setPositive(&cfg.RateLimit.RPM, f.RateLimit.RPM)
	setPositive(&cfg.RateLimit.ConvertRPS, f.RateLimit.ConvertRPS)
	setPositive(&cfg.RateLimit.ConvertBurst, f.RateLimit.ConvertBurst)
	setPtr(&cfg.RateLimit.TrustProxy, f.RateLimit.TrustProxy)

	setPtr(&cfg.Outbound.AllowPrivate, f.Outbound.AllowPrivate)
	if len(f.Outbound.AllowCIDRs) > 0 {
		cfg.Outbound.AllowCIDRs = f.Outbound.AllowCIDRs
	}

	setPtr(&cfg.Metrics.Enabled, f.Metrics.Enabled)

	setPtr(&cfg.Tracing.Enabled, f.Tracing.Enabled)
	setString(&cfg.Tracing.Exporter, f.Tracing.Exporter)
	setString(&cfg.Tracing.Endpoint, f.Tracing.Endpoint)
	setPtr(&cfg.Tracing.SamplingRate, f.Tracing.SamplingRate)

	if f.URLs != nil {
		cfg.URLs = *f.URLs
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	if port := ParseString(l.consume("PORT"), ""); port != "" {
		cfg.ListenAddr = ":" + port
	}
	cfg.ListenAddr = ParseString(l.consume("SNAPDOWN_LISTEN"), cfg.ListenAddr)
	cfg.WorkDir = ParseString(l.consume("SNAPDOWN_WORK_DIR"), cfg.WorkDir)
	cfg.LogLevel = ParseString(l.consume("LOG_LEVEL"), cfg.LogLevel)
	cfg.Debug = ParseBool(l.consume("DEBUG"), cfg.Debug)
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	cfg.Extract.Bin = ParseString(l.consume("SNAPDOWN_YTDLP_BIN"), cfg.Extract.Bin)
	cfg.Extract.Timeout = ParseDuration(l.consume("SNAPDOWN_EXTRACT_TIMEOUT"), cfg.Extract.Timeout)
	cfg.Extract.SocketTimeout = ParseDuration(l.consume("SNAPDOWN_SOCKET_TIMEOUT"), cfg.Extract.SocketTimeout)
	cfg.Extract.Retries = ParseInt(l.consume("SNAPDOWN_RETRIES"), cfg.Extract.Retries)

	cfg.FFmpeg.Bin = ParseString(l.consume("SNAPDOWN_FFMPEG_BIN"), cfg.FFmpeg.Bin)
	cfg.FFmpeg.CopyTimeout = ParseDuration(l.consume("SNAPDOWN_COPY_TIMEOUT"), cfg.FFmpeg.CopyTimeout)
	cfg.FFmpeg.ReencodeTimeout = ParseDuration(l.consume("SNAPDOWN_REENCODE_TIMEOUT"), cfg.FFmpeg.ReencodeTimeout)

	cfg.Download.Timeout = ParseDuration(l.consume("SNAPDOWN_DOWNLOAD_TIMEOUT"), cfg.Download.Timeout)

	cfg.Janitor.Interval = ParseDuration(l.consume("SNAPDOWN_JANITOR_INTERVAL"), cfg.Janitor.Interval)
	cfg.Janitor.MaxAge = ParseDuration(l.consume("SNAPDOWN_MAX_FILE_AGE"), cfg.Janitor.MaxAge)

	cfg.CORS.AllowedOrigins = ParseStringList(l.consume("SNAPDOWN_CORS_ORIGINS"), cfg.CORS.AllowedOrigins)

	cfg.RateLimit.Enabled = ParseBool(l.consume("SNAPDOWN_RATELIMIT_ENABLED"), cfg.RateLimit.Enabled)
	cfg.RateLimit.RPM = ParseInt(l.consume("SNAPDOWN_RATELIMIT_RPM"), cfg.RateLimit.RPM)
	cfg.RateLimit.ConvertRPS = ParseFloat(l.consume("SNAPDOWN_CONVERT_RPS"), cfg.RateLimit.ConvertRPS)
	cfg.RateLimit.ConvertBurst = ParseInt(l.consume("SNAPDOWN_CONVERT_BURST"), cfg.RateLimit.ConvertBurst)
	cfg.RateLimit.TrustProxy = ParseBool(l.consume("SNAPDOWN_TRUST_PROXY"), cfg.RateLimit.TrustProxy)

	cfg.Outbound.AllowPrivate = ParseBool(l.consume("SNAPDOWN_OUTBOUND_ALLOW_PRIVATE"), cfg.Outbound.AllowPrivate)
	cfg.Outbound.AllowCIDRs = ParseStringList(l.consume("SNAPDOWN_OUTBOUND_ALLOW_CIDRS"), cfg.Outbound.AllowCIDRs)

	cfg.Metrics.Enabled = ParseBool(l.consume("SNAPDOWN_METRICS_ENABLED"), cfg.Metrics.Enabled)

	cfg.Tracing.Enabled = ParseBool(l.consume("SNAPDOWN_TRACING_ENABLED"), cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = ParseString(l.consume("SNAPDOWN_TRACING_EXPORTER"), cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString(l.consume("SNAPDOWN_TRACING_ENDPOINT"), cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = ParseFloat(l.consume("SNAPDOWN_TRACING_SAMPLING"), cfg.Tracing.SamplingRate)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPositive[T int | float64 | ~int64](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
