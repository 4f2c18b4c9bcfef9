// SPDX-License-Identifier: MIT

// Package config builds the single AppConfig value the daemon hands to every
// component. Precedence is environment, then YAML file, then defaults.
package config

import (
	"time"

	"github.com/snapdown/snapdown/internal/snapurl"
)

// AppConfig is the fully resolved service configuration.
type AppConfig struct {
	Version    string
	ListenAddr string
	WorkDir    string
	LogLevel   string
	Debug      bool

	Extract   ExtractConfig
	FFmpeg    FFmpegConfig
	Download  DownloadConfig
	Janitor   JanitorConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Outbound  OutboundConfig
	Metrics   MetricsConfig
	Tracing   TracingConfig

	// URLs holds the classifier rules for accepted content URLs.
	URLs snapurl.RuleSet
}

// ExtractConfig configures the yt-dlp engine.
type ExtractConfig struct {
	Bin              string
	Timeout          time.Duration
	SocketTimeout    time.Duration
	Retries          int
	FormatPreference string
	UserAgent        string
	Referer          string
	MaxVariants      int
	CheckCertificate bool
}

// FFmpegConfig configures HLS to MP4 conversion.
type FFmpegConfig struct {
	Bin             string
	CopyTimeout     time.Duration
	ReencodeTimeout time.Duration
}

// DownloadConfig configures the remote download relay.
type DownloadConfig struct {
	Timeout        time.Duration
	UserAgent      string
	DefaultReferer string
	ChunkSize      int
}

// JanitorConfig controls work directory cleanup.
type JanitorConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
}

// CORSConfig lists allowed browser origins. "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig controls the API-wide limit and the convert throttle.
type RateLimitConfig struct {
	Enabled      bool
	RPM          int
	ConvertRPS   float64
	ConvertBurst int
	TrustProxy   bool
}

// OutboundConfig is the policy for URLs the service fetches on a caller's behalf.
type OutboundConfig struct {
	AllowPrivate bool
	AllowCIDRs   []string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the YAML file shape. Zero values mean "not set".
type FileConfig struct {
	Listen   string `yaml:"listen"`
	WorkDir  string `yaml:"workDir"`
	LogLevel string `yaml:"logLevel"`

	Extract struct {
		Bin              string        `yaml:"bin"`
		Timeout          time.Duration `yaml:"timeout"`
		SocketTimeout    time.Duration `yaml:"socketTimeout"`
		Retries          *int          `yaml:"retries"`
		FormatPreference string        `yaml:"formatPreference"`
		UserAgent        string        `yaml:"userAgent"`
		Referer          string        `yaml:"referer"`
		MaxVariants      int           `yaml:"maxVariants"`
		CheckCertificate *bool         `yaml:"checkCertificate"`
	} `yaml:"extract"`

	FFmpeg struct {
		Bin             string        `yaml:"bin"`
		CopyTimeout     time.Duration `yaml:"copyTimeout"`
		ReencodeTimeout time.Duration `yaml:"reencodeTimeout"`
	} `yaml:"ffmpeg"`

	Download struct {
		Timeout        time.Duration `yaml:"timeout"`
		UserAgent      string        `yaml:"userAgent"`
		DefaultReferer string        `yaml:"defaultReferer"`
		ChunkSize      int           `yaml:"chunkSize"`
	} `yaml:"download"`

	Janitor struct {
		Interval time.Duration `yaml:"interval"`
		MaxAge   time.Duration `yaml:"maxAge"`
	} `yaml:"janitor"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	RateLimit struct {
		Enabled      *bool   `yaml:"enabled"`
		RPM          int     `yaml:"rpm"`
		ConvertRPS   float64 `yaml:"convertRps"`
		ConvertBurst int     `yaml:"convertBurst"`
		TrustProxy   *bool   `yaml:"trustProxy"`
	} `yaml:"rateLimit"`

	Outbound struct {
		AllowPrivate *bool    `yaml:"allowPrivate"`
		AllowCIDRs   []string `yaml:"allowCidrs"`
	} `yaml:"outbound"`

	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Tracing struct {
		Enabled      *bool    `yaml:"enabled"`
		Exporter     string   `yaml:"exporter"`
		Endpoint     string   `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"samplingRate"`
	} `yaml:"tracing"`

	URLs *snapurl.RuleSet `yaml:"urls"`
}
