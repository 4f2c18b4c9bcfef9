// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/snapdown/snapdown/internal/snapurl"
)

// Validate rejects configurations the daemon cannot run with. All problems
// are reported together.
func Validate(cfg AppConfig) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if cfg.ListenAddr == "" {
		add("listen address must not be empty")
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		add("invalid listen address %q: %v", cfg.ListenAddr, err)
	}
	if strings.TrimSpace(cfg.WorkDir) == "" {
		add("work directory must not be empty")
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		add("invalid log level %q", cfg.LogLevel)
	}

	positive := map[string]int64{
		"extract.timeout":        int64(cfg.Extract.Timeout),
		"extract.socketTimeout":  int64(cfg.Extract.SocketTimeout),
		"extract.maxVariants":    int64(cfg.Extract.MaxVariants),
		"ffmpeg.copyTimeout":     int64(cfg.FFmpeg.CopyTimeout),
		"ffmpeg.reencodeTimeout": int64(cfg.FFmpeg.ReencodeTimeout),
		"download.timeout":       int64(cfg.Download.Timeout),
		"download.chunkSize":     int64(cfg.Download.ChunkSize),
		"janitor.interval":       int64(cfg.Janitor.Interval),
		"janitor.maxAge":         int64(cfg.Janitor.MaxAge),
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			add("%s must be positive", name)
		}
	}
	if cfg.Extract.Retries < 0 {
		add("extract.retries must not be negative")
	}
	if cfg.Extract.Bin == "" {
		add("extract.bin must not be empty")
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPM <= 0 {
			add("rateLimit.rpm must be positive when rate limiting is enabled")
		}
		if cfg.RateLimit.ConvertRPS <= 0 || cfg.RateLimit.ConvertBurst <= 0 {
			add("rateLimit.convertRps and convertBurst must be positive when rate limiting is enabled")
		}
	}

	for _, c := range cfg.Outbound.AllowCIDRs {
		if _, _, err := net.ParseCIDR(c); err != nil {
			add("invalid outbound CIDR %q", c)
		}
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Exporter {
		case "grpc", "http":
		default:
			add("unsupported tracing exporter %q (supported: grpc, http)", cfg.Tracing.Exporter)
		}
		if cfg.Tracing.Endpoint == "" {
			add("tracing.endpoint must not be empty when tracing is enabled")
		}
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		add("tracing.samplingRate must be within [0, 1]")
	}

	if _, err := snapurl.Compile(cfg.URLs); err != nil {
		add("urls: %v", err)
	}

	return errors.Join(errs...)
}
