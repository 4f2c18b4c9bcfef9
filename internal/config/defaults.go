// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/snapdown/snapdown/internal/snapurl"
)

const (
	DefaultPort      = "5000"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultReferer   = "https://www.snapchat.com/"
	// DefaultFormatPreference prefers a single muxed file and falls back to the best pair.
	DefaultFormatPreference = "best[ext=mp4]/best"
)

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: ":" + DefaultPort,
		WorkDir:    filepath.Join(os.TempDir(), "snapdownloader"),
		LogLevel:   "info",
		Extract: ExtractConfig{
			Bin:              "yt-dlp",
			Timeout:          90 * time.Second,
			SocketTimeout:    30 * time.Second,
			Retries:          3,
			FormatPreference: DefaultFormatPreference,
			UserAgent:        DefaultUserAgent,
			Referer:          DefaultReferer,
			MaxVariants:      5,
		},
		FFmpeg: FFmpegConfig{
			CopyTimeout:     5 * time.Minute,
			ReencodeTimeout: 10 * time.Minute,
		},
		Download: DownloadConfig{
			Timeout:        30 * time.Second,
			UserAgent:      DefaultUserAgent,
			DefaultReferer: DefaultReferer,
			ChunkSize:      8192,
		},
		Janitor: JanitorConfig{
			Interval: time.Hour,
			MaxAge:   time.Hour,
		},
		CORS: CORSConfig{AllowedOrigins: []string{"*"}},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			RPM:          120,
			ConvertRPS:   0.2,
			ConvertBurst: 2,
		},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		URLs: snapurl.DefaultRuleSet(),
	}
}
