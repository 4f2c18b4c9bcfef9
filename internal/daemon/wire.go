// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/snapdown/snapdown/internal/api"
	"github.com/snapdown/snapdown/internal/api/middleware"
	"github.com/snapdown/snapdown/internal/config"
	"github.com/snapdown/snapdown/internal/convert"
	"github.com/snapdown/snapdown/internal/download"
	"github.com/snapdown/snapdown/internal/extract"
	"github.com/snapdown/snapdown/internal/health"
	"github.com/snapdown/snapdown/internal/janitor"
	"github.com/snapdown/snapdown/internal/platform/httpx"
	platformnet "github.com/snapdown/snapdown/internal/platform/net"
	"github.com/snapdown/snapdown/internal/ratelimit"
	"github.com/snapdown/snapdown/internal/snapurl"
	"github.com/snapdown/snapdown/internal/telemetry"
)

// ServiceName identifies the process in logs and traces.
const ServiceName = "snapdown"

// Build constructs every component from cfg and returns an App ready to
// Listen and Run.
func Build(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	rules, err := snapurl.Compile(cfg.URLs)
	if err != nil {
		return nil, err
	}
	guard, err := platformnet.NewGuard(platformnet.OutboundPolicy{
		AllowPrivate: cfg.Outbound.AllowPrivate,
		AllowCIDRs:   cfg.Outbound.AllowCIDRs,
	})
	if err != nil {
		return nil, fmt.Errorf("outbound policy: %w", err)
	}

	engine := extract.NewYTDLP(cfg.Extract.Bin, cfg.Extract.Timeout, logger)
	extractor := extract.New(engine, rules, extract.Options{
		UserAgent:          cfg.Extract.UserAgent,
		Referer:            cfg.Extract.Referer,
		SocketTimeout:      cfg.Extract.SocketTimeout,
		Retries:            cfg.Extract.Retries,
		FormatPreference:   cfg.Extract.FormatPreference,
		NoCheckCertificate: !cfg.Extract.CheckCertificate,
	}, cfg.Extract.MaxVariants, logger)

	encoder := convert.LocateEncoder(cfg.FFmpeg.Bin, convert.DefaultEncoderLocations)
	if err := health.PerformStartupChecks(logger, health.StartupInput{
		ListenAddr:      cfg.ListenAddr,
		WorkDir:         cfg.WorkDir,
		Encoder:         encoder,
		EngineAvailable: engine.Available(),
	}); err != nil {
		return nil, err
	}

	converter := convert.NewService(convert.Config{
		WorkDir:         cfg.WorkDir,
		Encoder:         encoder,
		CopyTimeout:     cfg.FFmpeg.CopyTimeout,
		ReencodeTimeout: cfg.FFmpeg.ReencodeTimeout,
		HeaderUserAgent: convert.DefaultHeaderUserAgent,
		Guard:           guard,
	}, nil, logger)

	client := httpx.NewClient(cfg.Download.Timeout,
		httpx.Streaming(),
		httpx.Traced(),
		httpx.DialControl(guard.DialControl),
	)
	downloads := download.NewProxy(client, guard, download.Config{
		UserAgent:      cfg.Download.UserAgent,
		DefaultReferer: cfg.Download.DefaultReferer,
		ChunkSize:      cfg.Download.ChunkSize,
	}, logger)

	jan := janitor.New(janitor.Config{
		Dir:      cfg.WorkDir,
		Interval: cfg.Janitor.Interval,
		MaxAge:   cfg.Janitor.MaxAge,
	}, logger)

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewDirChecker("work_dir", cfg.WorkDir))
	hm.RegisterChecker(health.NewBinaryChecker("yt-dlp", engine.Available, health.StatusUnhealthy))
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", converter.Available, health.StatusDegraded))
	hm.RegisterChecker(health.NewLastRunChecker("janitor", jan.LastSweep, 2*cfg.Janitor.Interval))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rl := ratelimit.DefaultConfig()
		rl.PerIP[ratelimit.OpConvert] = ratelimit.Limit{Rate: rate.Limit(cfg.RateLimit.ConvertRPS), Burst: cfg.RateLimit.ConvertBurst}
		rl.TrustProxyHeaders = cfg.RateLimit.TrustProxy
		limiter = ratelimit.New(rl)
	}

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = ServiceName
	}

	server := api.New(api.Deps{
		Version:   cfg.Version,
		WorkDir:   cfg.WorkDir,
		Extractor: extractor,
		Converter: converter,
		Downloads: downloads,
		Health:    hm,
		Limiter:   limiter,
		Metrics:   cfg.Metrics.Enabled,
		Logger:    logger,
		Stack: middleware.StackConfig{
			EnableCORS:            true,
			AllowedOrigins:        cfg.CORS.AllowedOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         cfg.Metrics.Enabled,
			TracingService:        tracingService,
			EnableLogging:         true,
			EnableRateLimit:       cfg.RateLimit.Enabled,
			RateLimitRPM:          cfg.RateLimit.RPM,
		},
	})

	logger.Info().
		Str("event", "startup").
		Str("version", cfg.Version).
		Str("addr", cfg.ListenAddr).
		Str("work_dir", cfg.WorkDir).
		Bool("ffmpeg_available", converter.Available()).
		Bool("ytdlp_available", engine.Available()).
		Msg("starting " + ServiceName)

	app := NewApp(Config{ListenAddr: cfg.ListenAddr}, server.Handler(), logger)
	app.AddTask(jan.Run)
	app.AddCloser(tp)
	return app, nil
}
