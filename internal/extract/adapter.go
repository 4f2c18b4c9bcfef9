// SPDX-License-Identifier: MIT

// Package extract wraps the external extraction engine and normalizes its
// output into media.ExtractionResult values.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/media"
	"github.com/snapdown/snapdown/internal/metrics"
	"github.com/snapdown/snapdown/internal/snapurl"
	"github.com/snapdown/snapdown/internal/telemetry"
	"github.com/snapdown/snapdown/internal/variant"
)

// User-facing failure messages.
const (
	MsgInvalidURL  = "Please enter a valid Snapchat URL"
	MsgUnavailable = "This video is unavailable or private"
	MsgUnparseable = "Could not extract video. The URL might be invalid or the video is private."
	MsgEmpty       = "Could not extract video information"
	MsgInternal    = "Failed to extract video"
	MsgEngine      = "Download error: extraction failed"
	MsgTimeout     = "Download error: extraction timed out"

	defaultTitle = "Snapchat Video"
)

// Adapter turns a content URL into an ExtractionResult. It never returns an
// error: every failure is reported in-band.
type Adapter struct {
	engine      Engine
	rules       *snapurl.Rules
	opts        Options
	maxVariants int
	logger      zerolog.Logger
}

// New builds an Adapter. maxVariants <= 0 selects variant.DefaultMax.
func New(engine Engine, rules *snapurl.Rules, opts Options, maxVariants int, logger zerolog.Logger) *Adapter {
	if maxVariants <= 0 {
		maxVariants = variant.DefaultMax
	}
	return &Adapter{
		engine:      engine,
		rules:       rules,
		opts:        opts,
		maxVariants: maxVariants,
		logger:      logger.With().Str(sdlog.FieldComponent, "extract").Logger(),
	}
}

// Extract resolves url. Unsupported URLs are rejected before the engine runs.
func (a *Adapter) Extract(ctx context.Context, url string) media.ExtractionResult {
	url = strings.TrimSpace(url)
	if !a.rules.IsSupported(url) {
		metrics.RecordExtraction(string(media.ErrorInvalidURL), 0, 0)
		return media.Failure(media.ErrorInvalidURL, MsgInvalidURL)
	}

	kind := a.rules.Kind(url)
	ctx, span := telemetry.Tracer("snapdown/extract").Start(ctx, "extract.run")
	span.SetAttributes(telemetry.ExtractAttributes(string(kind), url)...)
	defer span.End()

	logger := sdlog.WithContext(ctx, a.logger.With().Str(sdlog.FieldURL, url).Str(sdlog.FieldKind, string(kind)).Logger())

	start := time.Now()
	info, err := a.engine.Extract(ctx, url, a.opts)
	elapsed := time.Since(start)

	var res media.ExtractionResult
	if err != nil {
		res = a.classify(err, logger)
	} else {
		res = a.normalize(url, kind, info)
	}

	if res.Success {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(telemetry.VariantCountAttribute(len(res.Formats)))
		logger.Info().
			Str(sdlog.FieldEvent, "extract.success").
			Int(sdlog.FieldVariants, len(res.Formats)).
			Int64(sdlog.FieldDuration, elapsed.Milliseconds()).
			Msg("extraction succeeded")
		metrics.RecordExtraction("success", elapsed, len(res.Formats))
		return res
	}

	span.SetStatus(codes.Error, string(res.ErrorKind))
	metrics.RecordExtraction(string(res.ErrorKind), elapsed, 0)
	if res.ErrorKind == media.ErrorEmpty {
		logger.Warn().Str(sdlog.FieldEvent, "extract.empty").Msg("engine returned no playable media")
	}
	return res
}

// classify maps an engine failure to a result by inspecting the engine's
// own error text.
func (a *Adapter) classify(err error, logger zerolog.Logger) media.ExtractionResult {
	var ee *EngineError
	switch {
	case errors.As(err, &ee):
		logger.Warn().
			Err(ee.Err).
			Str(sdlog.FieldEvent, "extract.engine_error").
			Str(sdlog.FieldStderr, ee.Stderr).
			Msg("extraction engine failed")
		switch {
		case strings.Contains(ee.Message, "Video unavailable"):
			return media.Failure(media.ErrorUnavailable, MsgUnavailable)
		case strings.Contains(ee.Message, "Unable to extract"):
			return media.Failure(media.ErrorUnparseable, MsgUnparseable)
		default:
			// The engine line can carry origin URLs and socket detail; it
			// stays in the log above.
			return media.Failure(media.ErrorEngine, MsgEngine)
		}
	case errors.Is(err, ErrEngineTimeout):
		logger.Warn().Err(err).Str(sdlog.FieldEvent, "extract.timeout").Msg("extraction engine timed out")
		return media.Failure(media.ErrorEngine, MsgTimeout)
	default:
		logger.Error().Err(err).Str(sdlog.FieldEvent, "extract.internal_error").Msg("extraction failed")
		return media.Failure(media.ErrorInternal, MsgInternal)
	}
}

// normalize maps engine output onto the fixed result record.
func (a *Adapter) normalize(url string, kind media.ContentKind, info *Info) media.ExtractionResult {
	if info == nil {
		return media.Failure(media.ErrorEmpty, MsgEmpty)
	}

	raw := make([]media.Variant, 0, len(info.Formats))
	for _, f := range info.Formats {
		raw = append(raw, toVariant(f))
	}
	variants := variant.Classify(raw, kind)

	primary := variant.SelectPrimary(info.URL, kind, variants)
	if primary == "" {
		return media.Failure(media.ErrorEmpty, MsgEmpty)
	}

	return media.ExtractionResult{
		Success:     true,
		MediaURL:    primary,
		MediaType:   media.KindVideo,
		Title:       title(info),
		Duration:    info.Duration,
		Thumbnail:   info.Thumbnail,
		Uploader:    a.uploader(url, info),
		ViewCount:   info.ViewCount,
		UploadDate:  info.UploadDate,
		Description: info.Description,
		Formats:     variant.Order(variants, a.maxVariants),
	}
}

func (a *Adapter) uploader(url string, info *Info) string {
	for _, v := range []string{info.Uploader, info.Channel, info.Creator} {
		if v != "" {
			return v
		}
	}
	owner, _ := a.rules.OwnerHint(url)
	return owner
}

func title(info *Info) string {
	if t := strings.TrimSpace(info.Title); t != "" {
		return t
	}
	if d := []rune(strings.TrimSpace(info.Description)); len(d) > 0 {
		if len(d) > 50 {
			d = d[:50]
		}
		return string(d)
	}
	return defaultTitle
}

func toVariant(f Format) media.Variant {
	v := media.Variant{
		FormatID:   f.FormatID,
		URL:        f.URL,
		Ext:        f.Ext,
		FileSize:   f.FileSize,
		Width:      f.Width,
		Height:     f.Height,
		FPS:        f.FPS,
		VideoCodec: f.VCodec,
		AudioCodec: f.ACodec,
		Protocol:   f.Protocol,
	}
	if v.FormatID == "" {
		v.FormatID = "unknown"
	}
	if v.Ext == "" {
		v.Ext = media.ContainerMP4
	}
	if f.Quality != nil {
		v.Quality = *f.Quality
	}
	return v
}
