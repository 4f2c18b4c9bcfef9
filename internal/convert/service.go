// SPDX-License-Identifier: MIT

// Package convert turns adaptive-streaming URLs into single MP4 files using an
// external encoder. Output files live in the work directory as <uuid>.mp4 and
// are looked up by id; there is no in-memory job registry.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/metrics"
	platformnet "github.com/snapdown/snapdown/internal/platform/net"
	"github.com/snapdown/snapdown/internal/telemetry"
)

var (
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	ErrInvalidInput       = errors.New("invalid input url")
	ErrTimeout            = errors.New("conversion timed out")
	ErrFailed             = errors.New("conversion failed")
	ErrNoOutput           = errors.New("conversion produced no output")
	ErrInvalidFileID      = errors.New("invalid file id")
	ErrNotFound           = errors.New("converted file not found")
)

// FileExt is the extension of every finished conversion.
const FileExt = ".mp4"

// Config configures a Service.
type Config struct {
	WorkDir string
	// Encoder is the resolved encoder path; empty means unavailable.
	Encoder         string
	CopyTimeout     time.Duration
	ReencodeTimeout time.Duration
	// HeaderUserAgent accompanies the referrer header sent to origins.
	HeaderUserAgent string
	// Guard, when set, vets input URLs before the encoder fetches them.
	Guard *platformnet.Guard
}

// Request is one conversion request.
type Request struct {
	URL      string
	Referrer string
}

// Job describes a finished conversion.
type Job struct {
	FileID   string
	Path     string
	Strategy Strategy
	Duration time.Duration
}

// Service runs conversions.
type Service struct {
	cfg    Config
	runner Runner
	logger zerolog.Logger
}

// NewService builds a Service. A nil runner selects ExecRunner.
func NewService(cfg Config, runner Runner, logger zerolog.Logger) *Service {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.CopyTimeout <= 0 {
		cfg.CopyTimeout = 5 * time.Minute
	}
	if cfg.ReencodeTimeout <= 0 {
		cfg.ReencodeTimeout = 10 * time.Minute
	}
	metrics.SetEncoderAvailable(cfg.Encoder != "")
	return &Service{
		cfg:    cfg,
		runner: runner,
		logger: logger.With().Str(sdlog.FieldComponent, "convert").Logger(),
	}
}

// Available reports whether an encoder was found at startup.
func (s *Service) Available() bool { return s.cfg.Encoder != "" }

// Encoder returns the resolved encoder path.
func (s *Service) Encoder() string { return s.cfg.Encoder }

// WorkDir returns the directory conversions are written to.
func (s *Service) WorkDir() string { return s.cfg.WorkDir }

// Convert runs the copy attempt and, if it exits non-zero, one re-encode
// attempt. A timeout in either attempt ends the job with ErrTimeout. The
// final file only appears under its id once it exists and is non-empty.
func (s *Service) Convert(ctx context.Context, req Request) (*Job, error) {
	if !s.Available() {
		return nil, ErrEncoderUnavailable
	}
	input, err := s.vetInput(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	req.URL = input

	id := uuid.NewString()
	final := filepath.Join(s.cfg.WorkDir, id+FileExt)

	logger := sdlog.WithContext(ctx, s.logger.With().Str(sdlog.FieldFileID, id).Logger())

	ctx, span := telemetry.Tracer("snapdown/convert").Start(ctx, "convert.run")
	span.SetAttributes(telemetry.ConvertAttributes(id, req.Referrer != "")...)
	defer span.End()

	done := metrics.ConversionStarted()
	defer done()
	start := time.Now()

	pending, err := renameio.NewPendingFile(final,
		renameio.WithTempDir(s.cfg.WorkDir),
		renameio.WithPermissions(0o644),
	)
	if err != nil {
		span.SetStatus(codes.Error, "staging")
		return nil, fmt.Errorf("%w: create staging file: %v", ErrFailed, err)
	}
	defer func() { _ = pending.Cleanup() }()
	staging := pending.Name()

	strategy := StrategyCopy
	err = s.attempt(ctx, logger, strategy, req, staging)
	if err != nil && !errors.Is(err, ErrTimeout) && ctx.Err() == nil {
		strategy = StrategyReencode
		err = s.attempt(ctx, logger, strategy, req, staging)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.ErrorAttributes(errorType(err))...)
		return nil, err
	}

	fi, statErr := os.Stat(staging)
	if statErr != nil || fi.Size() == 0 {
		logger.Error().Err(statErr).Str(sdlog.FieldEvent, "convert.no_output").Msg("encoder exited cleanly without output")
		span.SetStatus(codes.Error, "no output")
		return nil, ErrNoOutput
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		span.SetStatus(codes.Error, "promote")
		return nil, fmt.Errorf("%w: %v", ErrNoOutput, err)
	}

	job := &Job{FileID: id, Path: final, Strategy: strategy, Duration: time.Since(start)}
	span.SetStatus(codes.Ok, "")
	logger.Info().
		Str(sdlog.FieldEvent, "convert.success").
		Str(sdlog.FieldAttempt, string(strategy)).
		Int64(sdlog.FieldBytes, fi.Size()).
		Int64(sdlog.FieldDuration, job.Duration.Milliseconds()).
		Msg("conversion finished")
	return job, nil
}

func (s *Service) attempt(ctx context.Context, logger zerolog.Logger, strategy Strategy, req Request, output string) error {
	timeout := s.cfg.CopyTimeout
	if strategy == StrategyReencode {
		timeout = s.cfg.ReencodeTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := BuildArgs(ArgsInput{
		Strategy:  strategy,
		Input:     req.URL,
		Output:    output,
		Referrer:  req.Referrer,
		UserAgent: s.cfg.HeaderUserAgent,
	})

	start := time.Now()
	stderr, err := s.runner.Run(attemptCtx, s.cfg.Encoder, args)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordConversionAttempt(string(strategy), "success", elapsed)
		return nil
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		metrics.RecordConversionAttempt(string(strategy), "timeout", elapsed)
		logger.Error().
			Str(sdlog.FieldEvent, "convert.timeout").
			Str(sdlog.FieldAttempt, string(strategy)).
			Dur("timeout", timeout).
			Msg("encoder timed out")
		return ErrTimeout
	case ctx.Err() != nil:
		metrics.RecordConversionAttempt(string(strategy), "failure", elapsed)
		return fmt.Errorf("%w: %v", ErrFailed, ctx.Err())
	default:
		metrics.RecordConversionAttempt(string(strategy), "failure", elapsed)
		logger.Warn().
			Err(err).
			Str(sdlog.FieldEvent, "convert.attempt_failed").
			Str(sdlog.FieldAttempt, string(strategy)).
			Str(sdlog.FieldStderr, stderr).
			Msg("encoder attempt failed")
		return fmt.Errorf("%w: %s: %v", ErrFailed, strategy, err)
	}
}

// Path returns the on-disk path of a finished conversion. fileID must parse
// as a UUID; the path is rebuilt from the canonical form so no caller input
// reaches the filesystem.
func (s *Service) Path(fileID string) (string, error) {
	id, err := uuid.Parse(fileID)
	if err != nil {
		return "", ErrInvalidFileID
	}
	p := filepath.Join(s.cfg.WorkDir, id.String()+FileExt)
	fi, err := os.Stat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return p, nil
}

func (s *Service) vetInput(ctx context.Context, raw string) (string, error) {
	if s.cfg.Guard == nil {
		u, ok := platformnet.ParseDirectHTTPURL(raw)
		if !ok {
			return "", ErrInvalidInput
		}
		return u.String(), nil
	}
	v, err := s.cfg.Guard.ValidateURL(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return v, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoOutput):
		return "no_output"
	default:
		return "failed"
	}
}
