// SPDX-License-Identifier: MIT

// Package janitor reclaims disk space in the work directory by deleting
// files whose modification time is older than a fixed age.
package janitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/metrics"
)

// Config defines the sweep cadence and retention.
type Config struct {
	Dir      string
	Interval time.Duration
	MaxAge   time.Duration
}

// Stats summarises one sweep.
type Stats struct {
	Scanned int
	Removed int
	Failed  int
}

// Janitor deletes expired files from a single directory.
type Janitor struct {
	conf   Config
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
	lastErr string
}

// New returns a Janitor. Interval and MaxAge default to one hour.
func New(conf Config, logger zerolog.Logger) *Janitor {
	if conf.Interval <= 0 {
		conf.Interval = time.Hour
	}
	if conf.MaxAge <= 0 {
		conf.MaxAge = time.Hour
	}
	return &Janitor{
		conf:   conf,
		logger: logger.With().Str(sdlog.FieldComponent, "janitor").Logger(),
		now:    time.Now,
	}
}

// Run sweeps immediately and then once per interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	j.logger.Info().
		Str(sdlog.FieldPath, j.conf.Dir).
		Dur("interval", j.conf.Interval).
		Dur("max_age", j.conf.MaxAge).
		Msg("janitor started")

	ticker := time.NewTicker(j.conf.Interval)
	defer ticker.Stop()

	for {
		j.Sweep(ctx)
		select {
		case <-ctx.Done():
			j.logger.Debug().Msg("janitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep performs one pass. Regular files older than MaxAge are removed;
// directories and younger files are left alone. Per-file failures are
// logged and counted but never stop the pass.
func (j *Janitor) Sweep(ctx context.Context) Stats {
	var st Stats
	entries, err := os.ReadDir(j.conf.Dir)
	if err != nil {
		j.logger.Error().Err(err).Str(sdlog.FieldEvent, "janitor.list_failed").Msg("cannot list work directory")
		metrics.RecordSweep(0, 1, j.now())
		st.Failed++
		j.record(err.Error())
		return st
	}

	cutoff := j.now().Add(-j.conf.MaxAge)
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if !e.Type().IsRegular() {
			continue
		}
		st.Scanned++

		info, err := e.Info()
		if err != nil {
			if !os.IsNotExist(err) {
				st.Failed++
				j.logger.Warn().Err(err).Str(sdlog.FieldFilename, e.Name()).Msg("cannot stat file")
			}
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(j.conf.Dir, e.Name())); err != nil && !os.IsNotExist(err) {
			st.Failed++
			j.logger.Warn().Err(err).Str(sdlog.FieldFilename, e.Name()).Str(sdlog.FieldEvent, "janitor.remove_failed").Msg("cannot remove expired file")
			continue
		}
		st.Removed++
		j.logger.Info().Str(sdlog.FieldFilename, e.Name()).Str(sdlog.FieldEvent, "janitor.removed").Msg("removed expired file")
	}

	metrics.RecordSweep(st.Removed, st.Failed, j.now())
	j.record("")
	return st
}

func (j *Janitor) record(errMsg string) {
	j.mu.Lock()
	j.lastRun = j.now()
	j.lastErr = errMsg
	j.mu.Unlock()
}

// LastSweep returns when the last sweep finished and, if the directory
// could not be listed, why.
func (j *Janitor) LastSweep() (time.Time, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.lastErr
}
