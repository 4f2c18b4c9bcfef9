// SPDX-License-Identifier: MIT

package health

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// StartupInput is what the daemon knows before serving.
type StartupInput struct {
	ListenAddr      string
	WorkDir         string
	Encoder         string
	EngineAvailable bool
}

// PerformStartupChecks validates the environment before the server starts.
// A missing encoder or extraction engine is logged, not fatal: the service
// still answers with structured errors for the affected endpoints.
func PerformStartupChecks(logger zerolog.Logger, in StartupInput) error {
	logger = logger.With().Str("component", "startup-check").Logger()

	if _, port, err := net.SplitHostPort(in.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", in.ListenAddr, err)
	} else if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, in.ListenAddr)
	}

	if err := os.MkdirAll(in.WorkDir, 0o750); err != nil {
		return fmt.Errorf("work directory %s: %w", in.WorkDir, err)
	}
	if err := checkWritableDir(in.WorkDir); err != nil {
		return fmt.Errorf("work directory is not writable: %w", err)
	}
	logger.Info().Str("path", in.WorkDir).Msg("work directory is writable")

	if in.Encoder == "" {
		logger.Warn().Msg("ffmpeg not found; /api/convert will report it as unavailable")
	} else {
		logger.Info().Str("binary", in.Encoder).Msg("ffmpeg available")
	}
	if !in.EngineAvailable {
		logger.Warn().Msg("yt-dlp not found; extraction requests will fail")
	}
	return nil
}
