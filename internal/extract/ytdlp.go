// SPDX-License-Identifier: MIT

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/snapdown/snapdown/internal/procgroup"
)

// YTDLP runs the yt-dlp binary in information-only mode (-J --skip-download).
type YTDLP struct {
	Binary  string
	Timeout time.Duration
	Logger  zerolog.Logger

	lookPath func(string) (string, error)
}

// NewYTDLP returns a yt-dlp engine. An empty binary means "yt-dlp" on PATH.
func NewYTDLP(binary string, timeout time.Duration, logger zerolog.Logger) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{Binary: binary, Timeout: timeout, Logger: logger, lookPath: exec.LookPath}
}

// Available reports whether the binary can be resolved.
func (y *YTDLP) Available() bool {
	_, err := y.lookPath(y.Binary)
	return err == nil
}

// Extract implements Engine.
func (y *YTDLP) Extract(ctx context.Context, url string, opts Options) (*Info, error) {
	bin, err := y.lookPath(y.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, y.Binary, err)
	}

	if y.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.Timeout)
		defer cancel()
	}

	args := BuildArgs(url, opts)
	// #nosec G204 -- binary is operator-configured; url is passed as a single argv entry after "--"
	cmd := exec.CommandContext(ctx, bin, args...)
	procgroup.Bind(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrEngineTimeout, y.Timeout)
	}
	if runErr != nil {
		return nil, &EngineError{
			Message: errorLine(stderr.String()),
			Stderr:  stderr.String(),
			Err:     runErr,
		}
	}

	var info Info
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, &EngineError{
			Message: "Unable to extract: engine output is not valid JSON",
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	return &info, nil
}

// BuildArgs returns the full yt-dlp argument list. The URL always comes last
// after "--" so it is never parsed as an option.
func BuildArgs(url string, opts Options) []string {
	args := []string{"-J", "--skip-download", "--no-warnings", "--no-playlist", "--quiet"}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	if opts.Referer != "" {
		args = append(args, "--referer", opts.Referer)
	}
	keys := make([]string, 0, len(opts.Headers))
	for k := range opts.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+opts.Headers[k])
	}
	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.FormatFloat(opts.SocketTimeout.Seconds(), 'f', -1, 64))
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.FormatPreference != "" {
		args = append(args, "--format", opts.FormatPreference)
	}
	if opts.NoCheckCertificate {
		args = append(args, "--no-check-certificates")
	}
	return append(args, "--", url)
}
