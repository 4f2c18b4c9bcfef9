// SPDX-License-Identifier: MIT

package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEngineUnavailable is returned when the extraction binary cannot be found.
	ErrEngineUnavailable = errors.New("extraction engine unavailable")

	// ErrEngineTimeout is returned when the engine exceeds its wall-clock bound.
	ErrEngineTimeout = errors.New("extraction engine timed out")
)

// Options is the engine configuration for one extraction.
type Options struct {
	UserAgent          string
	Referer            string
	Headers            map[string]string
	SocketTimeout      time.Duration
	Retries            int
	FormatPreference   string
	NoCheckCertificate bool
}

// Engine resolves a content URL into the engine's own description of it.
// Implementations only fetch metadata; they never download media.
type Engine interface {
	Extract(ctx context.Context, url string, opts Options) (*Info, error)
}

// Info is the engine-shaped metadata record. It only lives inside this
// package's boundary and is mapped to media types straight away.
type Info struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Duration    *float64 `json:"duration"`
	Thumbnail   string   `json:"thumbnail"`
	Uploader    string   `json:"uploader"`
	Channel     string   `json:"channel"`
	Creator     string   `json:"creator"`
	ViewCount   *int64   `json:"view_count"`
	UploadDate  string   `json:"upload_date"`
	URL         string   `json:"url"`
	Formats     []Format `json:"formats"`
}

// Format is one engine-reported rendition.
type Format struct {
	FormatID string   `json:"format_id"`
	URL      string   `json:"url"`
	Ext      string   `json:"ext"`
	Quality  *float64 `json:"quality"`
	FileSize *int64   `json:"filesize"`
	Width    *int     `json:"width"`
	Height   *int     `json:"height"`
	FPS      *float64 `json:"fps"`
	VCodec   string   `json:"vcodec"`
	ACodec   string   `json:"acodec"`
	Protocol string   `json:"protocol"`
}

// EngineError carries the engine's own diagnostic for a failed extraction.
type EngineError struct {
	// Message is the engine's error line without its "ERROR:" prefix.
	Message string
	// Stderr is the full diagnostic output, for logs only.
	Stderr string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("extraction engine failed: %v", e.Err)
	}
	return "extraction engine failed: " + e.Message
}

func (e *EngineError) Unwrap() error { return e.Err }

// errorLine picks the most specific diagnostic from engine stderr: the last
// "ERROR:" line, or the last non-empty line.
func errorLine(stderr string) string {
	var last, lastErr string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			lastErr = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if lastErr != "" {
		return lastErr
	}
	return last
}
