// SPDX-License-Identifier: MIT

// Package download relays media bytes to callers as attachments, either from
// a remote direct URL or from a finished conversion on local disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/metrics"
	platformnet "github.com/snapdown/snapdown/internal/platform/net"
	"github.com/snapdown/snapdown/internal/telemetry"
)

var (
	// ErrInvalidURL is returned for sources that are not direct http(s) URLs
	// or that the outbound policy rejects.
	ErrInvalidURL = errors.New("invalid download url")
	// ErrUpstream covers network failures and non-2xx origin responses.
	ErrUpstream = errors.New("upstream download failed")
	// ErrNotFound is returned when a local file is missing or was reaped.
	ErrNotFound = errors.New("file not found")
)

const (
	// DefaultChunkSize is the relay buffer size.
	DefaultChunkSize = 8192
	// LocalContentType is served for converted files.
	LocalContentType = "video/mp4"

	sourceRemote = "remote"
	sourceLocal  = "local"
)

// Config configures a Proxy.
type Config struct {
	UserAgent      string
	DefaultReferer string
	ChunkSize      int
}

// RemoteRequest describes one remote relay.
type RemoteRequest struct {
	URL      string
	Filename string
	// Referrer overrides Config.DefaultReferer when set.
	Referrer string
}

// Proxy streams media to HTTP clients.
type Proxy struct {
	client *http.Client
	guard  *platformnet.Guard
	cfg    Config
	logger zerolog.Logger
}

// NewProxy builds a Proxy. guard may be nil to skip outbound checks.
func NewProxy(client *http.Client, guard *platformnet.Guard, cfg Config, logger zerolog.Logger) *Proxy {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	return &Proxy{
		client: client,
		guard:  guard,
		cfg:    cfg,
		logger: logger.With().Str(sdlog.FieldComponent, "download").Logger(),
	}
}

// StreamRemote fetches req.URL and relays it to w. Errors returned before
// any byte was written leave w untouched so the caller can render a JSON
// failure. Once streaming started, a relay failure panics with
// http.ErrAbortHandler so the server resets the client connection.
func (p *Proxy) StreamRemote(ctx context.Context, w http.ResponseWriter, req RemoteRequest) error {
	logger := sdlog.WithContext(ctx, p.logger).With().Str(sdlog.FieldURL, platformnet.SanitizeURL(req.URL)).Logger()

	target := req.URL
	if p.guard != nil {
		normalized, err := p.guard.ValidateURL(ctx, req.URL)
		if err != nil {
			logger.Warn().Err(err).Str(sdlog.FieldEvent, "download.rejected").Msg("download url rejected")
			return fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		target = normalized
	} else if _, ok := platformnet.ParseDirectHTTPURL(req.URL); !ok {
		return ErrInvalidURL
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = p.cfg.DefaultReferer
	}
	httpReq.Header.Set("User-Agent", p.cfg.UserAgent)
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Accept-Encoding", "identity")
	if referrer != "" {
		httpReq.Header.Set("Referer", referrer)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		metrics.RecordDownload(sourceRemote, "upstream_error", 0)
		logger.Error().Err(err).Str(sdlog.FieldEvent, "download.upstream_error").Msg("origin request failed")
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordDownload(sourceRemote, "upstream_error", 0)
		logger.Error().Int(sdlog.FieldStatus, resp.StatusCode).Str(sdlog.FieldEvent, "download.upstream_status").Msg("origin returned non-success status")
		return fmt.Errorf("%w: origin status %d", ErrUpstream, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = LocalContentType
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		h.Set("Content-Length", cl)
	}
	setAttachment(h, req.Filename)
	w.WriteHeader(http.StatusOK)

	n, err := p.relay(w, resp.Body)
	trace.SpanFromContext(ctx).SetAttributes(telemetry.DownloadAttributes(sourceRemote, n)...)
	if err != nil {
		metrics.RecordDownload(sourceRemote, "aborted", n)
		logger.Warn().Err(err).Int64(sdlog.FieldBytes, n).Str(sdlog.FieldEvent, "download.aborted").Msg("relay aborted")
		// Headers are out. Reset the connection so a chunked response is not
		// terminated as if it were complete.
		panic(http.ErrAbortHandler)
	}
	metrics.RecordDownload(sourceRemote, "success", n)
	logger.Debug().Int64(sdlog.FieldBytes, n).Str(sdlog.FieldEvent, "download.complete").Msg("relay complete")
	return nil
}

// ServeLocal serves the file at path as an attachment. A file that is
// missing, or disappears before it can be opened, yields ErrNotFound.
func (p *Proxy) ServeLocal(w http.ResponseWriter, r *http.Request, path, filename string) error {
	f, err := os.Open(path) // #nosec G304 -- path is built from a validated uuid
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			metrics.RecordDownload(sourceLocal, "not_found", 0)
			return ErrNotFound
		}
		return err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		metrics.RecordDownload(sourceLocal, "not_found", 0)
		return ErrNotFound
	}

	h := w.Header()
	h.Set("Content-Type", LocalContentType)
	setAttachment(h, filename)

	// ServeContent handles Range and conditional requests; the file stays
	// readable through the open handle even if the janitor unlinks it.
	cw := &countingWriter{ResponseWriter: w}
	http.ServeContent(cw, r, "", fi.ModTime(), f)
	trace.SpanFromContext(r.Context()).SetAttributes(telemetry.DownloadAttributes(sourceLocal, cw.n)...)
	metrics.RecordDownload(sourceLocal, "success", cw.n)
	return nil
}

func (p *Proxy) relay(w http.ResponseWriter, body io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, p.cfg.ChunkSize)
	var total int64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			if werr != nil {
				return total, werr
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// setAttachment sets the attachment disposition and exposes it to
// cross-origin scripts.
func setAttachment(h http.Header, filename string) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	h.Set("Content-Disposition", disposition)
	h.Set("Access-Control-Expose-Headers", "Content-Disposition")
}

type countingWriter struct {
	http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.ResponseWriter.Write(b)
	c.n += int64(n)
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (c *countingWriter) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
