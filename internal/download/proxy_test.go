// SPDX-License-Identifier: MIT

package download

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapdown/snapdown/internal/platform/httpx"
	platformnet "github.com/snapdown/snapdown/internal/platform/net"
)

const testUA = "Mozilla/5.0 (test)"

func newProxy(guard *platformnet.Guard) *Proxy {
	return NewProxy(httpx.NewClient(5*time.Second, httpx.Streaming()), guard, Config{
		UserAgent:      testUA,
		DefaultReferer: "https://www.snapchat.com/",
	}, zerolog.Nop())
}

func dispositionFilename(t *testing.T, h http.Header) string {
	t.Helper()
	typ, params, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", typ)
	return params["filename"]
}

func TestStreamRemote_RelaysBodyAndHeaders(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 5000)
	var got http.Header
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "video/quicktime")
		_, _ = w.Write(payload)
	}))
	defer origin.Close()

	rec := httptest.NewRecorder()
	err := newProxy(nil).StreamRemote(context.Background(), rec, RemoteRequest{
		URL:      origin.URL + "/v.mov?sig=abc",
		Filename: "my clip.mov",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
	assert.Equal(t, "video/quicktime", rec.Header().Get("Content-Type"))
	assert.Equal(t, "50000", rec.Header().Get("Content-Length"))
	assert.Equal(t, "my clip.mov", dispositionFilename(t, rec.Header()))
	assert.Equal(t, "Content-Disposition", rec.Header().Get("Access-Control-Expose-Headers"))

	assert.Equal(t, testUA, got.Get("User-Agent"))
	assert.Equal(t, "https://www.snapchat.com/", got.Get("Referer"))
	assert.Equal(t, "identity", got.Get("Accept-Encoding"))
	assert.Equal(t, "*/*", got.Get("Accept"))
}

func TestStreamRemote_ReferrerOverrideAndDefaultType(t *testing.T) {
	var referer string
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p'})
	}))
	defer origin.Close()

	rec := httptest.NewRecorder()
	err := newProxy(nil).StreamRemote(context.Background(), rec, RemoteRequest{
		URL:      origin.URL,
		Filename: "a.mp4",
		Referrer: "https://www.snapchat.com/spotlight/xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://www.snapchat.com/spotlight/xyz", referer)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
}

func TestStreamRemote_UpstreamStatus(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusForbidden)
	}))
	defer origin.Close()

	rec := httptest.NewRecorder()
	err := newProxy(nil).StreamRemote(context.Background(), rec, RemoteRequest{URL: origin.URL, Filename: "a.mp4"})
	require.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, rec.Header().Get("Content-Disposition"), "nothing written before a failure")
	assert.Zero(t, rec.Body.Len())
}

func TestStreamRemote_NetworkFailure(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := origin.URL
	origin.Close()

	err := newProxy(nil).StreamRemote(context.Background(), httptest.NewRecorder(), RemoteRequest{URL: url, Filename: "a.mp4"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestStreamRemote_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "file:///etc/passwd", "ftp://cdn.example/x"} {
		err := newProxy(nil).StreamRemote(context.Background(), httptest.NewRecorder(), RemoteRequest{URL: u})
		assert.ErrorIs(t, err, ErrInvalidURL, u)
	}
}

func TestStreamRemote_GuardBlocksPrivateTargets(t *testing.T) {
	hit := false
	origin := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hit = true }))
	defer origin.Close()

	guard, err := platformnet.NewGuard(platformnet.OutboundPolicy{})
	require.NoError(t, err)

	err = newProxy(guard).StreamRemote(context.Background(), httptest.NewRecorder(), RemoteRequest{URL: origin.URL})
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.False(t, hit)
}

func TestStreamRemote_GuardAllowsPrivateWhenConfigured(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer origin.Close()

	guard, err := platformnet.NewGuard(platformnet.OutboundPolicy{AllowCIDRs: []string{"127.0.0.0/8"}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, newProxy(guard).StreamRemote(context.Background(), rec, RemoteRequest{URL: origin.URL, Filename: "a.mp4"}))
	assert.Equal(t, "ok", rec.Body.String())
}

func writeFile(t *testing.T, data string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "0b6f2a8e-4c2b-4d0e-9f3a-5d1c2b3a4e5f.mp4")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestServeLocal(t *testing.T) {
	path := writeFile(t, "converted bytes")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/download-converted/x", nil)
	require.NoError(t, newProxy(nil).ServeLocal(rec, req, path, "clip.mp4"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "converted bytes", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "clip.mp4", dispositionFilename(t, rec.Header()))
	assert.Equal(t, "Content-Disposition", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestServeLocal_Idempotent(t *testing.T) {
	path := writeFile(t, strings.Repeat("x", 20000))
	p := newProxy(nil)

	var bodies []string
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		require.NoError(t, p.ServeLocal(rec, httptest.NewRequest(http.MethodGet, "/", nil), path, "a.mp4"))
		bodies = append(bodies, rec.Body.String())
	}
	assert.Equal(t, bodies[0], bodies[1])
	assert.Len(t, bodies[0], 20000)
}

func TestServeLocal_Range(t *testing.T) {
	path := writeFile(t, "0123456789")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=2-5")

	rec := httptest.NewRecorder()
	require.NoError(t, newProxy(nil).ServeLocal(rec, req, path, "a.mp4"))
	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "2345", rec.Body.String())
}

func TestServeLocal_Missing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := newProxy(nil).ServeLocal(rec, httptest.NewRequest(http.MethodGet, "/", nil), filepath.Join(t.TempDir(), "gone.mp4"), "a.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestServeLocal_Directory(t *testing.T) {
	err := newProxy(nil).ServeLocal(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), t.TempDir(), "a.mp4")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAttachment_NonASCII(t *testing.T) {
	h := http.Header{}
	setAttachment(h, "vidéo.mp4")
	_, params, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "vidéo.mp4", params["filename"])
}

// droppingOrigin answers one request with a chunked 200 carrying "hello" and
// closes the connection without the terminating chunk.
func droppingOrigin(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		if _, err := http.ReadRequest(bufio.NewReader(conn)); err != nil {
			return
		}
		_, _ = io.WriteString(conn, "HTTP/1.1 200 OK\r\n"+
			"Content-Type: video/mp4\r\n"+
			"Transfer-Encoding: chunked\r\n\r\n"+
			"5\r\nhello\r\n")
	}()
	return "http://" + ln.Addr().String() + "/v.mp4"
}

func TestStreamRemote_MidStreamFailureAbortsResponse(t *testing.T) {
	target := droppingOrigin(t)
	rec := httptest.NewRecorder()

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		_ = newProxy(nil).StreamRemote(context.Background(), rec, RemoteRequest{URL: target, Filename: "v.mp4"})
	})
	assert.Equal(t, "hello", rec.Body.String())
}

func TestStreamRemote_MidStreamFailureReachesClient(t *testing.T) {
	target := droppingOrigin(t)
	p := newProxy(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = p.StreamRemote(r.Context(), w, RemoteRequest{URL: target, Filename: "v.mp4"})
	}))
	defer srv.Close()

	client := httpx.NewClient(5 * time.Second)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = io.ReadAll(resp.Body)
	assert.Error(t, err, "a dropped origin must not look like a complete download")
}
