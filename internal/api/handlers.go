// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snapdown/snapdown/internal/convert"
	"github.com/snapdown/snapdown/internal/download"
	sdlog "github.com/snapdown/snapdown/internal/log"
	"github.com/snapdown/snapdown/internal/media"
)

const maxBodyBytes = 64 << 10

// apiName and apiDescription identify the service in /api/info.
const (
	apiName        = "SnapDownloader API"
	apiDescription = "Snapchat Video Downloader Backend"
)

var supportedURLShapes = []string{
	"snapchat.com/spotlight/*",
	"snapchat.com/@username/spotlight/*",
	"story.snapchat.com/*",
	"snapchat.com/story/*",
	"t.snapchat.com/*",
	"web.snapchat.com/*",
}

var endpoints = map[string]string{
	"/health":                           "GET - Health check",
	"/api/test-connection":              "GET - Test connection",
	"/api/extract":                      "POST - Extract video info",
	"/api/formats":                      "POST - Get video formats",
	"/api/download":                     "GET - Download video",
	"/api/convert":                      "POST - Convert M3U8 to MP4",
	"/api/download-converted/<file_id>": "GET - Download converted file",
}

type healthResponse struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	FFmpegAvailable bool      `json:"ffmpeg_available"`
	TempDir         string    `json:"temp_dir"`
	Version         string    `json:"version,omitempty"`
}

type formatsResponse struct {
	Success bool            `json:"success"`
	Formats []media.Variant `json:"formats"`
	Title   string          `json:"title"`
}

type convertRequest struct {
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
	Filename    string `json:"filename"`
}

type convertResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// handleHealth reports liveness. The process is up whenever this answers;
// component state is on /readyz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Timestamp:       time.Now(),
		FFmpegAvailable: s.encoderAvailable(),
		TempDir:         s.deps.WorkDir,
		Version:         s.deps.Version,
	})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": MsgBackendRunning,
		"version": s.deps.Version,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":             apiName,
		"version":          s.deps.Version,
		"description":      apiDescription,
		"endpoints":        endpoints,
		"supported_urls":   supportedURLShapes,
		"ffmpeg_available": s.encoderAvailable(),
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	url, ok := s.readURL(w, r)
	if !ok {
		return
	}
	res := s.deps.Extractor.Extract(r.Context(), url)
	if !res.Success {
		writeJSON(w, extractionStatus(res.ErrorKind), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	url, ok := s.readURL(w, r)
	if !ok {
		return
	}
	res := s.deps.Extractor.Extract(r.Context(), url)
	if !res.Success {
		writeJSON(w, extractionStatus(res.ErrorKind), res)
		return
	}
	formats := res.Formats
	if formats == nil {
		formats = []media.Variant{}
	}
	writeJSON(w, http.StatusOK, formatsResponse{Success: true, Formats: formats, Title: res.Title})
}

// readURL decodes {"url": "..."} and writes the validation failure itself.
func (s *Server) readURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	fields, err := decodeObject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgURLRequired)
		return "", false
	}
	raw, present := fields["url"]
	var url string
	if !present || json.Unmarshal(raw, &url) != nil {
		writeError(w, http.StatusBadRequest, MsgURLRequired)
		return "", false
	}
	url = strings.TrimSpace(url)
	if url == "" {
		writeError(w, http.StatusBadRequest, MsgURLEmpty)
		return "", false
	}
	return url, true
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	videoURL := strings.TrimSpace(q.Get("url"))
	if videoURL == "" {
		writeError(w, http.StatusBadRequest, MsgVideoURLRequired)
		return
	}

	err := s.deps.Downloads.StreamRemote(r.Context(), w, download.RemoteRequest{
		URL:      videoURL,
		Filename: media.AttachmentName(q.Get("filename"), media.DefaultFilename),
		Referrer: q.Get("original_url"),
	})
	if err != nil {
		code, msg := downloadFailure(err)
		logger := sdlog.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).
			Str(sdlog.FieldEvent, "download.failed").
			Int(sdlog.FieldStatus, code).
			Msg("remote download failed")
		writeError(w, code, msg)
	}
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(w, r)
	if err != nil || len(fields) == 0 {
		writeError(w, http.StatusBadRequest, MsgRequestRequired)
		return
	}
	var req convertRequest
	if err := remarshal(fields, &req); err != nil {
		writeError(w, http.StatusBadRequest, MsgRequestRequired)
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, MsgVideoURLRequired)
		return
	}
	if !s.deps.Converter.Available() {
		writeError(w, http.StatusInternalServerError, MsgEncoderMissing)
		return
	}

	filename := media.ForceExt(media.AttachmentName(req.Filename, media.DefaultFilename), media.ContainerMP4)

	job, err := s.deps.Converter.Convert(r.Context(), convert.Request{
		URL:      req.URL,
		Referrer: strings.TrimSpace(req.OriginalURL),
	})
	if err != nil {
		code, msg := convertFailure(err)
		logger := sdlog.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str(sdlog.FieldEvent, "convert.failed").
			Int(sdlog.FieldStatus, code).
			Msg("conversion request failed")
		writeError(w, code, msg)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Success:  true,
		FileID:   job.FileID,
		Filename: filename,
		Message:  MsgConverted,
	})
}

func (s *Server) handleDownloadConverted(w http.ResponseWriter, r *http.Request) {
	path, err := s.deps.Converter.Path(chi.URLParam(r, "fileId"))
	if err != nil {
		code, msg := localFailure(err)
		writeError(w, code, msg)
		return
	}

	id := strings.TrimSuffix(filepath.Base(path), convert.FileExt)
	fallback := "snapchat_video_" + id[:min(8, len(id))] + convert.FileExt
	filename := media.AttachmentName(r.URL.Query().Get("filename"), fallback)

	if err := s.deps.Downloads.ServeLocal(w, r, path, filename); err != nil {
		code, msg := localFailure(err)
		if code == http.StatusInternalServerError {
			logger := sdlog.WithComponentFromContext(r.Context(), "api")
			logger.Error().Err(err).
				Str(sdlog.FieldFileID, id).
				Msg("serving converted file failed")
		}
		writeError(w, code, msg)
	}
}

func (s *Server) encoderAvailable() bool {
	return s.deps.Converter != nil && s.deps.Converter.Available()
}

// decodeObject reads a bounded JSON object body. An empty body decodes to
// an empty map.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}
	return fields, nil
}

func remarshal(fields map[string]json.RawMessage, v any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
