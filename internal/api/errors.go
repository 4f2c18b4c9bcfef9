// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/snapdown/snapdown/internal/api/middleware"
	"github.com/snapdown/snapdown/internal/convert"
	"github.com/snapdown/snapdown/internal/download"
	"github.com/snapdown/snapdown/internal/media"
)

// Caller-facing failure messages.
const (
	MsgURLRequired       = "URL is required"
	MsgURLEmpty          = "URL cannot be empty"
	MsgVideoURLRequired  = "Video URL is required"
	MsgRequestRequired   = "Request data is required"
	MsgInvalidVideoURL   = "Invalid video URL"
	MsgDownloadFailed    = "Failed to download video"
	MsgEncoderMissing    = "FFmpeg is not installed. Please install FFmpeg to convert HLS streams."
	MsgConvertFailed     = "Video conversion failed. Please try a different quality."
	MsgConvertTimeout    = "Conversion timed out. The video might be too long."
	MsgConvertNoOutput   = "Conversion failed - output file not created"
	MsgConverted         = "Video converted successfully"
	MsgInvalidFileID     = "Invalid file ID"
	MsgFileNotFound      = "File not found or expired"
	MsgFileFailed        = "Failed to download file"
	MsgEndpointNotFound  = "Endpoint not found"
	MsgMethodNotAllowed  = "Method not allowed"
	MsgInternal          = "Internal server error"
	MsgBackendRunning    = "Backend is running"
	MsgUnexpectedFailure = middleware.MsgUnexpected
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {success:false, error} failure shape.
func writeError(w http.ResponseWriter, code int, msg string) {
	middleware.WriteError(w, code, msg)
}

// extractionStatus maps a failed extraction to its HTTP status. Engine-side
// failures are the caller's content problem; only internal faults are 500.
func extractionStatus(kind media.ErrorKind) int {
	if kind == media.ErrorInternal {
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// convertFailure maps a conversion error to status and message. Encoder
// diagnostics never reach the caller.
func convertFailure(err error) (int, string) {
	switch {
	case errors.Is(err, convert.ErrEncoderUnavailable):
		return http.StatusInternalServerError, MsgEncoderMissing
	case errors.Is(err, convert.ErrInvalidInput):
		return http.StatusBadRequest, MsgInvalidVideoURL
	case errors.Is(err, convert.ErrTimeout):
		return http.StatusInternalServerError, MsgConvertTimeout
	case errors.Is(err, convert.ErrNoOutput):
		return http.StatusInternalServerError, MsgConvertNoOutput
	case errors.Is(err, convert.ErrFailed):
		return http.StatusInternalServerError, MsgConvertFailed
	default:
		return http.StatusInternalServerError, MsgUnexpectedFailure
	}
}

// downloadFailure maps a remote relay error to status and message.
func downloadFailure(err error) (int, string) {
	switch {
	case errors.Is(err, download.ErrInvalidURL):
		return http.StatusBadRequest, MsgInvalidVideoURL
	case errors.Is(err, download.ErrUpstream):
		return http.StatusInternalServerError, MsgDownloadFailed
	default:
		return http.StatusInternalServerError, MsgUnexpectedFailure
	}
}

// localFailure maps a converted-file lookup or serve error.
func localFailure(err error) (int, string) {
	switch {
	case errors.Is(err, convert.ErrInvalidFileID):
		return http.StatusBadRequest, MsgInvalidFileID
	case errors.Is(err, convert.ErrNotFound), errors.Is(err, download.ErrNotFound):
		return http.StatusNotFound, MsgFileNotFound
	default:
		return http.StatusInternalServerError, MsgFileFailed
	}
}
