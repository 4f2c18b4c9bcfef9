// SPDX-License-Identifier: MIT

// Package media holds the value types exchanged between the extraction,
// variant selection and HTTP layers. Values are built fresh per request and
// never persisted.
package media

// ContainerMP4 is the playable container adaptive variants are converted to.
const ContainerMP4 = "mp4"

// KindVideo is the only media kind this service produces.
const KindVideo = "video"

// ContentKind describes the shape of the shared content behind a URL.
type ContentKind string

const (
	ContentStory     ContentKind = "story"
	ContentSpotlight ContentKind = "spotlight"
	ContentOther     ContentKind = "other"
)

// Variant is one candidate playable stream.
//
// When RequiresConversion is set, Ext is the target container and
// OriginalExt keeps the manifest's own extension.
type Variant struct {
	FormatID           string   `json:"format_id"`
	URL                string   `json:"url"`
	Ext                string   `json:"ext"`
	Quality            float64  `json:"quality"`
	FileSize           *int64   `json:"filesize"`
	Width              *int     `json:"width"`
	Height             *int     `json:"height"`
	FPS                *float64 `json:"fps"`
	VideoCodec         string   `json:"vcodec,omitempty"`
	AudioCodec         string   `json:"acodec,omitempty"`
	Protocol           string   `json:"protocol"`
	RequiresConversion bool     `json:"needs_conversion"`
	OriginalExt        string   `json:"original_ext,omitempty"`
}

// HeightOrZero returns the vertical resolution, or 0 when unknown.
func (v Variant) HeightOrZero() int {
	if v.Height == nil {
		return 0
	}
	return *v.Height
}

// ErrorKind classifies why an extraction failed.
type ErrorKind string

const (
	ErrorNone        ErrorKind = ""
	ErrorInvalidURL  ErrorKind = "invalid_url"
	ErrorUnavailable ErrorKind = "unavailable"
	ErrorUnparseable ErrorKind = "unparseable"
	ErrorEngine      ErrorKind = "engine"
	ErrorEmpty       ErrorKind = "empty"
	ErrorInternal    ErrorKind = "internal"
)

// ExtractionResult is the normalized outcome of one extraction attempt.
// Exactly one of MediaURL (success) or Error (failure) is populated.
type ExtractionResult struct {
	Success     bool      `json:"success"`
	MediaURL    string    `json:"mediaUrl,omitempty"`
	MediaType   string    `json:"mediaType,omitempty"`
	Title       string    `json:"title,omitempty"`
	Duration    *float64  `json:"duration,omitempty"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Uploader    string    `json:"uploader,omitempty"`
	ViewCount   *int64    `json:"view_count,omitempty"`
	UploadDate  string    `json:"upload_date,omitempty"`
	Description string    `json:"description,omitempty"`
	Formats     []Variant `json:"formats,omitempty"`
	Error       string    `json:"error,omitempty"`

	// ErrorKind is for the HTTP layer's status mapping and is never serialized.
	ErrorKind ErrorKind `json:"-"`
}

// Failure builds a failure-shaped result.
func Failure(kind ErrorKind, msg string) ExtractionResult {
	return ExtractionResult{Success: false, Error: msg, ErrorKind: kind}
}
