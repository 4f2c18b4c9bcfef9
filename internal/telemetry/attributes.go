// SPDX-License-Identifier: MIT

package telemetry

import (
	"net/url"

	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	ExtractContentKindKey = "extract.content_kind"
	ExtractHostKey        = "extract.host"
	ExtractVariantsKey    = "extract.variants"

	ConvertFileIDKey   = "convert.file_id"
	ConvertAttemptKey  = "convert.attempt"
	ConvertReferrerKey = "convert.has_referrer"

	DownloadSourceKey = "download.source"
	DownloadBytesKey  = "download.bytes"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ExtractAttributes describes an extraction. Only the host of the content
// URL is recorded.
func ExtractAttributes(kind, rawURL string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(ExtractContentKindKey, kind)}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		attrs = append(attrs, attribute.String(ExtractHostKey, u.Hostname()))
	}
	return attrs
}

// VariantCountAttribute records how many variants an extraction returned.
func VariantCountAttribute(n int) attribute.KeyValue {
	return attribute.Int(ExtractVariantsKey, n)
}

// ConvertAttributes describes a conversion job.
func ConvertAttributes(fileID string, hasReferrer bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ConvertFileIDKey, fileID),
		attribute.Bool(ConvertReferrerKey, hasReferrer),
	}
}

// AttemptAttribute names the encoder attempt (copy or reencode).
func AttemptAttribute(attempt string) attribute.KeyValue {
	return attribute.String(ConvertAttemptKey, attempt)
}

// DownloadAttributes describes a proxied download.
func DownloadAttributes(source string, bytes int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DownloadSourceKey, source),
		attribute.Int64(DownloadBytesKey, bytes),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
