// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func find(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/api/extract", "http://localhost:5000/api/extract", 400)
	assert.Len(t, attrs, 4)

	v, ok := find(attrs, HTTPStatusCodeKey)
	assert.True(t, ok)
	assert.Equal(t, int64(400), v.AsInt64())
}

func TestExtractAttributes(t *testing.T) {
	attrs := ExtractAttributes("story", "https://story.snapchat.com/s/someone")
	host, ok := find(attrs, ExtractHostKey)
	assert.True(t, ok)
	assert.Equal(t, "story.snapchat.com", host.AsString())

	attrs = ExtractAttributes("other", "snapchat.com/t/x")
	_, ok = find(attrs, ExtractHostKey)
	assert.False(t, ok, "scheme-less input has no parsed host")
	assert.Len(t, attrs, 1)
}

func TestConvertAttributes(t *testing.T) {
	attrs := ConvertAttributes("0b6f2a8e-4c2b-4d0e-9f3a-5d1c2b3a4e5f", true)
	v, _ := find(attrs, ConvertReferrerKey)
	assert.True(t, v.AsBool())
	assert.Equal(t, "reencode", AttemptAttribute("reencode").Value.AsString())
}

func TestDownloadAndErrorAttributes(t *testing.T) {
	v, _ := find(DownloadAttributes("remote", 8192), DownloadBytesKey)
	assert.Equal(t, int64(8192), v.AsInt64())

	v, _ = find(ErrorAttributes("timeout"), ErrorTypeKey)
	assert.Equal(t, "timeout", v.AsString())
}
