// SPDX-License-Identifier: MIT

package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name  string
		title string
		ext   string
		want  string
	}{
		{name: "plain", title: "My Story", ext: "mp4", want: "My_Story.mp4"},
		{name: "strips punctuation", title: "Hello, world! (2024)", ext: "mp4", want: "Hello_world_2024.mp4"},
		{name: "empty falls back", title: "!!!", ext: "mp4", want: "snapchat_video.mp4"},
		{name: "default ext", title: "clip", ext: "", want: "clip.mp4"},
		{name: "keeps dashes", title: "a-b c", ext: "webm", want: "a-b_c.webm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.title, tt.ext))
		})
	}
}

func TestSafeFilename_Truncates(t *testing.T) {
	got := SafeFilename(strings.Repeat("x", 120), "mp4")
	assert.Equal(t, strings.Repeat("x", 50)+".mp4", got)
}

func TestForceExt(t *testing.T) {
	assert.Equal(t, "clip.mp4", ForceExt("clip.mp4", "mp4"))
	assert.Equal(t, "clip.MP4", ForceExt("clip.MP4", "mp4"))
	assert.Equal(t, "clip.mp4", ForceExt("clip.m3u8", "mp4"))
	assert.Equal(t, "clip.mp4", ForceExt("clip", "mp4"))
}

func TestAttachmentName(t *testing.T) {
	assert.Equal(t, "video.mp4", AttachmentName("../../etc/video.mp4", "x.mp4"))
	assert.Equal(t, "evil.mp4", AttachmentName(`ev"il.mp4`, "x.mp4"))
	assert.Equal(t, "x.mp4", AttachmentName("", "x.mp4"))
	assert.Equal(t, "a.mp4", AttachmentName(`C:\\tmp\\a.mp4`, "x.mp4"))
}
