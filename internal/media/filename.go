// SPDX-License-Identifier: MIT

package media

import (
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultFilename is used when the caller supplies no filename.
	DefaultFilename = "snapchat_video.mp4"

	maxTitleRunes = 50
	fallbackStem  = "snapchat_video"
)

var (
	unsafeChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// SafeFilename derives a download filename from a content title.
func SafeFilename(title, ext string) string {
	if ext == "" {
		ext = ContainerMP4
	}
	stem := unsafeChars.ReplaceAllString(title, "")
	stem = whitespace.ReplaceAllString(strings.TrimSpace(stem), "_")
	if r := []rune(stem); len(r) > maxTitleRunes {
		stem = string(r[:maxTitleRunes])
	}
	if stem == "" {
		stem = fallbackStem
	}
	return stem + "." + ext
}

// ForceExt replaces the extension of name with ext. A name without an
// extension gets ext appended.
func ForceExt(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), "."+ext) {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + "." + ext
}

// AttachmentName strips path separators and quotes so a caller-chosen name
// is safe inside a Content-Disposition header.
func AttachmentName(name, fallback string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '"', r < 0x20, r == 0x7f:
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
