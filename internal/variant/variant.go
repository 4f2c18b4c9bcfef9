// SPDX-License-Identifier: MIT

// Package variant partitions engine-reported formats into direct and
// adaptive-streaming variants, picks the primary URL and orders the list
// returned to callers.
package variant

import (
	"sort"
	"strings"

	"github.com/snapdown/snapdown/internal/media"
)

// DefaultMax bounds how many variants are returned to callers.
const DefaultMax = 5

var adaptiveProtocols = map[string]struct{}{
	"m3u8":               {},
	"m3u8_native":        {},
	"hls":                {},
	"http_dash_segments": {},
	"dash":               {},
}

var manifestExts = map[string]struct{}{
	"m3u8": {},
	"m3u":  {},
	"mpd":  {},
}

var mp4Family = map[string]struct{}{
	"mp4": {},
	"m4v": {},
	"mov": {},
}

// IsAdaptive reports whether v is a manifest-based stream, judged by URL
// suffix, declared protocol or extension.
func IsAdaptive(v media.Variant) bool {
	if strings.Contains(strings.ToLower(v.URL), ".m3u8") {
		return true
	}
	if _, ok := adaptiveProtocols[strings.ToLower(v.Protocol)]; ok {
		return true
	}
	ext := strings.ToLower(v.Ext)
	if v.RequiresConversion {
		ext = strings.ToLower(v.OriginalExt)
	}
	_, ok := manifestExts[ext]
	return ok
}

// Classify applies the per-kind policy to the raw variants:
// adaptive variants are dropped for spotlight content and marked for
// conversion (retargeted to mp4) for everything else. Variants without a
// URL are discarded. Input order is preserved.
func Classify(raw []media.Variant, kind media.ContentKind) []media.Variant {
	out := make([]media.Variant, 0, len(raw))
	for _, v := range raw {
		if v.URL == "" {
			continue
		}
		if !IsAdaptive(v) {
			v.RequiresConversion = false
			v.OriginalExt = ""
			out = append(out, v)
			continue
		}
		if kind == media.ContentSpotlight {
			continue
		}
		v.RequiresConversion = true
		v.OriginalExt = v.Ext
		v.Ext = media.ContainerMP4
		out = append(out, v)
	}
	return out
}

// SelectPrimary returns the URL callers should use by default. The engine's
// top-level URL wins when present, except for spotlight content where an
// adaptive top-level URL is ignored like the adaptive variants Classify
// dropped. Otherwise the tallest direct variant is chosen (ties keep engine
// order), falling back to the first variant.
func SelectPrimary(topLevel string, kind media.ContentKind, variants []media.Variant) string {
	if topLevel != "" && !(kind == media.ContentSpotlight && IsAdaptive(media.Variant{URL: topLevel})) {
		return topLevel
	}
	best := -1
	for i, v := range variants {
		if v.RequiresConversion {
			continue
		}
		if best < 0 || v.HeightOrZero() > variants[best].HeightOrZero() {
			best = i
		}
	}
	if best >= 0 {
		return variants[best].URL
	}
	if len(variants) > 0 {
		return variants[0].URL
	}
	return ""
}

// Order sorts variants into caller order and truncates to max:
// conversion-required variants first, then direct mp4-family variants, then
// the rest. Within a group engine order is kept. max <= 0 means DefaultMax.
func Order(variants []media.Variant, max int) []media.Variant {
	if max <= 0 {
		max = DefaultMax
	}
	out := make([]media.Variant, len(variants))
	copy(out, variants)
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i]) < rank(out[j])
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

func rank(v media.Variant) int {
	if v.RequiresConversion {
		return 0
	}
	if _, ok := mp4Family[strings.ToLower(v.Ext)]; ok {
		return 1
	}
	return 2
}
