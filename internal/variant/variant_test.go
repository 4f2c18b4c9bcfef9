// SPDX-License-Identifier: MIT

package variant

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/snapdown/snapdown/internal/media"
)

func intp(v int) *int { return &v }

func direct(id string, height int) media.Variant {
	return media.Variant{FormatID: id, URL: "https://cf-st.sc-cdn.net/" + id + ".mp4", Ext: "mp4", Protocol: "https", Height: intp(height)}
}

func hls(id string) media.Variant {
	return media.Variant{FormatID: id, URL: "https://cf-st.sc-cdn.net/" + id + "/playlist.m3u8", Ext: "mp4", Protocol: "m3u8_native"}
}

func TestIsAdaptive(t *testing.T) {
	assert.True(t, IsAdaptive(media.Variant{URL: "https://x/y/master.m3u8?sig=1"}))
	assert.True(t, IsAdaptive(media.Variant{URL: "https://x/y", Protocol: "hls"}))
	assert.True(t, IsAdaptive(media.Variant{URL: "https://x/y", Protocol: "M3U8"}))
	assert.True(t, IsAdaptive(media.Variant{URL: "https://x/y", Ext: "mpd"}))
	assert.False(t, IsAdaptive(media.Variant{URL: "https://x/y.mp4", Ext: "mp4", Protocol: "https"}))
}

func TestClassify_StoryMarksConversion(t *testing.T) {
	raw := []media.Variant{direct("d1", 720), hls("h1")}

	got := Classify(raw, media.ContentStory)

	want := []media.Variant{
		direct("d1", 720),
		{FormatID: "h1", URL: "https://cf-st.sc-cdn.net/h1/playlist.m3u8", Ext: "mp4", Protocol: "m3u8_native", RequiresConversion: true, OriginalExt: "mp4"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_ManifestExtIsRecorded(t *testing.T) {
	raw := []media.Variant{{FormatID: "m", URL: "https://x/a", Ext: "m3u8", Protocol: "m3u8"}}

	got := Classify(raw, media.ContentOther)

	if assert.Len(t, got, 1) {
		assert.True(t, got[0].RequiresConversion)
		assert.Equal(t, "mp4", got[0].Ext)
		assert.Equal(t, "m3u8", got[0].OriginalExt)
	}
}

func TestClassify_SpotlightDropsAdaptive(t *testing.T) {
	raw := []media.Variant{hls("h1"), direct("d1", 1280), hls("h2")}

	got := Classify(raw, media.ContentSpotlight)

	if assert.Len(t, got, 1) {
		assert.Equal(t, "d1", got[0].FormatID)
		assert.False(t, got[0].RequiresConversion)
	}
}

func TestClassify_DropsEmptyURL(t *testing.T) {
	got := Classify([]media.Variant{{FormatID: "x"}}, media.ContentOther)
	assert.Empty(t, got)
}

func TestSelectPrimary(t *testing.T) {
	t.Run("top level wins", func(t *testing.T) {
		assert.Equal(t, "https://top", SelectPrimary("https://top", media.ContentStory, []media.Variant{direct("d", 1080)}))
	})

	t.Run("tallest direct", func(t *testing.T) {
		vs := Classify([]media.Variant{direct("low", 480), hls("h"), direct("high", 1080), direct("mid", 720)}, media.ContentStory)
		assert.Equal(t, direct("high", 1080).URL, SelectPrimary("", media.ContentStory, vs))
	})

	t.Run("ties keep engine order", func(t *testing.T) {
		vs := []media.Variant{direct("a", 720), direct("b", 720)}
		assert.Equal(t, vs[0].URL, SelectPrimary("", media.ContentStory, vs))
	})

	t.Run("unknown heights keep first direct", func(t *testing.T) {
		a := direct("a", 0)
		a.Height = nil
		b := direct("b", 0)
		b.Height = nil
		assert.Equal(t, a.URL, SelectPrimary("", media.ContentStory, []media.Variant{a, b}))
	})

	t.Run("adaptive only falls back to first", func(t *testing.T) {
		vs := Classify([]media.Variant{hls("h1"), hls("h2")}, media.ContentStory)
		assert.Equal(t, hls("h1").URL, SelectPrimary("", media.ContentStory, vs))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, SelectPrimary("", media.ContentStory, nil))
	})
}

func TestSelectPrimary_SpotlightIgnoresAdaptiveTopLevel(t *testing.T) {
	top := hls("best").URL
	vs := Classify([]media.Variant{hls("h1"), direct("low", 480), direct("high", 1080)}, media.ContentSpotlight)

	assert.Equal(t, direct("high", 1080).URL, SelectPrimary(top, media.ContentSpotlight, vs))
	assert.Empty(t, SelectPrimary(top, media.ContentSpotlight, nil))
	assert.Equal(t, "https://top/v.mp4", SelectPrimary("https://top/v.mp4", media.ContentSpotlight, vs))
	assert.Equal(t, top, SelectPrimary(top, media.ContentStory, vs), "stories keep the top-level stream")
}

func TestSelectPrimary_Deterministic(t *testing.T) {
	vs := []media.Variant{direct("a", 720), hls("h"), direct("b", 1080), direct("c", 1080)}
	first := SelectPrimary("", media.ContentStory, Classify(vs, media.ContentStory))
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, SelectPrimary("", media.ContentStory, Classify(vs, media.ContentStory)))
	}
	assert.Equal(t, direct("b", 1080).URL, first)
}

func TestOrder_ConversionFirstThenMP4(t *testing.T) {
	webm := media.Variant{FormatID: "w", URL: "https://x/w.webm", Ext: "webm", Protocol: "https"}
	vs := Classify([]media.Variant{direct("d1", 720), webm, hls("h1"), direct("d2", 1080), hls("h2")}, media.ContentStory)

	got := Order(vs, 0)

	ids := make([]string, 0, len(got))
	for _, v := range got {
		ids = append(ids, v.FormatID)
	}
	assert.Equal(t, []string{"h1", "h2", "d1", "d2", "w"}, ids)
}

func TestOrder_Truncates(t *testing.T) {
	var vs []media.Variant
	for i := 0; i < 9; i++ {
		vs = append(vs, direct(string(rune('a'+i)), 100*i))
	}
	assert.Len(t, Order(vs, DefaultMax), DefaultMax)
	assert.Len(t, Order(vs, 3), 3)
	assert.Len(t, Order(vs[:2], 5), 2)
}

func TestOrder_DoesNotMutateInput(t *testing.T) {
	vs := []media.Variant{direct("d", 1), hls("h")}
	vs = Classify(vs, media.ContentStory)
	_ = Order(vs, 5)
	assert.Equal(t, "d", vs[0].FormatID)
}
