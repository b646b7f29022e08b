// Package normalize converts heterogeneous provider-specific video records
// into the canonical model.Video shape.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dhageyso/dhageyso/model"
)

// ErrNoVideoID means no valid video token could be extracted from the raw
// item. Such items are excluded from output; a placeholder id is never
// emitted.
var ErrNoVideoID = errors.New("no extractable video identifier")

// maxDescriptionLen bounds the plain-text description for downstream display.
const maxDescriptionLen = 300

var (
	videoIDPattern  = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#]+)`)
	videoIDShape    = regexp.MustCompile(`^[a-zA-Z0-9_-]{6,}$`)
	markupPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern    = regexp.MustCompile(`\s+`)
	durationPattern = regexp.MustCompile(`\d+:\d{2}`)
)

// timestampLayouts are the provider timestamp shapes accepted verbatim.
// Feed relays report RFC1123-style dates; the structured API reports
// RFC3339.
var timestampLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
}

// Normalizer converts raw provider items into canonical videos. The zero
// value is not usable; construct with New so the clock is set.
type Normalizer struct {
	now func() time.Time
}

// New creates a Normalizer using the wall clock.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewWithClock creates a Normalizer with an injected clock, for tests.
func NewWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize converts one raw item. Items without an extractable video
// identifier are rejected with ErrNoVideoID.
func (n *Normalizer) Normalize(raw model.RawItem, channelID, channelName string) (model.Video, error) {
	videoID := raw.VideoID
	if videoID == "" {
		videoID = ExtractVideoID(raw.Link)
	}
	if videoID == "" || !videoIDShape.MatchString(videoID) {
		return model.Video{}, fmt.Errorf("%w (link %q)", ErrNoVideoID, raw.Link)
	}

	description := truncateRunes(CleanText(raw.Description), maxDescriptionLen)

	thumbnail := raw.Thumbnail
	if thumbnail == "" {
		thumbnail = ThumbnailURL(videoID)
	}

	watchURL := raw.Link
	if watchURL == "" {
		watchURL = WatchURL(videoID)
	}

	if raw.ChannelTitle != "" {
		channelName = raw.ChannelTitle
	}

	return model.Video{
		ID:            videoID,
		Title:         CleanText(raw.Title),
		Description:   description,
		ThumbnailURL:  thumbnail,
		WatchURL:      watchURL,
		PublishedAt:   n.normalizeTimestamp(raw.Published),
		DurationLabel: ExtractDuration(raw.Description),
		ChannelName:   channelName,
		ChannelID:     channelID,
	}, nil
}

// NormalizeAll converts a batch, dropping rejected items and preserving
// provider order. The returned count of dropped items is logged by callers.
func (n *Normalizer) NormalizeAll(raws []model.RawItem, channelID, channelName string) ([]model.Video, int) {
	videos := make([]model.Video, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		video, err := n.Normalize(raw, channelID, channelName)
		if err != nil {
			dropped++
			continue
		}
		videos = append(videos, video)
	}
	return videos, dropped
}

func (n *Normalizer) normalizeTimestamp(published string) string {
	published = strings.TrimSpace(published)
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, published); err == nil {
			return published
		}
	}
	return n.now().UTC().Format(time.RFC3339)
}

// ExtractVideoID parses the video token out of a watch-style, short-link,
// or embed URL. Returns "" when no token is present.
func ExtractVideoID(link string) string {
	match := videoIDPattern.FindStringSubmatch(link)
	if match == nil {
		return ""
	}
	return match[1]
}

// CleanText strips markup tags and collapses whitespace runs. Length is
// not bounded here; only the description field is truncated.
func CleanText(text string) string {
	text = markupPattern.ReplaceAllString(text, "")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// truncateRunes caps text at limit runes, never splitting a multi-byte
// character.
func truncateRunes(text string, limit int) string {
	if runes := []rune(text); len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

// ExtractDuration pulls an MM:SS pattern out of descriptive text, or the
// "N/A" sentinel when none is present. Durations are never invented from
// unrelated numeric fields.
func ExtractDuration(text string) string {
	if match := durationPattern.FindString(text); match != "" {
		return match
	}
	return "N/A"
}

// ThumbnailURL synthesizes the maximum-resolution image reference for a
// video identifier using the conventional image-service path.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// FallbackThumbnailURL substitutes the lower-resolution conventional path
// for a thumbnail that failed to load. Idempotent: applying it twice yields
// the same URL.
func FallbackThumbnailURL(thumbnailURL string) string {
	return strings.Replace(thumbnailURL, "maxresdefault.jpg", "hqdefault.jpg", 1)
}

// WatchURL builds the canonical watch-style URL for a video identifier.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL builds the embeddable transport URL the playback driver loads,
// with the message API enabled and on-surface controls disabled.
func EmbedURL(videoID, origin string, autoplay bool) string {
	play := "0"
	if autoplay {
		play = "1"
	}
	return fmt.Sprintf(
		"https://www.youtube.com/embed/%s?enablejsapi=1&autoplay=%s&controls=0&disablekb=1&fs=0&iv_load_policy=3&modestbranding=1&playsinline=1&rel=0&origin=%s&playlist=%s",
		videoID, play, origin, videoID)
}
