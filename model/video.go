// Package model defines the canonical data types shared across the
// acquisition pipeline: the provider-agnostic video record, the tagged raw
// item emitted by provider adapters, and the provider error taxonomy.
package model

// ProviderKind identifies which adapter produced a raw item.
type ProviderKind string

const (
	// ProviderAPI is the credentialed structured-API adapter.
	ProviderAPI ProviderKind = "api"

	// ProviderFeed is the syndication-feed adapter (relay-proxied).
	ProviderFeed ProviderKind = "feed"

	// ProviderScrape is the page-scrape adapter (identifier discovery only).
	ProviderScrape ProviderKind = "scrape"
)

// Video is the canonical record flowing out of the pipeline. IDs are
// provider-assigned and stable across refetches; free text is plain
// (markup stripped) and the description is bounded at 300 characters.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`

	// WatchURL is the opaque playable reference the playback driver
	// resolves into an embeddable transport.
	WatchURL string `json:"watch_url"`

	// PublishedAt is an ISO-8601 timestamp string. Providers that omit it
	// get the fetch time substituted; absence is never an error.
	PublishedAt string `json:"published_at"`

	// DurationLabel is "MM:SS", "H:MM:SS", or the sentinel "N/A" when the
	// provider did not report one. It is never fabricated.
	DurationLabel string `json:"duration_label"`

	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
}

// RawItem is the tagged-variant record provider adapters hand to the
// normalizer. Exactly one shape is populated per item; shape-specific
// parsing stays in the adapters and the normalizer consumes only these
// fields.
type RawItem struct {
	Kind ProviderKind

	// VideoID is set when the provider reports the video token directly
	// (structured API). Feed items carry Link instead and the normalizer
	// extracts the token from it.
	VideoID string

	// Link is a watch-style or short-link URL.
	Link string

	Title       string
	Description string

	// Published is the provider timestamp verbatim, possibly empty.
	Published string

	// ChannelTitle is the provider-reported channel display name, when the
	// payload carries one. Empty means the caller's provenance name is used.
	ChannelTitle string

	// Thumbnail is the best provider-supplied image URL, possibly empty.
	Thumbnail string
}
