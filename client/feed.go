package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dhageyso/dhageyso/common"
	"github.com/dhageyso/dhageyso/model"
)

const (
	feedByIDTemplate   = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"
	feedByUserTemplate = "https://www.youtube.com/feeds/videos.xml?user=%s"

	// relayTimeout bounds each relay attempt. Short on purpose: a hung
	// relay must not stall the whole cascade.
	relayTimeout = 4 * time.Second
)

// FeedProvider lists channel videos through the public syndication feed,
// fetched via third-party relay services to get around cross-origin
// restrictions. No credential needed. The feed carries only the ~15 most
// recent items, so callers must not expect large result counts here.
type FeedProvider struct {
	client *http.Client

	// relayURLs builds the ordered relay endpoints for a feed URL.
	// Overridable in tests.
	relayURLs func(feedURL string) []string
}

// NewFeedProvider creates a syndication-feed adapter.
func NewFeedProvider() *FeedProvider {
	return &FeedProvider{
		client:    &http.Client{},
		relayURLs: defaultRelayURLs,
	}
}

// defaultRelayURLs lists the public relay endpoints in try order. The last
// two wrap the converter response in a second envelope.
func defaultRelayURLs(feedURL string) []string {
	converted := "https://api.rss2json.com/v1/api.json?rss_url=" + url.QueryEscape(feedURL)
	return []string{
		converted,
		converted + "&api_key=public",
		"https://corsproxy.io/?" + url.QueryEscape(converted),
		"https://api.allorigins.win/get?url=" + url.QueryEscape(converted),
	}
}

// Kind returns the syndication-feed provider kind.
func (p *FeedProvider) Kind() model.ProviderKind {
	return model.ProviderFeed
}

// ListVideos fetches the channel feed through the relay sequence and
// returns up to limit items in feed order. The first relay returning a
// well-formed, non-empty item list wins.
func (p *FeedProvider) ListVideos(ctx context.Context, ref ChannelRef, limit int) ([]model.RawItem, error) {
	feedURL := p.feedURL(ref)
	log.Info().Str("feed_url", feedURL).Int("limit", limit).Msg("Fetching syndication feed via relays")

	attempts := make([]common.Attempt[[]model.RawItem], 0, 4)
	for _, relayURL := range p.relayURLs(feedURL) {
		relayURL := relayURL
		attempts = append(attempts, func(ctx context.Context) ([]model.RawItem, error) {
			body, err := common.FetchWithTimeout(ctx, p.client, relayURL, relayTimeout)
			if err != nil {
				return nil, err
			}
			return parseFeedEnvelope(body, limit)
		})
	}

	items, err := common.FirstSuccess(ctx, "feed:"+ref.Handle, attempts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, model.NewProviderError(model.ProviderFeed, model.ErrorTransient, ctx.Err())
		}
		return nil, model.NewProviderError(model.ProviderFeed, model.ErrorTransient, err)
	}

	log.Info().Int("count", len(items)).Msg("Syndication feed retrieved")
	return items, nil
}

// feedURL prefers the identifier form; without an identifier the legacy
// user parameter with the bare handle is the fallback locator.
func (p *FeedProvider) feedURL(ref ChannelRef) string {
	if ref.ID != "" {
		return fmt.Sprintf(feedByIDTemplate, ref.ID)
	}
	return fmt.Sprintf(feedByUserTemplate, strings.TrimPrefix(ref.Handle, "@"))
}

// feedEnvelope is the converter's response shape.
type feedEnvelope struct {
	Status string `json:"status"`
	Feed   struct {
		Title string `json:"title"`
	} `json:"feed"`
	Items []feedItem `json:"items"`

	// Contents is set when a relay double-wraps the converter payload as
	// an escaped string.
	Contents string `json:"contents"`
}

type feedItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	GUID        string `json:"guid"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
}

// parseFeedEnvelope unwraps a relay response into raw items. A double-
// wrapped payload (escaped JSON under "contents") is unwrapped once. Any
// unexpected shape or an empty item list fails this relay so the next one
// is tried.
func parseFeedEnvelope(body []byte, limit int) ([]model.RawItem, error) {
	var envelope feedEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, model.NewProviderError(model.ProviderFeed, model.ErrorMalformedResponse,
			fmt.Errorf("failed to decode relay response: %w", err))
	}

	if envelope.Contents != "" {
		if err := json.Unmarshal([]byte(envelope.Contents), &envelope); err != nil {
			return nil, model.NewProviderError(model.ProviderFeed, model.ErrorMalformedResponse,
				fmt.Errorf("failed to decode double-wrapped relay payload: %w", err))
		}
	}

	if envelope.Status != "ok" || len(envelope.Items) == 0 {
		return nil, model.NewProviderError(model.ProviderFeed, model.ErrorMalformedResponse,
			fmt.Errorf("relay returned status %q with %d items", envelope.Status, len(envelope.Items)))
	}

	count := min(limit, len(envelope.Items))
	items := make([]model.RawItem, 0, count)
	for _, item := range envelope.Items[:count] {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		items = append(items, model.RawItem{
			Kind:         model.ProviderFeed,
			Link:         link,
			Title:        item.Title,
			Description:  item.Description,
			Published:    item.PubDate,
			ChannelTitle: envelope.Feed.Title,
			Thumbnail:    item.Thumbnail,
		})
	}
	return items, nil
}
