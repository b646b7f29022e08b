// Package resolver discovers a channel's stable identifier from its
// human-readable handle by scanning the public channel page HTML, fetched
// through relay proxies to get around cross-origin restrictions.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/dhageyso/dhageyso/common"
	"github.com/dhageyso/dhageyso/state"
)

// ErrNotFound means no proxy yielded parseable HTML or no pattern matched.
// Recoverable: callers proceed without the identifier.
var ErrNotFound = errors.New("channel identifier not found")

const (
	channelURLTemplate = "https://www.youtube.com/%s"

	// Per-proxy fetch bound. The overall resolve is additionally bounded
	// by the caller's context.
	proxyTimeout = 5 * time.Second

	minPageSize = 100
)

// identifierPatterns are the known field-name variants the upstream site
// uses to embed the channel identifier in page markup, in match order.
var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`"channelId"\s*:\s*"(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`"externalId"\s*:\s*"(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`"ucid"\s*:\s*"(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`channel_id[=:"](UC[a-zA-Z0-9_-]{22})`),
	regexp.MustCompile(`"browseId"\s*:\s*"(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`"/channel/(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`channelId%3D(UC[a-zA-Z0-9_-]{22})`),
	regexp.MustCompile(`itemprop="channelId"\s+content="(UC[a-zA-Z0-9_-]{22})"`),
	regexp.MustCompile(`data-channel-external-id="(UC[a-zA-Z0-9_-]{22})"`),
}

// identifierShape is the expected token shape: fixed two-letter prefix plus
// a fixed-length alphanumeric code.
var identifierShape = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

// Resolver discovers channel identifiers and caches them for the process
// lifetime. Concurrent resolutions of the same handle share one in-flight
// fetch instead of issuing duplicates.
type Resolver struct {
	client *http.Client
	cache  *state.SessionCache
	group  singleflight.Group

	// proxyURLs builds the ordered relay URLs for a channel page URL.
	// Overridable in tests.
	proxyURLs func(pageURL string) []string
}

// New creates a resolver backed by the given session cache.
func New(cache *state.SessionCache) *Resolver {
	return &Resolver{
		client:    &http.Client{},
		cache:     cache,
		proxyURLs: defaultProxyURLs,
	}
}

// defaultProxyURLs lists the public relay services tried in fixed order.
func defaultProxyURLs(pageURL string) []string {
	escaped := url.QueryEscape(pageURL)
	return []string{
		"https://api.allorigins.win/get?url=" + escaped,
		"https://corsproxy.io/?" + escaped,
	}
}

// Resolve returns the stable channel identifier for a handle. On success
// the identifier is stored in the session cache; subsequent calls return
// the cached value without touching the network. Returns ErrNotFound when
// neither proxies nor patterns yield an identifier.
func (r *Resolver) Resolve(ctx context.Context, handle string) (string, error) {
	if id, ok := r.cache.Identifier(handle); ok {
		return id, nil
	}

	// Coalesce concurrent resolutions of the same handle.
	v, err, _ := r.group.Do(handle, func() (interface{}, error) {
		return r.resolve(ctx, handle)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) resolve(ctx context.Context, handle string) (string, error) {
	pageURL := fmt.Sprintf(channelURLTemplate, handle)
	log.Info().Str("handle", handle).Str("url", pageURL).Msg("Resolving channel identifier from page")

	attempts := make([]common.Attempt[string], 0, 2)
	for _, proxyURL := range r.proxyURLs(pageURL) {
		proxyURL := proxyURL
		attempts = append(attempts, func(ctx context.Context) (string, error) {
			body, err := common.FetchWithTimeout(ctx, r.client, proxyURL, proxyTimeout)
			if err != nil {
				return "", err
			}

			html := unwrapProxyBody(body)
			if len(html) < minPageSize {
				return "", fmt.Errorf("proxy returned no usable page content")
			}

			id, ok := scanIdentifier(html)
			if !ok {
				return "", fmt.Errorf("no identifier pattern matched")
			}
			return id, nil
		})
	}

	id, err := common.FirstSuccess(ctx, "resolve:"+handle, attempts)
	if err != nil {
		log.Warn().Str("handle", handle).Err(err).Msg("Channel identifier not found")
		return "", ErrNotFound
	}

	r.cache.StoreIdentifier(handle, id)
	log.Info().Str("handle", handle).Str("channel_id", id).Msg("Channel identifier resolved")
	return id, nil
}

// unwrapProxyBody extracts the page HTML from a proxy response. Some relays
// return the page verbatim, others wrap it in a JSON envelope under
// "contents", "body", or "data".
func unwrapProxyBody(body []byte) string {
	var envelope struct {
		Contents string `json:"contents"`
		Body     string `json:"body"`
		Data     string `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch {
		case envelope.Contents != "":
			return envelope.Contents
		case envelope.Body != "":
			return envelope.Body
		case envelope.Data != "":
			return envelope.Data
		}
	}
	return string(body)
}

// scanIdentifier runs the ordered pattern list over the page HTML and
// returns the first match of the expected token shape.
func scanIdentifier(html string) (string, bool) {
	for _, pattern := range identifierPatterns {
		for _, match := range pattern.FindAllStringSubmatch(html, -1) {
			if len(match) > 1 && identifierShape.MatchString(match[1]) {
				return match[1], true
			}
		}
	}
	return "", false
}
