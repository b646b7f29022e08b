package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/dhageyso/dhageyso/model"
)

const (
	// pageSize is the catalog page size for paginated retrieval.
	pageSize = 50

	// interPageDelay spaces successive page requests to avoid burst
	// throttling on the credentialed API.
	interPageDelay = 200 * time.Millisecond
)

// APIProvider lists channel videos through the structured YouTube Data API.
// Retrieval is two-step: resolve the channel's uploads playlist, then page
// through it; if the playlist path yields nothing it falls back to a
// reverse-chronological search-by-channel query.
type APIProvider struct {
	apiKey  string
	service *ytapi.Service
	limiter *rate.Limiter
}

// NewAPIProvider creates a structured-API adapter. The credential is
// required; configuration without one simply skips this provider.
func NewAPIProvider(apiKey string) (*APIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("structured-API provider requires an API key")
	}
	return &APIProvider{
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Every(interPageDelay), 1),
	}, nil
}

// Connect creates the API service. Safe to call more than once.
func (p *APIProvider) Connect(ctx context.Context) error {
	if p.service != nil {
		return nil
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	service, err := ytapi.NewService(ctx, option.WithAPIKey(p.apiKey), option.WithHTTPClient(httpClient))
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	p.service = service
	log.Info().Msg("Connected to YouTube Data API")
	return nil
}

// Kind returns the structured-API provider kind.
func (p *APIProvider) Kind() model.ProviderKind {
	return model.ProviderAPI
}

// DiscoverIdentifier resolves a handle to a stable channel identifier via
// a channel search.
func (p *APIProvider) DiscoverIdentifier(ctx context.Context, handle string) (string, error) {
	if err := p.Connect(ctx); err != nil {
		return "", p.classify(err)
	}

	query := strings.TrimPrefix(handle, "@")
	response, err := p.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", p.classify(err)
	}

	if len(response.Items) == 0 || response.Items[0].Id == nil || response.Items[0].Id.ChannelId == "" {
		return "", model.NewProviderError(model.ProviderAPI, model.ErrorNotFound,
			fmt.Errorf("no channel matched handle %q", handle))
	}

	id := response.Items[0].Id.ChannelId
	log.Info().Str("handle", handle).Str("channel_id", id).Msg("Channel identifier discovered via API search")
	return id, nil
}

// ListVideos retrieves up to limit videos in catalog order.
func (p *APIProvider) ListVideos(ctx context.Context, ref ChannelRef, limit int) ([]model.RawItem, error) {
	if err := p.Connect(ctx); err != nil {
		return nil, p.classify(err)
	}

	channelID := ref.ID
	if !strings.HasPrefix(channelID, "UC") {
		id, err := p.DiscoverIdentifier(ctx, ref.Handle)
		if err != nil {
			return nil, err
		}
		channelID = id
	}

	items, err := p.listFromUploads(ctx, channelID, limit)
	if err != nil {
		kind := model.KindOf(err)
		if kind == model.ErrorQuotaExceeded || model.IsConfigClass(kind) {
			// Terminal for this invocation; nothing gained by the search
			// fallback against the same credential.
			return nil, err
		}
		log.Warn().Err(err).Str("channel_id", channelID).Msg("Uploads playlist retrieval failed, trying search")
	}
	if len(items) > 0 {
		return items, nil
	}

	return p.listFromSearch(ctx, channelID, limit)
}

// listFromUploads resolves the channel's uploads playlist and pages through
// it, accumulating until limit is reached or no further page token exists.
func (p *APIProvider) listFromUploads(ctx context.Context, channelID string, limit int) ([]model.RawItem, error) {
	response, err := p.service.Channels.List([]string{"contentDetails"}).
		Id(channelID).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, p.classify(err)
	}

	if len(response.Items) == 0 || response.Items[0].ContentDetails == nil {
		return nil, model.NewProviderError(model.ProviderAPI, model.ErrorNotFound,
			fmt.Errorf("channel %s has no content details", channelID))
	}

	uploadsID := response.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if uploadsID == "" {
		return nil, model.NewProviderError(model.ProviderAPI, model.ErrorNotFound,
			fmt.Errorf("channel %s has no uploads playlist", channelID))
	}

	items := make([]model.RawItem, 0, min(limit, pageSize))
	var pageToken string
	for len(items) < limit {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, p.classify(err)
		}

		call := p.service.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(uploadsID).
			MaxResults(int64(min(pageSize, limit-len(items)))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, p.classify(err)
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Snippet == nil || item.Snippet.ResourceId == nil {
				continue
			}
			items = append(items, model.RawItem{
				Kind:         model.ProviderAPI,
				VideoID:      item.Snippet.ResourceId.VideoId,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				Published:    item.Snippet.PublishedAt,
				ChannelTitle: item.Snippet.ChannelTitle,
				Thumbnail:    bestThumbnail(item.Snippet.Thumbnails),
			})
			if len(items) >= limit {
				break
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	log.Info().Str("channel_id", channelID).Int("count", len(items)).Msg("Videos retrieved from uploads playlist")
	return items, nil
}

// listFromSearch is the fallback retrieval path: a reverse-chronological
// search scoped to the channel, same pagination discipline.
func (p *APIProvider) listFromSearch(ctx context.Context, channelID string, limit int) ([]model.RawItem, error) {
	items := make([]model.RawItem, 0, min(limit, pageSize))
	var pageToken string
	for len(items) < limit {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, p.classify(err)
		}

		call := p.service.Search.List([]string{"snippet"}).
			ChannelId(channelID).
			Order("date").
			Type("video").
			MaxResults(int64(min(pageSize, limit-len(items)))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, p.classify(err)
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
				continue
			}
			items = append(items, model.RawItem{
				Kind:         model.ProviderAPI,
				VideoID:      item.Id.VideoId,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				Published:    item.Snippet.PublishedAt,
				ChannelTitle: item.Snippet.ChannelTitle,
				Thumbnail:    bestThumbnail(item.Snippet.Thumbnails),
			})
			if len(items) >= limit {
				break
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	log.Info().Str("channel_id", channelID).Int("count", len(items)).Msg("Videos retrieved via channel search")
	return items, nil
}

// bestThumbnail prefers the maximum-resolution provider thumbnail. Empty
// result means the normalizer synthesizes the conventional URL instead.
func bestThumbnail(details *ytapi.ThumbnailDetails) string {
	if details == nil {
		return ""
	}
	if details.Maxres != nil && details.Maxres.Url != "" {
		return details.Maxres.Url
	}
	if details.High != nil && details.High.Url != "" {
		return details.High.Url
	}
	return ""
}

// classify maps an API failure onto the provider error taxonomy.
func (p *APIProvider) classify(err error) error {
	var pe *model.ProviderError
	if errors.As(err, &pe) {
		return err
	}

	kind := model.ErrorTransient

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := strings.ToLower(apiErr.Message)
		reasons := make([]string, 0, len(apiErr.Errors))
		for _, item := range apiErr.Errors {
			reasons = append(reasons, item.Reason)
		}
		joined := strings.Join(reasons, ",")

		switch {
		case strings.Contains(joined, "quotaExceeded") ||
			strings.Contains(joined, "rateLimitExceeded") ||
			strings.Contains(joined, "dailyLimitExceeded") ||
			strings.Contains(message, "quota"):
			kind = model.ErrorQuotaExceeded
		case strings.Contains(joined, "keyInvalid") ||
			strings.Contains(joined, "keyExpired") ||
			strings.Contains(message, "api key not valid") ||
			strings.Contains(message, "invalid api key"):
			kind = model.ErrorInvalidCredential
		case strings.Contains(joined, "accessNotConfigured") ||
			strings.Contains(message, "has not been used") ||
			strings.Contains(message, "not enabled"):
			kind = model.ErrorFeatureDisabled
		case apiErr.Code == http.StatusNotFound:
			kind = model.ErrorNotFound
		}
	}

	return model.NewProviderError(model.ProviderAPI, kind, err)
}
