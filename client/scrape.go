package client

import (
	"context"
	"fmt"

	"github.com/dhageyso/dhageyso/model"
	"github.com/dhageyso/dhageyso/resolver"
)

// ScrapeProvider is the last-resort adapter. It only discovers channel
// identifiers by scanning page markup through the resolver; it never lists
// videos.
type ScrapeProvider struct {
	resolver *resolver.Resolver
}

// NewScrapeProvider creates a page-scrape adapter around the resolver.
func NewScrapeProvider(r *resolver.Resolver) *ScrapeProvider {
	return &ScrapeProvider{resolver: r}
}

// Kind returns the page-scrape provider kind.
func (p *ScrapeProvider) Kind() model.ProviderKind {
	return model.ProviderScrape
}

// ListVideos always fails with NotFound: scraping is for identifier
// discovery only.
func (p *ScrapeProvider) ListVideos(ctx context.Context, ref ChannelRef, limit int) ([]model.RawItem, error) {
	return nil, model.NewProviderError(model.ProviderScrape, model.ErrorNotFound,
		fmt.Errorf("page-scrape provider does not list videos"))
}

// DiscoverIdentifier resolves a handle through page-markup scanning.
func (p *ScrapeProvider) DiscoverIdentifier(ctx context.Context, handle string) (string, error) {
	id, err := p.resolver.Resolve(ctx, handle)
	if err != nil {
		return "", model.NewProviderError(model.ProviderScrape, model.ErrorNotFound, err)
	}
	return id, nil
}
