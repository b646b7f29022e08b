package client

import (
	"fmt"

	"github.com/dhageyso/dhageyso/model"
	"github.com/dhageyso/dhageyso/resolver"
)

// ProviderDeps carries the collaborators a provider may need.
type ProviderDeps struct {
	// APIKey is the optional structured-API credential.
	APIKey string

	// Resolver backs the page-scrape adapter.
	Resolver *resolver.Resolver
}

// NewProvider creates a provider adapter for the given kind.
func NewProvider(kind model.ProviderKind, deps ProviderDeps) (VideoProvider, error) {
	switch kind {
	case model.ProviderAPI:
		return NewAPIProvider(deps.APIKey)
	case model.ProviderFeed:
		return NewFeedProvider(), nil
	case model.ProviderScrape:
		if deps.Resolver == nil {
			return nil, fmt.Errorf("scrape provider requires a resolver")
		}
		return NewScrapeProvider(deps.Resolver), nil
	default:
		return nil, fmt.Errorf("unsupported provider kind: %s", kind)
	}
}
