// Package client implements the provider adapters the orchestrator
// composes: the credentialed structured-API adapter, the relay-proxied
// syndication-feed adapter, and the page-scrape identifier adapter.
package client

import (
	"context"

	"github.com/dhageyso/dhageyso/model"
)

// ChannelRef locates a channel for a provider. Handle is always set; ID is
// the stable identifier when known, empty otherwise. Adapters that require
// an identifier fail with NotFound when it is absent.
type ChannelRef struct {
	// Handle is the human-readable reference, e.g. "@Abdijaliil".
	Handle string

	// ID is the opaque stable identifier (UC-prefixed), possibly empty.
	ID string
}

// VideoProvider is the common listing capability all adapters implement.
// Errors are classified model.ProviderError values so the orchestrator can
// apply its demotion policy.
type VideoProvider interface {
	// ListVideos retrieves up to limit raw items in provider-reported
	// order (assumed most-recent-first). An empty slice with nil error is
	// a legitimate "nothing there" outcome.
	ListVideos(ctx context.Context, ref ChannelRef, limit int) ([]model.RawItem, error)

	// Kind returns which adapter this is.
	Kind() model.ProviderKind
}

// IdentifierDiscoverer is the extra capability of adapters that can turn a
// handle into a stable channel identifier.
type IdentifierDiscoverer interface {
	DiscoverIdentifier(ctx context.Context, handle string) (string, error)
}
