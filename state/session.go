// Package state holds the process-lifetime session cache. Nothing here is
// persisted: a restart starts from an empty cache.
package state

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dhageyso/dhageyso/model"
)

// Cache size limits to prevent unbounded memory growth.
const (
	defaultIdentifierCacheSize = 256
	defaultResultCacheSize     = 16
)

// SessionCache maps channel handles to resolved identifiers and keeps the
// most recent fetch result per handle. The resolver is the only writer of
// identifiers; the orchestrator reads them and stores results.
type SessionCache struct {
	identifiers *lru.Cache[string, string]
	results     *lru.Cache[string, []model.Video]
}

// NewSessionCache creates an empty session cache.
func NewSessionCache() (*SessionCache, error) {
	identifiers, err := lru.New[string, string](defaultIdentifierCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create identifier cache: %w", err)
	}

	results, err := lru.New[string, []model.Video](defaultResultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}

	return &SessionCache{
		identifiers: identifiers,
		results:     results,
	}, nil
}

// Identifier returns the cached channel identifier for a handle.
func (c *SessionCache) Identifier(handle string) (string, bool) {
	return c.identifiers.Get(handle)
}

// StoreIdentifier records a resolved identifier. Once stored it is treated
// as immutable for the process lifetime.
func (c *SessionCache) StoreIdentifier(handle, id string) {
	c.identifiers.Add(handle, id)
}

// Videos returns the last fetch result stored for a handle.
func (c *SessionCache) Videos(handle string) ([]model.Video, bool) {
	return c.results.Get(handle)
}

// StoreVideos records the latest fetch result for a handle.
func (c *SessionCache) StoreVideos(handle string, videos []model.Video) {
	c.results.Add(handle, videos)
}
