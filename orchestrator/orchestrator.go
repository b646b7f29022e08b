// Package orchestrator composes the provider adapters into the single
// fetchChannelVideos entry point, applying the fallback/priority policy:
// credentialed API first, then the syndication feed by identifier, then the
// feed by raw handle. Ordinary degraded conditions never produce an error;
// the best obtainable list is returned, possibly empty, with at most one
// advisory.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dhageyso/dhageyso/client"
	"github.com/dhageyso/dhageyso/model"
	"github.com/dhageyso/dhageyso/normalize"
	"github.com/dhageyso/dhageyso/state"
)

// Default per-step bounds. Relay timeouts inside the adapters are shorter;
// the caller is expected to bound the whole fetch at ~30s.
const (
	defaultAPITimeout     = 12 * time.Second
	defaultFeedTimeout    = 20 * time.Second
	defaultResolveTimeout = 3 * time.Second
)

// IdentifierResolver is the slice of the resolver the orchestrator needs.
type IdentifierResolver interface {
	Resolve(ctx context.Context, handle string) (string, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Handle is the channel's human-readable reference.
	Handle string

	// ChannelName is the provenance display name for records whose
	// provider payload does not carry one.
	ChannelName string

	// ManualChannelID is an optional pre-known identifier; it bypasses
	// resolution entirely.
	ManualChannelID string

	// API is the credentialed provider, nil when no credential is
	// configured.
	API client.VideoProvider

	// Feed is the syndication-feed provider.
	Feed client.VideoProvider

	// Resolver discovers identifiers from page markup.
	Resolver IdentifierResolver

	// Cache is the process-wide session cache.
	Cache *state.SessionCache

	APITimeout     time.Duration
	FeedTimeout    time.Duration
	ResolveTimeout time.Duration
}

// Orchestrator runs the acquisition policy. One instance serves the whole
// process; per-call state lives in fetchState.
type Orchestrator struct {
	opts       Options
	normalizer *normalize.Normalizer
}

// fetchState tracks one call's policy decisions: which providers have been
// demoted and the highest-priority configuration diagnostic seen so far.
type fetchState struct {
	fetchID  string
	demoted  map[model.ProviderKind]bool
	advisory string
}

// New creates an orchestrator. Zero timeouts take defaults.
func New(opts Options) *Orchestrator {
	if opts.APITimeout == 0 {
		opts.APITimeout = defaultAPITimeout
	}
	if opts.FeedTimeout == 0 {
		opts.FeedTimeout = defaultFeedTimeout
	}
	if opts.ResolveTimeout == 0 {
		opts.ResolveTimeout = defaultResolveTimeout
	}
	if opts.Cache == nil {
		opts.Cache, _ = state.NewSessionCache()
	}
	return &Orchestrator{
		opts:       opts,
		normalizer: normalize.New(),
	}
}

// FetchChannelVideos returns up to limit canonical videos in provider
// order along with at most one advisory message. It never returns an error
// for ordinary degraded conditions; when everything fails the list is empty
// and the advisory (if any) names the configuration problem.
func (o *Orchestrator) FetchChannelVideos(ctx context.Context, limit int) ([]model.Video, string) {
	st := &fetchState{
		fetchID: uuid.NewString(),
		demoted: make(map[model.ProviderKind]bool),
	}

	log.Info().
		Str("fetch_id", st.fetchID).
		Str("handle", o.opts.Handle).
		Int("limit", limit).
		Msg("Fetching channel videos")

	if limit <= 0 {
		return []model.Video{}, ""
	}

	// Step 1: credentialed structured API, when configured.
	if videos := o.tryAPI(ctx, st, limit); len(videos) > 0 {
		return o.finish(st, videos)
	}

	// Step 2: syndication feed with a known or resolvable identifier.
	if id := o.channelID(ctx, st); id != "" {
		if videos := o.tryFeed(ctx, st, client.ChannelRef{Handle: o.opts.Handle, ID: id}, limit); len(videos) > 0 {
			return o.finish(st, videos)
		}
	}

	// Step 3: feed keyed by the raw handle, covering failed resolution.
	if videos := o.tryFeed(ctx, st, client.ChannelRef{Handle: o.opts.Handle}, limit); len(videos) > 0 {
		return o.finish(st, videos)
	}

	log.Warn().
		Str("fetch_id", st.fetchID).
		Str("advisory", st.advisory).
		Msg("All providers returned empty")
	return []model.Video{}, st.advisory
}

func (o *Orchestrator) finish(st *fetchState, videos []model.Video) ([]model.Video, string) {
	o.opts.Cache.StoreVideos(o.opts.Handle, videos)
	log.Info().
		Str("fetch_id", st.fetchID).
		Int("count", len(videos)).
		Msg("Channel videos fetched")
	// Success never carries an advisory: a compensating provider worked.
	return videos, ""
}

func (o *Orchestrator) tryAPI(ctx context.Context, st *fetchState, limit int) []model.Video {
	if o.opts.API == nil || st.demoted[model.ProviderAPI] {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.APITimeout)
	defer cancel()

	// Discover and cache the identifier up front when unknown, so the
	// feed fallback can reuse it even if listing fails later.
	if o.knownChannelID() == "" {
		if discoverer, ok := o.opts.API.(client.IdentifierDiscoverer); ok {
			if id, err := discoverer.DiscoverIdentifier(callCtx, o.opts.Handle); err == nil {
				o.opts.Cache.StoreIdentifier(o.opts.Handle, id)
			}
		}
	}

	ref := client.ChannelRef{Handle: o.opts.Handle, ID: o.knownChannelID()}
	items, err := o.opts.API.ListVideos(callCtx, ref, limit)
	if err != nil {
		o.recordFailure(st, model.ProviderAPI, err)
		return nil
	}

	return o.normalizeItems(st, items, ref.ID)
}

func (o *Orchestrator) tryFeed(ctx context.Context, st *fetchState, ref client.ChannelRef, limit int) []model.Video {
	if st.demoted[model.ProviderFeed] {
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.FeedTimeout)
	defer cancel()

	items, err := o.opts.Feed.ListVideos(callCtx, ref, limit)
	if err != nil {
		o.recordFailure(st, model.ProviderFeed, err)
		return nil
	}

	return o.normalizeItems(st, items, ref.ID)
}

// channelID returns the manual or cached identifier, or attempts a bounded
// resolution. Resolution failure is recoverable; "" means proceed without.
func (o *Orchestrator) channelID(ctx context.Context, st *fetchState) string {
	if id := o.knownChannelID(); id != "" {
		return id
	}
	if o.opts.Resolver == nil {
		return ""
	}

	resolveCtx, cancel := context.WithTimeout(ctx, o.opts.ResolveTimeout)
	defer cancel()

	id, err := o.opts.Resolver.Resolve(resolveCtx, o.opts.Handle)
	if err != nil {
		log.Debug().
			Str("fetch_id", st.fetchID).
			Err(err).
			Msg("Identifier resolution failed, proceeding without")
		return ""
	}
	return id
}

func (o *Orchestrator) knownChannelID() string {
	if o.opts.ManualChannelID != "" {
		return o.opts.ManualChannelID
	}
	if id, ok := o.opts.Cache.Identifier(o.opts.Handle); ok {
		return id
	}
	return ""
}

// recordFailure applies the demotion policy: quota and transient failures
// demote the provider for the remainder of this call; configuration-class
// failures become the advisory candidate but also move on to the next
// provider.
func (o *Orchestrator) recordFailure(st *fetchState, provider model.ProviderKind, err error) {
	kind := model.KindOf(err)

	log.Warn().
		Str("fetch_id", st.fetchID).
		Str("provider", string(provider)).
		Str("kind", string(kind)).
		Err(err).
		Msg("Provider failed, falling through")

	if model.IsConfigClass(kind) {
		// Credential problems outrank everything already recorded.
		st.advisory = advisoryFor(kind)
		return
	}
	if kind == model.ErrorNotFound {
		// Absence is recoverable; the same provider may still succeed
		// with a different channel reference.
		return
	}
	st.demoted[provider] = true
}

func advisoryFor(kind model.ErrorKind) string {
	switch kind {
	case model.ErrorInvalidCredential:
		return "The configured API key was rejected. Check the credential in your configuration."
	case model.ErrorFeatureDisabled:
		return "The video data API is not enabled for the configured credential."
	default:
		return ""
	}
}

func (o *Orchestrator) normalizeItems(st *fetchState, items []model.RawItem, channelID string) []model.Video {
	if len(items) == 0 {
		return nil
	}
	if channelID == "" {
		channelID = o.knownChannelID()
	}

	videos, dropped := o.normalizer.NormalizeAll(items, channelID, o.opts.ChannelName)
	if dropped > 0 {
		log.Warn().
			Str("fetch_id", st.fetchID).
			Int("dropped", dropped).
			Msg("Dropped items without an extractable video identifier")
	}
	return videos
}
