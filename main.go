package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dhageyso/dhageyso/client"
	"github.com/dhageyso/dhageyso/config"
	"github.com/dhageyso/dhageyso/model"
	"github.com/dhageyso/dhageyso/orchestrator"
	"github.com/dhageyso/dhageyso/resolver"
	"github.com/dhageyso/dhageyso/state"
	"github.com/dhageyso/dhageyso/summary"
)

var (
	configFile string
	maxResults int
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dhageyso",
		Short: "Channel video acquisition pipeline",
		Long: "Fetches a channel's video catalog through a fallback chain of providers " +
			"(structured API, relay-proxied syndication feed) and emits canonical records.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch channel videos and print them as JSON",
		RunE:  runFetch,
	}
	fetchCmd.Flags().IntVar(&maxResults, "max-results", 0, "Maximum videos to fetch (overrides config)")

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the channel handle to its stable identifier",
		RunE:  runResolve,
	}

	summarizeCmd := &cobra.Command{
		Use:   "summarize <title> <description>",
		Short: "Produce an advisory summary for a video",
		Args:  cobra.ExactArgs(2),
		RunE:  runSummarize,
	}

	rootCmd.AddCommand(fetchCmd, resolveCmd, summarizeCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// buildPipeline wires the session cache, resolver, providers, and
// orchestrator from configuration.
func buildPipeline(cfg *config.Config) (*orchestrator.Orchestrator, *resolver.Resolver, error) {
	cache, err := state.NewSessionCache()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	channelResolver := resolver.New(cache)

	var apiProvider client.VideoProvider
	if cfg.HasCredential() {
		provider, err := client.NewProvider(model.ProviderAPI, client.ProviderDeps{APIKey: cfg.APIKey})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create API provider: %w", err)
		}
		apiProvider = provider
	} else {
		log.Info().Msg("No API credential configured, starting at the syndication-feed provider")
	}

	feedProvider, err := client.NewProvider(model.ProviderFeed, client.ProviderDeps{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create feed provider: %w", err)
	}

	orch := orchestrator.New(orchestrator.Options{
		Handle:          cfg.ChannelHandle,
		ChannelName:     cfg.ChannelName,
		ManualChannelID: cfg.ChannelID,
		API:             apiProvider,
		Feed:            feedProvider,
		Resolver:        channelResolver,
		Cache:           cache,
		APITimeout:      cfg.APITimeout,
		FeedTimeout:     cfg.FeedTimeout,
		ResolveTimeout:  cfg.ResolveTimeout,
	})

	return orch, channelResolver, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	limit := cfg.MaxResults
	if maxResults > 0 {
		limit = maxResults
	}

	orch, _, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
	defer cancel()

	videos, advisory := orch.FetchChannelVideos(ctx, limit)
	if advisory != "" {
		fmt.Fprintln(os.Stderr, advisory)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(videos)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cfg.ChannelID != "" {
		fmt.Println(cfg.ChannelID)
		return nil
	}

	_, channelResolver, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.FetchTimeout)
	defer cancel()

	id, err := channelResolver.Resolve(ctx, cfg.ChannelHandle)
	if err != nil {
		return fmt.Errorf("could not resolve %s: %w", cfg.ChannelHandle, err)
	}
	fmt.Println(id)
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	generator := summary.NewClient(cfg.SummaryAPIKey)
	fmt.Println(generator.Summarize(cmd.Context(), args[0], args[1]))
	return nil
}
