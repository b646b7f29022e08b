package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhageyso/dhageyso/config"
)

func TestBuildPipeline(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{
			name: "without API credential",
			cfg: config.Config{
				ChannelHandle:  "@Abdijaliil",
				ChannelName:    "Abdijaliil",
				MaxResults:     50,
				FetchTimeout:   30 * time.Second,
				APITimeout:     12 * time.Second,
				FeedTimeout:    20 * time.Second,
				ResolveTimeout: 3 * time.Second,
			},
		},
		{
			name: "with API credential",
			cfg: config.Config{
				ChannelHandle:  "@Abdijaliil",
				ChannelName:    "Abdijaliil",
				APIKey:         "test-key",
				MaxResults:     50,
				FetchTimeout:   30 * time.Second,
				APITimeout:     12 * time.Second,
				FeedTimeout:    20 * time.Second,
				ResolveTimeout: 3 * time.Second,
			},
		},
		{
			name: "with manual channel identifier",
			cfg: config.Config{
				ChannelHandle:  "@Abdijaliil",
				ChannelID:      "UCk3Pb4XjKVJjMYzv5rTmR5g",
				MaxResults:     50,
				FetchTimeout:   30 * time.Second,
				APITimeout:     12 * time.Second,
				FeedTimeout:    20 * time.Second,
				ResolveTimeout: 3 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, channelResolver, err := buildPipeline(&tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, orch)
			assert.NotNil(t, channelResolver)
		})
	}
}
