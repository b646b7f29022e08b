// Package summary is the one-shot text-summary collaborator: given a
// video's title and description it returns an advisory free-text summary.
// Every failure path returns a fixed fallback string; callers never see an
// error.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Fallback strings, bilingual to match the channel's audience.
const (
	fallbackNoKey = "AI Summary is unavailable without an API Key. / Soo koobidaha AI ma heli karo iyadoon furaha API ahayn."
	fallbackEmpty = "Unable to summarize the video at this time. / Ma suurtogal ahayn in la soo koobo fiidiyowga hadda."
	fallbackError = "An error occurred while trying to summarize the video. / Qalad ayaa dhacay markii la isku dayayay in la soo koobo fiidiyowga."
)

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	requestTimeout  = 15 * time.Second
)

// Generator produces a summary for a title/description pair.
type Generator interface {
	Summarize(ctx context.Context, title, description string) string
}

// Client calls a hosted text-generation endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a summary client. An empty key is allowed; Summarize
// then returns the no-key fallback without a network call.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

// Summarize returns an advisory summary, or a fixed fallback on any
// failure.
func (c *Client) Summarize(ctx context.Context, title, description string) string {
	if c.apiKey == "" {
		return fallbackNoKey
	}

	prompt := fmt.Sprintf(
		"As a smart video assistant, summarize this video in 3 key interesting points. "+
			"Respond in both Somali and English languages (mix both languages naturally):\nTitle: %s\nDescription: %s",
		title, description)

	request := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode summary request")
		return fallbackError
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		log.Error().Err(err).Msg("Failed to create summary request")
		return fallbackError
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Summary request failed")
		return fallbackError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("Summary endpoint returned non-OK status")
		return fallbackError
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		log.Warn().Err(err).Msg("Failed to decode summary response")
		return fallbackError
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return fallbackEmpty
	}
	text := response.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return fallbackEmpty
	}
	return text
}
