// Package common holds small helpers shared by the resolver and the
// provider adapters: a bounded HTTP fetch and the ordered-attempt
// combinator that backs every relay fallback sequence.
package common

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const userAgent = "Mozilla/5.0 Dhageyso/1.0"

// maxFetchBody caps relay response bodies. Channel pages run a few MB;
// anything past this is not something we parse.
const maxFetchBody = 8 << 20

// FetchWithTimeout performs a GET bounded by the given timeout and returns
// the response body. The timeout is independent of the caller's context
// deadline; whichever expires first cancels the request.
func FetchWithTimeout(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status code %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
