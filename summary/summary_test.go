package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeWithoutKeyReturnsFallback(t *testing.T) {
	c := NewClient("")
	got := c.Summarize(context.Background(), "Title", "Description")
	assert.Equal(t, fallbackNoKey, got)
}

func TestSummarizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		var request generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		require.NotEmpty(t, request.Contents)
		require.NotEmpty(t, request.Contents[0].Parts)
		assert.Contains(t, request.Contents[0].Parts[0].Text, "Qeybta 1")

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Three key points."}]}}]}`))
	}))
	defer server.Close()

	c := NewClient("secret")
	c.endpoint = server.URL

	got := c.Summarize(context.Background(), "Qeybta 1", "Casharka koowaad")
	assert.Equal(t, "Three key points.", got)
}

func TestSummarizeEmptyCandidatesReturnsFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	c := NewClient("secret")
	c.endpoint = server.URL

	got := c.Summarize(context.Background(), "Title", "Description")
	assert.Equal(t, fallbackEmpty, got)
}

func TestSummarizeErrorPathsNeverError(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			c := NewClient("secret")
			c.endpoint = server.URL

			got := c.Summarize(context.Background(), "Title", "Description")
			assert.Equal(t, fallbackError, got)
		})
	}
}
