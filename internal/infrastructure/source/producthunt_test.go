package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuukiLike/cc-catch-news/internal/config"
)

func TestProductHunt_Fetch(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ph-token", r.Header.Get("Authorization"))

		var req phRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-03-01T00:00:00Z", req.Variables["postedAfter"])
		assert.Equal(t, "artificial-intelligence", req.Variables["topic"])

		_, _ = w.Write([]byte(`{"data":{"posts":{"edges":[
			{"node":{"id":"p1","name":"AgentKit","tagline":"Build agents","url":"https://www.producthunt.com/posts/agentkit","votesCount":321,"website":"https://agentkit.dev","createdAt":"2026-03-01T07:00:00Z","topics":{"edges":[{"node":{"name":"Artificial Intelligence"}}]}}},
			{"node":{"id":"p2","name":"NoSite","tagline":"Only PH","url":"https://www.producthunt.com/posts/nosite","votesCount":4,"website":"","createdAt":"2026-03-01T08:00:00Z","topics":{"edges":[]}}}
		]}}}`))
	}))
	t.Cleanup(server.Close)

	ph := NewProductHunt(config.ProductHuntConfig{Token: "ph-token", Endpoint: server.URL}, fastRetrier(), nil)
	require.True(t, ph.Enabled())

	articles, err := ph.Fetch(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "AgentKit — Build agents", articles[0].Title)
	assert.Equal(t, "https://agentkit.dev", articles[0].URL)
	assert.Equal(t, 321, *articles[0].Score)
	assert.Equal(t, "https://www.producthunt.com/posts/agentkit", articles[0].Meta["phUrl"])
	assert.Equal(t, []string{"Artificial Intelligence"}, articles[0].Meta["topics"])
	assert.Equal(t, "producthunt", articles[0].SourceName)

	assert.Equal(t, "https://www.producthunt.com/posts/nosite", articles[1].URL)
}

func TestProductHunt_GraphQLErrorIsRetriedThenReturned(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	t.Cleanup(server.Close)

	ph := NewProductHunt(config.ProductHuntConfig{Token: "t", Endpoint: server.URL}, fastRetrier(), nil)
	_, err := ph.Fetch(context.Background(), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Equal(t, int32(2), calls.Load())
}

func TestProductHunt_DisabledWithoutToken(t *testing.T) {
	t.Parallel()

	ph := NewProductHunt(config.ProductHuntConfig{}, nil, nil)
	assert.False(t, ph.Enabled())

	articles, err := ph.Fetch(context.Background(), time.Now())
	assert.NoError(t, err)
	assert.Empty(t, articles)
}
