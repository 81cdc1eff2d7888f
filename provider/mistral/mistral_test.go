//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package mistral

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
)

func TestGenerateStringContent(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer test-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "bonjour"}}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 1, "total_tokens": 5}
		}`))
	}))
	defer srv.Close()

	c, err := New("mistral-small-latest", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	rsp, err := c.Generate(context.Background(), &provider.Request{
		Messages:    provider.UserPrompt("salut"),
		MaxTokens:   100,
		Temperature: provider.Float64Ptr(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", rsp.Text)
	assert.Equal(t, 5, rsp.Usage.TotalTokens)
	assert.Equal(t, "mistral-small-latest", captured["model"])
}

func TestGenerateBlockListContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": [
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"}
			]}}]
		}`))
	}))
	defer srv.Close()

	c, err := New("magistral-medium-latest", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	rsp, err := c.Generate(context.Background(), &provider.Request{
		Messages: provider.UserPrompt("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", rsp.Text)
}

func TestGenerateRateLimitStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message": "requests rate limit exceeded"}`))
	}))
	defer srv.Close()

	c, err := New("mistral-small-latest", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{
		Messages: provider.UserPrompt("hi"),
	})
	require.Error(t, err)
	assert.True(t, provider.IsRateLimit(err))
}
