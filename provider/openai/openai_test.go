//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package openai

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

func TestUsesCompletionTokens(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"o1-mini", true},
		{"o3", true},
		{"gpt-4o-mini", true},
		{"gpt-4.5-preview", true},
		{"gpt-5", true},
		{"gpt-4-turbo", false},
		{"gpt-3.5-turbo", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usesCompletionTokens(tt.model), tt.model)
	}
}

// newMockServer captures the request body and replies with a fixed
// completion.
func newMockServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "  hello  "}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 2, "total_tokens": 5}
		}`))
	}))
}

func TestGenerateTokenFieldSelection(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		wantField string
		dropField string
	}{
		{name: "legacy model", model: "gpt-4-turbo", wantField: "max_tokens", dropField: "max_completion_tokens"},
		{name: "newer family", model: "gpt-4o", wantField: "max_completion_tokens", dropField: "max_tokens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			srv := newMockServer(t, &captured)
			defer srv.Close()

			c, err := New(tt.model, WithAPIKey("test-key"), WithBaseURL(srv.URL))
			require.NoError(t, err)

			rsp, err := c.Generate(context.Background(), &provider.Request{
				Messages:    provider.UserPrompt("hi"),
				MaxTokens:   128,
				Temperature: provider.Float64Ptr(0.7),
			})
			require.NoError(t, err)
			assert.Equal(t, "hello", rsp.Text)
			assert.Equal(t, 5, rsp.Usage.TotalTokens)
			assert.Contains(t, captured, tt.wantField)
			assert.NotContains(t, captured, tt.dropField)
		})
	}
}

func TestGenerateDropsTopPForReasoningModels(t *testing.T) {
	var captured map[string]any
	srv := newMockServer(t, &captured)
	defer srv.Close()

	c, err := New("o1-mini", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{
		Messages:    provider.UserPrompt("hi"),
		MaxTokens:   64,
		Temperature: provider.Float64Ptr(0.3),
		TopP:        provider.Float64Ptr(0.9),
	})
	require.NoError(t, err)
	assert.NotContains(t, captured, "top_p")
	assert.Contains(t, captured, "temperature")
}

func TestGenerateRateLimitError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit reached", "type": "requests"}}`))
	}))
	defer srv.Close()

	c, err := New("gpt-4o", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{
		Messages:  provider.UserPrompt("hi"),
		MaxTokens: 16,
	})
	require.Error(t, err)
	assert.True(t, provider.IsRateLimit(err))
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("gpt-4o")
	require.Error(t, err)
}
