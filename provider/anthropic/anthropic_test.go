//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package anthropic

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

func newMockServer(t *testing.T, captured *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_test",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-0",
			"content": [{"type": "text", "text": "Hello there"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
}

func TestGenerateParameterMutualExclusion(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float64
		topP        *float64
		wantField   string
		dropField   string
	}{
		{
			name:        "temperature only",
			temperature: provider.Float64Ptr(0.7),
			wantField:   "temperature",
			dropField:   "top_p",
		},
		{
			name:      "top_p only",
			topP:      provider.Float64Ptr(0.9),
			wantField: "top_p",
			dropField: "temperature",
		},
		{
			name:        "top_p wins over temperature",
			temperature: provider.Float64Ptr(0.7),
			topP:        provider.Float64Ptr(0.9),
			wantField:   "top_p",
			dropField:   "temperature",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any
			srv := newMockServer(t, &captured)
			defer srv.Close()

			c, err := New("claude-sonnet-4-0", WithAPIKey("test-key"), WithBaseURL(srv.URL))
			require.NoError(t, err)

			rsp, err := c.Generate(context.Background(), &provider.Request{
				Messages:    provider.UserPrompt("hi"),
				MaxTokens:   256,
				Temperature: tt.temperature,
				TopP:        tt.topP,
			})
			require.NoError(t, err)
			assert.Equal(t, "Hello there", rsp.Text)
			assert.Equal(t, 14, rsp.Usage.TotalTokens)
			assert.Contains(t, captured, tt.wantField)
			assert.NotContains(t, captured, tt.dropField)
		})
	}
}

func TestGenerateSplitsSystemMessages(t *testing.T) {
	var captured map[string]any
	srv := newMockServer(t, &captured)
	defer srv.Close()

	c, err := New("claude-sonnet-4-0", WithAPIKey("test-key"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "Judge strictly."},
			{Role: provider.RoleUser, Content: "hi"},
		},
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Contains(t, captured, "system")
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New("claude-sonnet-4-0")
	require.Error(t, err)
}
