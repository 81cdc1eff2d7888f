//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
)

func TestValidModelName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"llama3.2:latest", true},
		{"library/qwen2.5-coder:7b", true},
		{"mistral", true},
		{"-leading-dash", false},
		{"has space", false},
		{"semi;colon", false},
		{strings.Repeat("a", 129), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidModelName(tt.name), tt.name)
	}
}

func TestGeneratePullsMissingModel(t *testing.T) {
	var pulled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models": [{"name": "other:latest"}]}`))
		case "/api/pull":
			pulled = true
			_, _ = w.Write([]byte(`{"status": "success"}`))
		case "/api/chat":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "llama3.2", req["model"])
			opts := req["options"].(map[string]any)
			assert.EqualValues(t, 256, opts["num_predict"])
			_, _ = w.Write([]byte(`{"model": "llama3.2", "message": {"role": "assistant", "content": "hi there"}, "done": true, "prompt_eval_count": 5, "eval_count": 3}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New("llama3.2", WithHost(srv.URL))
	require.NoError(t, err)

	rsp, err := c.Generate(context.Background(), &provider.Request{
		Messages:  provider.UserPrompt("hello"),
		MaxTokens: 256,
	})
	require.NoError(t, err)
	assert.True(t, pulled)
	assert.Equal(t, "hi there", rsp.Text)
	assert.Equal(t, 8, rsp.Usage.TotalTokens)
}

func TestEnsureModelConcurrentCallsPullOnce(t *testing.T) {
	var tagsCalls, pullCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			tagsCalls.Add(1)
			_, _ = w.Write([]byte(`{"models": []}`))
		case "/api/pull":
			pullCalls.Add(1)
			_, _ = w.Write([]byte(`{"status": "success"}`))
		case "/api/chat":
			_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "ok"}, "done": true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New("llama3.2", WithHost(srv.URL))
	require.NoError(t, err)

	// One client shared across goroutines, as the generation pool does.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Generate(context.Background(), &provider.Request{
				Messages: provider.UserPrompt("hello"),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, tagsCalls.Load())
	assert.EqualValues(t, 1, pullCalls.Load())
}

func TestGenerateSkipsPullForInvalidName(t *testing.T) {
	var pullCalled bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/pull", "/api/tags":
			pullCalled = true
			_, _ = w.Write([]byte(`{}`))
		case "/api/chat":
			_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "ok"}, "done": true}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New("bad name!", WithHost(srv.URL))
	require.NoError(t, err)

	rsp, err := c.Generate(context.Background(), &provider.Request{
		Messages: provider.UserPrompt("hello"),
	})
	require.NoError(t, err)
	assert.False(t, pullCalled)
	assert.Equal(t, "ok", rsp.Text)
}
