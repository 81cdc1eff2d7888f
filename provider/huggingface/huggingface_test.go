//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package huggingface

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		assert.Contains(t, r.Header.Get("Authorization"), "Bearer")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "The answer is 4."}}],
			"usage": {"prompt_tokens": 7, "completion_tokens": 5, "total_tokens": 12}
		}`))
	}))
	defer srv.Close()

	c, err := New("meta-llama/Llama-3.1-8B-Instruct",
		WithAPIKey("hf-test"), WithBaseURL(srv.URL))
	require.NoError(t, err)

	rsp, err := c.Generate(context.Background(), &provider.Request{
		Messages:  provider.UserPrompt("What is 2+2?"),
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", rsp.Text)
	assert.Equal(t, 12, rsp.Usage.TotalTokens)
}

func TestNewValidation(t *testing.T) {
	t.Setenv("HF_API_KEY", "")

	_, err := New("")
	require.Error(t, err)

	_, err = New("meta-llama/Llama-3.1-8B-Instruct")
	require.Error(t, err)

	t.Setenv("HF_API_KEY", "from-env")
	c, err := New("meta-llama/Llama-3.1-8B-Instruct")
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.apiKey)
}
