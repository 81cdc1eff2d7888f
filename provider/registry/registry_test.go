//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
)

func TestBuiltinTagsRegistered(t *testing.T) {
	for _, tag := range []string{
		"openai", "custom_api", "xai", "openrouter", "anthropic",
		"google", "gemini", "ollama", "mistral", "huggingface", "local",
	} {
		_, ok := Get(tag)
		assert.True(t, ok, tag)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), "bedrock", "some-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewNormalizesTag(t *testing.T) {
	c, err := New(context.Background(), "  OpenAI ", "gpt-4o", WithAPIKey("k"))
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewMissingKeyFailsFast(t *testing.T) {
	_, err := New(context.Background(), "anthropic", "claude-sonnet-4-0")
	require.Error(t, err)
}

func TestCustomBuilderRoundTrip(t *testing.T) {
	fake := struct{ provider.Client }{}
	Register("faketest", func(_ context.Context, _ *Options) (provider.Client, error) {
		return fake, nil
	})
	c, err := New(context.Background(), "faketest", "m")
	require.NoError(t, err)
	require.NotNil(t, c)
}
