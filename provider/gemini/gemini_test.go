//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/evalops/evalforge/provider"
)

func TestBuildRequest(t *testing.T) {
	contents, config := buildRequest(&provider.Request{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: "Be concise."},
			{Role: provider.RoleUser, Content: "Hi"},
			{Role: provider.RoleAssistant, Content: "Hello"},
			{Role: provider.RoleUser, Content: "Bye"},
		},
		MaxTokens:   512,
		Temperature: provider.Float64Ptr(0.7),
		TopP:        provider.Float64Ptr(0.9),
	})

	require.NotNil(t, config.SystemInstruction)
	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
	assert.Equal(t, genai.RoleUser, contents[2].Role)
	assert.Equal(t, int32(512), config.MaxOutputTokens)
	require.NotNil(t, config.Temperature)
	assert.InDelta(t, 0.7, float64(*config.Temperature), 1e-6)
	require.NotNil(t, config.TopP)
	assert.InDelta(t, 0.9, float64(*config.TopP), 1e-6)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "gemini-2.0-flash")
	require.Error(t, err)
}
