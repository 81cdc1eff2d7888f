//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExperiment(t *testing.T) {
	payload := `{
		"project_id": "proj-1",
		"name": "baseline",
		"taskType": "chatbot",
		"model": {"name": "gpt-4o-mini", "accessMethod": "OpenAI"},
		"judgeLlm": {"provider": "openai", "model": "gpt-4o"},
		"dataset": {"useBuiltin": "chatbot"},
		"metrics": {"Answer Relevancy": true},
		"thresholds": {"Answer Relevancy": 0.7}
	}`
	cfg, err := LoadExperiment(strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, "proj-1", cfg.ProjectID)
	assert.Equal(t, "openai", cfg.Model.ProviderTag())
	assert.Equal(t, ModeBoth, cfg.Mode())
	assert.True(t, cfg.Metrics["Answer Relevancy"])
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExperimentConfig)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(*ExperimentConfig) {},
		},
		{
			name:    "missing model",
			mutate:  func(c *ExperimentConfig) { c.Model.Name = "" },
			wantErr: ErrMissingModel,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *ExperimentConfig) { c.Model.Provider = "bedrock" },
			wantErr: ErrUnknownProvider,
		},
		{
			name:    "bad mode",
			mutate:  func(c *ExperimentConfig) { c.EvaluationMode = "turbo" },
			wantErr: ErrInvalidMode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ExperimentConfig{
				Model: ModelConfig{Name: "gpt-4o", Provider: "openai"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestArenaValidate(t *testing.T) {
	cfg := &ArenaConfig{
		Name:       "gpt vs claude",
		JudgeModel: "gpt-4o",
		Contestants: []ArenaContestant{
			{Name: "gpt-4o", Hyperparameters: map[string]any{"provider": "openai", "model": "gpt-4o"}},
			{Name: "claude", Hyperparameters: map[string]any{"provider": "anthropic", "model": "claude-sonnet-4-0"}},
		},
	}
	require.NoError(t, cfg.Validate())

	cfg.Contestants = cfg.Contestants[:1]
	require.Error(t, cfg.Validate())
}

func TestCredentialsResolution(t *testing.T) {
	old := lookupEnv
	t.Cleanup(func() { lookupEnv = old })
	env := map[string]string{
		"OPENAI_API_KEY": "env-openai",
		"GEMINI_API_KEY": "env-gemini",
	}
	lookupEnv = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := &ExperimentConfig{
		Model:    ModelConfig{Name: "gpt-4o", Provider: "openai", APIKey: "inline-key"},
		JudgeLLM: JudgeLLMConfig{Provider: "google", Model: "gemini-2.0-flash"},
	}

	// Inline key beats env.
	assert.Equal(t, "inline-key", cfg.ModelCredentials().APIKey)

	// Judge falls back through the env chain: GOOGLE then GEMINI.
	assert.Equal(t, "env-gemini", cfg.JudgeCredentials().APIKey)

	// scorerApiKeys is consulted before env.
	cfg.Model.APIKey = ""
	cfg.ScorerAPIKeys = map[string]string{"openai": "scorer-key"}
	assert.Equal(t, "scorer-key", cfg.ModelCredentials().APIKey)
}

func TestScrubRemovesSecretsAtAnyDepth(t *testing.T) {
	payload := map[string]any{
		"name": "exp",
		"model": map[string]any{
			"name":   "gpt-4o",
			"apiKey": "sk-secret",
		},
		"scorerApiKeys": map[string]any{"openai": "sk-other"},
		"contestants": []any{
			map[string]any{"name": "a", "api_key": "sk-nested"},
		},
	}
	clean := Scrub(payload)

	model := clean["model"].(map[string]any)
	assert.NotContains(t, model, "apiKey")
	assert.Equal(t, "gpt-4o", model["name"])
	assert.NotContains(t, clean, "scorerApiKeys")
	contestant := clean["contestants"].([]any)[0].(map[string]any)
	assert.NotContains(t, contestant, "api_key")

	// Original payload is untouched.
	assert.Equal(t, "sk-secret", payload["model"].(map[string]any)["apiKey"])
}
