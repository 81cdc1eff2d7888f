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
	"os"
	"strings"
)

// envKeysByProvider maps a provider tag to the environment variables
// consulted, in order, when the payload carries no inline key.
var envKeysByProvider = map[string][]string{
	"openai":      {"OPENAI_API_KEY"},
	"anthropic":   {"ANTHROPIC_API_KEY"},
	"google":      {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"gemini":      {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"xai":         {"XAI_API_KEY"},
	"mistral":     {"MISTRAL_API_KEY"},
	"huggingface": {"HF_API_KEY"},
	"local":       {"HF_API_KEY"},
	"openrouter":  {"OPENROUTER_API_KEY"},
	"custom_api":  {"OPENAI_API_KEY"},
}

// Credentials is the per-call secret bundle threaded through provider
// construction. Keys never touch process env or the durable store.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// lookupEnv is swapped in tests.
var lookupEnv = os.LookupEnv

// CredentialsFor resolves credentials for the given provider, trying
// the inline key first and the provider's env vars after.
func CredentialsFor(provider, inlineKey string) Credentials {
	creds := Credentials{APIKey: strings.TrimSpace(inlineKey)}
	if creds.APIKey != "" {
		return creds
	}
	for _, name := range envKeysByProvider[strings.ToLower(provider)] {
		if v, ok := lookupEnv(name); ok && v != "" {
			creds.APIKey = v
			break
		}
	}
	return creds
}

// ModelCredentials resolves the credentials for the target model. The
// payload key wins, then scorerApiKeys for the same provider, then env.
func (c *ExperimentConfig) ModelCredentials() Credentials {
	tag := c.Model.ProviderTag()
	inline := c.Model.APIKey
	if inline == "" {
		inline = c.ScorerAPIKeys[tag]
	}
	creds := CredentialsFor(tag, inline)
	creds.BaseURL = c.Model.EndpointURL
	if creds.BaseURL == "" && (tag == "custom_api" || tag == "openai") {
		if v, ok := lookupEnv("OPENAI_API_BASE"); ok {
			creds.BaseURL = v
		}
	}
	return creds
}

// JudgeCredentials resolves the credentials for the judge model.
func (c *ExperimentConfig) JudgeCredentials() Credentials {
	tag := strings.ToLower(c.JudgeLLM.Provider)
	inline := c.JudgeLLM.APIKey
	if inline == "" {
		inline = c.ScorerAPIKeys[tag]
	}
	return CredentialsFor(tag, inline)
}

// ContestantCredentials resolves credentials for one arena contestant
// from the comparison-level key map.
func (c *ArenaConfig) ContestantCredentials(contestant ArenaContestant) Credentials {
	tag := contestant.Provider()
	return CredentialsFor(tag, c.APIKeys[tag])
}
