//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package config defines the request payloads the engine is handed by
// the API layer, plus credential resolution and secret scrubbing.
// Upstream routing and tenant-header parsing are assumed to have
// produced a validated (tenant, config) pair already.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Evaluation modes.
const (
	// ModeScorer runs only custom scorers.
	ModeScorer = "scorer"
	// ModeStandard runs only built-in metrics.
	ModeStandard = "standard"
	// ModeBoth runs both. Default when the mode is missing.
	ModeBoth = "both"
)

// Task types.
const (
	TaskChatbot = "chatbot"
	TaskRAG     = "rag"
	TaskAgent   = "agent"
	TaskSafety  = "safety"
)

var (
	// ErrUnknownProvider is returned for a provider tag the engine
	// does not support.
	ErrUnknownProvider = errors.New("config: unknown provider")
	// ErrMissingModel is returned when the target model is not named.
	ErrMissingModel = errors.New("config: model name is required")
	// ErrInvalidMode is returned for an unrecognized evaluation mode.
	ErrInvalidMode = errors.New("config: invalid evaluation mode")
)

// knownProviders are the normalized lowercase provider tags.
var knownProviders = map[string]bool{
	"openai":      true,
	"anthropic":   true,
	"google":      true,
	"gemini":      true,
	"xai":         true,
	"mistral":     true,
	"ollama":      true,
	"huggingface": true,
	"openrouter":  true,
	"local":       true,
	"custom_api":  true,
}

// ModelConfig names the target model of an experiment.
type ModelConfig struct {
	Name string `json:"name"`
	// Provider and AccessMethod are aliases; older payloads use
	// accessMethod.
	Provider     string `json:"provider,omitempty"`
	AccessMethod string `json:"accessMethod,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	EndpointURL  string `json:"endpointUrl,omitempty"`
}

// ProviderTag returns the normalized lowercase provider tag.
func (m ModelConfig) ProviderTag() string {
	tag := m.Provider
	if tag == "" {
		tag = m.AccessMethod
	}
	return strings.ToLower(strings.TrimSpace(tag))
}

// JudgeLLMConfig names the judge model of an experiment.
type JudgeLLMConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	APIKey    string `json:"apiKey,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

// DatasetConfig references the evaluation inputs. The fields are
// mutually exclusive, in priority order: inline prompts/conversations,
// the built-in preset name, then a custom path.
type DatasetConfig struct {
	UseBuiltin    string           `json:"useBuiltin,omitempty"`
	Path          string           `json:"path,omitempty"`
	Prompts       []PromptSample   `json:"prompts,omitempty"`
	Conversations []Conversation   `json:"conversations,omitempty"`
	SimulatedMode bool             `json:"simulatedMode,omitempty"`
	Scenarios     []ScenarioSample `json:"scenarios,omitempty"`
	MaxTurns      int              `json:"maxTurns,omitempty"`
}

// PromptSample is one single-turn evaluation input.
type PromptSample struct {
	ID             string   `json:"id,omitempty"`
	Prompt         string   `json:"prompt"`
	ExpectedOutput string   `json:"expected_output,omitempty"`
	Category       string   `json:"category,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	Context        []string `json:"context,omitempty"`
}

// ConversationTurn is one message of a recorded conversation.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one multi-turn evaluation input.
type Conversation struct {
	Scenario        string             `json:"scenario,omitempty"`
	ExpectedOutcome string             `json:"expected_outcome,omitempty"`
	Turns           []ConversationTurn `json:"turns"`
}

// ScenarioSample drives one simulated conversation.
type ScenarioSample struct {
	Scenario        string `json:"scenario"`
	ExpectedOutcome string `json:"expected_outcome,omitempty"`
	UserDescription string `json:"user_description,omitempty"`
}

// ExperimentConfig is the full experiment request payload.
type ExperimentConfig struct {
	ProjectID       string             `json:"project_id"`
	Name            string             `json:"name"`
	Description     string             `json:"description,omitempty"`
	TaskType        string             `json:"taskType,omitempty"`
	EvaluationMode  string             `json:"evaluationMode,omitempty"`
	Model           ModelConfig        `json:"model"`
	JudgeLLM        JudgeLLMConfig     `json:"judgeLlm"`
	Dataset         DatasetConfig      `json:"dataset"`
	Metrics         map[string]bool    `json:"metrics,omitempty"`
	Thresholds      map[string]float64 `json:"thresholds,omitempty"`
	SelectedScorers []string           `json:"selectedScorers,omitempty"`
	ScorerAPIKeys   map[string]string  `json:"scorerApiKeys,omitempty"`
}

// Mode returns the effective evaluation mode, defaulting to ModeBoth.
func (c *ExperimentConfig) Mode() string {
	switch c.EvaluationMode {
	case ModeScorer, ModeStandard, ModeBoth:
		return c.EvaluationMode
	case "":
		return ModeBoth
	default:
		return c.EvaluationMode
	}
}

// Validate performs pre-flight checks that must fail the experiment
// before any logs are created.
func (c *ExperimentConfig) Validate() error {
	if c.Model.Name == "" {
		return ErrMissingModel
	}
	tag := c.Model.ProviderTag()
	if !knownProviders[tag] {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
	switch c.EvaluationMode {
	case "", ModeScorer, ModeStandard, ModeBoth:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.EvaluationMode)
	}
	return nil
}

// ArenaContestant is one contestant of an arena comparison.
type ArenaContestant struct {
	Name            string         `json:"name"`
	Hyperparameters map[string]any `json:"hyperparameters"`
}

// Provider returns the contestant's provider tag.
func (c ArenaContestant) Provider() string {
	if v, ok := c.Hyperparameters["provider"].(string); ok {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return ""
}

// Model returns the contestant's model name.
func (c ArenaContestant) Model() string {
	if v, ok := c.Hyperparameters["model"].(string); ok {
		return v
	}
	return ""
}

// ArenaMetric carries the judging criteria of a comparison.
type ArenaMetric struct {
	// Name is a comma-separated list of criteria.
	Name        string `json:"name"`
	Criteria    string `json:"criteria"`
	DatasetPath string `json:"datasetPath"`
}

// ArenaConfig is the full arena comparison request payload.
type ArenaConfig struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	OrgID       string            `json:"orgId,omitempty"`
	Contestants []ArenaContestant `json:"contestants"`
	Metric      ArenaMetric       `json:"metric"`
	JudgeModel  string            `json:"judgeModel"`
	APIKeys     map[string]string `json:"apiKeys,omitempty"`
}

// Validate performs pre-flight checks on an arena payload.
func (c *ArenaConfig) Validate() error {
	if len(c.Contestants) < 2 {
		return errors.New("config: at least two contestants are required")
	}
	if c.JudgeModel == "" {
		return errors.New("config: judge model is required")
	}
	for _, contestant := range c.Contestants {
		if contestant.Name == "" {
			return errors.New("config: contestant name is required")
		}
		if tag := contestant.Provider(); tag != "" && !knownProviders[tag] {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
		}
	}
	return nil
}

// LoadExperiment decodes an experiment config from a reader.
func LoadExperiment(r io.Reader) (*ExperimentConfig, error) {
	var cfg ExperimentConfig
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode experiment config: %w", err)
	}
	return &cfg, nil
}

// LoadExperimentFile decodes an experiment config from a file.
func LoadExperimentFile(path string) (*ExperimentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadExperiment(f)
}

// LoadArena decodes an arena config from a reader.
func LoadArena(r io.Reader) (*ArenaConfig, error) {
	var cfg ArenaConfig
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode arena config: %w", err)
	}
	return &cfg, nil
}

// LoadArenaFile decodes an arena config from a file.
func LoadArenaFile(path string) (*ArenaConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return LoadArena(f)
}
