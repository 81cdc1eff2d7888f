//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package metric

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"github.com/evalops/evalforge/internal/jsonx"
	"github.com/evalops/evalforge/provider"
)

// Judge environment overrides.
const (
	EnvJudgeProvider    = "G_EVAL_PROVIDER"
	EnvJudgeModel       = "G_EVAL_MODEL"
	EnvJudgeMaxTokens   = "G_EVAL_MAX_TOKENS"
	EnvJudgeTemperature = "G_EVAL_TEMPERATURE"

	defaultJudgeMaxTokens = 512
	// unparseableReason is returned when neither JSON nor a bare
	// number can be pulled out of the judge response.
	unparseableReason = "Unable to parse judge response"
)

// JudgeSettings resolves which judge model to use. Environment
// variables override the experiment payload.
type JudgeSettings struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// ResolveJudgeSettings merges payload values with G_EVAL_* overrides.
func ResolveJudgeSettings(provider, model string, maxTokens int) JudgeSettings {
	s := JudgeSettings{
		Provider:    provider,
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: 0.0,
	}
	if v := os.Getenv(EnvJudgeProvider); v != "" {
		s.Provider = v
	}
	if v := os.Getenv(EnvJudgeModel); v != "" {
		s.Model = v
	}
	if v := os.Getenv(EnvJudgeMaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxTokens = n
		}
	}
	if v := os.Getenv(EnvJudgeTemperature); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			s.Temperature = t
		}
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultJudgeMaxTokens
	}
	return s
}

// Judge scores test cases with a rubric-bearing prompt against any
// provider, parsing a numeric score out of the JSON reply.
type Judge struct {
	client      provider.Client
	maxTokens   int
	temperature float64
}

// JudgeOption configures the judge.
type JudgeOption func(*Judge)

// WithJudgeMaxTokens sets the judge output budget.
func WithJudgeMaxTokens(n int) JudgeOption {
	return func(j *Judge) { j.maxTokens = n }
}

// WithJudgeTemperature sets the judge temperature.
func WithJudgeTemperature(t float64) JudgeOption {
	return func(j *Judge) { j.temperature = t }
}

// NewJudge wraps a provider client as a judge.
func NewJudge(client provider.Client, opt ...JudgeOption) *Judge {
	j := &Judge{
		client:      client,
		maxTokens:   defaultJudgeMaxTokens,
		temperature: 0.0,
	}
	for _, o := range opt {
		o(j)
	}
	return j
}

// judgeVerdict is the JSON shape the judge is instructed to emit.
type judgeVerdict struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// Score runs one rubric against an input/output/expected triple. The
// returned score is clamped to [0,1] and nil when the response could
// not be parsed.
func (j *Judge) Score(ctx context.Context, rubric, input, output, expected string) (*float64, string, error) {
	prompt := buildJudgePrompt(rubric, input, output, expected)
	text, err := provider.GenerateText(ctx, j.client, prompt, j.maxTokens, j.temperature)
	if err != nil {
		return nil, "", err
	}
	score, reason := parseVerdict(text)
	return score, reason, nil
}

// ScoreConversation runs one rubric against a rendered transcript.
func (j *Judge) ScoreConversation(ctx context.Context, rubric, transcript, expectedOutcome string) (*float64, string, error) {
	return j.Score(ctx, rubric, transcript, "", expectedOutcome)
}

func buildJudgePrompt(rubric, input, output, expected string) string {
	var sb strings.Builder
	sb.WriteString("You are an impartial judge. ")
	sb.WriteString(rubric)
	sb.WriteString("\n\nInput:\n")
	sb.WriteString(input)
	if output != "" {
		sb.WriteString("\n\nModel Answer:\n")
		sb.WriteString(output)
	}
	if expected != "" {
		sb.WriteString("\nExpected (reference):\n")
		sb.WriteString(expected)
	}
	sb.WriteString("\n\nRespond with ONLY a raw JSON object, no prose and no code fences. ")
	sb.WriteString(`Format: {"score": 0.0-1.0, "reason": "..."}`)
	return sb.String()
}

// parseVerdict extracts a clamped score from a judge reply: JSON
// first, then the first bare number in [0,1].
func parseVerdict(text string) (*float64, string) {
	if raw, ok := jsonx.ExtractObject(text); ok {
		var verdict judgeVerdict
		if err := json.Unmarshal([]byte(raw), &verdict); err == nil && verdict.Score != nil {
			clamped := clamp(*verdict.Score)
			return &clamped, verdict.Reason
		}
	}
	if v, ok := jsonx.FirstScore(text); ok {
		clamped := clamp(v)
		return &clamped, "Score extracted from unstructured response"
	}
	return nil, unparseableReason
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
