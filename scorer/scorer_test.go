//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/store"
)

type fakeJudge struct {
	reply    string
	err      error
	lastReq  *provider.Request
	requests int
}

func (f *fakeJudge) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.lastReq = req
	f.requests++
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Text: f.reply, Usage: provider.Usage{TotalTokens: 9}}, nil
}

func passFailScorer() *store.ScorerDefinition {
	return &store.ScorerDefinition{
		ID:        "scorer_abc",
		Tenant:    "acme",
		Name:      "correctness-judge",
		Type:      store.ScorerTypeLLM,
		MetricKey: "correctnessJudge",
		Enabled:   true,
		Config: store.ScorerConfig{
			JudgeModel: store.ScorerJudgeModel{Provider: "openai", Name: "gpt-4o"},
			Messages: []store.ScorerMessage{
				{Role: "system", Template: "Judge correctness."},
				{Role: "user", Template: "Q: {{input}}\nA: {{output}}\nReply PASS or FAIL."},
			},
			ChoiceScores: map[string]float64{"PASS": 1.0, "FAIL": 0.0},
		},
		DefaultThreshold: 0.5,
	}
}

func runnerWith(judge provider.Client) *Runner {
	return NewRunner(func(context.Context, store.ScorerJudgeModel) (provider.Client, error) {
		return judge, nil
	})
}

func TestEvaluatePass(t *testing.T) {
	judge := &fakeJudge{reply: "PASS: looks right."}
	res := runnerWith(judge).Evaluate(context.Background(), passFailScorer(), "What is 2+2?", "4", "4")

	assert.Equal(t, "PASS", res.Label)
	require.NotNil(t, res.Score)
	assert.InDelta(t, 1.0, *res.Score, 1e-9)
	assert.True(t, res.Passed)
	assert.Equal(t, "PASS: looks right.", res.RawResponse)
	require.NotNil(t, res.TokenUsage)
	assert.Equal(t, 9, res.TokenUsage.TotalTokens)

	// Templates were rendered with the values substituted.
	require.NotNil(t, judge.lastReq)
	assert.Equal(t, "Q: What is 2+2?\nA: 4\nReply PASS or FAIL.", judge.lastReq.Messages[1].Content)
	require.NotNil(t, judge.lastReq.Temperature)
	assert.Zero(t, *judge.lastReq.Temperature)
	assert.Equal(t, 256, judge.lastReq.MaxTokens)
}

func TestEvaluateUnknownLabelScoresZero(t *testing.T) {
	judge := &fakeJudge{reply: "MAYBE, hard to tell"}
	res := runnerWith(judge).Evaluate(context.Background(), passFailScorer(), "q", "a", "")

	assert.Equal(t, "MAYBE", res.Label)
	require.NotNil(t, res.Score)
	assert.Zero(t, *res.Score)
	assert.False(t, res.Passed)
}

func TestEvaluateThresholdPrecedence(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name             string
		passThreshold    *float64
		defaultThreshold float64
		reply            string
		wantPassed       bool
	}{
		// Explicit zero threshold passes everything, even a FAIL score.
		{"explicit zero threshold", &zero, 0.5, "FAIL", true},
		{"explicit zero threshold pass", &zero, 0.5, "PASS", true},
		// Nothing configured anywhere: 0.5 applies.
		{"fallback default", nil, 0, "FAIL", false},
		{"fallback default pass", nil, 0, "PASS", true},
		// Definition threshold used when the config leaves it unset.
		{"definition threshold", nil, 0.5, "FAIL", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := passFailScorer()
			def.Config.PassThreshold = tt.passThreshold
			def.DefaultThreshold = tt.defaultThreshold
			res := runnerWith(&fakeJudge{reply: tt.reply}).Evaluate(context.Background(), def, "q", "a", "")
			assert.Equal(t, tt.wantPassed, res.Passed)
		})
	}
}

func TestEvaluateJudgeError(t *testing.T) {
	judge := &fakeJudge{err: errors.New("connection refused")}
	res := runnerWith(judge).Evaluate(context.Background(), passFailScorer(), "q", "a", "")

	assert.Equal(t, "ERROR", res.Label)
	assert.Nil(t, res.Score)
	assert.False(t, res.Passed)
	assert.NotEmpty(t, res.Error)
}

func TestExtractLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PASS: looks right.", "PASS"},
		{"\n\n  fail because of x", "FAIL"},
		{"Pass.", "PASS"},
		{"'FAIL' - missing detail", "FAIL"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractLabel(tt.in), tt.in)
	}
}

func TestFilter(t *testing.T) {
	enabled := passFailScorer()
	disabled := passFailScorer()
	disabled.ID = "scorer_off"
	disabled.Enabled = false
	builtin := passFailScorer()
	builtin.ID = "scorer_builtin"
	builtin.Type = store.ScorerTypeBuiltin

	all := []*store.ScorerDefinition{enabled, disabled, builtin}

	// No selection: all enabled LLM scorers run.
	got := Filter(all, nil)
	require.Len(t, got, 1)
	assert.Equal(t, "scorer_abc", got[0].ID)

	// Missing IDs are skipped silently.
	got = Filter(all, []string{"scorer_abc", "scorer_missing", "scorer_off"})
	require.Len(t, got, 1)
	assert.Equal(t, "scorer_abc", got[0].ID)
}

func TestRenderMessagesUnknownPlaceholder(t *testing.T) {
	msgs := renderMessages([]store.ScorerMessage{
		{Role: "user", Template: "  {{input}} {{mystery}} end  "},
	}, "hello", "", "")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello  end", msgs[0].Content)
}
