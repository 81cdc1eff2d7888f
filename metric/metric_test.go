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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/testcase"
)

// fakeJudgeClient returns a fixed judge reply.
type fakeJudgeClient struct {
	mu      sync.Mutex
	reply   string
	prompts []string
}

func (c *fakeJudgeClient) Generate(_ context.Context, req *provider.Request) (*provider.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, req.Messages[0].Content)
	return &provider.Response{Text: c.reply}, nil
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Answer Relevancy", "answerRelevancy"},
		{"answer_relevancy", "answerRelevancy"},
		{"answerRelevancy", "answerRelevancy"},
		{"Relevance", "answerRelevancy"},
		{"Turn Relevancy", "turnRelevancy"},
		{"Conversation Safety", "conversationSafety"},
		{"Instruction Following", "instructionFollowing"},
		{"someCustomKey", "someCustomKey"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), tt.in)
	}
}

func TestSelectByTask(t *testing.T) {
	universal := selectByTask("chatbot")
	assert.Len(t, universal, 7)

	rag := selectByTask("rag")
	assert.Len(t, rag, 11)

	agent := selectByTask("agents")
	assert.Len(t, agent, 11)

	safety := selectByTask("safety")
	assert.Len(t, safety, 7)
}

func TestSelectByMapDisablesUnmentioned(t *testing.T) {
	defs := selectByMap(map[string]bool{
		"answerRelevancy": true,
		"correctness":     true,
		"toxicity":        false,
	})
	require.Len(t, defs, 2)
	assert.Equal(t, "answerRelevancy", defs[0].Key)
	assert.Equal(t, "correctness", defs[1].Key)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantScore  *float64
		wantReason string
	}{
		{
			name:       "clean json",
			reply:      `{"score": 0.8, "reason": "solid"}`,
			wantScore:  provider.Float64Ptr(0.8),
			wantReason: "solid",
		},
		{
			name:      "json in prose",
			reply:     "Verdict below.\n{\"score\": 0.4, \"reason\": \"weak\"}",
			wantScore: provider.Float64Ptr(0.4),
		},
		{
			name:      "clamped above one",
			reply:     `{"score": 7, "reason": "scale confusion"}`,
			wantScore: provider.Float64Ptr(1),
		},
		{
			name:      "regex fallback",
			reply:     "I rate this 0.65 overall.",
			wantScore: provider.Float64Ptr(0.65),
		},
		{
			name:       "unparseable",
			reply:      "no verdict here",
			wantScore:  nil,
			wantReason: "Unable to parse judge response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, reason := parseVerdict(tt.reply)
			if tt.wantScore == nil {
				assert.Nil(t, score)
			} else {
				require.NotNil(t, score)
				assert.InDelta(t, *tt.wantScore, *score, 1e-9)
			}
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, reason)
			}
		})
	}
}

func TestDispatcherThresholdSemantics(t *testing.T) {
	client := &fakeJudgeClient{reply: `{"score": 0.6, "reason": "ok"}`}
	d := NewDispatcher(NewJudge(client),
		WithMetrics(map[string]bool{"answerRelevancy": true, "correctness": true}),
		WithThresholds(map[string]float64{"correctness": 0.7}),
	)

	tc := &testcase.TestCase{
		Kind:         testcase.KindSingleTurn,
		Input:        "What is 2+2?",
		ActualOutput: "4",
		MetricScores: map[string]any{},
	}
	require.NoError(t, d.Run(context.Background(), []*testcase.TestCase{tc}))

	rel := tc.MetricScores["answerRelevancy"].(*Result)
	assert.True(t, rel.Passed) // 0.6 >= default 0.5

	corr := tc.MetricScores["correctness"].(*Result)
	assert.False(t, corr.Passed) // 0.6 < 0.7 override
}

func TestDispatcherSkipsRAGWithoutContext(t *testing.T) {
	client := &fakeJudgeClient{reply: `{"score": 1.0, "reason": "ok"}`}
	d := NewDispatcher(NewJudge(client),
		WithMetrics(map[string]bool{"faithfulness": true}),
	)

	tc := &testcase.TestCase{
		Kind:         testcase.KindSingleTurn,
		Input:        "q",
		ActualOutput: "a",
		MetricScores: map[string]any{},
	}
	require.NoError(t, d.Run(context.Background(), []*testcase.TestCase{tc}))

	res := tc.MetricScores["faithfulness"].(*Result)
	assert.True(t, res.Skipped)
	assert.Nil(t, res.Score)
	assert.Equal(t, "No retrieval/context provided", res.Reason)
	assert.Empty(t, client.prompts)
}

func TestDispatcherConversational(t *testing.T) {
	client := &fakeJudgeClient{reply: `{"score": 0.9, "reason": "smooth"}`}
	d := NewDispatcher(NewJudge(client))

	withOutcome := &testcase.TestCase{
		Kind:            testcase.KindConversational,
		Scenario:        "support chat",
		ExpectedOutcome: "issue resolved",
		MetricScores:    map[string]any{},
	}
	noOutcome := &testcase.TestCase{
		Kind:         testcase.KindConversational,
		MetricScores: map[string]any{},
	}
	require.NoError(t, d.Run(context.Background(), []*testcase.TestCase{withOutcome, noOutcome}))

	assert.Contains(t, withOutcome.MetricScores, "taskCompletion")
	assert.Contains(t, withOutcome.MetricScores, "conversationSafety")
	assert.NotContains(t, noOutcome.MetricScores, "taskCompletion")
	assert.Contains(t, noOutcome.MetricScores, "turnRelevancy")
}

func TestAggregate(t *testing.T) {
	mk := func(v float64) *Result { return &Result{Score: &v} }
	cases := []*testcase.TestCase{
		{MetricScores: map[string]any{"answerRelevancy": mk(0.8), "correctness": mk(1.0)}},
		{MetricScores: map[string]any{"answerRelevancy": mk(0.6), "correctness": &Result{}}},
	}
	avgs := Aggregate(cases)
	assert.InDelta(t, 0.7, avgs["answerRelevancy"], 1e-9)
	// Null scores are excluded from the mean.
	assert.InDelta(t, 1.0, avgs["correctness"], 1e-9)
}
