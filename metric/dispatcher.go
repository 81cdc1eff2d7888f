//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package metric dispatches built-in judge metrics over test cases and
// aggregates per-metric averages.
package metric

import (
	"context"
	"strings"

	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/testcase"
)

const defaultThreshold = 0.5

// skippedNoContextReason marks RAG metrics skipped for lack of
// retrieval context.
const skippedNoContextReason = "No retrieval/context provided"

// Result is one metric's outcome for one test case.
type Result struct {
	Name    string   `json:"name"`
	Key     string   `json:"key"`
	Score   *float64 `json:"score"`
	Passed  bool     `json:"passed"`
	Reason  string   `json:"reason,omitempty"`
	Skipped bool     `json:"skipped,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Dispatcher runs the selected metrics over test cases.
type Dispatcher struct {
	judge      *Judge
	selected   []Definition
	thresholds map[string]float64
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithMetrics enables exactly the metrics named true in the map. Keys
// may be camelCase, snake_case or display names.
func WithMetrics(metrics map[string]bool) Option {
	return func(d *Dispatcher) { d.selected = selectByMap(metrics) }
}

// WithTaskType enables the default metric set for a task type. Only
// used when no explicit metrics map is supplied.
func WithTaskType(taskType string) Option {
	return func(d *Dispatcher) {
		if d.selected == nil {
			d.selected = selectByTask(taskType)
		}
	}
}

// WithThresholds overrides per-metric pass thresholds.
func WithThresholds(thresholds map[string]float64) Option {
	return func(d *Dispatcher) {
		d.thresholds = make(map[string]float64, len(thresholds))
		for name, v := range thresholds {
			d.thresholds[NormalizeKey(name)] = v
		}
	}
}

// NewDispatcher builds a dispatcher over the given judge.
func NewDispatcher(judge *Judge, opt ...Option) *Dispatcher {
	d := &Dispatcher{judge: judge}
	for _, o := range opt {
		o(d)
	}
	if d.selected == nil {
		d.selected = selectByTask("")
	}
	return d
}

// selectByMap keeps the metrics the caller switched on; metrics not
// mentioned are disabled.
func selectByMap(metrics map[string]bool) []Definition {
	enabled := make(map[string]bool, len(metrics))
	for name, on := range metrics {
		if on {
			enabled[NormalizeKey(name)] = true
		}
	}
	var out []Definition
	for _, def := range definitions {
		if enabled[def.Key] {
			out = append(out, def)
		}
	}
	return out
}

// selectByTask enables the universal core plus the task family.
func selectByTask(taskType string) []Definition {
	var out []Definition
	taskType = strings.ToLower(taskType)
	for _, def := range definitions {
		switch def.Family {
		case FamilyUniversal:
			out = append(out, def)
		case FamilyRAG:
			if taskType == "rag" {
				out = append(out, def)
			}
		case FamilyAgent:
			if taskType == "agent" || taskType == "agents" {
				out = append(out, def)
			}
		}
	}
	return out
}

// Threshold returns the effective pass threshold for a metric key.
func (d *Dispatcher) Threshold(key string) float64 {
	if v, ok := d.thresholds[NormalizeKey(key)]; ok {
		return v
	}
	return defaultThreshold
}

// Run scores every test case with every selected metric and stores
// the results into each case's MetricScores, keyed by camelCase key.
// A failing metric records an error cell; other metrics continue.
func (d *Dispatcher) Run(ctx context.Context, cases []*testcase.TestCase) error {
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tc.Kind == testcase.KindConversational {
			d.runConversational(ctx, tc)
			continue
		}
		d.runSingleTurn(ctx, tc)
	}
	return nil
}

func (d *Dispatcher) runSingleTurn(ctx context.Context, tc *testcase.TestCase) {
	for _, def := range d.selected {
		res := d.evaluate(ctx, def, tc)
		if tc.MetricScores == nil {
			tc.MetricScores = map[string]any{}
		}
		tc.MetricScores[def.Key] = res
	}
}

func (d *Dispatcher) evaluate(ctx context.Context, def Definition, tc *testcase.TestCase) *Result {
	res := &Result{Name: def.Display, Key: def.Key}
	if def.NeedsContext && len(tc.RetrievalContext) == 0 {
		res.Skipped = true
		res.Reason = skippedNoContextReason
		return res
	}
	input := tc.Input
	if len(tc.RetrievalContext) > 0 {
		input = input + "\n\nRetrieved context:\n" + strings.Join(tc.RetrievalContext, "\n")
	}
	score, reason, err := d.judge.Score(ctx, def.Rubric, input, tc.ActualOutput, tc.ExpectedOutput)
	if err != nil {
		log.Warnf("metric %s failed: %v", def.Key, err)
		res.Error = err.Error()
		return res
	}
	res.Score = score
	res.Reason = reason
	res.Passed = score != nil && *score >= d.Threshold(def.Key)
	return res
}

// runConversational scores the transcript with the conversational
// rubric set. Task completion only runs when an expected outcome is
// present.
func (d *Dispatcher) runConversational(ctx context.Context, tc *testcase.TestCase) {
	transcript := renderTranscript(tc)
	for _, def := range conversationalDefinitions {
		if def.Key == "taskCompletion" && tc.ExpectedOutcome == "" {
			continue
		}
		res := &Result{Name: def.Display, Key: def.Key}
		score, reason, err := d.judge.ScoreConversation(ctx, def.Rubric, transcript, tc.ExpectedOutcome)
		if err != nil {
			log.Warnf("conversational metric %s failed: %v", def.Key, err)
			res.Error = err.Error()
		} else {
			res.Score = score
			res.Reason = reason
			res.Passed = score != nil && *score >= d.Threshold(def.Key)
		}
		if tc.MetricScores == nil {
			tc.MetricScores = map[string]any{}
		}
		tc.MetricScores[def.Key] = res
	}
}

func renderTranscript(tc *testcase.TestCase) string {
	var sb strings.Builder
	if tc.Scenario != "" {
		sb.WriteString("Scenario: " + tc.Scenario + "\n\n")
	}
	for _, turn := range tc.Turns {
		if turn.Role == "user" {
			sb.WriteString("User: " + turn.Content + "\n")
		} else {
			sb.WriteString("Assistant: " + turn.Content + "\n")
		}
	}
	return sb.String()
}

// Aggregate averages non-null scores per metric key across cases.
func Aggregate(cases []*testcase.TestCase) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, tc := range cases {
		for key, raw := range tc.MetricScores {
			res, ok := raw.(*Result)
			if !ok || res.Score == nil {
				continue
			}
			normalized := NormalizeKey(key)
			sums[normalized] += *res.Score
			counts[normalized]++
		}
	}
	out := make(map[string]float64, len(sums))
	for key, sum := range sums {
		out[key] = sum / float64(counts[key])
	}
	return out
}
