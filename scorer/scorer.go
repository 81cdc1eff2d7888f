//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package scorer evaluates stored LLM-as-judge scorer definitions:
// rendered prompt templates go to the judge model, the reply's label
// maps to a numeric score.
package scorer

import (
	"context"
	"regexp"
	"strings"

	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/store"
)

const (
	defaultMaxTokens = 256
	defaultThreshold = 0.5
	// labelError marks scorer runs whose judge call failed.
	labelError = "ERROR"
)

// Result is the outcome of one scorer against one test case.
type Result struct {
	ScorerID    string          `json:"scorer_id"`
	ScorerName  string          `json:"scorer_name"`
	MetricKey   string          `json:"metric_key"`
	Label       string          `json:"label"`
	Score       *float64        `json:"score"`
	Passed      bool            `json:"passed"`
	RawResponse string          `json:"raw_response,omitempty"`
	TokenUsage  *provider.Usage `json:"token_usage,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ClientFactory builds a judge client for a scorer's judge model.
type ClientFactory func(ctx context.Context, jm store.ScorerJudgeModel) (provider.Client, error)

// Runner evaluates scorer definitions.
type Runner struct {
	factory ClientFactory
}

// NewRunner builds a runner over the given judge client factory.
func NewRunner(factory ClientFactory) *Runner {
	return &Runner{factory: factory}
}

// Filter returns the scorers that should run for an experiment: the
// intersection of enabled scorers, scorers of type llm, and the
// selectedScorers list when present. Missing selected IDs are logged
// and skipped.
func Filter(scorers []*store.ScorerDefinition, selected []string) []*store.ScorerDefinition {
	byID := make(map[string]*store.ScorerDefinition, len(scorers))
	var eligible []*store.ScorerDefinition
	for _, def := range scorers {
		if !def.Enabled || def.Type != store.ScorerTypeLLM {
			continue
		}
		byID[def.ID] = def
		eligible = append(eligible, def)
	}
	if len(selected) == 0 {
		return eligible
	}
	var out []*store.ScorerDefinition
	for _, id := range selected {
		def, ok := byID[id]
		if !ok {
			log.Warnf("selected scorer %s not found or not eligible, skipping", id)
			continue
		}
		out = append(out, def)
	}
	return out
}

// Evaluate runs one scorer against an {input, output, expected}
// triple. Judge failures produce an ERROR-labelled result with a nil
// score rather than an error return.
func (r *Runner) Evaluate(ctx context.Context, def *store.ScorerDefinition, input, output, expected string) *Result {
	res := &Result{
		ScorerID:   def.ID,
		ScorerName: def.Name,
		MetricKey:  def.MetricKey,
	}
	client, err := r.factory(ctx, def.Config.JudgeModel)
	if err != nil {
		res.Label = labelError
		res.Error = err.Error()
		return res
	}

	messages := renderMessages(def.Config.Messages, input, output, expected)
	maxTokens := defaultMaxTokens
	if v, ok := def.Config.JudgeModel.Params["max_tokens"].(float64); ok && v > 0 {
		maxTokens = int(v)
	}
	rsp, err := client.Generate(ctx, &provider.Request{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: provider.Float64Ptr(0.0),
	})
	if err != nil {
		res.Label = labelError
		res.Error = err.Error()
		return res
	}

	res.RawResponse = rsp.Text
	if rsp.Usage != (provider.Usage{}) {
		usage := rsp.Usage
		res.TokenUsage = &usage
	}
	res.Label = ExtractLabel(rsp.Text)
	score := def.Config.ChoiceScores[res.Label] // unknown labels score 0.0
	res.Score = &score

	// An explicit passThreshold wins even when zero. The 0.5 default
	// applies only when neither the config nor the definition sets one.
	threshold := defaultThreshold
	if def.DefaultThreshold != 0 {
		threshold = def.DefaultThreshold
	}
	if def.Config.PassThreshold != nil {
		threshold = *def.Config.PassThreshold
	}
	res.Passed = score >= threshold
	return res
}

// placeholderRe matches {{name}} template placeholders.
var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z_]+)\s*\}\}`)

// renderMessages substitutes {{input}}, {{output}} and {{expected}}
// in each template. Unknown placeholders produce a warning and render
// empty; templates are whitespace-trimmed.
func renderMessages(templates []store.ScorerMessage, input, output, expected string) []provider.Message {
	values := map[string]string{
		"input":    input,
		"output":   output,
		"expected": expected,
	}
	out := make([]provider.Message, len(templates))
	for i, tmpl := range templates {
		rendered := placeholderRe.ReplaceAllStringFunc(strings.TrimSpace(tmpl.Template), func(m string) string {
			name := placeholderRe.FindStringSubmatch(m)[1]
			v, ok := values[name]
			if !ok {
				log.Warnf("unknown scorer template placeholder {{%s}}", name)
				return ""
			}
			return v
		})
		out[i] = provider.Message{Role: tmpl.Role, Content: rendered}
	}
	return out
}

// nonLetterRe strips everything outside A-Z.
var nonLetterRe = regexp.MustCompile(`[^A-Z]`)

// ExtractLabel pulls the judge's verdict label from a reply: the first
// non-empty line's first whitespace-separated token, uppercased, with
// non-letters removed.
func ExtractLabel(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		token := strings.Fields(line)[0]
		return nonLetterRe.ReplaceAllString(strings.ToUpper(token), "")
	}
	return ""
}
