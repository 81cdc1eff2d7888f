//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package testcase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalops/evalforge/config"
	"github.com/evalops/evalforge/dataset"
	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/store"
)

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	// retryTemperature is used for the single retry after an empty
	// first completion.
	retryTemperature = 0.2
	// emptyOutputMessage marks samples whose retry also came back empty.
	emptyOutputMessage = "empty_output"

	defaultConcurrency = 4
)

// RunMeta identifies the experiment a build belongs to.
type RunMeta struct {
	Tenant       string
	ProjectID    string
	ExperimentID string
	ModelName    string
}

// Builder turns dataset samples into test cases.
type Builder struct {
	client      provider.Client
	store       store.Store
	concurrency int
	maxTokens   int
	temperature float64
	simulator   UserSimulator
}

// Option configures the builder.
type Option func(*Builder)

// WithConcurrency sets the generation fan-out across samples.
func WithConcurrency(n int) Option {
	return func(b *Builder) { b.concurrency = n }
}

// WithMaxTokens overrides the generation token budget.
func WithMaxTokens(n int) Option {
	return func(b *Builder) { b.maxTokens = n }
}

// WithTemperature overrides the first-attempt temperature.
func WithTemperature(t float64) Option {
	return func(b *Builder) { b.temperature = t }
}

// WithUserSimulator sets the simulator driving simulated conversations.
func WithUserSimulator(s UserSimulator) Option {
	return func(b *Builder) { b.simulator = s }
}

// New builds a Builder over the target model client.
func New(client provider.Client, st store.Store, opt ...Option) *Builder {
	b := &Builder{
		client:      client,
		store:       st,
		concurrency: defaultConcurrency,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
	}
	for _, o := range opt {
		o(b)
	}
	return b
}

// Build materializes the dataset into test cases, writing one log per
// sample and per-sample latency metrics. Logs land in dataset order
// regardless of generation fan-out. Samples whose generation failed
// are excluded from the returned slice but keep their error log.
func (b *Builder) Build(ctx context.Context, ds *dataset.Dataset, meta RunMeta) ([]*TestCase, error) {
	switch ds.Kind {
	case dataset.KindConversational:
		return b.buildConversations(ctx, ds.Conversations, meta)
	case dataset.KindSimulated:
		return b.buildSimulated(ctx, ds, meta)
	default:
		return b.buildSingleTurn(ctx, ds.Prompts, meta)
	}
}

// buildSingleTurn generates outputs with a bounded fan-out, then walks
// the results in dataset order to write logs and assemble cases.
func (b *Builder) buildSingleTurn(ctx context.Context, samples []config.PromptSample, meta RunMeta) ([]*TestCase, error) {
	pool, err := createSampleGenerationPool(b.concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]generated, len(samples))
	var wg sync.WaitGroup
	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wg.Add(1)
		param := sampleGenerationParamPool.Get().(*sampleGenerationParam)
		param.idx = i
		param.ctx = ctx
		param.sample = sample
		param.builder = b
		param.results = results
		param.wg = &wg
		if err := pool.Invoke(param); err != nil {
			wg.Done()
			param.reset()
			sampleGenerationParamPool.Put(param)
			return nil, fmt.Errorf("invoke generation pool: %w", err)
		}
	}
	wg.Wait()

	var cases []*TestCase
	for i, sample := range samples {
		res := results[i]
		entry := &store.EvaluationLog{
			ID:           uuid.NewString(),
			ExperimentID: meta.ExperimentID,
			Tenant:       meta.Tenant,
			ProjectID:    meta.ProjectID,
			TraceID:      uuid.NewString(),
			SpanName:     "generate",
			InputText:    sample.Prompt,
			ModelName:    meta.ModelName,
			LatencyMS:    res.latency,
			Metadata:     sampleMetadata(sample),
		}
		switch {
		case res.err != nil:
			entry.Status = store.LogStatusError
			entry.ErrorMessage = res.err.Error()
		case res.emptyOut:
			entry.Status = store.LogStatusError
			entry.ErrorMessage = emptyOutputMessage
		default:
			entry.Status = store.LogStatusSuccess
			entry.OutputText = res.text
			entry.TokenCount = res.tokens
		}
		if err := b.store.CreateLog(ctx, entry); err != nil {
			return nil, fmt.Errorf("create log: %w", err)
		}
		if entry.Status != store.LogStatusSuccess {
			continue
		}
		if err := b.store.CreateMetric(ctx, &store.EvaluationMetric{
			ID:           uuid.NewString(),
			Tenant:       meta.Tenant,
			ExperimentID: meta.ExperimentID,
			MetricName:   "latency",
			MetricType:   store.MetricTypePerformance,
			Value:        float64(res.latency),
			Dimensions:   map[string]any{"sample": sample.ID},
		}); err != nil {
			return nil, fmt.Errorf("create latency metric: %w", err)
		}
		cases = append(cases, &TestCase{
			Kind:             KindSingleTurn,
			Input:            sample.Prompt,
			ActualOutput:     res.text,
			ExpectedOutput:   sample.ExpectedOutput,
			RetrievalContext: sample.Context,
			LogID:            entry.ID,
			MetricScores:     map[string]any{},
		})
	}
	return cases, nil
}

// generateSample runs one generation, retrying once at a lower
// temperature when the first completion is empty.
func (b *Builder) generateSample(ctx context.Context, sample config.PromptSample) generated {
	start := time.Now()
	text, err := provider.GenerateText(ctx, b.client, sample.Prompt, b.maxTokens, b.temperature)
	if err != nil {
		return generated{latency: time.Since(start).Milliseconds(), err: err}
	}
	if strings.TrimSpace(text) == "" {
		text, err = provider.GenerateText(ctx, b.client, sample.Prompt, b.maxTokens, retryTemperature)
		if err != nil {
			return generated{latency: time.Since(start).Milliseconds(), err: err}
		}
		if strings.TrimSpace(text) == "" {
			return generated{latency: time.Since(start).Milliseconds(), emptyOut: true}
		}
	}
	return generated{
		text:    text,
		latency: time.Since(start).Milliseconds(),
		tokens:  len(strings.Fields(text)),
	}
}

func sampleMetadata(sample config.PromptSample) map[string]any {
	md := map[string]any{}
	if sample.Category != "" {
		md["category"] = sample.Category
	}
	if sample.Difficulty != "" {
		md["difficulty"] = sample.Difficulty
	}
	return md
}

// buildConversations replays recorded conversations turn by turn.
// Turn generation within a conversation is strictly sequential.
func (b *Builder) buildConversations(ctx context.Context, conversations []config.Conversation, meta RunMeta) ([]*TestCase, error) {
	var cases []*TestCase
	for _, conv := range conversations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tc, err := b.replayConversation(ctx, conv, meta)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func (b *Builder) replayConversation(ctx context.Context, conv config.Conversation, meta RunMeta) (*TestCase, error) {
	var (
		transcript []config.ConversationTurn
		expected   []string
		userMsgs   []string
		outputs    []string
	)
	for _, turn := range conv.Turns {
		if turn.Role == "assistant" {
			expected = append(expected, turn.Content)
		}
	}
	start := time.Now()
	for _, turn := range conv.Turns {
		if turn.Role != "user" {
			continue
		}
		prompt := replayPrompt(transcript, turn.Content)
		reply, err := provider.GenerateText(ctx, b.client, prompt, defaultMaxTokens, defaultTemperature)
		reply = cleanAssistantReply(reply, err)
		transcript = append(transcript,
			config.ConversationTurn{Role: "user", Content: turn.Content},
			config.ConversationTurn{Role: "assistant", Content: reply},
		)
		userMsgs = append(userMsgs, turn.Content)
		outputs = append(outputs, reply)
	}
	latency := time.Since(start).Milliseconds()

	turnMaps := make([]map[string]any, len(transcript))
	for i, turn := range transcript {
		turnMaps[i] = map[string]any{"role": turn.Role, "content": turn.Content}
	}
	entry := &store.EvaluationLog{
		ID:           uuid.NewString(),
		ExperimentID: meta.ExperimentID,
		Tenant:       meta.Tenant,
		ProjectID:    meta.ProjectID,
		TraceID:      uuid.NewString(),
		SpanName:     "conversation",
		InputText:    strings.Join(userMsgs, "\n"),
		OutputText:   strings.Join(outputs, "\n"),
		ModelName:    meta.ModelName,
		LatencyMS:    latency,
		TokenCount:   len(strings.Fields(strings.Join(outputs, " "))),
		Status:       store.LogStatusSuccess,
		Metadata: map[string]any{
			"is_conversational":        true,
			"scenario":                 conv.Scenario,
			"turns":                    turnMaps,
			"expected_assistant_turns": expected,
			"turn_count":               len(transcript),
		},
	}
	if err := b.store.CreateLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("create conversation log: %w", err)
	}
	return &TestCase{
		Kind:            KindConversational,
		Turns:           transcript,
		Scenario:        conv.Scenario,
		ExpectedOutcome: conv.ExpectedOutcome,
		LogID:           entry.ID,
		MetricScores:    map[string]any{},
	}, nil
}

// replayPrompt renders the generation prompt for one user turn given
// the conversation so far.
func replayPrompt(history []config.ConversationTurn, userMsg string) string {
	if len(history) == 0 {
		return "You are a helpful assistant. Respond to the user.\n\nUser: " + userMsg + "\n\nAssistant:"
	}
	var sb strings.Builder
	sb.WriteString("You are a helpful assistant. Continue this conversation.\n\n")
	for _, turn := range history {
		if turn.Role == "user" {
			sb.WriteString("User: " + turn.Content + "\n")
		} else {
			sb.WriteString("Assistant: " + turn.Content + "\n")
		}
	}
	sb.WriteString("\nUser: " + userMsg + "\n\nAssistant:")
	return sb.String()
}

// cleanAssistantReply normalizes one generated turn: strip an echoed
// "Assistant:" prefix, substitute placeholders for empty output and
// generation errors.
func cleanAssistantReply(reply string, err error) string {
	if err != nil {
		msg := err.Error()
		if len(msg) > 100 {
			msg = msg[:100]
		}
		log.Warnf("conversation turn generation failed: %v", err)
		return "[Generation error: " + msg + "]"
	}
	reply = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(reply), "Assistant:"))
	if reply == "" {
		return "[Model returned empty response]"
	}
	return reply
}
