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
	"time"

	"github.com/google/uuid"

	"github.com/evalops/evalforge/config"
	"github.com/evalops/evalforge/dataset"
	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/store"
)

// historyWindow bounds how many prior turns are fed back as context
// during simulated conversations.
const historyWindow = 6

// UserSimulator produces the next user message of a simulated
// conversation. Returning an empty message ends the conversation.
type UserSimulator interface {
	NextUserTurn(ctx context.Context, scenario config.ScenarioSample, history []config.ConversationTurn) (string, error)
}

// llmUserSimulator drives user turns with an LLM playing the user.
type llmUserSimulator struct {
	client provider.Client
}

// NewLLMUserSimulator returns a simulator that uses the given client
// to role-play the user described by the scenario.
func NewLLMUserSimulator(client provider.Client) UserSimulator {
	return &llmUserSimulator{client: client}
}

func (s *llmUserSimulator) NextUserTurn(ctx context.Context, scenario config.ScenarioSample, history []config.ConversationTurn) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are role-playing a user talking to an assistant.\n")
	sb.WriteString("Scenario: " + scenario.Scenario + "\n")
	if scenario.UserDescription != "" {
		sb.WriteString("User persona: " + scenario.UserDescription + "\n")
	}
	if len(history) == 0 {
		sb.WriteString("\nWrite the user's opening message. Respond with the message only.")
	} else {
		sb.WriteString("\nConversation so far:\n")
		for _, turn := range lastTurns(history, historyWindow) {
			if turn.Role == "user" {
				sb.WriteString("User: " + turn.Content + "\n")
			} else {
				sb.WriteString("Assistant: " + turn.Content + "\n")
			}
		}
		sb.WriteString("\nWrite the user's next message, or reply DONE if the user would end the conversation. Respond with the message only.")
	}
	reply, err := provider.GenerateText(ctx, s.client, sb.String(), 256, defaultTemperature)
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(reply), "User:"))
	if strings.EqualFold(reply, "DONE") {
		return "", nil
	}
	return reply, nil
}

// buildSimulated drives one simulated conversation per scenario,
// alternating simulator user turns with target assistant turns until
// the turn budget is spent.
func (b *Builder) buildSimulated(ctx context.Context, ds *dataset.Dataset, meta RunMeta) ([]*TestCase, error) {
	sim := b.simulator
	if sim == nil {
		sim = NewLLMUserSimulator(b.client)
	}
	var cases []*TestCase
	for _, scenario := range ds.Scenarios {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tc, err := b.simulateScenario(ctx, sim, scenario, ds.MaxTurns, meta)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func (b *Builder) simulateScenario(ctx context.Context, sim UserSimulator, scenario config.ScenarioSample, maxTurns int, meta RunMeta) (*TestCase, error) {
	if maxTurns <= 0 {
		maxTurns = historyWindow
	}
	var transcript []config.ConversationTurn
	start := time.Now()
	for len(transcript) < maxTurns {
		userMsg, err := sim.NextUserTurn(ctx, scenario, transcript)
		if err != nil {
			return nil, fmt.Errorf("simulate user turn: %w", err)
		}
		if strings.TrimSpace(userMsg) == "" {
			break
		}
		prompt := replayPrompt(lastTurns(transcript, historyWindow), userMsg)
		reply, err := provider.GenerateText(ctx, b.client, prompt, defaultMaxTokens, defaultTemperature)
		reply = cleanAssistantReply(reply, err)
		transcript = append(transcript,
			config.ConversationTurn{Role: "user", Content: userMsg},
			config.ConversationTurn{Role: "assistant", Content: reply},
		)
	}
	latency := time.Since(start).Milliseconds()

	var userMsgs, outputs []string
	turnMaps := make([]map[string]any, len(transcript))
	for i, turn := range transcript {
		turnMaps[i] = map[string]any{"role": turn.Role, "content": turn.Content}
		if turn.Role == "user" {
			userMsgs = append(userMsgs, turn.Content)
		} else {
			outputs = append(outputs, turn.Content)
		}
	}
	entry := &store.EvaluationLog{
		ID:           uuid.NewString(),
		ExperimentID: meta.ExperimentID,
		Tenant:       meta.Tenant,
		ProjectID:    meta.ProjectID,
		TraceID:      uuid.NewString(),
		SpanName:     "simulated_conversation",
		InputText:    strings.Join(userMsgs, "\n"),
		OutputText:   strings.Join(outputs, "\n"),
		ModelName:    meta.ModelName,
		LatencyMS:    latency,
		TokenCount:   len(strings.Fields(strings.Join(outputs, " "))),
		Status:       store.LogStatusSuccess,
		Metadata: map[string]any{
			"is_conversational":        true,
			"simulated":                true,
			"scenario":                 scenario.Scenario,
			"turns":                    turnMaps,
			"expected_assistant_turns": []string{},
			"turn_count":               len(transcript),
		},
	}
	if err := b.store.CreateLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("create simulated conversation log: %w", err)
	}
	return &TestCase{
		Kind:            KindConversational,
		Turns:           transcript,
		Scenario:        scenario.Scenario,
		ExpectedOutcome: scenario.ExpectedOutcome,
		LogID:           entry.ID,
		MetricScores:    map[string]any{},
	}, nil
}

func lastTurns(turns []config.ConversationTurn, n int) []config.ConversationTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
