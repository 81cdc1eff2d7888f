//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package testcase materializes dataset samples into test cases by
// running the target model, recording logs and latency metrics as
// side effects.
package testcase

import (
	"github.com/evalops/evalforge/config"
)

// Kind discriminates test case shapes.
type Kind string

// Test case kinds.
const (
	KindSingleTurn     Kind = "single_turn"
	KindConversational Kind = "conversational"
)

// TestCase is one materialized evaluation unit. Single-turn cases
// populate Input/ActualOutput; conversational cases populate Turns.
type TestCase struct {
	Kind Kind

	// Single-turn fields.
	Input            string
	ActualOutput     string
	ExpectedOutput   string
	RetrievalContext []string

	// Conversational fields.
	Turns           []config.ConversationTurn
	Scenario        string
	ExpectedOutcome string

	// LogID names the originating evaluation log so metric scores can
	// be merged back after dispatch.
	LogID string

	// MetricScores accumulates per-metric results keyed by metric key.
	MetricScores map[string]any
}

// UserTurns returns the user messages of a conversational case.
func (tc *TestCase) UserTurns() []string {
	var out []string
	for _, turn := range tc.Turns {
		if turn.Role == "user" {
			out = append(out, turn.Content)
		}
	}
	return out
}
