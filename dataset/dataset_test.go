//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/config"
)

func TestParseSingleTurn(t *testing.T) {
	raw := []byte(`[
		{"prompt": "What is 2+2?", "expected_output": "4", "category": "math"},
		{"prompt": "Capital of France?", "expected_output": "Paris"}
	]`)
	ds, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindSingleTurn, ds.Kind)
	require.Len(t, ds.Prompts, 2)
	assert.Equal(t, "What is 2+2?", ds.Prompts[0].Prompt)
	assert.Equal(t, "Paris", ds.Prompts[1].ExpectedOutput)
}

func TestParseConversational(t *testing.T) {
	raw := []byte(`[
		{"scenario": "greeting", "turns": [
			{"role": "user", "content": "Hi"},
			{"role": "assistant", "content": "Hello"}
		]}
	]`)
	ds, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindConversational, ds.Kind)
	require.Len(t, ds.Conversations, 1)
	assert.Len(t, ds.Conversations[0].Turns, 2)
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not a list", raw: `{"prompt": "hi"}`},
		{name: "empty list", raw: `[]`},
		{name: "unrecognized elements", raw: `[{"question": "hi"}]`},
		{name: "scalar elements", raw: `["hi"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			require.Error(t, err)
		})
	}
}

func TestParseEmptyListErrorText(t *testing.T) {
	_, err := Parse([]byte(`[]`))
	require.EqualError(t, err, "No prompts or conversations in dataset")
}

func TestLoadPriorityOrder(t *testing.T) {
	// Inline prompts win over everything else.
	ds, err := Load(&config.DatasetConfig{
		Prompts:    []config.PromptSample{{Prompt: "inline"}},
		UseBuiltin: "chatbot",
		Path:       "ignored.json",
	}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, KindSingleTurn, ds.Kind)
	assert.Equal(t, "inline", ds.Prompts[0].Prompt)

	// Simulated mode wins over inline prompts.
	ds, err = Load(&config.DatasetConfig{
		SimulatedMode: true,
		Scenarios:     []config.ScenarioSample{{Scenario: "refund request"}},
		Prompts:       []config.PromptSample{{Prompt: "inline"}},
	}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, KindSimulated, ds.Kind)
	assert.Equal(t, 6, ds.MaxTurns)
}

func TestLoadCustomPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"prompt": "from file"}]`), 0o644))

	ds, err := Load(&config.DatasetConfig{Path: "custom.json"}, dir)
	require.NoError(t, err)
	require.Len(t, ds.Prompts, 1)
	assert.Equal(t, "from file", ds.Prompts[0].Prompt)
}

func TestLoadUnknownBuiltin(t *testing.T) {
	_, err := Load(&config.DatasetConfig{UseBuiltin: "nonexistent"}, t.TempDir())
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	ds := &Dataset{
		Kind: KindSingleTurn,
		Prompts: []config.PromptSample{
			{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"},
		},
	}
	ds.Truncate(2)
	require.Len(t, ds.Prompts, 2)
	assert.Equal(t, "a", ds.Prompts[0].Prompt)
	assert.Equal(t, 2, ds.Len())
}
