//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package dataset resolves a dataset reference, inline samples, a
// built-in preset name or a file path, into a uniform sample set.
package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/evalops/evalforge/config"
)

// Kind discriminates what the dataset contains.
type Kind string

// Dataset kinds.
const (
	KindSingleTurn     Kind = "single_turn"
	KindConversational Kind = "conversational"
	KindSimulated      Kind = "simulated"
)

// ErrEmpty is returned when a dataset resolves to no samples. The text
// is part of the API surface; callers match on it.
var ErrEmpty = errors.New("No prompts or conversations in dataset")

// builtinPaths maps preset names to files under the data root.
var builtinPaths = map[string]string{
	"chatbot": filepath.Join("data", "datasets", "chatbot", "general_prompts.json"),
	"rag":     filepath.Join("data", "datasets", "rag", "document_qa.json"),
	"agent":   filepath.Join("data", "datasets", "agent", "tool_use.json"),
	"safety":  filepath.Join("data", "datasets", "safety", "adversarial_prompts.json"),
}

// Dataset is a resolved, uniform sample set. Exactly one of the sample
// slices is populated, per Kind.
type Dataset struct {
	Kind          Kind
	Prompts       []config.PromptSample
	Conversations []config.Conversation
	Scenarios     []config.ScenarioSample
	// MaxTurns bounds simulated conversations. Defaults to 6.
	MaxTurns int
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	switch d.Kind {
	case KindConversational:
		return len(d.Conversations)
	case KindSimulated:
		return len(d.Scenarios)
	default:
		return len(d.Prompts)
	}
}

// Truncate caps the dataset at n samples, preserving order.
func (d *Dataset) Truncate(n int) {
	if n <= 0 {
		return
	}
	if len(d.Prompts) > n {
		d.Prompts = d.Prompts[:n]
	}
	if len(d.Conversations) > n {
		d.Conversations = d.Conversations[:n]
	}
	if len(d.Scenarios) > n {
		d.Scenarios = d.Scenarios[:n]
	}
}

// Load resolves a dataset config. Priority: simulated scenarios,
// inline prompts/conversations, built-in preset, then custom path
// resolved against baseDir when relative.
func Load(cfg *config.DatasetConfig, baseDir string) (*Dataset, error) {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 6
	}
	if cfg.SimulatedMode {
		if len(cfg.Scenarios) == 0 {
			return nil, ErrEmpty
		}
		return &Dataset{Kind: KindSimulated, Scenarios: cfg.Scenarios, MaxTurns: maxTurns}, nil
	}
	if len(cfg.Prompts) > 0 {
		return &Dataset{Kind: KindSingleTurn, Prompts: cfg.Prompts, MaxTurns: maxTurns}, nil
	}
	if len(cfg.Conversations) > 0 {
		return &Dataset{Kind: KindConversational, Conversations: cfg.Conversations, MaxTurns: maxTurns}, nil
	}

	var path string
	switch {
	case cfg.UseBuiltin != "":
		rel, ok := builtinPaths[cfg.UseBuiltin]
		if !ok {
			return nil, fmt.Errorf("unknown built-in dataset: %q", cfg.UseBuiltin)
		}
		path = rel
	case cfg.Path != "":
		path = cfg.Path
	default:
		return nil, ErrEmpty
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	ds, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	ds.MaxTurns = maxTurns
	return ds, nil
}

// LoadFile parses a dataset file. The top level must be a JSON list;
// the first element's keys decide the kind: "turns" means
// conversational, "prompt" means single-turn.
func LoadFile(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse parses raw dataset JSON.
func Parse(raw []byte) (*Dataset, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("dataset is not a JSON list: %w", err)
	}
	if len(elements) == 0 {
		return nil, ErrEmpty
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(elements[0], &probe); err != nil {
		return nil, ErrEmpty
	}
	switch {
	case hasKey(probe, "turns"):
		var conversations []config.Conversation
		if err := json.Unmarshal(raw, &conversations); err != nil {
			return nil, fmt.Errorf("parse conversations: %w", err)
		}
		return &Dataset{Kind: KindConversational, Conversations: conversations}, nil
	case hasKey(probe, "prompt"):
		var prompts []config.PromptSample
		if err := json.Unmarshal(raw, &prompts); err != nil {
			return nil, fmt.Errorf("parse prompts: %w", err)
		}
		return &Dataset{Kind: KindSingleTurn, Prompts: prompts}, nil
	default:
		return nil, ErrEmpty
	}
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}
