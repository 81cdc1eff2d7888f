//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package arena runs head-to-head model comparisons: every contestant
// answers the same prompts and a judge model picks a winner per prompt.
package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/evalops/evalforge/config"
	"github.com/evalops/evalforge/dataset"
	"github.com/evalops/evalforge/internal/jsonx"
	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/provider/registry"
	"github.com/evalops/evalforge/status"
	"github.com/evalops/evalforge/store"
)

const (
	// maxPrompts caps how many dataset prompts one comparison judges.
	maxPrompts = 10
	// contestantMaxTokens is the per-answer generation budget.
	contestantMaxTokens = 1024
	judgeMaxTokens      = 1024
	// tieLabel is the judge's verdict when no contestant wins a prompt.
	tieLabel = "TIE"

	cancelledMessage = "cancelled"
)

// ClientFactory builds a provider client for a contestant or judge.
type ClientFactory func(ctx context.Context, providerTag, model string, creds config.Credentials) (provider.Client, error)

func defaultClientFactory(ctx context.Context, providerTag, model string, creds config.Credentials) (provider.Client, error) {
	var opts []registry.Option
	if creds.APIKey != "" {
		opts = append(opts, registry.WithAPIKey(creds.APIKey))
	}
	if creds.BaseURL != "" {
		opts = append(opts, registry.WithBaseURL(creds.BaseURL))
	}
	return registry.New(ctx, providerTag, model, opts...)
}

// Engine drives arena comparisons to a terminal state.
type Engine struct {
	store   store.Store
	status  status.Store
	clients ClientFactory
	baseDir string
}

// Option configures the engine.
type Option func(*Engine)

// WithStatusStore mirrors progress into an ephemeral status store.
func WithStatusStore(s status.Store) Option {
	return func(e *Engine) { e.status = s }
}

// WithClientFactory replaces provider client construction.
func WithClientFactory(f ClientFactory) Option {
	return func(e *Engine) { e.clients = f }
}

// WithBaseDir sets the root for relative dataset paths.
func WithBaseDir(dir string) Option {
	return func(e *Engine) { e.baseDir = dir }
}

// New builds an engine over the durable store.
func New(st store.Store, opt ...Option) *Engine {
	e := &Engine{store: st, clients: defaultClientFactory}
	for _, o := range opt {
		o(e)
	}
	return e
}

// Run drives one comparison to completed or failed. The comparison
// record must already exist as pending.
func (e *Engine) Run(ctx context.Context, tenant, comparisonID string, cfg *config.ArenaConfig) error {
	cmp, err := e.store.GetArenaComparison(ctx, tenant, comparisonID)
	if err != nil {
		return err
	}
	cmp.Status = store.StatusRunning
	if err := e.save(ctx, cmp); err != nil {
		return err
	}

	runErr := e.execute(ctx, cmp, cfg)
	if runErr != nil {
		msg := runErr.Error()
		if errors.Is(runErr, context.Canceled) {
			msg = cancelledMessage
		}
		log.Errorf("arena comparison %s failed: %v", comparisonID, runErr)
		cmp.Status = store.StatusFailed
		cmp.ErrorMessage = msg
		if err := e.save(ctx, cmp); err != nil {
			log.Errorf("arena comparison %s: last-ditch failed write: %v", comparisonID, err)
		}
		return runErr
	}
	cmp.Status = store.StatusCompleted
	cmp.Progress = ""
	return e.save(ctx, cmp)
}

// save persists the comparison and mirrors its status.
func (e *Engine) save(ctx context.Context, cmp *store.ArenaComparison) error {
	if err := e.store.UpdateArenaComparison(ctx, cmp); err != nil {
		return err
	}
	if e.status != nil {
		st := &status.JobStatus{Status: string(cmp.Status), Progress: cmp.Progress, Error: cmp.ErrorMessage}
		if err := e.status.SetJobStatus(ctx, cmp.ID, st); err != nil {
			log.Warnf("mirror arena status %s: %v", cmp.ID, err)
		}
	}
	return nil
}

type contestantClient struct {
	name   string
	client provider.Client
}

func (e *Engine) execute(ctx context.Context, cmp *store.ArenaComparison, cfg *config.ArenaConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ds, err := e.loadPrompts(cfg)
	if err != nil {
		return err
	}

	contestants := make([]contestantClient, 0, len(cfg.Contestants))
	for _, c := range cfg.Contestants {
		client, err := e.clients(ctx, c.Provider(), c.Model(), cfg.ContestantCredentials(c))
		if err != nil {
			return fmt.Errorf("build client for contestant %s: %w", c.Name, err)
		}
		contestants = append(contestants, contestantClient{name: c.Name, client: client})
	}
	judgeTag := InferJudgeProvider(cfg.JudgeModel)
	judge, err := e.clients(ctx, judgeTag, cfg.JudgeModel, config.CredentialsFor(judgeTag, cfg.APIKeys[judgeTag]))
	if err != nil {
		return fmt.Errorf("build judge client: %w", err)
	}

	names := make([]string, len(contestants))
	for i, c := range contestants {
		names[i] = c.name
	}
	winCounts := make(map[string]int, len(names))
	for _, name := range names {
		winCounts[name] = 0
	}
	var detailed []map[string]any

	for i, sample := range ds.Prompts {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmp.Progress = fmt.Sprintf("Processing prompt %d/%d", i+1, len(ds.Prompts))
		cmp.WinCounts = winCounts
		cmp.DetailedResults = detailed
		if err := e.save(ctx, cmp); err != nil {
			return err
		}

		answers := make(map[string]string, len(contestants))
		for _, c := range contestants {
			text, genErr := provider.GenerateText(ctx, c.client, sample.Prompt, contestantMaxTokens, 0.7)
			if genErr != nil {
				text = "Error: " + genErr.Error()
			}
			answers[c.name] = text
		}

		verdict := e.judgePrompt(ctx, judge, cfg.Metric, sample.Prompt, names, answers)
		if verdict.Winner != tieLabel && verdict.Winner != "" {
			winCounts[verdict.Winner]++
		}
		detailed = append(detailed, map[string]any{
			"testCaseIndex": i,
			"input":         sample.Prompt,
			"winner":        verdict.Winner,
			"reason":        verdict.Reasoning,
			"contestants":   answers,
			"scores":        verdict.Scores,
			"criteria":      cfg.Metric.Name,
		})
	}

	cmp.WinCounts = winCounts
	cmp.DetailedResults = detailed
	cmp.Winner = overallWinner(winCounts)
	return nil
}

// loadPrompts resolves the comparison dataset and caps it at
// maxPrompts single-turn prompts.
func (e *Engine) loadPrompts(cfg *config.ArenaConfig) (*dataset.Dataset, error) {
	dsCfg := &config.DatasetConfig{Path: cfg.Metric.DatasetPath}
	if cfg.Metric.DatasetPath == "" {
		dsCfg = &config.DatasetConfig{UseBuiltin: config.TaskChatbot}
	}
	ds, err := dataset.Load(dsCfg, e.baseDir)
	if err != nil {
		return nil, err
	}
	if len(ds.Prompts) == 0 {
		return nil, dataset.ErrEmpty
	}
	ds.Truncate(maxPrompts)
	return ds, nil
}

// verdict is the judge's decision for one prompt. Scores holds either
// flat numbers or per-criterion maps, depending on the judge. An empty
// winner means no valid winner was declared.
type verdict struct {
	Scores    map[string]any `json:"scores"`
	Winner    string         `json:"winner"`
	Reasoning string         `json:"reasoning"`
}

// judgePrompt asks the judge to rank the answers for one prompt. Judge
// failures degrade to a no-winner verdict.
func (e *Engine) judgePrompt(ctx context.Context, judge provider.Client, metric config.ArenaMetric, prompt string, names []string, answers map[string]string) verdict {
	reply, err := provider.GenerateText(ctx, judge, buildJudgePrompt(metric, prompt, names, answers), judgeMaxTokens, 0.0)
	if err != nil {
		log.Warnf("arena judge call failed: %v", err)
		return verdict{Reasoning: "Judge error: " + err.Error()}
	}
	return parseVerdict(reply, names)
}

func buildJudgePrompt(metric config.ArenaMetric, prompt string, names []string, answers map[string]string) string {
	var sb strings.Builder
	sb.WriteString("You are an impartial judge comparing AI model responses.\n")
	if metric.Name != "" {
		sb.WriteString("Score each response on these criteria: " + metric.Name + "\n")
	}
	if metric.Criteria != "" {
		sb.WriteString("Judging guidance: " + metric.Criteria + "\n")
	}
	sb.WriteString("\nUser prompt:\n" + prompt + "\n")
	for _, name := range names {
		sb.WriteString("\nResponse from " + name + ":\n" + answers[name] + "\n")
	}
	sb.WriteString("\nRespond with ONLY a raw JSON object, no markdown fences. Format: ")
	sb.WriteString(`{"scores": {"<contestant>": {"<criterion>": 0-10, ...}, ...}, "winner": "<contestant name or TIE>", "reasoning": "<brief>"}`)
	return sb.String()
}

// parseVerdict decodes the judge reply. A declared winner must match a
// contestant name case-insensitively or be TIE; an unmatched winner is
// dropped. When the reply carries no JSON at all, the raw text is
// scanned for a contestant mention.
func parseVerdict(reply string, names []string) verdict {
	var v verdict
	parsed := false
	if obj, ok := jsonx.ExtractObject(reply); ok {
		if err := json.Unmarshal([]byte(obj), &v); err != nil {
			log.Warnf("arena verdict unmarshal failed: %v", err)
		} else {
			parsed = true
		}
	}
	if parsed {
		if matched, ok := matchName(v.Winner, names); ok {
			v.Winner = matched
			return v
		}
		if strings.Contains(strings.ToUpper(v.Winner), tieLabel) {
			v.Winner = tieLabel
			return v
		}
		v.Winner = ""
		return v
	}
	// Unstructured reply: fall back to the first contestant mentioned.
	if matched, ok := matchName(reply, names); ok {
		v.Winner = matched
		v.Reasoning = "Winner extracted from unstructured judge response"
		return v
	}
	return verdict{Reasoning: "Unable to parse judge response"}
}

// matchName finds the contestant whose name appears in s,
// case-insensitively. Longer names are tried first so one contestant
// name being a prefix of another does not misattribute.
func matchName(s string, names []string) (string, bool) {
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	ordered := append([]string(nil), names...)
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	lower := strings.ToLower(s)
	for _, name := range ordered {
		if strings.Contains(lower, strings.ToLower(name)) {
			return name, true
		}
	}
	return "", false
}

// overallWinner picks the contestant with the most prompt wins, or the
// literal "Tie: A, B" form when several share the maximum.
func overallWinner(winCounts map[string]int) string {
	max := 0
	for _, count := range winCounts {
		if count > max {
			max = count
		}
	}
	if max == 0 {
		return tieLabel
	}
	var leaders []string
	for name, count := range winCounts {
		if count == max {
			leaders = append(leaders, name)
		}
	}
	sort.Strings(leaders)
	if len(leaders) == 1 {
		return leaders[0]
	}
	return "Tie: " + strings.Join(leaders, ", ")
}

// judgeProviderHints maps model-name substrings to provider tags.
var judgeProviderHints = []struct {
	substr string
	tag    string
}{
	{"claude", "anthropic"},
	{"gemini", "google"},
	{"magistral", "mistral"},
	{"mistral", "mistral"},
	{"grok", "xai"},
}

// InferJudgeProvider guesses the provider tag from a judge model name.
// Unrecognized names default to openai.
func InferJudgeProvider(model string) string {
	lower := strings.ToLower(model)
	for _, hint := range judgeProviderHints {
		if strings.Contains(lower, hint.substr) {
			return hint.tag
		}
	}
	return "openai"
}
