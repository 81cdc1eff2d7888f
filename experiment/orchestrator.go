//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package experiment owns the end-to-end lifecycle of one evaluation
// experiment: pending to running, generation, metric dispatch, custom
// scorers, aggregation, and the terminal transition.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evalops/evalforge/artifact"
	"github.com/evalops/evalforge/config"
	"github.com/evalops/evalforge/dataset"
	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/metric"
	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/provider/registry"
	"github.com/evalops/evalforge/scorer"
	"github.com/evalops/evalforge/status"
	"github.com/evalops/evalforge/store"
	"github.com/evalops/evalforge/testcase"
)

// detailedResultsPreview caps how many per-sample results land in the
// experiment results payload.
const detailedResultsPreview = 10

// cancelledMessage is the error message recorded when a run is
// cancelled between samples.
const cancelledMessage = "cancelled"

// ClientFactory builds a provider client. Credentials are threaded
// per call; process env is never written.
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

// Orchestrator runs experiments to a terminal state.
type Orchestrator struct {
	store       store.Store
	status      status.Store
	artifacts   *artifact.Writer
	clients     ClientFactory
	baseDir     string
	concurrency int
	gateFile    string
	simulator   testcase.UserSimulator
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithStatusStore mirrors progress into an ephemeral status store.
func WithStatusStore(s status.Store) Option {
	return func(o *Orchestrator) { o.status = s }
}

// WithArtifactWriter enables per-run report files.
func WithArtifactWriter(w *artifact.Writer) Option {
	return func(o *Orchestrator) { o.artifacts = w }
}

// WithClientFactory replaces provider client construction.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) { o.clients = f }
}

// WithBaseDir sets the root for relative dataset paths.
func WithBaseDir(dir string) Option {
	return func(o *Orchestrator) { o.baseDir = dir }
}

// WithConcurrency sets the generation fan-out across samples.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithGatekeeperFile points at a quality-gate suite file. Gate
// failures never fail the experiment.
func WithGatekeeperFile(path string) Option {
	return func(o *Orchestrator) { o.gateFile = path }
}

// WithUserSimulator sets the simulator for simulated conversations.
func WithUserSimulator(s testcase.UserSimulator) Option {
	return func(o *Orchestrator) { o.simulator = s }
}

// New builds an orchestrator over the durable store.
func New(st store.Store, opt ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       st,
		clients:     defaultClientFactory,
		concurrency: 4,
	}
	for _, opts := range opt {
		opts(o)
	}
	return o
}

// Run drives one experiment to completed or failed. The experiment
// record must already exist as pending. Any failure after pick-up
// finalizes the experiment failed; partial logs and metrics remain.
func (o *Orchestrator) Run(ctx context.Context, tenant, experimentID string, cfg *config.ExperimentConfig) error {
	if err := o.transition(ctx, tenant, experimentID, store.StatusRunning, ""); err != nil {
		return err
	}
	results, err := o.execute(ctx, tenant, experimentID, cfg)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.Canceled) {
			msg = cancelledMessage
		}
		log.Errorf("experiment %s failed: %v", experimentID, err)
		if finalErr := o.transition(ctx, tenant, experimentID, store.StatusFailed, msg); finalErr != nil {
			log.Errorf("experiment %s: last-ditch failed write: %v", experimentID, finalErr)
		}
		return err
	}
	if err := o.store.UpdateExperimentResults(ctx, tenant, experimentID, results); err != nil {
		_ = o.transition(ctx, tenant, experimentID, store.StatusFailed, err.Error())
		return err
	}
	return o.transition(ctx, tenant, experimentID, store.StatusCompleted, "")
}

// transition writes the durable status and mirrors it to the
// ephemeral store.
func (o *Orchestrator) transition(ctx context.Context, tenant, id string, st store.Status, errMsg string) error {
	if err := o.store.UpdateExperimentStatus(ctx, tenant, id, st, errMsg); err != nil {
		return err
	}
	o.mirror(ctx, id, &status.JobStatus{Status: string(st), Error: errMsg})
	return nil
}

func (o *Orchestrator) mirror(ctx context.Context, id string, st *status.JobStatus) {
	if o.status == nil {
		return
	}
	if err := o.status.SetJobStatus(ctx, id, st); err != nil {
		log.Warnf("mirror job status %s: %v", id, err)
	}
}

func (o *Orchestrator) execute(ctx context.Context, tenant, experimentID string, cfg *config.ExperimentConfig) (map[string]any, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target, err := o.clients(ctx, cfg.Model.ProviderTag(), cfg.Model.Name, cfg.ModelCredentials())
	if err != nil {
		return nil, fmt.Errorf("build target client: %w", err)
	}

	ds, err := dataset.Load(&cfg.Dataset, o.baseDir)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, dataset.ErrEmpty
	}

	builderOpts := []testcase.Option{testcase.WithConcurrency(o.concurrency)}
	if o.simulator != nil {
		builderOpts = append(builderOpts, testcase.WithUserSimulator(o.simulator))
	}
	builder := testcase.New(target, o.store, builderOpts...)
	cases, err := builder.Build(ctx, ds, testcase.RunMeta{
		Tenant:       tenant,
		ProjectID:    cfg.ProjectID,
		ExperimentID: experimentID,
		ModelName:    cfg.Model.Name,
	})
	if err != nil {
		return nil, err
	}

	mode := cfg.Mode()
	if mode == config.ModeStandard || mode == config.ModeBoth {
		if err := o.runBuiltinMetrics(ctx, cfg, cases); err != nil {
			return nil, err
		}
	}
	scorerAverages := map[string]float64{}
	if mode == config.ModeScorer || mode == config.ModeBoth {
		scorerAverages, err = o.runCustomScorers(ctx, tenant, cfg, cases)
		if err != nil {
			return nil, err
		}
	}

	if err := o.mergeMetricScores(ctx, tenant, cases); err != nil {
		return nil, err
	}

	avgScores := metric.Aggregate(cases)
	for key, avg := range scorerAverages {
		avgScores[key] = avg
	}
	if err := o.writeQualityMetrics(ctx, tenant, experimentID, avgScores); err != nil {
		return nil, err
	}

	results := o.buildResults(tenant, experimentID, cases, avgScores)
	return results, nil
}

func (o *Orchestrator) runBuiltinMetrics(ctx context.Context, cfg *config.ExperimentConfig, cases []*testcase.TestCase) error {
	settings := metric.ResolveJudgeSettings(cfg.JudgeLLM.Provider, cfg.JudgeLLM.Model, cfg.JudgeLLM.MaxTokens)
	judgeClient, err := o.clients(ctx, settings.Provider, settings.Model, cfg.JudgeCredentials())
	if err != nil {
		return fmt.Errorf("build judge client: %w", err)
	}
	judge := metric.NewJudge(judgeClient,
		metric.WithJudgeMaxTokens(settings.MaxTokens),
		metric.WithJudgeTemperature(settings.Temperature),
	)
	opts := []metric.Option{metric.WithThresholds(cfg.Thresholds)}
	if len(cfg.Metrics) > 0 {
		opts = append(opts, metric.WithMetrics(cfg.Metrics))
	} else {
		opts = append(opts, metric.WithTaskType(cfg.TaskType))
	}
	return metric.NewDispatcher(judge, opts...).Run(ctx, cases)
}

// runCustomScorers evaluates the eligible scorer definitions against
// every test case and returns per-metric-key averages.
func (o *Orchestrator) runCustomScorers(ctx context.Context, tenant string, cfg *config.ExperimentConfig, cases []*testcase.TestCase) (map[string]float64, error) {
	all, err := o.store.ListScorers(ctx, tenant, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("list scorers: %w", err)
	}
	defs := scorer.Filter(all, cfg.SelectedScorers)
	if len(defs) == 0 {
		return map[string]float64{}, nil
	}
	runner := scorer.NewRunner(func(ctx context.Context, jm store.ScorerJudgeModel) (provider.Client, error) {
		creds := config.CredentialsFor(jm.Provider, cfg.ScorerAPIKeys[jm.Provider])
		return o.clients(ctx, jm.Provider, jm.Name, creds)
	})

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		input, output := tc.Input, tc.ActualOutput
		if tc.Kind == testcase.KindConversational {
			var users, assistants []string
			for _, turn := range tc.Turns {
				if turn.Role == "user" {
					users = append(users, turn.Content)
				} else {
					assistants = append(assistants, turn.Content)
				}
			}
			input = join(users)
			output = join(assistants)
		}
		for _, def := range defs {
			res := runner.Evaluate(ctx, def, input, output, tc.ExpectedOutput)
			if tc.MetricScores == nil {
				tc.MetricScores = map[string]any{}
			}
			tc.MetricScores[res.ScorerName] = res
			if res.Score != nil {
				sums[def.MetricKey] += *res.Score
				counts[def.MetricKey]++
			}
		}
	}
	avgs := make(map[string]float64, len(sums))
	for key, sum := range sums {
		avgs[key] = sum / float64(counts[key])
	}
	return avgs, nil
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// mergeMetricScores performs the single metadata-merge per log that
// attaches metric_scores after all metrics complete.
func (o *Orchestrator) mergeMetricScores(ctx context.Context, tenant string, cases []*testcase.TestCase) error {
	for _, tc := range cases {
		if tc.LogID == "" {
			continue
		}
		normalized := make(map[string]any, len(tc.MetricScores))
		for name, res := range tc.MetricScores {
			normalized[metric.NormalizeKey(name)] = res
		}
		if err := o.store.UpdateLogMetadata(ctx, tenant, tc.LogID, map[string]any{
			"metric_scores": normalized,
		}); err != nil {
			return fmt.Errorf("merge metric scores into log %s: %w", tc.LogID, err)
		}
	}
	return nil
}

func (o *Orchestrator) writeQualityMetrics(ctx context.Context, tenant, experimentID string, avgs map[string]float64) error {
	for name, value := range avgs {
		if err := o.store.CreateMetric(ctx, &store.EvaluationMetric{
			ID:           uuid.NewString(),
			Tenant:       tenant,
			ExperimentID: experimentID,
			MetricName:   name,
			MetricType:   store.MetricTypeQuality,
			Value:        value,
		}); err != nil {
			return fmt.Errorf("write quality metric %s: %w", name, err)
		}
	}
	return nil
}

func (o *Orchestrator) buildResults(tenant, experimentID string, cases []*testcase.TestCase, avgScores map[string]float64) map[string]any {
	detailed := make([]map[string]any, 0, detailedResultsPreview)
	for i, tc := range cases {
		if i == detailedResultsPreview {
			break
		}
		entry := map[string]any{
			"metric_scores": tc.MetricScores,
			"log_id":        tc.LogID,
		}
		if tc.Kind == testcase.KindConversational {
			entry["scenario"] = tc.Scenario
			entry["turns"] = tc.Turns
			entry["expected_outcome"] = tc.ExpectedOutcome
		} else {
			entry["input"] = tc.Input
			entry["actual_output"] = tc.ActualOutput
			entry["expected_output"] = tc.ExpectedOutput
		}
		detailed = append(detailed, entry)
	}
	avgAny := make(map[string]any, len(avgScores))
	for k, v := range avgScores {
		avgAny[k] = v
	}
	results := map[string]any{
		"total_prompts":    len(cases),
		"avg_scores":       avgAny,
		"detailed_results": detailed,
		"completed_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if gate := o.runGatekeeper(avgScores); gate != nil {
		results["gatekeeper"] = gate
	}
	if o.artifacts != nil {
		if dir, err := o.artifacts.WriteRun(tenant, experimentID, results); err != nil {
			log.Warnf("write artifacts for %s: %v", experimentID, err)
		} else {
			results["artifacts_dir"] = dir
		}
	}
	return results
}
