//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// evalforge runs one evaluation experiment or arena comparison from a
// JSON config file. Pre-flight failures (unreadable config, unknown
// provider, empty dataset) exit non-zero before any records are
// written; runtime failures finalize the job record as failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/evalops/evalforge/arena"
	"github.com/evalops/evalforge/artifact"
	"github.com/evalops/evalforge/config"
	"github.com/evalops/evalforge/dataset"
	"github.com/evalops/evalforge/experiment"
	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/status"
	statusinmemory "github.com/evalops/evalforge/status/inmemory"
	statusredis "github.com/evalops/evalforge/status/redis"
	"github.com/evalops/evalforge/store"
	storeinmemory "github.com/evalops/evalforge/store/inmemory"
	storemysql "github.com/evalops/evalforge/store/mysql"
)

func main() {
	var (
		mode        = flag.String("mode", "experiment", "run mode: experiment or arena")
		configPath  = flag.String("config", "", "path to the JSON config file (required)")
		tenant      = flag.String("tenant", "default", "tenant the run belongs to")
		mysqlDSN    = flag.String("mysql-dsn", "", "MySQL DSN; empty runs on the in-memory store")
		redisAddr   = flag.String("redis-addr", "", "Redis address for the status mirror; empty uses in-memory")
		artifactDir = flag.String("artifacts", "", "artifact root; empty writes under artifacts/deepeval_results")
		baseDir     = flag.String("base-dir", ".", "root for relative dataset paths")
		concurrency = flag.Int("concurrency", 4, "generation fan-out across samples")
		gateFile    = flag.String("gate-file", "", "optional quality-gate suite file")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()
	log.SetLevel(*logLevel)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "evalforge: -config is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(*mysqlDSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	mirror := buildStatusStore(*redisAddr)

	switch *mode {
	case "experiment":
		runExperiment(ctx, st, mirror, *configPath, *tenant, *baseDir, *artifactDir, *gateFile, *concurrency)
	case "arena":
		runArena(ctx, st, mirror, *configPath, *tenant, *baseDir)
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func buildStore(dsn string) (store.Store, error) {
	if dsn == "" {
		return storeinmemory.New(), nil
	}
	return storemysql.New(dsn)
}

func buildStatusStore(addr string) status.Store {
	if addr == "" {
		return statusinmemory.New()
	}
	return statusredis.New(redis.NewClient(&redis.Options{Addr: addr}))
}

func runExperiment(ctx context.Context, st store.Store, mirror status.Store, configPath, tenant, baseDir, artifactDir, gateFile string, concurrency int) {
	cfg, err := config.LoadExperimentFile(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	ds, err := dataset.Load(&cfg.Dataset, baseDir)
	if err != nil {
		log.Fatalf("load dataset: %v", err)
	}
	if ds.Len() == 0 {
		log.Fatalf("load dataset: %v", dataset.ErrEmpty)
	}
	if cfg.Dataset.Path != "" {
		recordUpload(ctx, st, tenant, baseDir, cfg.Dataset.Path, ds.Len())
	}

	experimentID := uuid.NewString()
	if err := st.CreateExperiment(ctx, &store.Experiment{
		ID:        experimentID,
		Tenant:    tenant,
		ProjectID: cfg.ProjectID,
		Name:      cfg.Name,
		Config:    scrubbedConfig(cfg),
	}); err != nil {
		log.Fatalf("create experiment: %v", err)
	}
	log.Infof("experiment %s created", experimentID)

	opts := []experiment.Option{
		experiment.WithStatusStore(mirror),
		experiment.WithBaseDir(baseDir),
		experiment.WithConcurrency(concurrency),
	}
	if artifactDir != "" {
		opts = append(opts, experiment.WithArtifactWriter(artifact.NewWriter(artifact.WithRoot(artifactDir))))
	} else {
		opts = append(opts, experiment.WithArtifactWriter(artifact.NewWriter()))
	}
	if gateFile != "" {
		opts = append(opts, experiment.WithGatekeeperFile(gateFile))
	}
	if err := experiment.New(st, opts...).Run(ctx, tenant, experimentID, cfg); err != nil {
		// The record already carries the failed status and error.
		log.Errorf("experiment %s failed: %v", experimentID, err)
		return
	}
	exp, err := st.GetExperimentByID(ctx, tenant, experimentID)
	if err != nil {
		log.Fatalf("read experiment: %v", err)
	}
	printJSON(exp.Results)
	log.Infof("experiment %s completed", experimentID)
}

// recordUpload registers a custom dataset file so later runs can
// reference it by record. Failures never block the run.
func recordUpload(ctx context.Context, st store.Store, tenant, baseDir, path string, promptCount int) {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(baseDir, path)
	}
	var size int64
	if info, err := os.Stat(resolved); err == nil {
		size = info.Size()
	}
	if err := st.CreateDatasetUpload(ctx, &store.DatasetUpload{
		Tenant:      tenant,
		Name:        filepath.Base(path),
		Path:        path,
		Size:        size,
		PromptCount: promptCount,
	}); err != nil {
		log.Warnf("record dataset upload %s: %v", path, err)
	}
}

func printJSON(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warnf("marshal results: %v", err)
		return
	}
	fmt.Println(string(raw))
}

func runArena(ctx context.Context, st store.Store, mirror status.Store, configPath, tenant, baseDir string) {
	cfg, err := config.LoadArenaFile(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	names := make([]string, len(cfg.Contestants))
	contestants := make([]store.Contestant, len(cfg.Contestants))
	for i, c := range cfg.Contestants {
		names[i] = c.Name
		contestants[i] = store.Contestant{Name: c.Name, Hyperparameters: config.Scrub(c.Hyperparameters)}
	}
	comparisonID := uuid.NewString()
	if err := st.CreateArenaComparison(ctx, &store.ArenaComparison{
		ID:              comparisonID,
		Tenant:          tenant,
		Name:            cfg.Name,
		Description:     cfg.Description,
		OrgID:           cfg.OrgID,
		Contestants:     contestants,
		ContestantNames: names,
		MetricConfig: store.ArenaMetricConfig{
			Name:        cfg.Metric.Name,
			Criteria:    cfg.Metric.Criteria,
			DatasetPath: cfg.Metric.DatasetPath,
		},
		JudgeModel: cfg.JudgeModel,
	}); err != nil {
		log.Fatalf("create arena comparison: %v", err)
	}
	log.Infof("arena comparison %s created", comparisonID)

	engine := arena.New(st, arena.WithStatusStore(mirror), arena.WithBaseDir(baseDir))
	if err := engine.Run(ctx, tenant, comparisonID, cfg); err != nil {
		log.Errorf("arena comparison %s failed: %v", comparisonID, err)
		return
	}
	cmp, err := st.GetArenaComparison(ctx, tenant, comparisonID)
	if err != nil {
		log.Fatalf("read comparison: %v", err)
	}
	printJSON(map[string]any{
		"winner":           cmp.Winner,
		"win_counts":       cmp.WinCounts,
		"detailed_results": cmp.DetailedResults,
	})
	log.Infof("arena comparison %s completed, winner: %s", comparisonID, cmp.Winner)
}

// scrubbedConfig projects the payload into its persisted form with
// secrets removed.
func scrubbedConfig(cfg *config.ExperimentConfig) map[string]any {
	raw := map[string]any{
		"project_id":     cfg.ProjectID,
		"name":           cfg.Name,
		"taskType":       cfg.TaskType,
		"evaluationMode": cfg.Mode(),
		"model": map[string]any{
			"name":     cfg.Model.Name,
			"provider": cfg.Model.ProviderTag(),
			"apiKey":   cfg.Model.APIKey,
		},
		"judgeLlm": map[string]any{
			"provider": cfg.JudgeLLM.Provider,
			"model":    cfg.JudgeLLM.Model,
			"apiKey":   cfg.JudgeLLM.APIKey,
		},
	}
	return config.Scrub(raw)
}
