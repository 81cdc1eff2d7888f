//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package store defines the durable persistence contract of the
// evaluation engine. Every operation is tenant-scoped; passing an
// empty tenant is a programming error and is rejected with
// ErrTenantRequired.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the requested record does not exist
	// under the given tenant.
	ErrNotFound = errors.New("store: record not found")
	// ErrTenantRequired is returned when an operation is attempted
	// without a tenant.
	ErrTenantRequired = errors.New("store: tenant is required")
	// ErrTerminalStatus is returned when a status write would move an
	// experiment or arena comparison out of a terminal state.
	ErrTerminalStatus = errors.New("store: status is terminal")
	// ErrDuplicateMetricKey is returned when a scorer is created or
	// updated with a metric key already used in the same tenant and
	// project.
	ErrDuplicateMetricKey = errors.New("store: metric key already exists")
)

// Store is the persistence adapter the engine runs against.
type Store interface {
	ExperimentStore
	LogStore
	MetricStore
	ScorerStore
	ArenaStore
	UploadStore
}

// ExperimentStore manages durable experiment job records.
type ExperimentStore interface {
	// CreateExperiment persists a new experiment. Status defaults to
	// StatusPending when unset.
	CreateExperiment(ctx context.Context, exp *Experiment) error
	// UpdateExperimentStatus transitions the experiment status.
	// StartedAt is set only when transitioning into running;
	// CompletedAt is set when transitioning into completed or failed.
	// Writes of a non-terminal status over a terminal one fail with
	// ErrTerminalStatus.
	UpdateExperimentStatus(ctx context.Context, tenant, id string, status Status, errorMessage string) error
	// UpdateExperimentResults attaches aggregated results to a
	// completed experiment.
	UpdateExperimentResults(ctx context.Context, tenant, id string, results map[string]any) error
	// DeleteExperiment removes the experiment and cascades to its
	// logs. Metrics remain readable but orphaned.
	DeleteExperiment(ctx context.Context, tenant, id string) error
	// GetExperimentByID returns the experiment or ErrNotFound.
	GetExperimentByID(ctx context.Context, tenant, id string) (*Experiment, error)
	// GetExperiments lists experiments for a project, newest first.
	GetExperiments(ctx context.Context, tenant, projectID string, limit, offset int) ([]*Experiment, error)
	// GetExperimentCount returns the number of experiments for a project.
	GetExperimentCount(ctx context.Context, tenant, projectID string) (int, error)
}

// LogStore manages per-sample evaluation logs.
type LogStore interface {
	// CreateLog appends a log record.
	CreateLog(ctx context.Context, entry *EvaluationLog) error
	// UpdateLogMetadata merges the patch into the log metadata.
	// The merge is shallow on top-level keys and overwrites existing
	// keys when present.
	UpdateLogMetadata(ctx context.Context, tenant, id string, patch map[string]any) error
	// GetLogs lists logs for an experiment in insert order.
	GetLogs(ctx context.Context, tenant, experimentID string, limit, offset int) ([]*EvaluationLog, error)
	// GetLogCount returns the number of logs for an experiment.
	GetLogCount(ctx context.Context, tenant, experimentID string) (int, error)
}

// MetricStore manages aggregated metric rows.
type MetricStore interface {
	// CreateMetric writes one metric row.
	CreateMetric(ctx context.Context, m *EvaluationMetric) error
	// GetMetricAggregates returns metric name to value for an experiment.
	// Per-sample performance metrics are averaged.
	GetMetricAggregates(ctx context.Context, tenant, experimentID string) (map[string]float64, error)
}

// ScorerStore manages custom LLM-judge scorer definitions.
type ScorerStore interface {
	ListScorers(ctx context.Context, tenant, projectID string) ([]*ScorerDefinition, error)
	CreateScorer(ctx context.Context, def *ScorerDefinition) error
	UpdateScorer(ctx context.Context, def *ScorerDefinition) error
	DeleteScorer(ctx context.Context, tenant, id string) error
	GetScorerByID(ctx context.Context, tenant, id string) (*ScorerDefinition, error)
}

// ArenaStore manages arena comparisons.
type ArenaStore interface {
	CreateArenaComparison(ctx context.Context, cmp *ArenaComparison) error
	// UpdateArenaComparison overwrites the engine-owned fields of the
	// comparison (status, progress, winner, win counts, detailed
	// results, error message). The terminal-status rule applies.
	UpdateArenaComparison(ctx context.Context, cmp *ArenaComparison) error
	GetArenaComparison(ctx context.Context, tenant, id string) (*ArenaComparison, error)
	ListArenaComparisons(ctx context.Context, tenant string, limit, offset int) ([]*ArenaComparison, error)
	DeleteArenaComparison(ctx context.Context, tenant, id string) error
}

// UploadStore tracks uploaded dataset files.
type UploadStore interface {
	CreateDatasetUpload(ctx context.Context, up *DatasetUpload) error
	GetDatasetUpload(ctx context.Context, tenant, id string) (*DatasetUpload, error)
	ListDatasetUploads(ctx context.Context, tenant string) ([]*DatasetUpload, error)
}
