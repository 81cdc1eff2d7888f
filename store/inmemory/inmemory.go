//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory implementation of store.Store.
// It backs tests and single-node development setups; durability is the
// MySQL store's job.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evalops/evalforge/store"
)

// Store is an in-memory store.Store implementation. All methods are
// safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	experiments map[string]*store.Experiment
	logs        []*store.EvaluationLog
	metrics     []*store.EvaluationMetric
	scorers     map[string]*store.ScorerDefinition
	arenas      map[string]*store.ArenaComparison
	uploads     map[string]*store.DatasetUpload
	now         func() time.Time
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		experiments: make(map[string]*store.Experiment),
		scorers:     make(map[string]*store.ScorerDefinition),
		arenas:      make(map[string]*store.ArenaComparison),
		uploads:     make(map[string]*store.DatasetUpload),
		now:         time.Now,
	}
}

var _ store.Store = (*Store)(nil)

// CreateExperiment persists a new experiment record.
func (s *Store) CreateExperiment(_ context.Context, exp *store.Experiment) error {
	if exp.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if exp.Status == "" {
		exp.Status = store.StatusPending
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = s.now()
	}
	cp := *exp
	s.experiments[exp.ID] = &cp
	return nil
}

// UpdateExperimentStatus transitions the experiment lifecycle state.
func (s *Store) UpdateExperimentStatus(_ context.Context, tenant, id string, status store.Status, errorMessage string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiments[id]
	if !ok || exp.Tenant != tenant {
		return store.ErrNotFound
	}
	if exp.Status.Terminal() && !status.Terminal() {
		return fmt.Errorf("experiment %s is %s: %w", id, exp.Status, store.ErrTerminalStatus)
	}
	ts := s.now()
	if status == store.StatusRunning && exp.Status != store.StatusRunning {
		exp.StartedAt = &ts
	}
	if status.Terminal() {
		exp.CompletedAt = &ts
	}
	exp.Status = status
	if status == store.StatusFailed {
		exp.ErrorMessage = errorMessage
	}
	return nil
}

// UpdateExperimentResults attaches aggregated results.
func (s *Store) UpdateExperimentResults(_ context.Context, tenant, id string, results map[string]any) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiments[id]
	if !ok || exp.Tenant != tenant {
		return store.ErrNotFound
	}
	exp.Results = results
	return nil
}

// DeleteExperiment removes the experiment and cascades to its logs.
func (s *Store) DeleteExperiment(_ context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiments[id]
	if !ok || exp.Tenant != tenant {
		return store.ErrNotFound
	}
	delete(s.experiments, id)
	kept := s.logs[:0]
	for _, l := range s.logs {
		if l.ExperimentID != id {
			kept = append(kept, l)
		}
	}
	s.logs = kept
	// Metrics remain readable but orphaned.
	return nil
}

// GetExperimentByID returns a copy of the experiment.
func (s *Store) GetExperimentByID(_ context.Context, tenant, id string) (*store.Experiment, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.experiments[id]
	if !ok || exp.Tenant != tenant {
		return nil, store.ErrNotFound
	}
	cp := *exp
	return &cp, nil
}

// GetExperiments lists experiments for a project, newest first.
func (s *Store) GetExperiments(_ context.Context, tenant, projectID string, limit, offset int) ([]*store.Experiment, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Experiment
	for _, exp := range s.experiments {
		if exp.Tenant != tenant {
			continue
		}
		if projectID != "" && exp.ProjectID != projectID {
			continue
		}
		cp := *exp
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

// GetExperimentCount returns the number of experiments for a project.
func (s *Store) GetExperimentCount(ctx context.Context, tenant, projectID string) (int, error) {
	exps, err := s.GetExperiments(ctx, tenant, projectID, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(exps), nil
}

// CreateLog appends a log record preserving insert order.
func (s *Store) CreateLog(_ context.Context, entry *store.EvaluationLog) error {
	if entry.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	cp := *entry
	cp.Metadata = cloneMap(entry.Metadata)
	s.logs = append(s.logs, &cp)
	return nil
}

// UpdateLogMetadata shallow-merges the patch into the log metadata.
// Existing top-level keys are overwritten when present in the patch.
func (s *Store) UpdateLogMetadata(_ context.Context, tenant, id string, patch map[string]any) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ID != id || l.Tenant != tenant {
			continue
		}
		if l.Metadata == nil {
			l.Metadata = make(map[string]any, len(patch))
		}
		for k, v := range patch {
			l.Metadata[k] = v
		}
		return nil
	}
	return store.ErrNotFound
}

// GetLogs lists logs for an experiment in insert order.
func (s *Store) GetLogs(_ context.Context, tenant, experimentID string, limit, offset int) ([]*store.EvaluationLog, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.EvaluationLog
	for _, l := range s.logs {
		if l.Tenant != tenant || l.ExperimentID != experimentID {
			continue
		}
		cp := *l
		cp.Metadata = cloneMap(l.Metadata)
		out = append(out, &cp)
	}
	return paginate(out, limit, offset), nil
}

// GetLogCount returns the number of logs for an experiment.
func (s *Store) GetLogCount(ctx context.Context, tenant, experimentID string) (int, error) {
	logs, err := s.GetLogs(ctx, tenant, experimentID, 0, 0)
	if err != nil {
		return 0, err
	}
	return len(logs), nil
}

// CreateMetric writes one metric row.
func (s *Store) CreateMetric(_ context.Context, m *store.EvaluationMetric) error {
	if m.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	cp := *m
	s.metrics = append(s.metrics, &cp)
	return nil
}

// GetMetricAggregates averages metric values per name for an experiment.
func (s *Store) GetMetricAggregates(_ context.Context, tenant, experimentID string) (map[string]float64, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, m := range s.metrics {
		if m.Tenant != tenant || m.ExperimentID != experimentID {
			continue
		}
		sums[m.MetricName] += m.Value
		counts[m.MetricName]++
	}
	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / float64(counts[name])
	}
	return out, nil
}

// ListScorers lists scorers for a tenant, optionally filtered by project.
func (s *Store) ListScorers(_ context.Context, tenant, projectID string) ([]*store.ScorerDefinition, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.ScorerDefinition
	for _, def := range s.scorers {
		if def.Tenant != tenant {
			continue
		}
		if projectID != "" && def.ProjectID != "" && def.ProjectID != projectID {
			continue
		}
		cp := *def
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateScorer persists a scorer definition.
func (s *Store) CreateScorer(_ context.Context, def *store.ScorerDefinition) error {
	if def.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.scorers {
		if existing.Tenant == def.Tenant && existing.ProjectID == def.ProjectID &&
			existing.MetricKey == def.MetricKey {
			return fmt.Errorf("metric key %q: %w", def.MetricKey, store.ErrDuplicateMetricKey)
		}
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	ts := s.now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = ts
	}
	def.UpdatedAt = ts
	cp := *def
	s.scorers[def.ID] = &cp
	return nil
}

// UpdateScorer replaces an existing scorer definition.
func (s *Store) UpdateScorer(_ context.Context, def *store.ScorerDefinition) error {
	if def.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.scorers[def.ID]
	if !ok || existing.Tenant != def.Tenant {
		return store.ErrNotFound
	}
	for id, other := range s.scorers {
		if id == def.ID {
			continue
		}
		if other.Tenant == def.Tenant && other.ProjectID == def.ProjectID &&
			other.MetricKey == def.MetricKey {
			return fmt.Errorf("metric key %q: %w", def.MetricKey, store.ErrDuplicateMetricKey)
		}
	}
	def.CreatedAt = existing.CreatedAt
	def.UpdatedAt = s.now()
	cp := *def
	s.scorers[def.ID] = &cp
	return nil
}

// DeleteScorer removes a scorer.
func (s *Store) DeleteScorer(_ context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.scorers[id]
	if !ok || def.Tenant != tenant {
		return store.ErrNotFound
	}
	delete(s.scorers, id)
	return nil
}

// GetScorerByID returns a copy of a scorer definition.
func (s *Store) GetScorerByID(_ context.Context, tenant, id string) (*store.ScorerDefinition, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.scorers[id]
	if !ok || def.Tenant != tenant {
		return nil, store.ErrNotFound
	}
	cp := *def
	return &cp, nil
}

// CreateArenaComparison persists a new comparison record.
func (s *Store) CreateArenaComparison(_ context.Context, cmp *store.ArenaComparison) error {
	if cmp.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cmp.ID == "" {
		cmp.ID = uuid.NewString()
	}
	if cmp.Status == "" {
		cmp.Status = store.StatusPending
	}
	if cmp.CreatedAt.IsZero() {
		cmp.CreatedAt = s.now()
	}
	cp := *cmp
	s.arenas[cmp.ID] = &cp
	return nil
}

// UpdateArenaComparison overwrites the engine-owned fields.
func (s *Store) UpdateArenaComparison(_ context.Context, cmp *store.ArenaComparison) error {
	if cmp.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.arenas[cmp.ID]
	if !ok || existing.Tenant != cmp.Tenant {
		return store.ErrNotFound
	}
	if existing.Status.Terminal() && !cmp.Status.Terminal() {
		return fmt.Errorf("comparison %s is %s: %w", cmp.ID, existing.Status, store.ErrTerminalStatus)
	}
	if cmp.Status.Terminal() && existing.CompletedAt == nil {
		ts := s.now()
		existing.CompletedAt = &ts
	}
	existing.Status = cmp.Status
	existing.Progress = cmp.Progress
	existing.Winner = cmp.Winner
	existing.WinCounts = cmp.WinCounts
	existing.DetailedResults = cmp.DetailedResults
	existing.ErrorMessage = cmp.ErrorMessage
	return nil
}

// GetArenaComparison returns a copy of the comparison.
func (s *Store) GetArenaComparison(_ context.Context, tenant, id string) (*store.ArenaComparison, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cmp, ok := s.arenas[id]
	if !ok || cmp.Tenant != tenant {
		return nil, store.ErrNotFound
	}
	cp := *cmp
	return &cp, nil
}

// ListArenaComparisons lists comparisons for a tenant, newest first.
func (s *Store) ListArenaComparisons(_ context.Context, tenant string, limit, offset int) ([]*store.ArenaComparison, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.ArenaComparison
	for _, cmp := range s.arenas {
		if cmp.Tenant != tenant {
			continue
		}
		cp := *cmp
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, limit, offset), nil
}

// DeleteArenaComparison removes a comparison.
func (s *Store) DeleteArenaComparison(_ context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cmp, ok := s.arenas[id]
	if !ok || cmp.Tenant != tenant {
		return store.ErrNotFound
	}
	delete(s.arenas, id)
	return nil
}

// CreateDatasetUpload records an uploaded dataset file.
func (s *Store) CreateDatasetUpload(_ context.Context, up *store.DatasetUpload) error {
	if up.Tenant == "" {
		return store.ErrTenantRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	if up.CreatedAt.IsZero() {
		up.CreatedAt = s.now()
	}
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

// GetDatasetUpload returns a copy of the upload record.
func (s *Store) GetDatasetUpload(_ context.Context, tenant, id string) (*store.DatasetUpload, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	up, ok := s.uploads[id]
	if !ok || up.Tenant != tenant {
		return nil, store.ErrNotFound
	}
	cp := *up
	return &cp, nil
}

// ListDatasetUploads lists upload records for a tenant, newest first.
func (s *Store) ListDatasetUploads(_ context.Context, tenant string) ([]*store.DatasetUpload, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.DatasetUpload
	for _, up := range s.uploads {
		if up.Tenant != tenant {
			continue
		}
		cp := *up
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
