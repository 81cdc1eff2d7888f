//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package mysql provides a MySQL-backed implementation of store.Store.
// Records are stored as JSON payloads next to the scalar columns used
// for filtering and ordering.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/evalops/evalforge/store"
)

const mysqlErrDuplicateEntry = 1062

// Store is a MySQL-backed store.Store implementation.
type Store struct {
	db     *sql.DB
	tables Tables
}

var _ store.Store = (*Store)(nil)

// New opens a connection with the given DSN and bootstraps the schema
// unless disabled.
func New(dsn string, opt ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("mysql: dsn is empty")
	}
	opts := newOptions(opt...)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(opts.maxOpenConns)
	db.SetMaxIdleConns(opts.maxIdleConns)
	db.SetConnMaxLifetime(opts.connMaxLifetime)
	s := &Store{db: db, tables: BuildTables(opts.tablePrefix)}
	if !opts.skipSchemaInit {
		ctx, cancel := context.WithTimeout(context.Background(), opts.initTimeout)
		defer cancel()
		if err := EnsureSchema(ctx, db, s.tables); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

// CreateExperiment persists a new experiment record.
func (s *Store) CreateExperiment(ctx context.Context, exp *store.Experiment) error {
	if exp.Tenant == "" {
		return store.ErrTenantRequired
	}
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if exp.Status == "" {
		exp.Status = store.StatusPending
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("marshal experiment: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (experiment_id, tenant, project_id, status, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		s.tables.Experiments,
	), exp.ID, exp.Tenant, exp.ProjectID, string(exp.Status), payload, exp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}
	return nil
}

func (s *Store) loadExperiment(ctx context.Context, q queryRower, tenant, id string) (*store.Experiment, error) {
	var payload []byte
	err := q.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? AND experiment_id = ?", s.tables.Experiments,
	), tenant, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get experiment %s: %w", id, err)
	}
	var exp store.Experiment
	if err := json.Unmarshal(payload, &exp); err != nil {
		return nil, fmt.Errorf("unmarshal experiment %s: %w", id, err)
	}
	return &exp, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) saveExperiment(ctx context.Context, tx *sql.Tx, exp *store.Experiment) error {
	payload, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("marshal experiment: %w", err)
	}
	_, err = tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET status = ?, payload = ? WHERE tenant = ? AND experiment_id = ?", s.tables.Experiments,
	), string(exp.Status), payload, exp.Tenant, exp.ID)
	if err != nil {
		return fmt.Errorf("update experiment %s: %w", exp.ID, err)
	}
	return nil
}

// UpdateExperimentStatus transitions the experiment lifecycle state.
// The read and conditional write run inside one transaction so a
// terminal status can never be overwritten by a stale orchestrator.
func (s *Store) UpdateExperimentStatus(ctx context.Context, tenant, id string, status store.Status, errorMessage string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exp, err := s.loadExperiment(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		if exp.Status.Terminal() && !status.Terminal() {
			return fmt.Errorf("experiment %s is %s: %w", id, exp.Status, store.ErrTerminalStatus)
		}
		now := time.Now()
		if status == store.StatusRunning && exp.Status != store.StatusRunning {
			exp.StartedAt = &now
		}
		if status.Terminal() {
			exp.CompletedAt = &now
		}
		exp.Status = status
		if status == store.StatusFailed {
			exp.ErrorMessage = errorMessage
		}
		return s.saveExperiment(ctx, tx, exp)
	})
}

// UpdateExperimentResults attaches aggregated results.
func (s *Store) UpdateExperimentResults(ctx context.Context, tenant, id string, results map[string]any) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		exp, err := s.loadExperiment(ctx, tx, tenant, id)
		if err != nil {
			return err
		}
		exp.Results = results
		return s.saveExperiment(ctx, tx, exp)
	})
}

// DeleteExperiment removes the experiment and cascades to its logs.
func (s *Store) DeleteExperiment(ctx context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE tenant = ? AND experiment_id = ?", s.tables.Experiments,
		), tenant, id)
		if err != nil {
			return fmt.Errorf("delete experiment %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"DELETE FROM %s WHERE tenant = ? AND experiment_id = ?", s.tables.Logs,
		), tenant, id); err != nil {
			return fmt.Errorf("delete logs for experiment %s: %w", id, err)
		}
		// Metrics remain readable but orphaned.
		return nil
	})
}

// GetExperimentByID returns the experiment or store.ErrNotFound.
func (s *Store) GetExperimentByID(ctx context.Context, tenant, id string) (*store.Experiment, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	return s.loadExperiment(ctx, s.db, tenant, id)
}

// GetExperiments lists experiments for a project, newest first.
func (s *Store) GetExperiments(ctx context.Context, tenant, projectID string, limit, offset int) ([]*store.Experiment, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	query := fmt.Sprintf("SELECT payload FROM %s WHERE tenant = ?", s.tables.Experiments)
	args := []any{tenant}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at DESC, id DESC"
	query, args = applyLimit(query, args, limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()
	var out []*store.Experiment
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var exp store.Experiment
		if err := json.Unmarshal(payload, &exp); err != nil {
			return nil, fmt.Errorf("unmarshal experiment: %w", err)
		}
		out = append(out, &exp)
	}
	return out, rows.Err()
}

// GetExperimentCount returns the number of experiments for a project.
func (s *Store) GetExperimentCount(ctx context.Context, tenant, projectID string) (int, error) {
	if tenant == "" {
		return 0, store.ErrTenantRequired
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant = ?", s.tables.Experiments)
	args := []any{tenant}
	if projectID != "" {
		query += " AND project_id = ?"
		args = append(args, projectID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count experiments: %w", err)
	}
	return n, nil
}

// CreateLog appends a log record.
func (s *Store) CreateLog(ctx context.Context, entry *store.EvaluationLog) error {
	if entry.Tenant == "" {
		return store.ErrTenantRequired
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal log: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (log_id, experiment_id, tenant, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		s.tables.Logs,
	), entry.ID, entry.ExperimentID, entry.Tenant, payload, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// UpdateLogMetadata shallow-merges the patch into the log metadata.
func (s *Store) UpdateLogMetadata(ctx context.Context, tenant, id string, patch map[string]any) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var payload []byte
		err := tx.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT payload FROM %s WHERE tenant = ? AND log_id = ?", s.tables.Logs,
		), tenant, id).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get log %s: %w", id, err)
		}
		var entry store.EvaluationLog
		if err := json.Unmarshal(payload, &entry); err != nil {
			return fmt.Errorf("unmarshal log %s: %w", id, err)
		}
		if entry.Metadata == nil {
			entry.Metadata = make(map[string]any, len(patch))
		}
		for k, v := range patch {
			entry.Metadata[k] = v
		}
		updated, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("marshal log %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"UPDATE %s SET payload = ? WHERE tenant = ? AND log_id = ?", s.tables.Logs,
		), updated, tenant, id); err != nil {
			return fmt.Errorf("update log %s: %w", id, err)
		}
		return nil
	})
}

// GetLogs lists logs for an experiment in insert order.
func (s *Store) GetLogs(ctx context.Context, tenant, experimentID string, limit, offset int) ([]*store.EvaluationLog, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	query := fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? AND experiment_id = ? ORDER BY id ASC", s.tables.Logs,
	)
	args := []any{tenant, experimentID}
	query, args = applyLimit(query, args, limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()
	var out []*store.EvaluationLog
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var entry store.EvaluationLog
		if err := json.Unmarshal(payload, &entry); err != nil {
			return nil, fmt.Errorf("unmarshal log: %w", err)
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// GetLogCount returns the number of logs for an experiment.
func (s *Store) GetLogCount(ctx context.Context, tenant, experimentID string) (int, error) {
	if tenant == "" {
		return 0, store.ErrTenantRequired
	}
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE tenant = ? AND experiment_id = ?", s.tables.Logs,
	), tenant, experimentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count logs: %w", err)
	}
	return n, nil
}

// CreateMetric writes one metric row.
func (s *Store) CreateMetric(ctx context.Context, m *store.EvaluationMetric) error {
	if m.Tenant == "" {
		return store.ErrTenantRequired
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal metric: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (metric_id, experiment_id, tenant, metric_name, metric_type, value, payload, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.tables.Metrics,
	), m.ID, m.ExperimentID, m.Tenant, m.MetricName, m.MetricType, m.Value, payload, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// GetMetricAggregates averages metric values per name for an experiment.
func (s *Store) GetMetricAggregates(ctx context.Context, tenant, experimentID string) (map[string]float64, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT metric_name, AVG(value) FROM %s WHERE tenant = ? AND experiment_id = ? GROUP BY metric_name",
		s.tables.Metrics,
	), tenant, experimentID)
	if err != nil {
		return nil, fmt.Errorf("aggregate metrics: %w", err)
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var avg float64
		if err := rows.Scan(&name, &avg); err != nil {
			return nil, err
		}
		out[name] = avg
	}
	return out, rows.Err()
}

// ListScorers lists scorers for a tenant, optionally filtered by project.
func (s *Store) ListScorers(ctx context.Context, tenant, projectID string) ([]*store.ScorerDefinition, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	query := fmt.Sprintf("SELECT payload FROM %s WHERE tenant = ?", s.tables.Scorers)
	args := []any{tenant}
	if projectID != "" {
		query += " AND (project_id = '' OR project_id = ?)"
		args = append(args, projectID)
	}
	query += " ORDER BY id ASC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scorers: %w", err)
	}
	defer rows.Close()
	var out []*store.ScorerDefinition
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var def store.ScorerDefinition
		if err := json.Unmarshal(payload, &def); err != nil {
			return nil, fmt.Errorf("unmarshal scorer: %w", err)
		}
		out = append(out, &def)
	}
	return out, rows.Err()
}

// CreateScorer persists a scorer definition.
func (s *Store) CreateScorer(ctx context.Context, def *store.ScorerDefinition) error {
	if def.Tenant == "" {
		return store.ErrTenantRequired
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	now := time.Now()
	if def.CreatedAt.IsZero() {
		def.CreatedAt = now
	}
	def.UpdatedAt = now
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal scorer: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (scorer_id, tenant, project_id, metric_key, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		s.tables.Scorers,
	), def.ID, def.Tenant, def.ProjectID, def.MetricKey, payload, def.CreatedAt)
	if isDuplicateEntry(err) {
		return fmt.Errorf("metric key %q: %w", def.MetricKey, store.ErrDuplicateMetricKey)
	}
	if err != nil {
		return fmt.Errorf("insert scorer: %w", err)
	}
	return nil
}

// UpdateScorer replaces an existing scorer definition.
func (s *Store) UpdateScorer(ctx context.Context, def *store.ScorerDefinition) error {
	if def.Tenant == "" {
		return store.ErrTenantRequired
	}
	def.UpdatedAt = time.Now()
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal scorer: %w", err)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET metric_key = ?, project_id = ?, payload = ? WHERE tenant = ? AND scorer_id = ?",
		s.tables.Scorers,
	), def.MetricKey, def.ProjectID, payload, def.Tenant, def.ID)
	if isDuplicateEntry(err) {
		return fmt.Errorf("metric key %q: %w", def.MetricKey, store.ErrDuplicateMetricKey)
	}
	if err != nil {
		return fmt.Errorf("update scorer %s: %w", def.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteScorer removes a scorer.
func (s *Store) DeleteScorer(ctx context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE tenant = ? AND scorer_id = ?", s.tables.Scorers,
	), tenant, id)
	if err != nil {
		return fmt.Errorf("delete scorer %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// GetScorerByID returns a scorer definition.
func (s *Store) GetScorerByID(ctx context.Context, tenant, id string) (*store.ScorerDefinition, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? AND scorer_id = ?", s.tables.Scorers,
	), tenant, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scorer %s: %w", id, err)
	}
	var def store.ScorerDefinition
	if err := json.Unmarshal(payload, &def); err != nil {
		return nil, fmt.Errorf("unmarshal scorer %s: %w", id, err)
	}
	return &def, nil
}

// CreateArenaComparison persists a new comparison record.
func (s *Store) CreateArenaComparison(ctx context.Context, cmp *store.ArenaComparison) error {
	if cmp.Tenant == "" {
		return store.ErrTenantRequired
	}
	if cmp.ID == "" {
		cmp.ID = uuid.NewString()
	}
	if cmp.Status == "" {
		cmp.Status = store.StatusPending
	}
	if cmp.CreatedAt.IsZero() {
		cmp.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(cmp)
	if err != nil {
		return fmt.Errorf("marshal comparison: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (comparison_id, tenant, status, payload, created_at) VALUES (?, ?, ?, ?, ?)",
		s.tables.Arenas,
	), cmp.ID, cmp.Tenant, string(cmp.Status), payload, cmp.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comparison: %w", err)
	}
	return nil
}

// UpdateArenaComparison overwrites the engine-owned fields.
func (s *Store) UpdateArenaComparison(ctx context.Context, cmp *store.ArenaComparison) error {
	if cmp.Tenant == "" {
		return store.ErrTenantRequired
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var payload []byte
		err := tx.QueryRowContext(ctx, fmt.Sprintf(
			"SELECT payload FROM %s WHERE tenant = ? AND comparison_id = ?", s.tables.Arenas,
		), cmp.Tenant, cmp.ID).Scan(&payload)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get comparison %s: %w", cmp.ID, err)
		}
		var existing store.ArenaComparison
		if err := json.Unmarshal(payload, &existing); err != nil {
			return fmt.Errorf("unmarshal comparison %s: %w", cmp.ID, err)
		}
		if existing.Status.Terminal() && !cmp.Status.Terminal() {
			return fmt.Errorf("comparison %s is %s: %w", cmp.ID, existing.Status, store.ErrTerminalStatus)
		}
		if cmp.Status.Terminal() && existing.CompletedAt == nil {
			now := time.Now()
			existing.CompletedAt = &now
		}
		existing.Status = cmp.Status
		existing.Progress = cmp.Progress
		existing.Winner = cmp.Winner
		existing.WinCounts = cmp.WinCounts
		existing.DetailedResults = cmp.DetailedResults
		existing.ErrorMessage = cmp.ErrorMessage
		updated, err := json.Marshal(&existing)
		if err != nil {
			return fmt.Errorf("marshal comparison %s: %w", cmp.ID, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"UPDATE %s SET status = ?, payload = ? WHERE tenant = ? AND comparison_id = ?", s.tables.Arenas,
		), string(existing.Status), updated, cmp.Tenant, cmp.ID); err != nil {
			return fmt.Errorf("update comparison %s: %w", cmp.ID, err)
		}
		return nil
	})
}

// GetArenaComparison returns the comparison or store.ErrNotFound.
func (s *Store) GetArenaComparison(ctx context.Context, tenant, id string) (*store.ArenaComparison, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? AND comparison_id = ?", s.tables.Arenas,
	), tenant, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comparison %s: %w", id, err)
	}
	var cmp store.ArenaComparison
	if err := json.Unmarshal(payload, &cmp); err != nil {
		return nil, fmt.Errorf("unmarshal comparison %s: %w", id, err)
	}
	return &cmp, nil
}

// ListArenaComparisons lists comparisons for a tenant, newest first.
func (s *Store) ListArenaComparisons(ctx context.Context, tenant string, limit, offset int) ([]*store.ArenaComparison, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	query := fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? ORDER BY created_at DESC, id DESC", s.tables.Arenas,
	)
	args := []any{tenant}
	query, args = applyLimit(query, args, limit, offset)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	defer rows.Close()
	var out []*store.ArenaComparison
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var cmp store.ArenaComparison
		if err := json.Unmarshal(payload, &cmp); err != nil {
			return nil, fmt.Errorf("unmarshal comparison: %w", err)
		}
		out = append(out, &cmp)
	}
	return out, rows.Err()
}

// DeleteArenaComparison removes a comparison.
func (s *Store) DeleteArenaComparison(ctx context.Context, tenant, id string) error {
	if tenant == "" {
		return store.ErrTenantRequired
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE tenant = ? AND comparison_id = ?", s.tables.Arenas,
	), tenant, id)
	if err != nil {
		return fmt.Errorf("delete comparison %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CreateDatasetUpload records an uploaded dataset file.
func (s *Store) CreateDatasetUpload(ctx context.Context, up *store.DatasetUpload) error {
	if up.Tenant == "" {
		return store.ErrTenantRequired
	}
	if up.ID == "" {
		up.ID = uuid.NewString()
	}
	if up.CreatedAt.IsZero() {
		up.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(up)
	if err != nil {
		return fmt.Errorf("marshal upload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (upload_id, tenant, payload, created_at) VALUES (?, ?, ?, ?)",
		s.tables.Uploads,
	), up.ID, up.Tenant, payload, up.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// GetDatasetUpload returns the upload record.
func (s *Store) GetDatasetUpload(ctx context.Context, tenant, id string) (*store.DatasetUpload, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? AND upload_id = ?", s.tables.Uploads,
	), tenant, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload %s: %w", id, err)
	}
	var up store.DatasetUpload
	if err := json.Unmarshal(payload, &up); err != nil {
		return nil, fmt.Errorf("unmarshal upload %s: %w", id, err)
	}
	return &up, nil
}

// ListDatasetUploads lists upload records for a tenant, newest first.
func (s *Store) ListDatasetUploads(ctx context.Context, tenant string) ([]*store.DatasetUpload, error) {
	if tenant == "" {
		return nil, store.ErrTenantRequired
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT payload FROM %s WHERE tenant = ? ORDER BY created_at DESC, id DESC", s.tables.Uploads,
	), tenant)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()
	var out []*store.DatasetUpload
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var up store.DatasetUpload
		if err := json.Unmarshal(payload, &up); err != nil {
			return nil, fmt.Errorf("unmarshal upload: %w", err)
		}
		out = append(out, &up)
	}
	return out, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func applyLimit(query string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}
	return query, args
}
