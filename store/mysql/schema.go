//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Base table names. A configured prefix is applied in front of each.
const (
	TableNameExperiments = "eval_experiments"
	TableNameLogs        = "eval_logs"
	TableNameMetrics     = "eval_metrics"
	TableNameScorers     = "eval_scorers"
	TableNameArenas      = "eval_arena_comparisons"
	TableNameUploads     = "eval_dataset_uploads"
)

// Tables holds fully qualified table names with the configured prefix applied.
type Tables struct {
	Experiments string
	Logs        string
	Metrics     string
	Scorers     string
	Arenas      string
	Uploads     string
}

// BuildTables applies the prefix to every base table name.
func BuildTables(prefix string) Tables {
	return Tables{
		Experiments: prefix + TableNameExperiments,
		Logs:        prefix + TableNameLogs,
		Metrics:     prefix + TableNameMetrics,
		Scorers:     prefix + TableNameScorers,
		Arenas:      prefix + TableNameArenas,
		Uploads:     prefix + TableNameUploads,
	}
}

type schemaSpec struct {
	tableName func(Tables) string
	tableSQL  string
}

var schemaSpecs = []schemaSpec{
	{tableName: func(t Tables) string { return t.Experiments }, tableSQL: sqlCreateExperimentsTable},
	{tableName: func(t Tables) string { return t.Logs }, tableSQL: sqlCreateLogsTable},
	{tableName: func(t Tables) string { return t.Metrics }, tableSQL: sqlCreateMetricsTable},
	{tableName: func(t Tables) string { return t.Scorers }, tableSQL: sqlCreateScorersTable},
	{tableName: func(t Tables) string { return t.Arenas }, tableSQL: sqlCreateArenasTable},
	{tableName: func(t Tables) string { return t.Uploads }, tableSQL: sqlCreateUploadsTable},
}

// EnsureSchema creates every engine table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, tables Tables) error {
	for _, spec := range schemaSpecs {
		stmt := strings.ReplaceAll(spec.tableSQL, "{{TABLE_NAME}}", spec.tableName(tables))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", spec.tableName(tables), err)
		}
	}
	return nil
}

const (
	sqlCreateExperimentsTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			experiment_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_experiments_tenant_id (tenant, experiment_id),
			KEY idx_experiments_tenant_project (tenant, project_id, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateLogsTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			log_id VARCHAR(64) NOT NULL,
			experiment_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_logs_tenant_id (tenant, log_id),
			KEY idx_logs_tenant_experiment (tenant, experiment_id, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateMetricsTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			metric_id VARCHAR(64) NOT NULL,
			experiment_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			metric_name VARCHAR(255) NOT NULL,
			metric_type VARCHAR(32) NOT NULL,
			value DOUBLE NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			KEY idx_metrics_tenant_experiment (tenant, experiment_id, metric_name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateScorersTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			scorer_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			project_id VARCHAR(255) NOT NULL DEFAULT '',
			metric_key VARCHAR(255) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_scorers_tenant_id (tenant, scorer_id),
			UNIQUE KEY uniq_scorers_metric_key (tenant, project_id, metric_key)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateArenasTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			comparison_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			status VARCHAR(16) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_arenas_tenant_id (tenant, comparison_id),
			KEY idx_arenas_tenant_created (tenant, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`

	sqlCreateUploadsTable = `
		CREATE TABLE IF NOT EXISTS {{TABLE_NAME}} (
			id BIGINT NOT NULL AUTO_INCREMENT,
			upload_id VARCHAR(64) NOT NULL,
			tenant VARCHAR(255) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			PRIMARY KEY (id),
			UNIQUE KEY uniq_uploads_tenant_id (tenant, upload_id),
			KEY idx_uploads_tenant_created (tenant, created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`
)
