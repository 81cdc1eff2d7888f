//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package status provides the ephemeral job-status mirror of running
// experiments and arena comparisons. The durable store remains the
// authoritative source of truth; this store only serves cheap polling.
package status

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no status is recorded for the job.
var ErrNotFound = errors.New("status: job not found")

// JobStatus is the ephemeral progress mirror of a background job.
type JobStatus struct {
	Status    string    `json:"status"`
	Progress  string    `json:"progress,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Store reads and writes job status records.
type Store interface {
	// GetJobStatus returns the status for a job or ErrNotFound.
	GetJobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	// SetJobStatus records the status for a job, stamping UpdatedAt.
	SetJobStatus(ctx context.Context, jobID string, st *JobStatus) error
	// DeleteJobStatus drops the record; deleting a missing job is a no-op.
	DeleteJobStatus(ctx context.Context, jobID string) error
}
