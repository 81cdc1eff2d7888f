//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory status.Store for tests and
// single-process deployments.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/evalops/evalforge/status"
)

// Store is an in-memory status.Store. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]status.JobStatus
}

// New returns an empty in-memory status store.
func New() *Store {
	return &Store{jobs: make(map[string]status.JobStatus)}
}

var _ status.Store = (*Store)(nil)

// GetJobStatus returns the status for a job or status.ErrNotFound.
func (s *Store) GetJobStatus(_ context.Context, jobID string) (*status.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[jobID]
	if !ok {
		return nil, status.ErrNotFound
	}
	cp := st
	return &cp, nil
}

// SetJobStatus records the status for a job.
func (s *Store) SetJobStatus(_ context.Context, jobID string, st *status.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	cp.UpdatedAt = time.Now()
	s.jobs[jobID] = cp
	return nil
}

// DeleteJobStatus drops the record.
func (s *Store) DeleteJobStatus(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
	return nil
}
