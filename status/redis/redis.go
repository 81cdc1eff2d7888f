//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a Redis-backed status.Store so multiple
// engine replicas can serve status polls for each other's jobs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/evalops/evalforge/status"
)

const defaultKeyPrefix = "evalforge:job:"

// Store is a Redis-backed status.Store.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ status.Store = (*Store)(nil)

// New returns a status store on top of the given Redis client.
func New(client redis.UniversalClient, opt ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       24 * time.Hour,
	}
	for _, o := range opt {
		o(s)
	}
	return s
}

// Option configures the Redis status store.
type Option func(*Store)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// WithTTL overrides how long finished job statuses linger.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

func (s *Store) key(jobID string) string {
	return s.keyPrefix + jobID
}

// GetJobStatus returns the status for a job or status.ErrNotFound.
func (s *Store) GetJobStatus(ctx context.Context, jobID string) (*status.JobStatus, error) {
	raw, err := s.client.Get(ctx, s.key(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job status %s: %w", jobID, err)
	}
	var st status.JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal job status %s: %w", jobID, err)
	}
	return &st, nil
}

// SetJobStatus records the status for a job with the configured TTL.
func (s *Store) SetJobStatus(ctx context.Context, jobID string, st *status.JobStatus) error {
	cp := *st
	cp.UpdatedAt = time.Now()
	raw, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("marshal job status %s: %w", jobID, err)
	}
	if err := s.client.Set(ctx, s.key(jobID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set job status %s: %w", jobID, err)
	}
	return nil
}

// DeleteJobStatus drops the record; deleting a missing job is a no-op.
func (s *Store) DeleteJobStatus(ctx context.Context, jobID string) error {
	if err := s.client.Del(ctx, s.key(jobID)).Err(); err != nil {
		return fmt.Errorf("delete job status %s: %w", jobID, err)
	}
	return nil
}
