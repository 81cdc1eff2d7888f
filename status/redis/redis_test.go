//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/status"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client)
}

func TestSetGetDeleteJobStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetJobStatus(ctx, "job-1")
	require.ErrorIs(t, err, status.ErrNotFound)

	require.NoError(t, s.SetJobStatus(ctx, "job-1", &status.JobStatus{
		Status:   "running",
		Progress: "Processing prompt 1/4",
	}))

	got, err := s.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, "Processing prompt 1/4", got.Progress)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, s.DeleteJobStatus(ctx, "job-1"))
	_, err = s.GetJobStatus(ctx, "job-1")
	require.ErrorIs(t, err, status.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, s.DeleteJobStatus(ctx, "job-1"))
}

func TestKeyPrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := New(client, WithKeyPrefix("a:"))
	b := New(client, WithKeyPrefix("b:"))
	ctx := context.Background()

	require.NoError(t, a.SetJobStatus(ctx, "job", &status.JobStatus{Status: "running"}))
	_, err := b.GetJobStatus(ctx, "job")
	require.ErrorIs(t, err, status.ErrNotFound)
}
