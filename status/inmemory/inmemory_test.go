//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalops/evalforge/status"
)

func TestSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetJobStatus(ctx, "job-1")
	require.ErrorIs(t, err, status.ErrNotFound)

	require.NoError(t, s.SetJobStatus(ctx, "job-1", &status.JobStatus{
		Status:   "running",
		Progress: "Processing prompt 1/3",
	}))
	got, err := s.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, "Processing prompt 1/3", got.Progress)
	assert.False(t, got.UpdatedAt.IsZero())

	// Returned copies do not alias the stored record.
	got.Status = "mutated"
	again, err := s.GetJobStatus(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "running", again.Status)

	require.NoError(t, s.DeleteJobStatus(ctx, "job-1"))
	_, err = s.GetJobStatus(ctx, "job-1")
	require.ErrorIs(t, err, status.ErrNotFound)

	// Deleting a missing job is a no-op.
	require.NoError(t, s.DeleteJobStatus(ctx, "job-1"))
}
