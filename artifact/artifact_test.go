//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(WithRoot(root))

	results := map[string]any{
		"total_prompts": 2,
		"avg_scores": map[string]float64{
			"answerRelevancy": 0.75,
			"correctness":     1,
		},
	}
	dir, err := w.WriteRun("acme", "run-123", results)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "acme", "run-123"), dir)

	raw, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.EqualValues(t, 2, decoded["total_prompts"])

	csvRaw, err := os.ReadFile(filepath.Join(dir, "summary.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"metric,average\nanswerRelevancy,0.75\ncorrectness,1\n",
		string(csvRaw))
}

func TestDirWithoutTenant(t *testing.T) {
	w := NewWriter(WithRoot("base"))
	assert.Equal(t, filepath.Join("base", "run-1"), w.Dir("", "run-1"))
}
