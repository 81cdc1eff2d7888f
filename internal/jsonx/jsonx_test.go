//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "bare object",
			in:   `{"score": 0.8}`,
			want: `{"score": 0.8}`,
			ok:   true,
		},
		{
			name: "prose around object",
			in:   "Here is my verdict:\n```json\n{\"score\": 0.5, \"reason\": \"ok\"}\n```\nThanks!",
			want: `{"score": 0.5, "reason": "ok"}`,
			ok:   true,
		},
		{
			name: "braces inside string values",
			in:   `{"reason": "used {braces} here", "score": 1}`,
			want: `{"reason": "used {braces} here", "score": 1}`,
			ok:   true,
		},
		{
			name: "nested objects stop at top level",
			in:   `x {"a": {"b": 1}} y {"c": 2}`,
			want: `{"a": {"b": 1}}`,
			ok:   true,
		},
		{name: "no object", in: "nothing here", ok: false},
		{name: "unbalanced", in: `{"a": 1`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.in)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstScore(t *testing.T) {
	v, ok := FirstScore("I would rate this 0.75 out of 1")
	require.True(t, ok)
	assert.InDelta(t, 0.75, v, 1e-9)

	// Numbers outside [0,1] are skipped.
	v, ok = FirstScore("on a scale of 10 I give 7, normalized 0.7")
	require.True(t, ok)
	assert.InDelta(t, 0.7, v, 1e-9)

	_, ok = FirstScore("no digits at all")
	assert.False(t, ok)

	_, ok = FirstScore("scores 9 and 42 only")
	assert.False(t, ok)
}
