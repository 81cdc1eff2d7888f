//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	calls int
	errs  []error
	text  string
}

func (c *scriptedClient) Generate(_ context.Context, _ *Request) (*Response, error) {
	c.calls++
	if c.calls <= len(c.errs) {
		return nil, c.errs[c.calls-1]
	}
	return &Response{Text: c.text}, nil
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "status 429", err: &StatusError{Code: 429, Message: "slow down"}, want: true},
		{name: "status 500", err: &StatusError{Code: 500, Message: "boom"}, want: false},
		{name: "message match", err: errors.New("Rate Limit exceeded"), want: true},
		{name: "plain error", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimit(tt.err))
		})
	}
}

func TestRetrySucceedsAfterRateLimits(t *testing.T) {
	rl := &StatusError{Code: 429, Message: "too many requests"}
	inner := &scriptedClient{errs: []error{rl, rl, rl}, text: "ok"}
	c := WithRetry(inner, WithBaseInterval(time.Millisecond))

	rsp, err := c.Generate(context.Background(), &Request{Messages: UserPrompt("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", rsp.Text)
	assert.Equal(t, 4, inner.calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	rl := &StatusError{Code: 429, Message: "too many requests"}
	inner := &scriptedClient{errs: []error{rl, rl, rl, rl, rl}}
	c := WithRetry(inner, WithBaseInterval(time.Millisecond))

	_, err := c.Generate(context.Background(), &Request{Messages: UserPrompt("hi")})
	require.Error(t, err)
	// Initial attempt plus three retries.
	assert.Equal(t, 4, inner.calls)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	inner := &scriptedClient{errs: []error{errors.New("bad request")}}
	c := WithRetry(inner, WithBaseInterval(time.Millisecond))

	_, err := c.Generate(context.Background(), &Request{Messages: UserPrompt("hi")})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
