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
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/evalops/evalforge/log"
)

const (
	retryBaseInterval = 2 * time.Second
	retryMaxAttempts  = 3
)

type retryClient struct {
	inner        Client
	baseInterval time.Duration
	maxRetries   uint64
}

// RetryOption configures the retry wrapper.
type RetryOption func(*retryClient)

// WithBaseInterval overrides the first backoff interval. Intended for
// tests; production keeps the 2s/4s/8s ladder.
func WithBaseInterval(d time.Duration) RetryOption {
	return func(c *retryClient) { c.baseInterval = d }
}

// WithRetry wraps a client so rate-limited calls are retried with
// exponential backoff, doubling from 2s for at most 3 retries. All
// other errors propagate after the first attempt.
func WithRetry(inner Client, opt ...RetryOption) Client {
	c := &retryClient{
		inner:        inner,
		baseInterval: retryBaseInterval,
		maxRetries:   retryMaxAttempts,
	}
	for _, o := range opt {
		o(c)
	}
	return c
}

func (c *retryClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.baseInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = c.baseInterval * 8
	bo.MaxElapsedTime = 0

	attempt := 0
	return backoff.RetryNotifyWithData(func() (*Response, error) {
		attempt++
		rsp, err := c.inner.Generate(ctx, req)
		if err == nil {
			return rsp, nil
		}
		if !IsRateLimit(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx),
		func(err error, next time.Duration) {
			log.Warnf("rate limited (attempt %d), retrying in %s: %v", attempt, next, err)
		})
}
