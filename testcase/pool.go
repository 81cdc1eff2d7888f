//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package testcase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/evalops/evalforge/config"
)

// generated is the outcome of one sample's generation pass.
type generated struct {
	text     string
	latency  int64
	tokens   int
	emptyOut bool
	err      error
}

type sampleGenerationParam struct {
	idx     int
	ctx     context.Context
	sample  config.PromptSample
	builder *Builder
	results []generated
	wg      *sync.WaitGroup
}

func (p *sampleGenerationParam) reset() {
	p.idx = 0
	p.ctx = nil
	p.sample = config.PromptSample{}
	p.builder = nil
	p.results = nil
	p.wg = nil
}

var sampleGenerationParamPool = &sync.Pool{
	New: func() any { return new(sampleGenerationParam) },
}

func createSampleGenerationPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*sampleGenerationParam)
		if !ok {
			panic("sample generation pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			sampleGenerationParamPool.Put(param)
		}()
		param.results[param.idx] = param.builder.generateSample(param.ctx, param.sample)
	})
	if err != nil {
		return nil, fmt.Errorf("create sample generation pool: %w", err)
	}
	return pool, nil
}
