//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package registry constructs provider.Client instances from normalized
// provider tags. Every client it hands out is wrapped with the
// rate-limit retry layer.
package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/provider/anthropic"
	"github.com/evalops/evalforge/provider/gemini"
	"github.com/evalops/evalforge/provider/huggingface"
	"github.com/evalops/evalforge/provider/mistral"
	"github.com/evalops/evalforge/provider/ollama"
	"github.com/evalops/evalforge/provider/openai"
)

func init() {
	Register("openai", openaiBuilder(openai.VariantOpenAI))
	Register("custom_api", openaiBuilder(openai.VariantCustomAPI))
	Register("xai", openaiBuilder(openai.VariantXAI))
	Register("openrouter", openaiBuilder(openai.VariantOpenRouter))
	Register("anthropic", anthropicBuilder)
	Register("google", geminiBuilder)
	Register("gemini", geminiBuilder)
	Register("ollama", ollamaBuilder)
	Register("mistral", mistralBuilder)
	Register("huggingface", huggingfaceBuilder)
	Register("local", huggingfaceBuilder)
}

// Options carries everything a builder needs to construct a client.
type Options struct {
	ProviderTag string
	ModelName   string
	APIKey      string
	BaseURL     string
}

// Builder constructs a provider client from resolved options.
type Builder func(ctx context.Context, opts *Options) (provider.Client, error)

var (
	buildersMu sync.RWMutex
	builders   = make(map[string]Builder)
)

// Register registers a builder by provider tag.
func Register(tag string, builder Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[tag] = builder
}

// Get returns the builder for a tag.
func Get(tag string) (Builder, bool) {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	builder, ok := builders[tag]
	return builder, ok
}

// Option mutates the resolved Options.
type Option func(*Options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *Options) { o.APIKey = key }
}

// WithBaseURL sets the endpoint base URL.
func WithBaseURL(url string) Option {
	return func(o *Options) { o.BaseURL = url }
}

// New constructs a retry-wrapped client for the given provider tag and
// model name. Unknown tags fail fast.
func New(ctx context.Context, providerTag, modelName string, opt ...Option) (provider.Client, error) {
	opts := &Options{
		ProviderTag: strings.ToLower(strings.TrimSpace(providerTag)),
		ModelName:   modelName,
	}
	for _, o := range opt {
		o(opts)
	}
	builder, ok := Get(opts.ProviderTag)
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerTag)
	}
	client, err := builder(ctx, opts)
	if err != nil {
		return nil, err
	}
	return provider.WithRetry(client), nil
}

func openaiBuilder(variant openai.Variant) Builder {
	return func(_ context.Context, opts *Options) (provider.Client, error) {
		res := []openai.Option{openai.WithVariant(variant)}
		if opts.APIKey != "" {
			res = append(res, openai.WithAPIKey(opts.APIKey))
		}
		if opts.BaseURL != "" {
			res = append(res, openai.WithBaseURL(opts.BaseURL))
		}
		return openai.New(opts.ModelName, res...)
	}
}

func anthropicBuilder(_ context.Context, opts *Options) (provider.Client, error) {
	var res []anthropic.Option
	if opts.APIKey != "" {
		res = append(res, anthropic.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		res = append(res, anthropic.WithBaseURL(opts.BaseURL))
	}
	return anthropic.New(opts.ModelName, res...)
}

func geminiBuilder(ctx context.Context, opts *Options) (provider.Client, error) {
	var res []gemini.Option
	if opts.APIKey != "" {
		res = append(res, gemini.WithAPIKey(opts.APIKey))
	}
	return gemini.New(ctx, opts.ModelName, res...)
}

func ollamaBuilder(_ context.Context, opts *Options) (provider.Client, error) {
	var res []ollama.Option
	if opts.BaseURL != "" {
		res = append(res, ollama.WithHost(opts.BaseURL))
	}
	return ollama.New(opts.ModelName, res...)
}

func mistralBuilder(_ context.Context, opts *Options) (provider.Client, error) {
	var res []mistral.Option
	if opts.APIKey != "" {
		res = append(res, mistral.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		res = append(res, mistral.WithBaseURL(opts.BaseURL))
	}
	return mistral.New(opts.ModelName, res...)
}

func huggingfaceBuilder(_ context.Context, opts *Options) (provider.Client, error) {
	var res []huggingface.Option
	if opts.APIKey != "" {
		res = append(res, huggingface.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		res = append(res, huggingface.WithBaseURL(opts.BaseURL))
	}
	return huggingface.New(opts.ModelName, res...)
}
