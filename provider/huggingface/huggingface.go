//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package huggingface implements the generation client for the
// HuggingFace inference router, which speaks the OpenAI chat wire
// format. The "local" provider tag also resolves here.
package huggingface

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/provider/internal/chatapi"
)

const (
	// defaultBaseURL is the default HuggingFace router base URL.
	defaultBaseURL = "https://router.huggingface.co"
	// defaultAPIKeyEnvVar is consulted when no key is provided.
	defaultAPIKeyEnvVar = "HF_API_KEY"
)

type options struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the router base URL.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// Client generates text via the HuggingFace router.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model, e.g.
// "meta-llama/Llama-3.1-8B-Instruct".
func New(name string, opt ...Option) (*Client, error) {
	if name == "" {
		return nil, fmt.Errorf("huggingface: model name cannot be empty")
	}
	o := options{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, op := range opt {
		op(&o)
	}
	if o.apiKey == "" {
		o.apiKey = os.Getenv(defaultAPIKeyEnvVar)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("huggingface: API key is required, set it via WithAPIKey or %s", defaultAPIKeyEnvVar)
	}
	return &Client{
		name:       name,
		apiKey:     o.apiKey,
		baseURL:    o.baseURL,
		httpClient: o.httpClient,
	}, nil
}

// Generate runs one chat completion.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return chatapi.Do(ctx, c.httpClient, c.baseURL, c.apiKey, &chatapi.Request{
		Model:       c.name,
		Messages:    chatapi.ConvertMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	})
}
