//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package mistral implements the generation client for the Mistral
// chat API. Mistral sometimes returns content as a list of typed
// blocks rather than a string; the blocks' text fields are
// concatenated in order.
package mistral

import (
	"context"
	"fmt"
	"net/http"

	"github.com/evalops/evalforge/provider"
	"github.com/evalops/evalforge/provider/internal/chatapi"
)

// defaultBaseURL is the default Mistral API base URL.
const defaultBaseURL = "https://api.mistral.ai"

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

// WithBaseURL overrides the endpoint base URL.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// Client generates text via the Mistral chat API.
type Client struct {
	name       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model.
func New(name string, opt ...Option) (*Client, error) {
	o := options{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, op := range opt {
		op(&o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("mistral: missing API key")
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
