//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package ollama implements the generation client for a local Ollama
// server, including a one-shot model pull when the model is absent.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/ollama/ollama/api"

	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/provider"
)

const (
	// OllamaHost is the environment variable for the Ollama host.
	OllamaHost = "OLLAMA_HOST"

	defaultHost    = "http://localhost:11434"
	maxModelName   = 128
	defaultPredict = 1024
)

// modelNameRe matches names safe to hand to a pull. Non-matching names
// skip the auto-pull step but still attempt generation.
var modelNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:/-]*$`)

// ValidModelName reports whether a model name may be auto-pulled.
func ValidModelName(name string) bool {
	return len(name) <= maxModelName && modelNameRe.MatchString(name)
}

type options struct {
	host       string
	httpClient *http.Client
	autoPull   bool
}

// Option configures the client.
type Option func(*options)

// WithHost sets the Ollama host URL.
func WithHost(host string) Option {
	return func(o *options) { o.host = host }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithAutoPull toggles pulling a missing model before first use.
func WithAutoPull(enabled bool) Option {
	return func(o *options) { o.autoPull = enabled }
}

// Client generates text via a local Ollama server.
type Client struct {
	client   *api.Client
	name     string
	autoPull bool
	pullOnce sync.Once
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model. The host comes from the
// option, then OLLAMA_HOST, then the default local port.
func New(name string, opt ...Option) (*Client, error) {
	o := options{
		host:       defaultHost,
		httpClient: http.DefaultClient,
		autoPull:   true,
	}
	if host := os.Getenv(OllamaHost); host != "" {
		o.host = host
	}
	for _, op := range opt {
		op(&o)
	}
	if !strings.Contains(o.host, "://") {
		o.host = "http://" + o.host
	}
	base, err := url.Parse(o.host)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid host %q: %w", o.host, err)
	}
	return &Client{
		client:   api.NewClient(base, o.httpClient),
		name:     name,
		autoPull: o.autoPull,
	}, nil
}

// Generate runs one chat completion, pulling the model first if it is
// not locally present. A failed pull is logged and generation proceeds.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	c.ensureModel(ctx)

	opts := map[string]any{}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	} else {
		opts["num_predict"] = defaultPredict
	}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		opts["top_p"] = *req.TopP
	}
	messages := make([]api.Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = api.Message{Role: msg.Role, Content: msg.Content}
	}
	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.name,
		Messages: messages,
		Stream:   &stream,
		Options:  opts,
	}

	var (
		text  strings.Builder
		usage provider.Usage
	)
	err := c.client.Chat(ctx, chatReq, func(rsp api.ChatResponse) error {
		text.WriteString(rsp.Message.Content)
		if rsp.Done {
			usage.PromptTokens = rsp.Metrics.PromptEvalCount
			usage.CompletionTokens = rsp.Metrics.EvalCount
			usage.TotalTokens = rsp.Metrics.PromptEvalCount + rsp.Metrics.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: chat: %w", err)
	}
	return &provider.Response{Text: strings.TrimSpace(text.String()), Usage: usage}, nil
}

// ensureModel pulls the model once if it is missing. Names failing
// validation skip the pull entirely. Safe for concurrent Generate
// calls sharing one client.
func (c *Client) ensureModel(ctx context.Context) {
	if !c.autoPull {
		return
	}
	c.pullOnce.Do(func() { c.checkAndPull(ctx) })
}

func (c *Client) checkAndPull(ctx context.Context) {
	if !ValidModelName(c.name) {
		log.Warnf("ollama: model name %q fails validation, skipping auto-pull", c.name)
		return
	}
	list, err := c.client.List(ctx)
	if err != nil {
		log.Warnf("ollama: list models: %v", err)
		return
	}
	for _, m := range list.Models {
		if m.Name == c.name || strings.TrimSuffix(m.Name, ":latest") == c.name {
			return
		}
	}
	log.Infof("ollama: model %s not present, pulling", c.name)
	err = c.client.Pull(ctx, &api.PullRequest{Model: c.name}, func(api.ProgressResponse) error {
		return nil
	})
	if err != nil {
		log.Warnf("ollama: pull %s: %v", c.name, err)
	}
}
