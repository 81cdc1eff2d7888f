//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package gemini implements the generation client for the Google
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/evalops/evalforge/provider"
)

type options struct {
	apiKey       string
	clientConfig *genai.ClientConfig
}

// Option configures the client.
type Option func(*options)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithClientConfig replaces the genai client config wholesale, for
// Vertex backends or custom HTTP options.
func WithClientConfig(cfg *genai.ClientConfig) Option {
	return func(o *options) { o.clientConfig = cfg }
}

// Client generates text via the Gemini API.
type Client struct {
	client *genai.Client
	name   string
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model.
func New(ctx context.Context, name string, opt ...Option) (*Client, error) {
	o := options{}
	for _, op := range opt {
		op(&o)
	}
	cfg := o.clientConfig
	if cfg == nil {
		if o.apiKey == "" {
			return nil, fmt.Errorf("gemini: missing API key")
		}
		cfg = &genai.ClientConfig{
			APIKey:  o.apiKey,
			Backend: genai.BackendGeminiAPI,
		}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, name: name}, nil
}

// Generate runs one content generation.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	contents, config := buildRequest(req)
	rsp, err := c.client.Models.GenerateContent(ctx, c.name, contents, config)
	if err != nil {
		return nil, wrapError(err)
	}
	out := &provider.Response{Text: strings.TrimSpace(rsp.Text())}
	if rsp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(rsp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(rsp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(rsp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// buildRequest converts the uniform request. System messages become
// the system instruction; assistant turns take the model role.
func buildRequest(req *provider.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}
	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(msg.Content, genai.RoleUser)
		case provider.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents, config
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &provider.StatusError{Code: apiErr.Code, Message: apiErr.Message}
	}
	return err
}
