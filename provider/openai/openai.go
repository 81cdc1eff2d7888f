//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package openai implements the generation client for OpenAI-compatible
// chat APIs. Variants cover xAI, OpenRouter and arbitrary custom
// endpoints, which differ only in base URL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/evalops/evalforge/provider"
)

// Variant selects an OpenAI-compatible endpoint family.
type Variant string

// Supported variants.
const (
	VariantOpenAI     Variant = "openai"
	VariantXAI        Variant = "xai"
	VariantOpenRouter Variant = "openrouter"
	VariantCustomAPI  Variant = "custom_api"
)

// variantConfigs maps variant names to their configurations.
var variantConfigs = map[Variant]variantConfig{
	VariantOpenAI:     {},
	VariantXAI:        {defaultBaseURL: "https://api.x.ai/v1"},
	VariantOpenRouter: {defaultBaseURL: "https://openrouter.ai/api/v1"},
	VariantCustomAPI:  {},
}

type variantConfig struct {
	// Default base URL for this variant.
	defaultBaseURL string
}

// completionTokenPrefixes are the model families that take
// max_completion_tokens instead of max_tokens. Matched by name prefix;
// extend when OpenAI ships a new family.
var completionTokenPrefixes = []string{"o1", "o3", "gpt-4o", "gpt-4.5", "gpt-5"}

// usesCompletionTokens reports whether the model takes the
// max_completion_tokens field.
func usesCompletionTokens(name string) bool {
	for _, prefix := range completionTokenPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// isReasoningFamily reports whether the model is an o-series reasoning
// model, which accepts temperature but rejects top_p.
func isReasoningFamily(name string) bool {
	return strings.HasPrefix(name, "o")
}

type options struct {
	apiKey  string
	baseURL string
	variant Variant
	extra   []openaiopt.RequestOption
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

// WithVariant selects the endpoint family.
func WithVariant(v Variant) Option {
	return func(o *options) { o.variant = v }
}

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// Client generates text via an OpenAI-compatible chat endpoint.
type Client struct {
	client openai.Client
	name   string
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model.
func New(name string, opt ...Option) (*Client, error) {
	o := options{variant: VariantOpenAI}
	for _, op := range opt {
		op(&o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key for variant %q", o.variant)
	}
	baseURL := o.baseURL
	if baseURL == "" {
		baseURL = variantConfigs[o.variant].defaultBaseURL
	}
	// Retry policy lives in provider.WithRetry; the SDK must not
	// retry underneath it.
	clientOpts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(o.apiKey),
		openaiopt.WithMaxRetries(0),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, o.extra...)
	return &Client{client: openai.NewClient(clientOpts...), name: name}, nil
}

// Generate runs one chat completion.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.name),
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		if usesCompletionTokens(c.name) {
			params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
		} else {
			params.MaxTokens = openai.Int(int64(req.MaxTokens))
		}
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	// Reasoning models reject top_p; drop it silently.
	if req.TopP != nil && !isReasoningFamily(c.name) {
		params.TopP = openai.Float(*req.TopP)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	var text string
	if len(completion.Choices) > 0 {
		text = completion.Choices[0].Message.Content
	}
	return &provider.Response{
		Text: strings.TrimSpace(text),
		Usage: provider.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func convertMessages(messages []provider.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			result[i] = openai.SystemMessage(msg.Content)
		case provider.RoleAssistant:
			result[i] = openai.AssistantMessage(msg.Content)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}
	return result
}

func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &provider.StatusError{Code: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}
