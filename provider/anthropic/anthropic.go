//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package anthropic implements the generation client for the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/evalops/evalforge/provider"
)

const defaultMaxTokens = 1024

type options struct {
	apiKey  string
	baseURL string
	extra   []anthropicopt.RequestOption
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

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...anthropicopt.RequestOption) Option {
	return func(o *options) { o.extra = append(o.extra, opts...) }
}

// Client generates text via the Anthropic Messages API.
type Client struct {
	client anthropic.Client
	name   string
}

var _ provider.Client = (*Client)(nil)

// New builds a client for the named model.
func New(name string, opt ...Option) (*Client, error) {
	o := options{}
	for _, op := range opt {
		op(&o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("anthropic: missing API key")
	}
	clientOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(o.apiKey),
		anthropicopt.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, anthropicopt.WithBaseURL(o.baseURL))
	}
	clientOpts = append(clientOpts, o.extra...)
	return &Client{client: anthropic.NewClient(clientOpts...), name: name}, nil
}

// Generate runs one message completion. The Messages API rejects
// requests carrying both temperature and top_p, so exactly one is
// sent: top_p when explicitly provided, else temperature.
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	messages, systemPrompts := convertMessages(req.Messages)
	if len(messages) == 0 {
		return nil, fmt.Errorf("anthropic: request must include at least one message")
	}
	params := anthropic.MessageNewParams{
		Model:    anthropic.Model(c.name),
		Messages: messages,
	}
	if len(systemPrompts) > 0 {
		params.System = systemPrompts
	}
	params.MaxTokens = int64(req.MaxTokens)
	if params.MaxTokens == 0 {
		params.MaxTokens = defaultMaxTokens
	}
	switch {
	case req.TopP != nil:
		params.TopP = anthropic.Float(*req.TopP)
	case req.Temperature != nil:
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapError(err)
	}
	var text strings.Builder
	for _, block := range message.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	return &provider.Response{
		Text: strings.TrimSpace(text.String()),
		Usage: provider.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

// convertMessages splits system messages out of the turn list; the
// Messages API takes them as a separate field.
func convertMessages(messages []provider.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var (
		converted     []anthropic.MessageParam
		systemPrompts []anthropic.TextBlockParam
	)
	for _, msg := range messages {
		switch msg.Role {
		case provider.RoleSystem:
			systemPrompts = append(systemPrompts, anthropic.TextBlockParam{Text: msg.Content})
		case provider.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return converted, systemPrompts
}

func wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &provider.StatusError{Code: apiErr.StatusCode, Message: err.Error()}
	}
	return err
}
