//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package chatapi implements the OpenAI-wire chat-completions call
// shared by the raw HTTP provider clients.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evalops/evalforge/provider"
)

// Message is one wire-format chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the wire-format request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stream      bool      `json:"stream"`
}

// contentBlock is one element of a list-of-blocks content value.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FlexContent decodes a content field that is either a plain string or
// a list of typed blocks; blocks are concatenated in order.
type FlexContent string

// UnmarshalJSON implements json.Unmarshaler.
func (c *FlexContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = FlexContent(s)
		return nil
	}
	var blocks []contentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content is neither string nor block list: %w", err)
	}
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.Text)
	}
	*c = FlexContent(sb.String())
	return nil
}

// Response is the wire-format response body.
type Response struct {
	Choices []struct {
		Message struct {
			Role    string      `json:"role"`
			Content FlexContent `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Do posts the request with a bearer token and decodes the response.
// Non-2xx statuses become provider.StatusError so the retry layer can
// classify rate limits.
func Do(ctx context.Context, client *http.Client, baseURL, apiKey string, req *Request) (*provider.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1/chat/completions", strings.TrimSuffix(baseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	httpRsp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer httpRsp.Body.Close()

	if httpRsp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(httpRsp.Body, 4096))
		return nil, &provider.StatusError{Code: httpRsp.StatusCode, Message: string(raw)}
	}
	var rsp Response
	if err := json.NewDecoder(httpRsp.Body).Decode(&rsp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	var text string
	if len(rsp.Choices) > 0 {
		text = string(rsp.Choices[0].Message.Content)
	}
	return &provider.Response{
		Text: strings.TrimSpace(text),
		Usage: provider.Usage{
			PromptTokens:     rsp.Usage.PromptTokens,
			CompletionTokens: rsp.Usage.CompletionTokens,
			TotalTokens:      rsp.Usage.TotalTokens,
		},
	}, nil
}

// ConvertMessages converts uniform messages to wire format.
func ConvertMessages(messages []provider.Message) []Message {
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = Message{Role: msg.Role, Content: msg.Content}
	}
	return out
}
