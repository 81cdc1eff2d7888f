//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package provider defines the uniform text-generation interface the
// evaluation engine uses to talk to LLM backends. Concrete clients
// live in the subpackages; provider/registry wires them up by tag.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Message is one chat message sent to a backend.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a uniform generation request. Temperature and TopP are
// pointers so a backend can tell "unset" from zero; backends with
// parameter restrictions drop what they must.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	TopP        *float64
}

// Usage is the token accounting reported by a backend, zero-valued
// when the backend does not report usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a uniform generation response. Text is whitespace
// trimmed and never reported as absent; an empty completion is "".
type Response struct {
	Text  string
	Usage Usage
}

// Client is a text-generation backend. Implementations are safe for
// concurrent use and hold no per-call state.
type Client interface {
	// Generate runs one chat completion.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// StatusError carries the HTTP status of a failed backend call so the
// retry layer can classify it.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider: status %d: %s", e.Code, e.Message)
}

// IsRateLimit reports whether an error is a rate limit: HTTP 429 or a
// message containing "rate limit". Only these errors are retried.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

// UserPrompt wraps a single prompt as a one-message request.
func UserPrompt(prompt string) []Message {
	return []Message{{Role: RoleUser, Content: prompt}}
}

// Float64Ptr returns a pointer to v for optional request fields.
func Float64Ptr(v float64) *float64 { return &v }

// GenerateText issues a single-prompt request and returns the trimmed
// completion text.
func GenerateText(ctx context.Context, c Client, prompt string, maxTokens int, temperature float64) (string, error) {
	rsp, err := c.Generate(ctx, &Request{
		Messages:    UserPrompt(prompt),
		MaxTokens:   maxTokens,
		Temperature: Float64Ptr(temperature),
	})
	if err != nil {
		return "", err
	}
	return rsp.Text, nil
}
