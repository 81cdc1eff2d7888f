//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package config

import "strings"

// secretKeys are the JSON keys removed by Scrub, matched
// case-insensitively at every nesting level.
var secretKeys = map[string]bool{
	"apikey":        true,
	"api_key":       true,
	"scorerapikeys": true,
	"apikeys":       true,
	"authorization": true,
	"token":         true,
}

// Scrub returns a deep copy of the payload with credential-bearing
// keys removed. Call it on any config destined for the durable store.
func Scrub(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if secretKeys[strings.ToLower(k)] {
			continue
		}
		out[k] = scrubValue(v)
	}
	return out
}

func scrubValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Scrub(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = scrubValue(item)
		}
		return out
	default:
		return v
	}
}
