//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package jsonx extracts JSON fragments from LLM responses that wrap
// them in prose or code fences.
package jsonx

import (
	"regexp"
	"strconv"
	"strings"
)

// ExtractObject returns the first top-level JSON object in s, found by
// balanced-brace scanning. String literals are honored so braces in
// values do not unbalance the scan.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// numberRe matches a decimal number.
var numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// FirstScore returns the first number in s that lies in [0, 1].
func FirstScore(s string) (float64, bool) {
	for _, match := range numberRe.FindAllString(s, -1) {
		v, err := strconv.ParseFloat(match, 64)
		if err != nil {
			continue
		}
		if v >= 0 && v <= 1 {
			return v, true
		}
	}
	return 0, false
}
