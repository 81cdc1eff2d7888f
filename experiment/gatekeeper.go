//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/evalops/evalforge/log"
	"github.com/evalops/evalforge/metric"
)

// gateSuite is the on-disk shape of a quality-gate file: metric key to
// minimum acceptable average.
type gateSuite struct {
	MinScores map[string]float64 `json:"minScores"`
}

// runGatekeeper checks the run's averages against the configured gate
// suite. The verdict is informational and lands in results; a failing
// gate never fails the experiment. Returns nil when no gate file is
// configured or it cannot be read.
func (o *Orchestrator) runGatekeeper(avgs map[string]float64) map[string]any {
	if o.gateFile == "" {
		return nil
	}
	raw, err := os.ReadFile(o.gateFile)
	if err != nil {
		log.Warnf("read gate suite %s: %v", o.gateFile, err)
		return nil
	}
	var suite gateSuite
	if err := json.Unmarshal(raw, &suite); err != nil {
		log.Warnf("parse gate suite %s: %v", o.gateFile, err)
		return nil
	}
	if len(suite.MinScores) == 0 {
		return nil
	}

	keys := make([]string, 0, len(suite.MinScores))
	for k := range suite.MinScores {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	checked := map[string]any{}
	var failures []string
	for _, key := range keys {
		min := suite.MinScores[key]
		normalized := metric.NormalizeKey(key)
		avg, ok := avgs[normalized]
		if !ok {
			failures = append(failures, fmt.Sprintf("%s: not evaluated", key))
			checked[normalized] = map[string]any{"min": min, "passed": false}
			continue
		}
		passed := avg >= min
		checked[normalized] = map[string]any{"min": min, "average": avg, "passed": passed}
		if !passed {
			failures = append(failures, fmt.Sprintf("%s: %.3f below minimum %.3f", key, avg, min))
		}
	}
	verdict := map[string]any{
		"passed":          len(failures) == 0,
		"checked_metrics": checked,
	}
	if len(failures) > 0 {
		verdict["fail_reasons"] = failures
	}
	return verdict
}
