//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

// Package artifact writes per-run result reports to disk: a full JSON
// dump and a flat CSV of per-metric averages.
package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Writer persists run artifacts under root/<tenant>/<runID>/.
type Writer struct {
	root string
}

// Option configures the writer.
type Option func(*Writer)

// WithRoot overrides the artifact root directory.
func WithRoot(root string) Option {
	return func(w *Writer) { w.root = root }
}

// NewWriter builds a writer rooted at artifacts/deepeval_results.
func NewWriter(opt ...Option) *Writer {
	w := &Writer{root: filepath.Join("artifacts", "deepeval_results")}
	for _, o := range opt {
		o(w)
	}
	return w
}

// Dir returns the directory for one run's artifacts.
func (w *Writer) Dir(tenant, runID string) string {
	if tenant == "" {
		return filepath.Join(w.root, runID)
	}
	return filepath.Join(w.root, tenant, runID)
}

// WriteRun persists results.json with the full results payload and
// summary.csv with one row per metric average. Returns the directory
// written.
func (w *Writer) WriteRun(tenant, runID string, results map[string]any) (string, error) {
	dir := w.Dir(tenant, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "results.json"), raw, 0o644); err != nil {
		return "", fmt.Errorf("write results.json: %w", err)
	}

	if err := w.writeSummary(dir, results); err != nil {
		return "", err
	}
	return dir, nil
}

func (w *Writer) writeSummary(dir string, results map[string]any) error {
	f, err := os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("create summary.csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"metric", "average"}); err != nil {
		return err
	}
	for _, row := range summaryRows(results) {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// summaryRows flattens avg_scores into sorted CSV rows.
func summaryRows(results map[string]any) [][]string {
	rows := [][]string{}
	switch avgs := results["avg_scores"].(type) {
	case map[string]any:
		keys := make([]string, 0, len(avgs))
		for k := range avgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var value string
			switch v := avgs[k].(type) {
			case float64:
				value = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				value = fmt.Sprint(v)
			}
			rows = append(rows, []string{k, value})
		}
	case map[string]float64:
		keys := make([]string, 0, len(avgs))
		for k := range avgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, []string{k, strconv.FormatFloat(avgs[k], 'f', -1, 64)})
		}
	}
	return rows
}
