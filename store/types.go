//
// EvalOps is pleased to support the open source community by making evalforge available.
//
// Copyright (C) 2026 EvalOps, Inc.  All rights reserved.
//
// evalforge is licensed under the Apache License Version 2.0.
//
//

package store

import "time"

// Status represents the lifecycle state of an experiment or arena comparison.
type Status string

const (
	// StatusPending marks a job that has been created but not picked up.
	StatusPending Status = "pending"
	// StatusRunning marks a job currently owned by an orchestrator.
	StatusRunning Status = "running"
	// StatusCompleted is terminal; results are written on this transition.
	StatusCompleted Status = "completed"
	// StatusFailed is terminal; error_message is written on this transition.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LogStatus represents the outcome of a single sample attempt.
type LogStatus string

const (
	// LogStatusSuccess marks a sample that produced output.
	LogStatusSuccess LogStatus = "success"
	// LogStatusError marks a sample that failed to produce output.
	LogStatusError LogStatus = "error"
)

// Metric type constants.
const (
	// MetricTypePerformance marks per-sample metrics such as latency.
	MetricTypePerformance = "performance"
	// MetricTypeQuality marks per-experiment quality averages.
	MetricTypeQuality = "quality"
)

// Experiment is a durable evaluation job record.
type Experiment struct {
	ID          string         `json:"id"`
	Tenant      string         `json:"tenant"`
	ProjectID   string         `json:"project_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
	Status      Status         `json:"status"`
	// Results is only written when the experiment completes.
	Results map[string]any `json:"results,omitempty"`
	// ErrorMessage is only written when the experiment fails.
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// EvaluationLog is one record per sample attempt. Logs are
// append-mostly; a single later merge updates metadata.metric_scores.
type EvaluationLog struct {
	ID           string `json:"id"`
	ExperimentID string `json:"experiment_id"`
	Tenant       string `json:"tenant"`
	ProjectID    string `json:"project_id"`
	// TraceID groups spans originating from the same sample.
	TraceID       string         `json:"trace_id,omitempty"`
	ParentTraceID string         `json:"parent_trace_id,omitempty"`
	SpanName      string         `json:"span_name,omitempty"`
	InputText     string         `json:"input_text"`
	OutputText    string         `json:"output_text,omitempty"`
	ModelName     string         `json:"model_name"`
	LatencyMS     int64          `json:"latency_ms"`
	TokenCount    int            `json:"token_count"`
	Cost          *float64       `json:"cost,omitempty"`
	Status        LogStatus      `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// EvaluationMetric is one numeric aggregate per (experiment, metric name).
// Latency is recorded per sample; quality metrics are written once per
// experiment as averages.
type EvaluationMetric struct {
	ID           string         `json:"id"`
	Tenant       string         `json:"tenant"`
	ExperimentID string         `json:"experiment_id"`
	MetricName   string         `json:"metric_name"`
	MetricType   string         `json:"metric_type"`
	Value        float64        `json:"value"`
	Dimensions   map[string]any `json:"dimensions,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Scorer type constants.
const (
	ScorerTypeLLM     = "llm"
	ScorerTypeBuiltin = "builtin"
	ScorerTypeCustom  = "custom"
)

// ScorerDefinition is a stored custom LLM-as-judge scorer.
type ScorerDefinition struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id,omitempty"`
	Tenant      string `json:"tenant"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	// MetricKey is the unique key the scorer's averages are stored
	// under. Unique within (tenant, project_id).
	MetricKey        string       `json:"metric_key"`
	Enabled          bool         `json:"enabled"`
	DefaultThreshold float64      `json:"default_threshold"`
	Weight           float64      `json:"weight"`
	Config           ScorerConfig `json:"config"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ScorerConfig holds the judge model and prompt templates of a scorer.
type ScorerConfig struct {
	JudgeModel ScorerJudgeModel `json:"judgeModel"`
	// Messages are rendered in order with {{input}}, {{output}} and
	// {{expected}} placeholders substituted.
	Messages []ScorerMessage `json:"messages"`
	// ChoiceScores maps an extracted label to a numeric score,
	// typically {PASS: 1.0, FAIL: 0.0}.
	ChoiceScores  map[string]float64 `json:"choiceScores"`
	PassThreshold *float64           `json:"passThreshold,omitempty"`
}

// ScorerJudgeModel identifies the judge LLM of a scorer.
type ScorerJudgeModel struct {
	Provider string         `json:"provider"`
	Name     string         `json:"name"`
	Params   map[string]any `json:"params,omitempty"`
}

// ScorerMessage is one prompt template line.
type ScorerMessage struct {
	Role     string `json:"role"`
	Template string `json:"template"`
}

// Contestant is one configured (provider, model) pair in an arena
// comparison.
type Contestant struct {
	Name            string         `json:"name"`
	Hyperparameters map[string]any `json:"hyperparameters"`
}

// ArenaMetricConfig carries the judging criteria of a comparison.
type ArenaMetricConfig struct {
	// Name is a comma-separated list of criteria.
	Name string `json:"name"`
	// Criteria is the free-form rubric shown to the judge.
	Criteria    string `json:"criteria"`
	DatasetPath string `json:"datasetPath"`
}

// ArenaComparison is a multi-contestant evaluation record.
type ArenaComparison struct {
	ID              string            `json:"id"`
	Tenant          string            `json:"tenant"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	OrgID           string            `json:"org_id,omitempty"`
	Contestants     []Contestant      `json:"contestants"`
	ContestantNames []string          `json:"contestant_names"`
	MetricConfig    ArenaMetricConfig `json:"metric_config"`
	JudgeModel      string            `json:"judge_model"`
	Status          Status            `json:"status"`
	Progress        string            `json:"progress,omitempty"`
	// Winner is one of the contestant names, empty, or the literal
	// form "Tie: A, B" when multiple contestants share the max.
	Winner          string           `json:"winner,omitempty"`
	WinCounts       map[string]int   `json:"win_counts,omitempty"`
	DetailedResults []map[string]any `json:"detailed_results,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// DatasetUpload is the companion record of an uploaded dataset file.
type DatasetUpload struct {
	ID          string    `json:"id"`
	Tenant      string    `json:"tenant"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	PromptCount int       `json:"prompt_count"`
	CreatedAt   time.Time `json:"created_at"`
}
