package models

import "time"

// ExecutionInfo holds the wall timestamps bracketing a managed task
// invocation. It is produced on the worker side, only on success, and
// travels back embedded in the result envelope.
type ExecutionInfo struct {
	ExecutionStart       time.Time `json:"execution_start"`
	ExecutionEnd         time.Time `json:"execution_end"`
	InputResolveStart    time.Time `json:"input_resolve_start"`
	InputResolveEnd      time.Time `json:"input_resolve_end"`
	TaskStart            time.Time `json:"task_start"`
	TaskEnd              time.Time `json:"task_end"`
	ResultTransformStart time.Time `json:"result_transform_start"`
	ResultTransformEnd   time.Time `json:"result_transform_end"`
}

// TaskDuration is the time spent inside the user function alone.
func (ei ExecutionInfo) TaskDuration() time.Duration {
	return ei.TaskEnd.Sub(ei.TaskStart)
}

// TotalDuration is the time spent inside the whole managed invocation,
// including input resolution and result staging.
func (ei ExecutionInfo) TotalDuration() time.Duration {
	return ei.ExecutionEnd.Sub(ei.ExecutionStart)
}

// ResultEnvelope is what a managed task invocation returns through the
// worker pool: the (possibly staged) value plus its execution timing.
// Code calling a task directly never sees one.
type ResultEnvelope struct {
	Value     any
	Execution ExecutionInfo
}
