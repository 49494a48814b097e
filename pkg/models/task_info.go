package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskInfo carries the metadata the engine tracks for one submitted task.
// It is created at submit time and mutated exactly once, by the engine's
// completion callback, when the backend future finishes.
type TaskInfo struct {
	TaskID        uuid.UUID      `json:"task_id"`
	FunctionName  string         `json:"function_name"`
	ParentTaskIDs []uuid.UUID    `json:"parent_task_ids"`
	SubmitTime    time.Time      `json:"submit_time"`
	ReceivedTime  *time.Time     `json:"received_time,omitempty"`
	Success       *bool          `json:"success,omitempty"`
	Exception     *ExceptionInfo `json:"exception,omitempty"`
	Execution     *ExecutionInfo `json:"execution,omitempty"`
}

// Record flattens the info into the form handed to a record logger.
func (ti *TaskInfo) Record() TaskRecord {
	parents := make([]string, len(ti.ParentTaskIDs))
	for i, id := range ti.ParentTaskIDs {
		parents[i] = id.String()
	}
	return TaskRecord{
		TaskID:        ti.TaskID.String(),
		FunctionName:  ti.FunctionName,
		ParentTaskIDs: parents,
		SubmitTime:    ti.SubmitTime,
		ReceivedTime:  ti.ReceivedTime,
		Success:       ti.Success,
		Exception:     ti.Exception,
		Execution:     ti.Execution,
	}
}

// TaskRecord is the wire form of a completed task's metadata, one JSON
// object per line in the reference log format.
type TaskRecord struct {
	TaskID        string         `json:"task_id"`
	FunctionName  string         `json:"function_name"`
	ParentTaskIDs []string       `json:"parent_task_ids"`
	SubmitTime    time.Time      `json:"submit_time"`
	ReceivedTime  *time.Time     `json:"received_time,omitempty"`
	Success       *bool          `json:"success,omitempty"`
	Exception     *ExceptionInfo `json:"exception,omitempty"`
	Execution     *ExecutionInfo `json:"execution,omitempty"`
}
