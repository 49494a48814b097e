package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ExceptionInfo is a serializable snapshot of a failed task's error. It is
// a plain value copy: it holds no reference to the original error, so no
// live object is retained once the record is logged.
type ExceptionInfo struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

// NewExceptionInfo snapshots err. The traceback is the expanded rendering
// of the error, which includes a stack trace when the error carries one.
func NewExceptionInfo(err error) *ExceptionInfo {
	return &ExceptionInfo{
		Type:      fmt.Sprintf("%T", errors.Cause(err)),
		Message:   err.Error(),
		Traceback: fmt.Sprintf("%+v", err),
	}
}
