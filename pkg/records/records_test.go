package records_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/models"
	"github.com/ignatij/gostage/pkg/records"
)

func sampleRecords() []models.TaskRecord {
	received := time.Now().UTC().Round(time.Millisecond)
	ok := true
	failed := false
	return []models.TaskRecord{
		{
			TaskID:       "task-1",
			FunctionName: "count",
			SubmitTime:   received.Add(-time.Second),
			ReceivedTime: &received,
			Success:      &ok,
			Execution: &models.ExecutionInfo{
				ExecutionStart: received.Add(-900 * time.Millisecond),
				ExecutionEnd:   received.Add(-100 * time.Millisecond),
			},
		},
		{
			TaskID:        "task-2",
			FunctionName:  "merge",
			ParentTaskIDs: []string{"task-1"},
			SubmitTime:    received.Add(-time.Second),
			ReceivedTime:  &received,
			Success:       &failed,
			Exception: &models.ExceptionInfo{
				Type:      "*errors.fundamental",
				Message:   "boom",
				Traceback: "boom\nstack",
			},
		},
	}
}

func TestJSONL_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	l, err := records.NewJSONL(path)
	assert.NoError(t, err)

	want := sampleRecords()
	for _, r := range want {
		assert.NoError(t, l.Log(r))
	}
	assert.NoError(t, l.Close())

	got, err := records.ReadJSONL(path)
	assert.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "boom", got[1].Exception.Message)
	assert.False(t, *got[1].Success)
}

func TestJSONL_AppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")

	for i := 0; i < 2; i++ {
		l, err := records.NewJSONL(path)
		assert.NoError(t, err)
		assert.NoError(t, l.Log(models.TaskRecord{TaskID: "task", FunctionName: "count"}))
		assert.NoError(t, l.Close())
	}

	got, err := records.ReadJSONL(path)
	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestJSONL_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.jsonl")
	l, err := records.NewJSONL(path)
	assert.NoError(t, err)
	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
	assert.Error(t, l.Log(models.TaskRecord{TaskID: "late"}))
}

func TestMemory_List(t *testing.T) {
	m := records.NewMemory()
	base := time.Now()
	// Logged oldest submission first.
	for i, id := range []string{"task-1", "task-2", "task-3"} {
		assert.NoError(t, m.Log(models.TaskRecord{
			TaskID:     id,
			SubmitTime: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Newest submission first, matching the database store's order.
	all, err := m.List(0)
	assert.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "task-3", all[0].TaskID)
	assert.Equal(t, "task-1", all[2].TaskID)

	limited, err := m.List(2)
	assert.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Equal(t, "task-3", limited[0].TaskID)
	assert.Equal(t, "task-2", limited[1].TaskID)
}
