// Package records defines the record logger contract the engine emits one
// flat record per completed task to, plus the JSON Lines implementation
// used by default and an in-memory one for tests.
package records

import (
	"sort"
	"sync"

	"github.com/ignatij/gostage/pkg/models"
)

// Logger receives one record per completed task. Implementations must be
// safe for concurrent use and safe to close twice.
type Logger interface {
	Log(record models.TaskRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Log(models.TaskRecord) error { return nil }
func (Nop) Close() error                { return nil }

// Memory collects records in memory, for tests and short-lived pipelines.
type Memory struct {
	mu      sync.Mutex
	records []models.TaskRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Log(record models.TaskRecord) error {
	m.mu.Lock()
	m.records = append(m.records, record)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// Records returns a snapshot of everything logged so far.
func (m *Memory) Records() []models.TaskRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TaskRecord, len(m.records))
	copy(out, m.records)
	return out
}

// List makes Memory usable wherever a record lister is expected. Records
// come back newest submission first, the same order the database store
// returns.
func (m *Memory) List(limit int) ([]models.TaskRecord, error) {
	recs := m.Records()
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SubmitTime.After(recs[j].SubmitTime)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}
