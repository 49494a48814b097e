package records

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/ignatij/gostage/pkg/models"
)

// JSONL appends one JSON object per line to a file, the reference
// persisted form for task records.
type JSONL struct {
	mu     sync.Mutex
	f      *os.File
	enc    *json.Encoder
	closed bool
}

func NewJSONL(path string) (*JSONL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open record log %s", path)
	}
	return &JSONL{f: f, enc: json.NewEncoder(f)}, nil
}

func (l *JSONL) Log(record models.TaskRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return errors.New("record log closed")
	}
	return errors.Wrap(l.enc.Encode(record), "write task record")
}

// Close closes the underlying file. Calling Close twice is a no-op.
func (l *JSONL) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.f.Close()
}

// ReadJSONL loads every record from a JSON Lines file written by JSONL.
func ReadJSONL(path string) ([]models.TaskRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open record log %s", path)
	}
	defer f.Close()

	var out []models.TaskRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.TaskRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.Wrap(err, "parse task record")
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read record log %s", path)
	}
	return out, nil
}
