package transform

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// FileRef identifies an object staged as a file on a filesystem shared
// between the submitting process and the workers.
type FileRef struct {
	Path string
}

func init() {
	gob.Register(FileRef{})
	gob.Register(BlobRef{})
}

// FileTransformer stages objects as gob-encoded files in a directory.
// Close removes every file the transformer created.
type FileTransformer struct {
	dir    string
	mu     sync.Mutex
	staged map[string]struct{}
	closed bool
}

func NewFileTransformer(dir string) (*FileTransformer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create staging directory %s", dir)
	}
	return &FileTransformer{
		dir:    dir,
		staged: make(map[string]struct{}),
	}, nil
}

func (t *FileTransformer) Transform(obj any) (any, error) {
	if t.IsIdentifier(obj) {
		return obj, nil
	}
	b, err := encode(obj)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(t.dir, uuid.NewString()+".gob")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return nil, errors.Wrapf(err, "stage object to %s", path)
	}
	t.mu.Lock()
	t.staged[path] = struct{}{}
	t.mu.Unlock()
	return FileRef{Path: path}, nil
}

func (t *FileTransformer) Resolve(identifier any) (any, error) {
	ref, ok := identifier.(FileRef)
	if !ok {
		return nil, errors.Errorf("not a file identifier: %T", identifier)
	}
	b, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read staged object %s", ref.Path)
	}
	return decode(b)
}

func (t *FileTransformer) IsIdentifier(obj any) bool {
	_, ok := obj.(FileRef)
	return ok
}

// Close deletes every staged file. Calling Close twice is a no-op.
func (t *FileTransformer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var firstErr error
	for path := range t.staged {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = errors.Wrapf(err, "remove staged object %s", path)
		}
	}
	t.staged = nil
	return firstErr
}
