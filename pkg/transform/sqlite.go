package transform

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// BlobRef identifies an object staged as a row in a sqlite store.
type BlobRef struct {
	Key string
}

// SQLiteTransformer stages objects as blobs in a local sqlite database,
// useful when many small staged objects would overwhelm a filesystem
// directory. Close evicts every staged row and closes the handle.
type SQLiteTransformer struct {
	db     *sqlx.DB
	mu     sync.Mutex
	closed bool
}

func NewSQLiteTransformer(path string) (*SQLiteTransformer, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open staging database %s", path)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "ping staging database %s", path)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS staged_objects (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL
	)`); err != nil {
		return nil, errors.Wrap(err, "create staged_objects table")
	}
	return &SQLiteTransformer{db: db}, nil
}

func (t *SQLiteTransformer) Transform(obj any) (any, error) {
	if t.IsIdentifier(obj) {
		return obj, nil
	}
	b, err := encode(obj)
	if err != nil {
		return nil, err
	}
	key := uuid.NewString()
	if _, err := t.db.Exec("INSERT INTO staged_objects (key, data) VALUES (?, ?)", key, b); err != nil {
		return nil, errors.Wrapf(err, "stage object %s", key)
	}
	return BlobRef{Key: key}, nil
}

func (t *SQLiteTransformer) Resolve(identifier any) (any, error) {
	ref, ok := identifier.(BlobRef)
	if !ok {
		return nil, errors.Errorf("not a blob identifier: %T", identifier)
	}
	var b []byte
	if err := t.db.Get(&b, "SELECT data FROM staged_objects WHERE key = ?", ref.Key); err != nil {
		return nil, errors.Wrapf(err, "read staged object %s", ref.Key)
	}
	return decode(b)
}

func (t *SQLiteTransformer) IsIdentifier(obj any) bool {
	_, ok := obj.(BlobRef)
	return ok
}

// Close evicts the staged rows and closes the database. Calling Close
// twice is a no-op.
func (t *SQLiteTransformer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if _, err := t.db.Exec("DELETE FROM staged_objects"); err != nil {
		_ = t.db.Close()
		return errors.Wrap(err, "evict staged objects")
	}
	return t.db.Close()
}
