package transform_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/transform"
)

func newSQLiteTransformer(t *testing.T) *transform.SQLiteTransformer {
	st, err := transform.NewSQLiteTransformer(filepath.Join(t.TempDir(), "staging.db"))
	assert.NoError(t, err)
	return st
}

func TestSQLiteTransformer_RoundTrip(t *testing.T) {
	st := newSQLiteTransformer(t)
	defer st.Close()

	for _, obj := range []any{"a string", 42, []byte{9, 8, 7}} {
		ref, err := st.Transform(obj)
		assert.NoError(t, err)
		assert.True(t, st.IsIdentifier(ref))

		resolved, err := st.Resolve(ref)
		assert.NoError(t, err)
		assert.Equal(t, obj, resolved)
	}
}

func TestSQLiteTransformer_IdempotentStaging(t *testing.T) {
	st := newSQLiteTransformer(t)
	defer st.Close()

	ref, err := st.Transform("payload")
	assert.NoError(t, err)
	again, err := st.Transform(ref)
	assert.NoError(t, err)
	assert.Equal(t, ref, again)
}

func TestSQLiteTransformer_ResolveUnknownKey(t *testing.T) {
	st := newSQLiteTransformer(t)
	defer st.Close()

	_, err := st.Resolve(transform.BlobRef{Key: "missing"})
	assert.Error(t, err)
	_, err = st.Resolve(12345)
	assert.Error(t, err)
}

func TestSQLiteTransformer_CloseTwice(t *testing.T) {
	st := newSQLiteTransformer(t)
	assert.NoError(t, st.Close())
	assert.NoError(t, st.Close())
}
