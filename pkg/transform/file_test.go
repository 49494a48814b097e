package transform_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatij/gostage/pkg/transform"
)

func stagedFiles(t *testing.T, dir string) []os.DirEntry {
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	return entries
}

func TestFileTransformer_SizeFilteredStaging(t *testing.T) {
	dir := t.TempDir()
	ft, err := transform.NewFileTransformer(dir)
	assert.NoError(t, err)
	tt := transform.NewTaskTransformer(transform.MinSize(100), ft)

	small := strings.Repeat("a", 10)
	v, err := tt.Transform(small)
	assert.NoError(t, err)
	assert.Equal(t, small, v)
	assert.Empty(t, stagedFiles(t, dir))

	big := strings.Repeat("b", 1000)
	ref, err := tt.Transform(big)
	assert.NoError(t, err)
	assert.True(t, ft.IsIdentifier(ref))
	assert.Len(t, stagedFiles(t, dir), 1)

	resolved, err := tt.Resolve(ref)
	assert.NoError(t, err)
	assert.Equal(t, big, resolved)

	assert.NoError(t, tt.Close())
	assert.Empty(t, stagedFiles(t, dir))
	assert.NoError(t, tt.Close())
}

func TestFileTransformer_ResolveErrors(t *testing.T) {
	ft, err := transform.NewFileTransformer(t.TempDir())
	assert.NoError(t, err)
	defer ft.Close()

	_, err = ft.Resolve("not an identifier")
	assert.Error(t, err)

	_, err = ft.Resolve(transform.FileRef{Path: "/nonexistent/object.gob"})
	assert.Error(t, err)
}

func TestFileTransformer_RegisteredType(t *testing.T) {
	transform.Register(map[string]int{})

	ft, err := transform.NewFileTransformer(t.TempDir())
	assert.NoError(t, err)
	defer ft.Close()

	counts := map[string]int{"alpha": 1, "beta": 2}
	ref, err := ft.Transform(counts)
	assert.NoError(t, err)
	resolved, err := ft.Resolve(ref)
	assert.NoError(t, err)
	assert.Equal(t, counts, resolved)
}
