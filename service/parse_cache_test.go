package service

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pyrefminer/domain"
)

func TestModelCache_KeyedBySide(t *testing.T) {
	root := t.TempDir()
	path := createTestFile(t, root, "m.py", "def f():\n    return 1\n")

	cache, err := NewModelCache(0)
	require.NoError(t, err)

	loader := NewModelLoader(NewFileReader(), cache, 2)
	files := []SourceFile{{Path: path, Rel: "m.py"}}

	before, failures, err := loader.Load(context.Background(), "before", files, nil)
	require.NoError(t, err)
	require.Empty(t, failures)
	after, _, err := loader.Load(context.Background(), "after", files, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.Len())
	assert.NotSame(t, before[0], after[0], "sides must not share models")

	again, _, err := loader.Load(context.Background(), "before", files, nil)
	require.NoError(t, err)
	assert.Same(t, before[0], again[0])
}

func TestModelLoader_OrderAndFailures(t *testing.T) {
	root := t.TempDir()
	files := []SourceFile{
		{Path: createTestFile(t, root, "a.py", "def a():\n    return 1\n"), Rel: "a.py"},
		{Path: createTestFile(t, root, "broken.py", "def broken(:\n"), Rel: "broken.py"},
		{Path: createTestFile(t, root, "c.py", "def c():\n    return 3\n"), Rel: "c.py"},
		{Path: filepath.Join(root, "missing.py"), Rel: "missing.py"},
	}

	var calls atomic.Int64
	loader := NewModelLoader(NewFileReader(), nil, 3)
	modules, failures, err := loader.Load(context.Background(), "before", files, func() { calls.Add(1) })
	require.NoError(t, err)

	require.Len(t, modules, 2)
	assert.Equal(t, "a.py", modules[0].Path)
	assert.Equal(t, "c.py", modules[1].Path)

	require.Len(t, failures, 2)
	assert.Equal(t, "broken.py", failures[0].File.Rel)
	assert.Equal(t, "missing.py", failures[1].File.Rel)

	var de domain.DomainError
	require.ErrorAs(t, failures[0].Err, &de)
	assert.Equal(t, domain.ErrCodeParseError, de.Code)

	assert.Equal(t, int64(len(files)), calls.Load())
}

func TestModelLoader_Cancelled(t *testing.T) {
	root := t.TempDir()
	files := []SourceFile{{Path: createTestFile(t, root, "a.py", "x = 1\n"), Rel: "a.py"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewModelLoader(NewFileReader(), nil, 1).Load(ctx, "before", files, nil)
	require.Error(t, err)
	assert.True(t, domain.IsTimeout(err))
}
