package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

func TestDirLoader_MissingDirectory(t *testing.T) {
	t.Parallel()
	l := NewDirLoader(zap.NewNop())

	_, err := l.Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataDirMissing)
}

func TestDirLoader_LoadsOnlyTextFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("beta"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("skip me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	l := NewDirLoader(zap.NewNop())
	docs, err := l.Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// sorted filename order, filename as source id
	assert.Equal(t, "a.txt", docs[0].SourceID)
	assert.Equal(t, "alpha", docs[0].Text)
	assert.Equal(t, "b.txt", docs[1].SourceID)
	assert.Equal(t, "beta", docs[1].Text)
}

func TestDirLoader_EmptyDirectory(t *testing.T) {
	t.Parallel()
	l := NewDirLoader(zap.NewNop())

	docs, err := l.Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}
