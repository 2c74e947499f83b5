package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/codesmith-cli/internal/config"
)

func TestCommit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "backend"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "backend", "main.py"), []byte("app = None\n"), 0o644))

	s := New(config.SnapshotConfig{Enabled: true, AuthorName: "bot", AuthorEmail: "bot@example.com"}, zaptest.NewLogger(t))
	assert.True(t, s.Enabled())

	hash, err := s.Commit(root, "codesmith: initial generation")
	require.NoError(t, err)
	assert.Len(t, hash, 40)

	repo, err := git.PlainOpen(root)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "codesmith: initial generation", commit.Message)
	assert.Equal(t, "bot", commit.Author.Name)

	_, err = s.Commit(root, "again")
	assert.ErrorIs(t, err, ErrNothingToCommit)

	require.NoError(t, os.WriteFile(filepath.Join(root, "backend", "main.py"), []byte("app = 1\n"), 0o644))
	second, err := s.Commit(root, "second")
	require.NoError(t, err)
	assert.NotEqual(t, hash, second)
}
