package operations

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGitTransport(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack not available for the file transport")
	}
}

// commitFile writes name with content into the repository at dir and
// commits it on the current branch.
func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)
	hash, err := w.Commit("update "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash
}

func initUpstream(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func TestGitRemoteSourceFollowsBranch(t *testing.T) {
	requireGitTransport(t)
	dir, repo := initUpstream(t)
	first := commitFile(t, repo, dir, "README.md", "v1")

	source, err := NewGitRemoteSource(dir, "master", "", discardLogger())
	require.NoError(t, err)

	commit, err := source.LatestCommit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.String(), commit.Hash)

	second := commitFile(t, repo, dir, "README.md", "v2")
	commit, err = source.LatestCommit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.String(), commit.Hash)
}

func TestGitRemoteSourceMissingBranch(t *testing.T) {
	requireGitTransport(t)
	dir, repo := initUpstream(t)
	commitFile(t, repo, dir, "README.md", "v1")

	source, err := NewGitRemoteSource(dir, "does-not-exist", "", discardLogger())
	require.NoError(t, err)

	_, err = source.LatestCommit(context.Background())
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, FetchEmpty, fetchErr.Kind)
}

func TestNewGitRemoteSourceRequiresKeyForSSH(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	_, err := NewGitRemoteSource("git@github.com:octo/app.git", "main", "", discardLogger())
	assert.ErrorContains(t, err, "sshKeyPath is not configured")

	_, err = NewGitRemoteSource("", "main", "", discardLogger())
	assert.Error(t, err)
}

func TestSyncWorkingCopy(t *testing.T) {
	requireGitTransport(t)
	upstreamDir, upstream := initUpstream(t)
	first := commitFile(t, upstream, upstreamDir, "docker-compose.yml", "services: {}\n")

	dir := filepath.Join(t.TempDir(), "app")
	require.NoError(t, SyncWorkingCopy(context.Background(), upstreamDir, "master", dir, first, nil, discardLogger()))

	content, err := os.ReadFile(filepath.Join(dir, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", string(content))

	second := commitFile(t, upstream, upstreamDir, "docker-compose.yml", "services:\n  web:\n    image: nginx\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte("local edit"), 0o644))
	require.NoError(t, SyncWorkingCopy(context.Background(), upstreamDir, "master", dir, plumbing.ZeroHash, nil, discardLogger()))

	content, err = os.ReadFile(filepath.Join(dir, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "image: nginx")

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, second, head.Hash())
}
