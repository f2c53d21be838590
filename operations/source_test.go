package operations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commitBody = `{
  "sha": "6dcb09b5b57875f334f61aebed695e2e4193db5e",
  "html_url": "https://github.com/octo/app/commit/6dcb09b5b57875f334f61aebed695e2e4193db5e",
  "commit": {
    "message": "Fix login redirect\n\nLonger description.",
    "author": {"name": "Monalisa Octocat", "date": "2024-03-01T10:00:00Z"}
  }
}`

func newGitHubSourceFor(t *testing.T, server *httptest.Server) *GitHubSource {
	t.Helper()
	source, err := NewGitHubSource(GitHubSourceConfig{
		APIURL:  server.URL + "/",
		Owner:   "octo",
		Repo:    "app",
		Branch:  "main",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return source
}

func TestGitHubSourceLatestCommit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo/app/commits/main", r.URL.Path)
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(commitBody))
	}))
	defer server.Close()

	commit, err := newGitHubSourceFor(t, server).LatestCommit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "6dcb09b5b57875f334f61aebed695e2e4193db5e", commit.Hash)
	assert.Equal(t, "6dcb09b5b578", commit.Short())
	assert.Equal(t, "Fix login redirect", commit.Message)
	assert.Equal(t, "Monalisa Octocat", commit.Author)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), commit.Date.UTC())
}

func TestGitHubSourceUsesETag(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(commitBody))
	}))
	defer server.Close()

	source := newGitHubSourceFor(t, server)
	first, err := source.LatestCommit(context.Background())
	require.NoError(t, err)
	second, err := source.LatestCommit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	assert.Equal(t, first, second)
}

func TestGitHubSourceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   FetchErrorKind
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, kind: FetchStatus},
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Not Found"}`, kind: FetchStatus},
		{name: "rate limited", status: http.StatusForbidden, body: `{"message":"API rate limit exceeded"}`, kind: FetchStatus},
		{name: "garbage", status: http.StatusOK, body: `not json`, kind: FetchParse},
		{name: "missing sha", status: http.StatusOK, body: `{"message":"weird"}`, kind: FetchEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newGitHubSourceFor(t, server).LatestCommit(context.Background())
			require.Error(t, err)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.kind, fetchErr.Kind)
			assert.Equal(t, "github", fetchErr.Source)
		})
	}
}

func TestGitHubSourceNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	source := newGitHubSourceFor(t, server)
	server.Close()

	_, err := source.LatestCommit(context.Background())

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, FetchNetwork, fetchErr.Kind)
}

func TestNewGitHubSourceValidation(t *testing.T) {
	_, err := NewGitHubSource(GitHubSourceConfig{Branch: "main"})
	assert.Error(t, err)

	_, err = NewGitHubSource(GitHubSourceConfig{Owner: "o", Repo: "r"})
	assert.Error(t, err)

	source, err := NewGitHubSource(GitHubSourceConfig{Owner: "o", Repo: "r", Branch: "release/1.x"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/o/r/commits/release%2F1.x", source.endpoint)
}
