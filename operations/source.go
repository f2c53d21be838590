package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sithukyaw666/redeployer/model"
)

// CommitSource reports the newest commit on the tracked branch.
type CommitSource interface {
	LatestCommit(ctx context.Context) (model.Commit, error)
	Name() string
}

type GitHubSourceConfig struct {
	APIURL     string
	Owner      string
	Repo       string
	Branch     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GitHubSource asks the GitHub REST API for the head commit of a branch.
// Responses are cached by ETag so unchanged branches cost a 304.
type GitHubSource struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration

	mu     sync.Mutex
	etag   string
	cached model.Commit
}

type githubCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func NewGitHubSource(cfg GitHubSourceConfig) (*GitHubSource, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com"
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("github source requires owner and repo")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("github source requires a branch")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/commits/%s",
		strings.TrimSuffix(cfg.APIURL, "/"),
		url.PathEscape(cfg.Owner),
		url.PathEscape(cfg.Repo),
		url.PathEscape(cfg.Branch),
	)
	return &GitHubSource{
		endpoint: endpoint,
		client:   client,
		timeout:  timeout,
	}, nil
}

func (s *GitHubSource) Name() string {
	return "github"
}

func (s *GitHubSource) LatestCommit(ctx context.Context) (model.Commit, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return model.Commit{}, s.fail(FetchNetwork, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	s.mu.Lock()
	etag := s.etag
	s.mu.Unlock()
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Commit{}, s.fail(FetchNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && etag != "":
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.cached, nil
	case resp.StatusCode != http.StatusOK:
		return model.Commit{}, s.fail(FetchStatus, fmt.Errorf("unexpected response: %s", resp.Status))
	}

	var payload githubCommit
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Commit{}, s.fail(FetchParse, fmt.Errorf("decode response: %w", err))
	}
	hash := strings.TrimSpace(payload.SHA)
	if hash == "" {
		return model.Commit{}, s.fail(FetchEmpty, errors.New("response carried no sha"))
	}

	commit := model.Commit{
		Hash:    hash,
		Message: firstLine(payload.Commit.Message),
		Author:  payload.Commit.Author.Name,
		URL:     payload.HTMLURL,
		Date:    payload.Commit.Author.Date,
	}

	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.cached = commit
	s.mu.Unlock()
	return commit, nil
}

func (s *GitHubSource) fail(kind FetchErrorKind, err error) error {
	return &FetchError{Kind: kind, Source: s.Name(), Err: err}
}

func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}
