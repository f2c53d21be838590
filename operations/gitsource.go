package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/sithukyaw666/redeployer/model"
)

// GitRemoteSource reads the branch head straight from the remote's ref
// advertisement, the same data `git ls-remote` prints. Nothing is cloned.
type GitRemoteSource struct {
	repoURL string
	branch  plumbing.ReferenceName
	auth    transport.AuthMethod
	remote  *git.Remote
}

func NewGitRemoteSource(repoURL, branch, sshKeyPath string, logger *slog.Logger) (*GitRemoteSource, error) {
	if repoURL == "" || branch == "" {
		return nil, fmt.Errorf("git source requires repoURL and branch")
	}
	auth, err := resolveAuth(repoURL, sshKeyPath, logger)
	if err != nil {
		return nil, err
	}
	remote := git.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	return &GitRemoteSource{
		repoURL: repoURL,
		branch:  plumbing.NewBranchReferenceName(branch),
		auth:    auth,
		remote:  remote,
	}, nil
}

func (s *GitRemoteSource) Name() string {
	return "git"
}

func (s *GitRemoteSource) LatestCommit(ctx context.Context) (model.Commit, error) {
	refs, err := s.remote.ListContext(ctx, &git.ListOptions{Auth: s.auth})
	if err != nil {
		return model.Commit{}, &FetchError{Kind: FetchNetwork, Source: s.Name(), Err: fmt.Errorf("list %s: %w", s.repoURL, err)}
	}
	for _, ref := range refs {
		if ref.Name() == s.branch && !ref.Hash().IsZero() {
			return model.Commit{Hash: ref.Hash().String(), URL: s.repoURL}, nil
		}
	}
	return model.Commit{}, &FetchError{Kind: FetchEmpty, Source: s.Name(), Err: fmt.Errorf("branch %s not advertised by %s", s.branch.Short(), s.repoURL)}
}

// resolveAuth picks SSH agent auth when an agent is running and falls back
// to the configured key file. Non-SSH endpoints get no auth.
func resolveAuth(repoURL, sshKeyPath string, logger *slog.Logger) (transport.AuthMethod, error) {
	ep, err := transport.NewEndpoint(repoURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository url %q: %w", repoURL, err)
	}
	if ep.Protocol != "ssh" {
		return nil, nil
	}
	user := ep.User
	if user == "" {
		user = "git"
	}

	if os.Getenv("SSH_AUTH_SOCK") != "" {
		logger.Info("SSH agent detected, attempting authentication.")
		auth, err := ssh.NewSSHAgentAuth(user)
		if err == nil {
			return auth, nil
		}
		logger.Warn("SSH agent auth failed, will attempt key file.", "error", err)
	}
	if sshKeyPath == "" {
		return nil, fmt.Errorf("no SSH agent found and sshKeyPath is not configured")
	}
	logger.Info("Using SSH key file for authentication.", "path", sshKeyPath)
	auth, err := ssh.NewPublicKeysFromFile(user, sshKeyPath, "")
	if err != nil {
		return nil, fmt.Errorf("could not create SSH authentication: %w", err)
	}
	return auth, nil
}
