package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/google/uuid"
	"github.com/moby/moby/client"
	"github.com/sithukyaw666/redeployer/model"
	"github.com/sithukyaw666/redeployer/operations/controller"
)

// ComposeDeployer checks the commit out into a local working copy and
// reconciles the compose project found there against the Docker daemon.
type ComposeDeployer struct {
	cli           *client.Client
	repoURL       string
	branch        string
	deploymentDir string
	composeFile   string
	auth          transport.AuthMethod
	logger        *slog.Logger
}

func NewComposeDeployer(cli *client.Client, config model.Config, logger *slog.Logger) (*ComposeDeployer, error) {
	auth, err := resolveAuth(config.RepoURL, config.SSHKeyPath, logger)
	if err != nil {
		return nil, err
	}
	return &ComposeDeployer{
		cli:           cli,
		repoURL:       config.RepoURL,
		branch:        config.TargetBranch,
		deploymentDir: config.DeploymentDir,
		composeFile:   config.ComposeFile,
		auth:          auth,
		logger:        logger,
	}, nil
}

func (d *ComposeDeployer) Name() string {
	return "compose"
}

func (d *ComposeDeployer) Deploy(ctx context.Context, commit model.Commit) (model.DeployResult, error) {
	result := model.DeployResult{
		ID:      uuid.NewString(),
		Commit:  commit,
		Started: time.Now(),
	}
	logger := d.logger.With("deploy_id", result.ID)

	err := d.deploy(ctx, commit, logger)
	result.Duration = time.Since(result.Started)
	if err != nil {
		result.ExitCode = 1
		return result, &DeployError{ExitCode: 1, Err: err}
	}
	return result, nil
}

func (d *ComposeDeployer) deploy(ctx context.Context, commit model.Commit, logger *slog.Logger) error {
	if err := SyncWorkingCopy(ctx, d.repoURL, d.branch, d.deploymentDir, plumbing.NewHash(commit.Hash), d.auth, logger); err != nil {
		return err
	}

	composePath := filepath.Join(d.deploymentDir, d.composeFile)
	compose, err := controller.ParseComposeFile(composePath)
	if err != nil {
		return fmt.Errorf("could not process compose file: %w", err)
	}
	logger.Info("Successfully parsed compose file", "services_count", len(compose.Services))

	projectName := filepath.Base(d.deploymentDir)
	if err := controller.Apply(ctx, d.cli, projectName, compose, commit.Hash, logger); err != nil {
		return fmt.Errorf("failed to apply compose config: %w", err)
	}
	return nil
}

// SyncWorkingCopy clones repoURL into dir when needed, fetches branch and
// hard-resets the worktree to target. Local changes are discarded. A zero
// target resets to the fetched branch head.
func SyncWorkingCopy(ctx context.Context, repoURL, branch, dir string, target plumbing.Hash, auth transport.AuthMethod, logger *slog.Logger) error {
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		logger.Info("Repository not found, cloning...", "deployment_dir", dir)
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:           repoURL,
			Auth:          auth,
			ReferenceName: plumbing.NewBranchReferenceName(branch),
			SingleBranch:  true,
		})
		if err != nil {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	} else {
		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Auth:       auth,
			Force:      true,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return fmt.Errorf("failed to fetch: %w", err)
		}
	}

	if target.IsZero() {
		ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
		if err != nil {
			return fmt.Errorf("failed to get remote reference: %w", err)
		}
		target = ref.Hash()
	}

	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("failed to reset worktree to %s: %w", target, err)
	}
	logger.Info("Working copy updated", "commit", target.String())
	return nil
}
