package operations

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/sithukyaw666/redeployer/model"
)

// Deployer performs the deploy action for a newly detected commit.
type Deployer interface {
	Deploy(ctx context.Context, commit model.Commit) (model.DeployResult, error)
	Name() string
}

// ScriptDeployer runs an external script with a shell and waits for it.
type ScriptDeployer struct {
	Shell  string
	Script string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func NewScriptDeployer(shell, script, dir string, logger *slog.Logger) *ScriptDeployer {
	if shell == "" {
		shell = "sh"
	}
	return &ScriptDeployer{
		Shell:  shell,
		Script: script,
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
}

func (d *ScriptDeployer) Name() string {
	return "script"
}

func (d *ScriptDeployer) Deploy(ctx context.Context, commit model.Commit) (model.DeployResult, error) {
	result := model.DeployResult{
		ID:      uuid.NewString(),
		Commit:  commit,
		Started: time.Now(),
	}

	cmd := exec.CommandContext(ctx, d.Shell, d.Script)
	cmd.Dir = d.Dir
	cmd.Stdout = d.Stdout
	cmd.Stderr = d.Stderr
	cmd.Env = append(os.Environ(),
		"REDEPLOY_COMMIT="+commit.Hash,
		"REDEPLOY_ID="+result.ID,
	)

	d.Logger.Info("Running deploy script", "script", d.Script, "deploy_id", result.ID, "commit", commit.Short())
	err := cmd.Run()
	result.Duration = time.Since(result.Started)
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode < 0 {
			// killed by a signal, usually because ctx was cancelled
			return result, &DeployError{ExitCode: result.ExitCode, Err: fmt.Errorf("%s: %w", d.Script, err)}
		}
		return result, &DeployError{ExitCode: result.ExitCode}
	}
	result.ExitCode = -1
	return result, &DeployError{ExitCode: -1, Err: fmt.Errorf("%s: %w", d.Script, err)}
}
