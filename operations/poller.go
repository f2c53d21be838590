package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sithukyaw666/redeployer/model"
)

type Outcome string

const (
	OutcomeFetchFailed  Outcome = "fetch_failed"
	OutcomeUnchanged    Outcome = "unchanged"
	OutcomeDeployed     Outcome = "deployed"
	OutcomeDeployFailed Outcome = "deploy_failed"
	OutcomeDryRun       Outcome = "dry_run"
)

// Failed reports whether the iteration ended in an error.
func (o Outcome) Failed() bool {
	return o == OutcomeFetchFailed || o == OutcomeDeployFailed
}

type PollerOptions struct {
	CheckInterval time.Duration
	ErrorDelay    time.Duration
	DryRun        bool
	Logger        *slog.Logger
}

// Poller compares the newest commit of a source with the last deployed one
// and runs the deployer whenever they differ. The deployed hash lives only
// in memory, so a restart redeploys the current head.
type Poller struct {
	source   CommitSource
	deployer Deployer
	opts     PollerOptions
	logger   *slog.Logger

	// wait blocks for d or until ctx is done.
	wait func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	status model.Status
}

func NewPoller(source CommitSource, deployer Deployer, opts PollerOptions) *Poller {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 300 * time.Second
	}
	if opts.ErrorDelay <= 0 {
		opts.ErrorDelay = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		deployer: deployer,
		opts:     opts,
		logger:   logger,
		wait:     sleepContext,
		status:   model.Status{DryRun: opts.DryRun},
	}
}

// Run polls until ctx is cancelled. Fetch and deploy failures are logged
// and never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	for {
		outcome := p.Poll(ctx)
		if ctx.Err() != nil {
			return nil
		}

		delay := p.Delay(outcome)
		if outcome == OutcomeFetchFailed {
			p.logger.Warn("Trying again after error delay", "delay", delay)
		} else {
			p.logger.Info("Sleeping until next check", "delay", delay)
		}
		if err := p.wait(ctx, delay); err != nil {
			p.logger.Info("Shutdown signal received. Exiting gracefully.")
			return nil
		}
	}
}

func (p *Poller) Delay(outcome Outcome) time.Duration {
	if outcome == OutcomeFetchFailed {
		return p.opts.ErrorDelay
	}
	return p.opts.CheckInterval
}

// Poll runs a single iteration: fetch, compare, and deploy on change.
func (p *Poller) Poll(ctx context.Context) Outcome {
	p.logger.Info("Fetching newest commit...", "source", p.source.Name())

	commit, err := p.source.LatestCommit(ctx)
	if err == nil && commit.Hash == "" {
		err = &FetchError{Kind: FetchEmpty, Source: p.source.Name()}
	}
	if err != nil {
		p.logger.Error("Could not fetch commit hash", "error", err)
		p.record(OutcomeFetchFailed, "", err, nil)
		return OutcomeFetchFailed
	}

	p.mu.Lock()
	previous := p.status.DeployedCommit
	changed := commit.Hash != previous
	if changed {
		p.status.DeployedCommit = commit.Hash
	}
	p.mu.Unlock()

	if !changed {
		p.logger.Info("No new commits", "commit", commit.Short())
		p.record(OutcomeUnchanged, commit.Hash, nil, nil)
		return OutcomeUnchanged
	}

	p.logger.Info("New commit found. Redeploying...", "old_hash", previous, "new_hash", commit.Hash, "author", commit.Author, "message", commit.Message)
	if p.opts.DryRun {
		p.logger.Info("Dry run, skipping deploy", "deployer", p.deployer.Name(), "commit", commit.Short())
		p.record(OutcomeDryRun, commit.Hash, nil, nil)
		return OutcomeDryRun
	}

	result, err := p.deployer.Deploy(ctx, commit)
	if err != nil {
		p.logger.Error("Could not redeploy", "deployer", p.deployer.Name(), "deploy_id", result.ID, "exit_code", result.ExitCode, "error", err)
		p.record(OutcomeDeployFailed, commit.Hash, err, &result)
		return OutcomeDeployFailed
	}
	p.logger.Info("Redeployed successfully", "deployer", p.deployer.Name(), "deploy_id", result.ID, "duration", result.Duration)
	p.record(OutcomeDeployed, commit.Hash, nil, &result)
	return OutcomeDeployed
}

func (p *Poller) Status() model.Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	status := p.status
	if status.LastDeploy != nil {
		deploy := *status.LastDeploy
		status.LastDeploy = &deploy
	}
	return status
}

func (p *Poller) record(outcome Outcome, seen string, err error, result *model.DeployResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Iterations++
	p.status.LastCheck = time.Now()
	p.status.LastOutcome = string(outcome)
	p.status.LastError = ""
	if err != nil {
		p.status.LastError = err.Error()
	}
	if seen != "" {
		p.status.LastSeenCommit = seen
	}
	if result != nil {
		p.status.LastDeploy = result
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
