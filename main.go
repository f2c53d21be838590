package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/moby/moby/client"
	"github.com/sithukyaw666/redeployer/model"
	"github.com/sithukyaw666/redeployer/operations"
	"github.com/sithukyaw666/redeployer/status"
	"github.com/sithukyaw666/redeployer/utils"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Detect and log new commits without running the deploy action.")
	once := flag.Bool("once", false, "Run a single check and exit.")
	healthCheck := flag.Bool("health-check", false, "Run a health check and exit.")
	configPath := flag.String("config", "", "Path to the config file (default ./config.yaml if present).")
	flag.Parse()

	config, err := utils.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *dryRun {
		config.DryRun = true
	}
	logger := utils.NewLogger(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := newSource(config, logger)
	if err != nil {
		logger.Error("Failed to create commit source", "error", err)
		os.Exit(1)
	}

	var cli *client.Client
	if config.Deployer == "compose" {
		cli, err = newDockerClient(config, logger)
		if err != nil {
			logger.Error("Failed to create docker client", "error", err)
			os.Exit(1)
		}
		defer cli.Close()
	}

	if *healthCheck {
		os.Exit(runHealthCheck(ctx, source, cli, logger))
	}

	deployer, err := newDeployer(config, cli, logger)
	if err != nil {
		logger.Error("Failed to create deployer", "error", err)
		os.Exit(1)
	}

	poller := operations.NewPoller(source, deployer, operations.PollerOptions{
		CheckInterval: utils.Seconds(config.CheckInterval),
		ErrorDelay:    utils.Seconds(config.ErrorDelay),
		DryRun:        config.DryRun,
		Logger:        logger,
	})

	if *once {
		if outcome := poller.Poll(ctx); outcome.Failed() {
			os.Exit(1)
		}
		return
	}

	logger.Info("Redeployer starting...",
		"source", source.Name(),
		"branch", config.TargetBranch,
		"deployer", deployer.Name(),
		"check_interval", utils.Seconds(config.CheckInterval),
		"dry_run", config.DryRun,
	)
	run := poller.Run
	if config.StatusAddr != "" {
		srv := status.New(config.StatusAddr, poller, logger)
		run = func(ctx context.Context) error {
			return srv.RunWith(ctx, poller.Run)
		}
	}
	if err := run(ctx); err != nil {
		logger.Error("Poller stopped", "error", err)
		os.Exit(1)
	}
}

func newSource(config model.Config, logger *slog.Logger) (operations.CommitSource, error) {
	switch config.Source {
	case "github":
		return operations.NewGitHubSource(operations.GitHubSourceConfig{
			APIURL:  config.APIURL,
			Owner:   config.RepoOwner,
			Repo:    config.RepoName,
			Branch:  config.TargetBranch,
			Timeout: utils.Seconds(config.FetchTimeout),
		})
	case "git":
		return operations.NewGitRemoteSource(config.RepoURL, config.TargetBranch, config.SSHKeyPath, logger)
	}
	return nil, fmt.Errorf("unknown source %q", config.Source)
}

func newDeployer(config model.Config, cli *client.Client, logger *slog.Logger) (operations.Deployer, error) {
	switch config.Deployer {
	case "script":
		return operations.NewScriptDeployer(config.Shell, config.DeployScript, config.WorkDir, logger), nil
	case "compose":
		return operations.NewComposeDeployer(cli, config, logger)
	}
	return nil, fmt.Errorf("unknown deployer %q", config.Deployer)
}

func newDockerClient(config model.Config, logger *slog.Logger) (*client.Client, error) {
	clientOpts := []client.Opt{client.FromEnv}
	if config.DockerAPIVersion != "" {
		logger.Info("Using specific Docker API version", "version", config.DockerAPIVersion)
		clientOpts = append(clientOpts, client.WithVersion(config.DockerAPIVersion))
	} else {
		clientOpts = append(clientOpts, client.WithAPIVersionNegotiation())
	}
	return client.NewClientWithOpts(clientOpts...)
}

func runHealthCheck(ctx context.Context, source operations.CommitSource, cli *client.Client, logger *slog.Logger) int {
	logger.Info("Performing health check...")

	commit, err := source.LatestCommit(ctx)
	if err != nil {
		logger.Error("Health check FAILED: could not fetch latest commit", "source", source.Name(), "error", err)
		return 1
	}
	logger.Info("Commit source reachable", "source", source.Name(), "commit", commit.Short())

	if cli != nil {
		if _, err := cli.Ping(ctx); err != nil {
			logger.Error("Health check FAILED: could not ping Docker daemon", "error", err)
			return 1
		}
	}

	logger.Info("Health check PASSED.")
	return 0
}
