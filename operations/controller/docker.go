package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/client"
)

// Apply brings the project's containers, networks and volumes in line with
// compose. Every container it creates is labelled with commit, so a new
// commit recreates all services even when their images did not change.
func Apply(ctx context.Context, cli *client.Client, projectName string, compose *Compose, commit string, logger *slog.Logger) error {
	if err := ReconcileVolumes(ctx, cli, projectName, compose.Volumes, logger); err != nil {
		logger.Error("Volume reconciliation failed", "error", err)
	}
	if err := ReconcileNetworks(ctx, cli, projectName, compose.Networks, logger); err != nil {
		logger.Error("Network reconciliation failed", "error", err)
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: projectFilter(projectName),
	})
	if err != nil {
		return fmt.Errorf("could not list containers: %w", err)
	}

	running := make(map[string]RunningService, len(containers))
	for _, c := range containers {
		name := c.Labels[LabelService]
		if name == "" {
			continue
		}
		running[name] = RunningService{
			ContainerID: c.ID,
			ImageID:     c.ImageID,
			Commit:      c.Labels[LabelCommit],
		}
	}
	logger.Info("Found containers for project", "container_count", len(running), "project_name", projectName)

	imageIDs := make(map[string]string, len(compose.Services))
	for name, svc := range compose.Services {
		if err := pullImage(ctx, cli, svc.Image); err != nil {
			logger.Warn("Could not pull image", "service_name", name, "image", svc.Image, "error", err)
			continue
		}
		img, err := cli.ImageInspect(ctx, svc.Image)
		if err != nil {
			logger.Warn("Could not inspect image", "service_name", name, "image", svc.Image, "error", err)
			continue
		}
		imageIDs[name] = img.ID
	}

	return ReconcileServices(ctx, cli, projectName, compose, PlanServices(compose.Services, running, imageIDs, commit), commit, logger)
}
