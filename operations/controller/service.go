package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/go-connections/nat"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/image"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// ReconcileServices executes a service plan. It keeps going after a failed
// action and returns all failures joined.
func ReconcileServices(ctx context.Context, cli *client.Client, projectName string, compose *Compose, plan []ServiceAction, commit string, logger *slog.Logger) error {
	var errs []error
	for _, action := range plan {
		log := logger.With("service_name", action.Service, "action", action.Kind)
		switch action.Kind {
		case ActionKeep:
			log.Info("Service is up-to-date.")
			continue
		case ActionRemove, ActionRecreate:
			log.Info("Removing container", "container_id", shortID(action.ContainerID), "reason", action.Reason)
			if err := removeContainer(ctx, cli, action.ContainerID); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", action.Service, err))
				continue
			}
		}
		if action.Kind == ActionRemove {
			continue
		}
		svc := compose.Services[action.Service]
		if err := createService(ctx, cli, projectName, action.Service, &svc, compose, commit, log); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", action.Service, err))
		}
	}
	return errors.Join(errs...)
}

func removeContainer(ctx context.Context, cli *client.Client, id string) error {
	if err := cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	if err := cli.ContainerRemove(ctx, id, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func createService(ctx context.Context, cli *client.Client, projectName, serviceName string, service *Service, compose *Compose, commit string, logger *slog.Logger) error {
	exposedPorts, portBindings, err := nat.ParsePortSpecs(service.Ports)
	if err != nil {
		return fmt.Errorf("failed to parse port specs: %w", err)
	}
	endpoints := make(map[string]*network.EndpointSettings, len(service.Networks))
	for _, netName := range service.Networks {
		endpoints[resourceName(projectName, netName, compose.Networks[netName])] = &network.EndpointSettings{
			Aliases: []string{serviceName},
		}
	}
	containerName := service.ContainerName
	if containerName == "" {
		containerName = projectName + "_" + serviceName
	}

	resp, err := cli.ContainerCreate(ctx, &container.Config{
		Image:        service.Image,
		Env:          service.Environment,
		ExposedPorts: exposedPorts,
		Labels: map[string]string{
			LabelProject: projectName,
			LabelService: serviceName,
			LabelCommit:  commit,
		},
	}, &container.HostConfig{
		PortBindings: portBindings,
		Binds:        volumeBinds(projectName, service.Volumes, compose.Volumes),
	}, &network.NetworkingConfig{
		EndpointsConfig: endpoints,
	}, nil, containerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	logger.Info("Started service", "container_id", shortID(resp.ID))
	return nil
}

func pullImage(ctx context.Context, cli *client.Client, imageName string) error {
	out, err := cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(io.Discard, out)
	return err
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
