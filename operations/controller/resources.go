package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moby/moby/api/types/filters"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/api/types/volume"
	"github.com/moby/moby/client"
)

func projectFilter(projectName string) filters.Args {
	return filters.NewArgs(filters.Arg("label", LabelProject+"="+projectName))
}

// resourceName is the daemon-side name of a network or volume. External
// resources are used as named; project resources get the project prefix.
func resourceName(projectName, name string, res Resource) string {
	if res.Name != "" {
		return res.Name
	}
	if res.External {
		return name
	}
	return fmt.Sprintf("%s_%s", projectName, name)
}

// volumeBinds rewrites the named-volume sources of a service's bind specs
// to the daemon-side volume names. Host paths and undeclared names pass
// through unchanged.
func volumeBinds(projectName string, binds []string, volumes map[string]Resource) []string {
	if len(binds) == 0 {
		return nil
	}
	out := make([]string, 0, len(binds))
	for _, bind := range binds {
		src, rest, found := strings.Cut(bind, ":")
		if strings.HasPrefix(src, "/") || strings.HasPrefix(src, ".") {
			out = append(out, bind)
			continue
		}
		res, declared := volumes[src]
		if !declared || !found {
			out = append(out, bind)
			continue
		}
		out = append(out, resourceName(projectName, src, res)+":"+rest)
	}
	return out
}

func ReconcileNetworks(ctx context.Context, cli *client.Client, projectName string, networks map[string]Resource, logger *slog.Logger) error {
	logger.Info("Reconciling networks...")

	actual, err := cli.NetworkList(ctx, network.ListOptions{Filters: projectFilter(projectName)})
	if err != nil {
		return fmt.Errorf("could not list networks: %w", err)
	}
	existing := make(map[string]string, len(actual))
	for _, net := range actual {
		if name := net.Labels[LabelNetwork]; name != "" {
			existing[name] = net.ID
		}
	}

	for _, name := range MissingResources(networks, existing) {
		res := networks[name]
		fullName := resourceName(projectName, name, res)
		_, err := cli.NetworkCreate(ctx, fullName, network.CreateOptions{
			Driver: res.Driver,
			Labels: map[string]string{
				LabelProject: projectName,
				LabelNetwork: name,
			},
		})
		if err != nil {
			logger.Warn("Could not create network", "network", fullName, "error", err)
			continue
		}
		logger.Info("Network created", "network", fullName)
	}

	for _, id := range OrphanedResources(networks, existing) {
		logger.Info("Removing orphaned network", "network_id", id)
		if err := cli.NetworkRemove(ctx, id); err != nil {
			logger.Error("Failed to remove network", "network_id", id, "error", err)
		}
	}
	return nil
}

func ReconcileVolumes(ctx context.Context, cli *client.Client, projectName string, volumes map[string]Resource, logger *slog.Logger) error {
	logger.Info("Reconciling volumes...")

	actual, err := cli.VolumeList(ctx, volume.ListOptions{Filters: projectFilter(projectName)})
	if err != nil {
		return fmt.Errorf("could not list volumes: %w", err)
	}
	existing := make(map[string]string, len(actual.Volumes))
	for _, vol := range actual.Volumes {
		if name := vol.Labels[LabelVolume]; name != "" {
			existing[name] = vol.Name
		}
	}

	for _, name := range MissingResources(volumes, existing) {
		res := volumes[name]
		fullName := resourceName(projectName, name, res)
		_, err := cli.VolumeCreate(ctx, volume.CreateOptions{
			Name:   fullName,
			Driver: res.Driver,
			Labels: map[string]string{
				LabelProject: projectName,
				LabelVolume:  name,
			},
		})
		if err != nil {
			logger.Warn("Could not create volume", "volume", fullName, "error", err)
			continue
		}
		logger.Info("Volume created", "volume", fullName)
	}

	for _, name := range OrphanedResources(volumes, existing) {
		logger.Info("Removing orphaned volume", "volume", name)
		if err := cli.VolumeRemove(ctx, name, true); err != nil {
			logger.Error("Failed to remove volume", "volume", name, "error", err)
		}
	}
	return nil
}
