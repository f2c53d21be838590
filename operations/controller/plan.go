package controller

import (
	"sort"
)

const (
	LabelProject = "com.docker.compose.project"
	LabelService = "com.docker.compose.service"
	LabelNetwork = "com.docker.compose.network"
	LabelVolume  = "com.docker.compose.volume"
	LabelCommit  = "com.redeployer.commit"
)

type ActionKind string

const (
	ActionCreate   ActionKind = "create"
	ActionRecreate ActionKind = "recreate"
	ActionKeep     ActionKind = "keep"
	ActionRemove   ActionKind = "remove"
)

// RunningService is what the reconciler knows about an existing container.
type RunningService struct {
	ContainerID string
	ImageID     string
	Commit      string
}

type ServiceAction struct {
	Service     string
	Kind        ActionKind
	ContainerID string
	Reason      string
}

// PlanServices decides what to do with every desired and running service.
// imageIDs maps service names to the ID of the freshly pulled image; a
// missing entry means the image could not be inspected and only the commit
// label is compared. Actions are sorted by service name.
func PlanServices(desired map[string]Service, running map[string]RunningService, imageIDs map[string]string, commit string) []ServiceAction {
	var actions []ServiceAction

	for name := range desired {
		current, ok := running[name]
		if !ok {
			actions = append(actions, ServiceAction{Service: name, Kind: ActionCreate, Reason: "not running"})
			continue
		}
		action := ServiceAction{Service: name, Kind: ActionKeep, ContainerID: current.ContainerID}
		if id, known := imageIDs[name]; known && id != current.ImageID {
			action.Kind = ActionRecreate
			action.Reason = "image changed"
		} else if commit != "" && current.Commit != commit {
			action.Kind = ActionRecreate
			action.Reason = "commit changed"
		}
		actions = append(actions, action)
	}

	for name, current := range running {
		if _, ok := desired[name]; !ok {
			actions = append(actions, ServiceAction{Service: name, Kind: ActionRemove, ContainerID: current.ContainerID, Reason: "orphaned"})
		}
	}

	sort.Slice(actions, func(i, j int) bool {
		return actions[i].Service < actions[j].Service
	})
	return actions
}

// MissingResources lists desired, non-external resources that do not exist
// yet. existing maps the logical compose name to the daemon-side name.
func MissingResources(desired map[string]Resource, existing map[string]string) []string {
	var missing []string
	for name, res := range desired {
		if res.External {
			continue
		}
		if _, ok := existing[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// OrphanedResources returns the daemon-side names of project resources that
// are no longer declared.
func OrphanedResources(desired map[string]Resource, existing map[string]string) []string {
	var orphaned []string
	for name, actual := range existing {
		if _, ok := desired[name]; !ok {
			orphaned = append(orphaned, actual)
		}
	}
	sort.Strings(orphaned)
	return orphaned
}
